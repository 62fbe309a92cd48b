package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"seatrail/pkg/apperr"
	"seatrail/pkg/bus"
	"seatrail/pkg/config"
	"seatrail/pkg/db"
	"seatrail/pkg/telemetry"
	"seatrail/services/admin"
	"seatrail/services/guides"
	"seatrail/services/marketplace"
	"seatrail/services/reviews"
)

// Exit codes by error kind so scripts can tell a refusal from a failure.
var exitCodes = map[apperr.Kind]int{
	apperr.KindInternal: 1,
	apperr.KindInvalid:  2,
	apperr.KindNotFound: 3,
	apperr.KindPolicy:   4,
	apperr.KindConflict: 5,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand(os.Stdout).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCodes[apperr.KindOf(err)])
	}
}

func newRootCommand(out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "seatrailctl",
		Short:         "Operator tooling for the seatrail marketplace",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)

	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newUsersCommand())
	cmd.AddCommand(newGuidesCommand())
	cmd.AddCommand(newRatingsCommand())
	return cmd
}

// env holds the services a command runs against.
type env struct {
	admin   *admin.Service
	guides  *guides.Service
	reviews *reviews.Service
	close   func()
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.RequireDB(); err != nil {
		return nil, err
	}
	logger := telemetry.NewLogger("seatrailctl", cfg.LogLevel, cfg.LogFormat, os.Stderr)

	orm, err := db.OpenORM(ctx, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("open orm: %w", err)
	}
	closers := []func(){func() { _ = db.CloseORM(orm) }}

	store, err := marketplace.NewGormStore(orm)
	if err != nil {
		return nil, err
	}

	var pub bus.Publisher
	if cfg.NATSURL != "" {
		b, err := bus.Open(cfg.NATSURL)
		if err != nil {
			return nil, fmt.Errorf("connect bus: %w", err)
		}
		closers = append(closers, b.Close)
		pub = b
	}

	e := &env{close: func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}}
	if e.admin, err = admin.NewService(store, pub, logger); err != nil {
		e.close()
		return nil, err
	}
	if e.guides, err = guides.NewService(store, pub, logger); err != nil {
		e.close()
		return nil, err
	}
	if e.reviews, err = reviews.NewService(store, pub, logger); err != nil {
		e.close()
		return nil, err
	}
	return e, nil
}

// withEnv opens the services for one command run.
func withEnv(fn func(cmd *cobra.Command, e *env, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.close()
		return fn(cmd, e, args)
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.Invalid("%q is not a uuid", raw)
	}
	return id, nil
}

// actorFlag binds --actor and returns a resolver that checks it names an administrator.
func actorFlag(cmd *cobra.Command) func(ctx context.Context, svc *admin.Service) (uuid.UUID, error) {
	var raw string
	cmd.Flags().StringVar(&raw, "actor", "", "Administrator user id performing the change")
	_ = cmd.MarkFlagRequired("actor")
	return func(ctx context.Context, svc *admin.Service) (uuid.UUID, error) {
		id, err := parseID(raw)
		if err != nil {
			return uuid.Nil, err
		}
		return id, svc.RequireAdmin(ctx, id)
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}
			if err := cfg.RequireDB(); err != nil {
				return err
			}
			pool, err := db.Open(ctx, cfg.DBDSN)
			if err != nil {
				return err
			}
			defer pool.Close()

			results, err := db.Migrate(ctx, pool)
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s in %s\n", r.Source.Path, r.Duration)
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			}
			return nil
		},
	}
}

func newUsersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newUsersCreateCommand(), newUsersListCommand(), newUsersBanCommand(true), newUsersBanCommand(false), newUsersRemoveCommand())
	return cmd
}

func newUsersCreateCommand() *cobra.Command {
	var in admin.UserInput
	var role string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user account",
		RunE: withEnv(func(cmd *cobra.Command, e *env, _ []string) error {
			if role != "" {
				r, err := marketplace.ParseRole(role)
				if err != nil {
					return err
				}
				in.Role = r
			}
			user, err := e.admin.CreateUser(cmd.Context(), in)
			if err != nil {
				return err
			}
			return printJSON(cmd, user)
		}),
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&in.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&in.LastName, "last-name", "", "Last name")
	cmd.Flags().StringVar(&role, "role", "", "USER, GUIDE or ADMIN (default USER)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newUsersListCommand() *cobra.Command {
	var role string
	var bannedOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List user accounts",
		RunE: withEnv(func(cmd *cobra.Command, e *env, _ []string) error {
			var f marketplace.UserFilter
			if role != "" {
				r, err := marketplace.ParseRole(role)
				if err != nil {
					return err
				}
				f.Role = r
			}
			if bannedOnly {
				active := false
				f.Active = &active
			}
			users, err := e.admin.ListUsers(cmd.Context(), f)
			if err != nil {
				return err
			}
			return printJSON(cmd, users)
		}),
	}
	cmd.Flags().StringVar(&role, "role", "", "Only list users with this role")
	cmd.Flags().BoolVar(&bannedOnly, "banned", false, "Only list banned users")
	return cmd
}

func newUsersBanCommand(ban bool) *cobra.Command {
	use, short := "ban", "Ban a user"
	if !ban {
		use, short = "unban", "Lift a ban"
	}
	cmd := &cobra.Command{
		Use:   use + " USER_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
	}
	resolveActor := actorFlag(cmd)
	cmd.RunE = withEnv(func(cmd *cobra.Command, e *env, args []string) error {
		ctx := cmd.Context()
		actorID, err := resolveActor(ctx, e.admin)
		if err != nil {
			return err
		}
		userID, err := parseID(args[0])
		if err != nil {
			return err
		}
		fn := e.admin.BanUser
		if !ban {
			fn = e.admin.UnbanUser
		}
		user, err := fn(ctx, actorID, userID)
		if err != nil {
			return err
		}
		return printJSON(cmd, user)
	})
	return cmd
}

func newUsersRemoveCommand() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "remove USER_ID",
		Short: "Delete a user and everything that depends on it",
		Args:  cobra.ExactArgs(1),
	}
	resolveActor := actorFlag(cmd)
	cmd.Flags().BoolVar(&dryRun, "plan", false, "Print the deletion order without deleting anything")
	cmd.RunE = withEnv(func(cmd *cobra.Command, e *env, args []string) error {
		if dryRun {
			return printJSON(cmd, e.admin.Plan())
		}
		ctx := cmd.Context()
		actorID, err := resolveActor(ctx, e.admin)
		if err != nil {
			return err
		}
		userID, err := parseID(args[0])
		if err != nil {
			return err
		}
		report, err := e.admin.RemoveUser(ctx, actorID, userID)
		if err != nil {
			return err
		}
		return printJSON(cmd, report)
	})
	return cmd
}

func newGuidesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guides",
		Short: "Guide verification",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	verify := &cobra.Command{Use: "verify GUIDE_ID", Short: "Mark a guide VERIFIED", Args: cobra.ExactArgs(1)}
	verifyActor := actorFlag(verify)
	verify.RunE = withEnv(func(cmd *cobra.Command, e *env, args []string) error {
		return transitionGuide(cmd, e, args[0], verifyActor, func(ctx context.Context, actorID, guideID uuid.UUID) (marketplace.Guide, error) {
			return e.guides.Verify(ctx, actorID, guideID)
		})
	})

	var reason string
	reject := &cobra.Command{Use: "reject GUIDE_ID", Short: "Mark a guide REJECTED", Args: cobra.ExactArgs(1)}
	rejectActor := actorFlag(reject)
	reject.Flags().StringVar(&reason, "reason", "", "Reason shown to the guide")
	reject.RunE = withEnv(func(cmd *cobra.Command, e *env, args []string) error {
		return transitionGuide(cmd, e, args[0], rejectActor, func(ctx context.Context, actorID, guideID uuid.UUID) (marketplace.Guide, error) {
			return e.guides.Reject(ctx, actorID, guideID, reason)
		})
	})

	cmd.AddCommand(verify, reject)
	return cmd
}

func transitionGuide(cmd *cobra.Command, e *env, rawID string, resolveActor func(context.Context, *admin.Service) (uuid.UUID, error), fn func(ctx context.Context, actorID, guideID uuid.UUID) (marketplace.Guide, error)) error {
	ctx := cmd.Context()
	actorID, err := resolveActor(ctx, e.admin)
	if err != nil {
		return err
	}
	guideID, err := parseID(rawID)
	if err != nil {
		return err
	}
	guide, err := fn(ctx, actorID, guideID)
	if err != nil {
		return err
	}
	return printJSON(cmd, guide)
}

func newRatingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratings",
		Short: "Guide rating maintenance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "recompute",
		Short: "Recompute every guide's cached rating from its reviews",
		RunE: withEnv(func(cmd *cobra.Command, e *env, _ []string) error {
			changed, err := e.reviews.RecomputeAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d guide ratings corrected\n", changed)
			return nil
		}),
	})
	return cmd
}
