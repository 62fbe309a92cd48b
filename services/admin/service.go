package admin

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"seatrail/pkg/apperr"
	"seatrail/pkg/bus"
	"seatrail/services/marketplace"
	"seatrail/services/reviews"
)

var (
	removalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seatrail",
		Name:      "user_removals_total",
		Help:      "User removal attempts by outcome.",
	}, []string{"outcome"})
	cascadeRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seatrail",
		Name:      "cascade_rows_deleted_total",
		Help:      "Rows deleted by user removal, by table.",
	}, []string{"table"})
)

// RemovalReport describes what a successful user removal deleted.
type RemovalReport struct {
	UserID      uuid.UUID        `json:"user_id"`
	GuideID     *uuid.UUID       `json:"guide_id,omitempty"`
	Deleted     map[string]int64 `json:"deleted"`
	StaleGuides []uuid.UUID      `json:"stale_guides,omitempty"`
	MediaURLs   []string         `json:"media_urls,omitempty"`
}

// UserDetail is a user with the guide profile attached when one exists.
type UserDetail struct {
	marketplace.User
	Guide *marketplace.Guide `json:"guide,omitempty"`
}

// Service implements administrator operations on user accounts.
type Service struct {
	store marketplace.Store
	pub   bus.Publisher
	log   zerolog.Logger
	plan  Plan
	now   func() time.Time
}

// NewService builds the admin service and its removal plan. pub may be nil.
func NewService(store marketplace.Store, pub bus.Publisher, log zerolog.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	plan, err := BuildPlan(marketplace.TableUsers, marketplace.References)
	if err != nil {
		return nil, fmt.Errorf("build removal plan: %w", err)
	}
	return &Service{
		store: store,
		pub:   pub,
		log:   log.With().Str("component", "admin").Logger(),
		plan:  plan,
		now:   func() time.Time { return time.Now().UTC() },
	}, nil
}

// Plan returns the removal plan computed at construction.
func (s *Service) Plan() Plan { return s.plan }

// RemoveUser deletes a non-admin user and every row that references it or its guide
// profile. Either everything is removed or nothing is.
func (s *Service) RemoveUser(ctx context.Context, actorID, userID uuid.UUID) (RemovalReport, error) {
	report, err := s.removeUser(ctx, userID)
	if err != nil {
		removalsTotal.WithLabelValues(apperr.KindOf(err).String()).Inc()
		s.log.Warn().Err(err).
			Str("actor_id", actorID.String()).
			Str("user_id", userID.String()).
			Msg("user removal failed")
		return RemovalReport{}, err
	}
	removalsTotal.WithLabelValues("ok").Inc()

	evt := s.log.Info().Str("actor_id", actorID.String()).Str("user_id", userID.String())
	for table, n := range report.Deleted {
		cascadeRows.WithLabelValues(table).Add(float64(n))
		evt = evt.Int64(table, n)
	}
	evt.Int("stale_guides", len(report.StaleGuides)).Msg("user removed")

	s.publish(ctx, bus.SubjectUserRemoved, marketplace.UserRemovedEvent{
		ActorID:     actorID,
		UserID:      report.UserID,
		GuideID:     report.GuideID,
		Deleted:     report.Deleted,
		StaleGuides: report.StaleGuides,
		MediaURLs:   report.MediaURLs,
		At:          s.now(),
	})
	return report, nil
}

func (s *Service) removeUser(ctx context.Context, userID uuid.UUID) (RemovalReport, error) {
	report := RemovalReport{UserID: userID, Deleted: map[string]int64{}}

	err := s.store.InTx(ctx, func(tx marketplace.Tx) error {
		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if user.Role == marketplace.RoleAdmin {
			return apperr.Policy("user %s is an administrator and cannot be removed", userID)
		}

		keys, err := s.discover(ctx, tx, userID)
		if err != nil {
			return err
		}
		if guides := keys[marketplace.TableGuides]; len(guides) > 0 {
			id := guides[0]
			report.GuideID = &id
		}

		stale, err := tx.PluckIDs(ctx, marketplace.TableReviews, "guide_id", "id", keys[marketplace.TableReviews])
		if err != nil {
			return err
		}
		for _, id := range stale {
			if !slices.Contains(keys[marketplace.TableGuides], id) {
				report.StaleGuides = append(report.StaleGuides, id)
			}
		}

		report.MediaURLs, err = tx.TourImageURLs(ctx, keys[marketplace.TableTours])
		if err != nil {
			return err
		}
		if user.ProfilePictureURL != "" {
			report.MediaURLs = append(report.MediaURLs, user.ProfilePictureURL)
		}
		slices.Sort(report.MediaURLs)
		report.MediaURLs = slices.Compact(report.MediaURLs)

		for _, table := range s.plan.Delete {
			n, err := tx.DeleteIDs(ctx, table, keys[table])
			if err != nil {
				return fmt.Errorf("remove user %s: %w", userID, err)
			}
			report.Deleted[table] = n
		}

		// Objects still referenced by surviving rows are not orphaned.
		inUse, err := tx.MediaInUse(ctx, report.MediaURLs)
		if err != nil {
			return err
		}
		report.MediaURLs = slices.DeleteFunc(report.MediaURLs, func(u string) bool { return slices.Contains(inUse, u) })
		if len(report.MediaURLs) == 0 {
			report.MediaURLs = nil
		}

		for _, guideID := range report.StaleGuides {
			if _, err := reviews.RecomputeGuideRating(ctx, tx, guideID); err != nil {
				return fmt.Errorf("remove user %s: %w", userID, err)
			}
		}
		return nil
	})
	if err != nil {
		return RemovalReport{}, err
	}
	return report, nil
}

// discover walks the plan top-down and returns the ids to delete per table.
func (s *Service) discover(ctx context.Context, tx marketplace.Tx, userID uuid.UUID) (map[string][]uuid.UUID, error) {
	keys := map[string][]uuid.UUID{s.plan.Root: {userID}}
	for _, step := range s.plan.Discover {
		var ids []uuid.UUID
		for _, edge := range step.Edges {
			found, err := tx.PluckIDs(ctx, step.Table, "id", edge.Column, keys[edge.Parent])
			if err != nil {
				return nil, err
			}
			for _, id := range found {
				if !slices.Contains(ids, id) {
					ids = append(ids, id)
				}
			}
		}
		keys[step.Table] = ids
	}
	return keys, nil
}

// UserInput describes a new account.
type UserInput struct {
	Email     string           `json:"email"`
	FirstName string           `json:"first_name"`
	LastName  string           `json:"last_name"`
	Role      marketplace.Role `json:"role"`
}

// CreateUser registers an account. Used by operator tooling; signup lives upstream.
func (s *Service) CreateUser(ctx context.Context, in UserInput) (marketplace.User, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(in.Email))
	if err != nil {
		return marketplace.User{}, apperr.Invalid("invalid email %q", in.Email)
	}
	role := in.Role
	if role == "" {
		role = marketplace.RoleUser
	}
	if role, err = marketplace.ParseRole(string(role)); err != nil {
		return marketplace.User{}, err
	}

	user := marketplace.User{
		ID:        uuid.New(),
		Email:     strings.ToLower(addr.Address),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Role:      role,
		IsActive:  true,
	}
	err = s.store.InTx(ctx, func(tx marketplace.Tx) error {
		return tx.CreateUser(ctx, &user)
	})
	if err != nil {
		return marketplace.User{}, err
	}
	s.log.Info().Str("user_id", user.ID.String()).Str("role", string(user.Role)).Msg("user created")
	return user, nil
}

func (s *Service) ListUsers(ctx context.Context, f marketplace.UserFilter) ([]marketplace.User, error) {
	var out []marketplace.User
	err := s.store.InTx(ctx, func(tx marketplace.Tx) error {
		var err error
		out, err = tx.ListUsers(ctx, f)
		return err
	})
	return out, err
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (UserDetail, error) {
	var out UserDetail
	err := s.store.InTx(ctx, func(tx marketplace.Tx) error {
		user, err := tx.GetUser(ctx, id)
		if err != nil {
			return err
		}
		out.User = user

		guide, err := tx.FindGuideByUser(ctx, id)
		switch {
		case err == nil:
			out.Guide = &guide
		case !apperr.Is(err, apperr.KindNotFound):
			return err
		}
		return nil
	})
	return out, err
}

// BanUser deactivates a non-admin account.
func (s *Service) BanUser(ctx context.Context, actorID, userID uuid.UUID) (marketplace.User, error) {
	return s.setActive(ctx, actorID, userID, false)
}

// UnbanUser reactivates an account.
func (s *Service) UnbanUser(ctx context.Context, actorID, userID uuid.UUID) (marketplace.User, error) {
	return s.setActive(ctx, actorID, userID, true)
}

func (s *Service) setActive(ctx context.Context, actorID, userID uuid.UUID, active bool) (marketplace.User, error) {
	var user marketplace.User
	err := s.store.InTx(ctx, func(tx marketplace.Tx) error {
		var err error
		user, err = tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if !active && user.Role == marketplace.RoleAdmin {
			return apperr.Policy("user %s is an administrator and cannot be banned", userID)
		}
		user.IsActive = active
		return tx.UpdateUser(ctx, &user)
	})
	if err != nil {
		return marketplace.User{}, err
	}

	subject, msg := bus.SubjectUserUnbanned, "user unbanned"
	if !active {
		subject, msg = bus.SubjectUserBanned, "user banned"
	}
	s.log.Info().Str("actor_id", actorID.String()).Str("user_id", userID.String()).Msg(msg)
	s.publish(ctx, subject, marketplace.UserStatusEvent{ActorID: actorID, UserID: userID, Active: active, At: s.now()})
	return user, nil
}

// RequireAdmin returns a Policy error unless id belongs to an active administrator.
func (s *Service) RequireAdmin(ctx context.Context, id uuid.UUID) error {
	return s.store.InTx(ctx, func(tx marketplace.Tx) error {
		user, err := tx.GetUser(ctx, id)
		if apperr.Is(err, apperr.KindNotFound) {
			return apperr.Policy("unknown actor %s", id)
		}
		if err != nil {
			return err
		}
		if user.Role != marketplace.RoleAdmin || !user.IsActive {
			return apperr.Policy("user %s is not an administrator", id)
		}
		return nil
	})
}

func (s *Service) publish(ctx context.Context, subject string, v any) {
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(ctx, subject, v); err != nil {
		s.log.Error().Err(err).Str("subject", subject).Msg("publish event")
	}
}
