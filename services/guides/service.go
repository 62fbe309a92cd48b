package guides

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"seatrail/pkg/apperr"
	"seatrail/pkg/bus"
	"seatrail/services/marketplace"
)

var transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "seatrail",
	Name:      "guide_verification_transitions_total",
	Help:      "Guide verification transitions by target state and outcome.",
}, []string{"to", "outcome"})

// Profile is a guide with its specialties and languages.
type Profile struct {
	marketplace.Guide
	Specialties []marketplace.GuideSpecialty `json:"specialties"`
	Languages   []marketplace.GuideLanguage  `json:"languages"`
}

type SpecialtyInput struct {
	Specialty        string `json:"specialty"`
	YearsExperience  int    `json:"years_experience"`
	CertificationURL string `json:"certification_url"`
}

type LanguageInput struct {
	Language    string `json:"language"`
	Proficiency string `json:"proficiency"`
}

// ProfileInput is the data a user submits to become a guide.
type ProfileInput struct {
	Bio                   string           `json:"bio"`
	HourlyRate            float64          `json:"hourly_rate"`
	DailyRate             float64          `json:"daily_rate"`
	VerificationDocuments []string         `json:"verification_documents"`
	IsAvailable           *bool            `json:"is_available,omitempty"`
	Specialties           []SpecialtyInput `json:"specialties"`
	Languages             []LanguageInput  `json:"languages"`
}

// Service manages guide profiles and their verification state.
type Service struct {
	store marketplace.Store
	pub   bus.Publisher
	log   zerolog.Logger
	now   func() time.Time
}

// NewService builds a guide service. pub may be nil.
func NewService(store marketplace.Store, pub bus.Publisher, log zerolog.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	return &Service{
		store: store,
		pub:   pub,
		log:   log.With().Str("component", "guides").Logger(),
		now:   func() time.Time { return time.Now().UTC() },
	}, nil
}

// Verify moves a guide to VERIFIED and clears any rejection reason.
func (s *Service) Verify(ctx context.Context, actorID, guideID uuid.UUID) (marketplace.Guide, error) {
	return s.transition(ctx, actorID, guideID, marketplace.VerificationVerified, "")
}

// Reject moves a guide to REJECTED and records the reason.
func (s *Service) Reject(ctx context.Context, actorID, guideID uuid.UUID, reason string) (marketplace.Guide, error) {
	return s.transition(ctx, actorID, guideID, marketplace.VerificationRejected, strings.TrimSpace(reason))
}

func (s *Service) transition(ctx context.Context, actorID, guideID uuid.UUID, to marketplace.VerificationStatus, reason string) (marketplace.Guide, error) {
	var (
		guide marketplace.Guide
		from  marketplace.VerificationStatus
	)
	err := s.store.InTx(ctx, func(tx marketplace.Tx) error {
		var err error
		guide, err = tx.LockGuide(ctx, guideID)
		if err != nil {
			return err
		}
		from = guide.VerificationStatus
		if err := from.Transition(to); err != nil {
			return err
		}
		guide.VerificationStatus = to
		guide.RejectionReason = reason
		return tx.UpdateGuide(ctx, &guide)
	})
	if err != nil {
		transitionsTotal.WithLabelValues(string(to), apperr.KindOf(err).String()).Inc()
		return marketplace.Guide{}, err
	}
	transitionsTotal.WithLabelValues(string(to), "ok").Inc()

	s.log.Info().
		Str("actor_id", actorID.String()).
		Str("guide_id", guideID.String()).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("guide verification changed")

	if s.pub != nil {
		evt := marketplace.GuideVerificationEvent{
			ActorID: actorID,
			GuideID: guide.ID,
			UserID:  guide.UserID,
			From:    from,
			To:      to,
			Reason:  reason,
			At:      s.now(),
		}
		if err := s.pub.Publish(ctx, bus.SubjectGuideVerification, evt); err != nil {
			s.log.Error().Err(err).Str("subject", bus.SubjectGuideVerification).Msg("publish event")
		}
	}
	return guide, nil
}

// CreateProfile attaches a PENDING guide profile to a user and promotes a USER to GUIDE.
func (s *Service) CreateProfile(ctx context.Context, userID uuid.UUID, in ProfileInput) (Profile, error) {
	if in.HourlyRate < 0 || in.DailyRate < 0 {
		return Profile{}, apperr.Invalid("rates must not be negative")
	}

	var out Profile
	err := s.store.InTx(ctx, func(tx marketplace.Tx) error {
		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if !user.IsActive {
			return apperr.Policy("user %s is banned", userID)
		}
		if _, err := tx.FindGuideByUser(ctx, userID); err == nil {
			return apperr.Conflict("user %s already has a guide profile", userID)
		} else if !apperr.Is(err, apperr.KindNotFound) {
			return err
		}

		out.Guide = marketplace.Guide{
			ID:                    uuid.New(),
			UserID:                userID,
			Bio:                   strings.TrimSpace(in.Bio),
			HourlyRate:            in.HourlyRate,
			DailyRate:             in.DailyRate,
			IsAvailable:           in.IsAvailable == nil || *in.IsAvailable,
			VerificationStatus:    marketplace.VerificationPending,
			VerificationDocuments: in.VerificationDocuments,
		}
		if err := tx.CreateGuide(ctx, &out.Guide); err != nil {
			return err
		}

		if out.Specialties, out.Languages, err = addDetails(ctx, tx, out.ID, in); err != nil {
			return err
		}

		if user.Role == marketplace.RoleUser {
			user.Role = marketplace.RoleGuide
			return tx.UpdateUser(ctx, &user)
		}
		return nil
	})
	if err != nil {
		return Profile{}, err
	}

	s.log.Info().Str("user_id", userID.String()).Str("guide_id", out.ID.String()).Msg("guide profile created")
	return out, nil
}

// UpdateProfile replaces the editable fields, specialties and languages of the actor's
// own guide profile. The verification state is left alone. Profiles of other users are
// reported as missing.
func (s *Service) UpdateProfile(ctx context.Context, actorID, guideID uuid.UUID, in ProfileInput) (Profile, error) {
	if in.HourlyRate < 0 || in.DailyRate < 0 {
		return Profile{}, apperr.Invalid("rates must not be negative")
	}

	var out Profile
	err := s.store.InTx(ctx, func(tx marketplace.Tx) error {
		guide, err := tx.GetGuide(ctx, guideID)
		if err != nil {
			return err
		}
		if guide.UserID != actorID {
			return apperr.NotFound("guide %s not found", guideID)
		}

		guide.Bio = strings.TrimSpace(in.Bio)
		guide.HourlyRate = in.HourlyRate
		guide.DailyRate = in.DailyRate
		guide.VerificationDocuments = in.VerificationDocuments
		if in.IsAvailable != nil {
			guide.IsAvailable = *in.IsAvailable
		}
		if err := tx.UpdateGuide(ctx, &guide); err != nil {
			return err
		}

		if err := clearDetails(ctx, tx, guideID); err != nil {
			return err
		}
		out.Guide = guide
		out.Specialties, out.Languages, err = addDetails(ctx, tx, guideID, in)
		return err
	})
	if err != nil {
		return Profile{}, err
	}

	s.log.Info().Str("guide_id", guideID.String()).Msg("guide profile updated")
	return out, nil
}

func clearDetails(ctx context.Context, tx marketplace.Tx, guideID uuid.UUID) error {
	specialties, err := tx.ListSpecialties(ctx, guideID)
	if err != nil {
		return err
	}
	languages, err := tx.ListLanguages(ctx, guideID)
	if err != nil {
		return err
	}
	specialtyIDs := make([]uuid.UUID, 0, len(specialties))
	for _, sp := range specialties {
		specialtyIDs = append(specialtyIDs, sp.ID)
	}
	if _, err := tx.DeleteIDs(ctx, marketplace.TableGuideSpecialties, specialtyIDs); err != nil {
		return err
	}
	languageIDs := make([]uuid.UUID, 0, len(languages))
	for _, l := range languages {
		languageIDs = append(languageIDs, l.ID)
	}
	_, err = tx.DeleteIDs(ctx, marketplace.TableGuideLanguages, languageIDs)
	return err
}

func addDetails(ctx context.Context, tx marketplace.Tx, guideID uuid.UUID, in ProfileInput) ([]marketplace.GuideSpecialty, []marketplace.GuideLanguage, error) {
	var (
		specialties []marketplace.GuideSpecialty
		languages   []marketplace.GuideLanguage
	)
	for _, sp := range in.Specialties {
		name := strings.TrimSpace(sp.Specialty)
		if name == "" {
			return nil, nil, apperr.Invalid("specialty name is required")
		}
		row := marketplace.GuideSpecialty{
			ID:               uuid.New(),
			GuideID:          guideID,
			Specialty:        name,
			YearsExperience:  sp.YearsExperience,
			CertificationURL: sp.CertificationURL,
		}
		if err := tx.CreateSpecialty(ctx, &row); err != nil {
			return nil, nil, err
		}
		specialties = append(specialties, row)
	}

	for _, l := range in.Languages {
		prof, err := marketplace.ParseProficiency(l.Proficiency)
		if err != nil {
			return nil, nil, err
		}
		row := marketplace.GuideLanguage{
			ID:          uuid.New(),
			GuideID:     guideID,
			Language:    strings.TrimSpace(l.Language),
			Proficiency: prof,
		}
		if err := tx.CreateLanguage(ctx, &row); err != nil {
			return nil, nil, err
		}
		languages = append(languages, row)
	}
	return specialties, languages, nil
}

// Get returns a guide profile regardless of its verification state.
func (s *Service) Get(ctx context.Context, guideID uuid.UUID) (Profile, error) {
	var out Profile
	err := s.store.InTx(ctx, func(tx marketplace.Tx) error {
		var err error
		out, err = loadProfile(ctx, tx, guideID)
		return err
	})
	return out, err
}

// GetPublic returns a guide profile only when the guide is VERIFIED.
func (s *Service) GetPublic(ctx context.Context, guideID uuid.UUID) (Profile, error) {
	p, err := s.Get(ctx, guideID)
	if err != nil {
		return Profile{}, err
	}
	if p.VerificationStatus != marketplace.VerificationVerified {
		return Profile{}, apperr.NotFound("guide %s not found", guideID)
	}
	return p, nil
}

func loadProfile(ctx context.Context, tx marketplace.Tx, guideID uuid.UUID) (Profile, error) {
	guide, err := tx.GetGuide(ctx, guideID)
	if err != nil {
		return Profile{}, err
	}
	p := Profile{Guide: guide}
	if p.Specialties, err = tx.ListSpecialties(ctx, guideID); err != nil {
		return Profile{}, err
	}
	if p.Languages, err = tx.ListLanguages(ctx, guideID); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// ListByStatus lists guides in one verification state, or all guides when status is empty.
func (s *Service) ListByStatus(ctx context.Context, status marketplace.VerificationStatus) ([]marketplace.Guide, error) {
	var out []marketplace.Guide
	err := s.store.InTx(ctx, func(tx marketplace.Tx) error {
		var err error
		out, err = tx.ListGuides(ctx, marketplace.GuideFilter{Status: status})
		return err
	})
	return out, err
}

// ListVerified is the public guide directory.
func (s *Service) ListVerified(ctx context.Context) ([]marketplace.Guide, error) {
	return s.ListByStatus(ctx, marketplace.VerificationVerified)
}
