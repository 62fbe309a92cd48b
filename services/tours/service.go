package tours

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"seatrail/pkg/apperr"
	"seatrail/services/marketplace"
)

// TourInput is the editable part of a tour listing.
type TourInput struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Category       string   `json:"category"`
	DurationHours  int      `json:"duration_hours"`
	MaxGroupSize   int      `json:"max_group_size"`
	PricePerPerson float64  `json:"price_per_person"`
	Highlights     []string `json:"highlights"`
	MeetingPoint   string   `json:"meeting_point"`
}

func (in TourInput) validate() error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return apperr.Invalid("title is required")
	case in.DurationHours <= 0:
		return apperr.Invalid("duration_hours must be positive")
	case in.MaxGroupSize <= 0:
		return apperr.Invalid("max_group_size must be positive")
	case in.PricePerPerson < 0:
		return apperr.Invalid("price_per_person must not be negative")
	}
	return nil
}

// TourUpdate changes the listed fields of a tour. Nil fields are left alone.
type TourUpdate struct {
	Title          *string   `json:"title"`
	Description    *string   `json:"description"`
	Category       *string   `json:"category"`
	DurationHours  *int      `json:"duration_hours"`
	MaxGroupSize   *int      `json:"max_group_size"`
	PricePerPerson *float64  `json:"price_per_person"`
	Highlights     *[]string `json:"highlights"`
	MeetingPoint   *string   `json:"meeting_point"`
}

// apply copies the set fields onto tour and returns the validated result.
func (u TourUpdate) apply(tour marketplace.Tour) (marketplace.Tour, error) {
	if u.Title != nil {
		tour.Title = strings.TrimSpace(*u.Title)
	}
	if u.Description != nil {
		tour.Description = *u.Description
	}
	if u.Category != nil {
		tour.Category = strings.TrimSpace(*u.Category)
	}
	if u.DurationHours != nil {
		tour.DurationHours = *u.DurationHours
	}
	if u.MaxGroupSize != nil {
		tour.MaxGroupSize = *u.MaxGroupSize
	}
	if u.PricePerPerson != nil {
		tour.PricePerPerson = *u.PricePerPerson
	}
	if u.Highlights != nil {
		tour.Highlights = *u.Highlights
	}
	if u.MeetingPoint != nil {
		tour.MeetingPoint = *u.MeetingPoint
	}
	in := TourInput{
		Title:          tour.Title,
		DurationHours:  tour.DurationHours,
		MaxGroupSize:   tour.MaxGroupSize,
		PricePerPerson: tour.PricePerPerson,
	}
	return tour, in.validate()
}

// Detail is a tour with its images.
type Detail struct {
	marketplace.Tour
	Images []marketplace.TourImage `json:"images"`
}

// Service manages the tour catalog.
type Service struct {
	store marketplace.Store
	log   zerolog.Logger
}

func NewService(store marketplace.Store, log zerolog.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	return &Service{store: store, log: log.With().Str("component", "tours").Logger()}, nil
}

// ownedGuide returns the guide profile of actorID.
func ownedGuide(ctx context.Context, tx marketplace.Tx, actorID uuid.UUID) (marketplace.Guide, error) {
	guide, err := tx.FindGuideByUser(ctx, actorID)
	if apperr.Is(err, apperr.KindNotFound) {
		return marketplace.Guide{}, apperr.Policy("user %s has no guide profile", actorID)
	}
	return guide, err
}

// syncTotalTours sets the guide's cached tour count to its number of active tours.
func syncTotalTours(ctx context.Context, tx marketplace.Tx, guideID uuid.UUID) error {
	guide, err := tx.LockGuide(ctx, guideID)
	if err != nil {
		return err
	}
	active, err := tx.ListTours(ctx, marketplace.TourFilter{GuideID: guideID, ActiveOnly: true})
	if err != nil {
		return err
	}
	if guide.TotalTours == len(active) {
		return nil
	}
	guide.TotalTours = len(active)
	return tx.UpdateGuide(ctx, &guide)
}

// Create lists a new active tour for the actor's guide profile.
func (s *Service) Create(ctx context.Context, actorID uuid.UUID, in TourInput) (marketplace.Tour, error) {
	if err := in.validate(); err != nil {
		return marketplace.Tour{}, err
	}

	var tour marketplace.Tour
	err := s.store.InTx(ctx, func(tx marketplace.Tx) error {
		guide, err := ownedGuide(ctx, tx, actorID)
		if err != nil {
			return err
		}
		tour = marketplace.Tour{
			ID:             uuid.New(),
			GuideID:        guide.ID,
			Title:          strings.TrimSpace(in.Title),
			Description:    in.Description,
			Category:       strings.TrimSpace(in.Category),
			DurationHours:  in.DurationHours,
			MaxGroupSize:   in.MaxGroupSize,
			PricePerPerson: in.PricePerPerson,
			Highlights:     in.Highlights,
			MeetingPoint:   in.MeetingPoint,
			IsActive:       true,
		}
		if err := tx.CreateTour(ctx, &tour); err != nil {
			return err
		}
		return syncTotalTours(ctx, tx, guide.ID)
	})
	if err != nil {
		return marketplace.Tour{}, err
	}
	s.log.Info().Str("tour_id", tour.ID.String()).Str("guide_id", tour.GuideID.String()).Msg("tour created")
	return tour, nil
}

// Deactivate hides a tour from the catalog. Only the owning guide may do it, and
// deactivating an inactive tour is a no-op.
func (s *Service) Deactivate(ctx context.Context, actorID, tourID uuid.UUID) (marketplace.Tour, error) {
	var tour marketplace.Tour
	err := s.store.InTx(ctx, func(tx marketplace.Tx) error {
		var err error
		tour, err = s.owned(ctx, tx, actorID, tourID)
		if err != nil {
			return err
		}
		if !tour.IsActive {
			return nil
		}
		tour.IsActive = false
		if err := tx.UpdateTour(ctx, &tour); err != nil {
			return err
		}
		return syncTotalTours(ctx, tx, tour.GuideID)
	})
	if err != nil {
		return marketplace.Tour{}, err
	}
	s.log.Info().Str("tour_id", tourID.String()).Msg("tour deactivated")
	return tour, nil
}

// Update edits a tour owned by the actor. Existing bookings keep the amount they were
// created with.
func (s *Service) Update(ctx context.Context, actorID, tourID uuid.UUID, in TourUpdate) (marketplace.Tour, error) {
	var tour marketplace.Tour
	err := s.store.InTx(ctx, func(tx marketplace.Tx) error {
		current, err := s.owned(ctx, tx, actorID, tourID)
		if err != nil {
			return err
		}
		if tour, err = in.apply(current); err != nil {
			return err
		}
		return tx.UpdateTour(ctx, &tour)
	})
	if err != nil {
		return marketplace.Tour{}, err
	}
	s.log.Info().Str("tour_id", tourID.String()).Msg("tour updated")
	return tour, nil
}

// owned loads a tour and checks it belongs to the actor. Tours of other guides
// are reported as missing.
func (s *Service) owned(ctx context.Context, tx marketplace.Tx, actorID, tourID uuid.UUID) (marketplace.Tour, error) {
	guide, err := ownedGuide(ctx, tx, actorID)
	if err != nil {
		return marketplace.Tour{}, err
	}
	tour, err := tx.GetTour(ctx, tourID)
	if err != nil {
		return marketplace.Tour{}, err
	}
	if tour.GuideID != guide.ID {
		return marketplace.Tour{}, apperr.NotFound("tour %s not found", tourID)
	}
	return tour, nil
}

// AddImage attaches an image URL to a tour owned by the actor.
func (s *Service) AddImage(ctx context.Context, actorID, tourID uuid.UUID, rawURL string, primary bool) (marketplace.TourImage, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return marketplace.TourImage{}, apperr.Invalid("image url must be an absolute http(s) url")
	}

	img := marketplace.TourImage{ID: uuid.New(), TourID: tourID, URL: u.String(), IsPrimary: primary}
	err = s.store.InTx(ctx, func(tx marketplace.Tx) error {
		if _, err := s.owned(ctx, tx, actorID, tourID); err != nil {
			return err
		}
		return tx.CreateTourImage(ctx, &img)
	})
	if err != nil {
		return marketplace.TourImage{}, err
	}
	return img, nil
}

// RemoveImage detaches an image from a tour owned by the actor. The stored object is
// not touched.
func (s *Service) RemoveImage(ctx context.Context, actorID, tourID, imageID uuid.UUID) error {
	err := s.store.InTx(ctx, func(tx marketplace.Tx) error {
		if _, err := s.owned(ctx, tx, actorID, tourID); err != nil {
			return err
		}
		images, err := tx.ListTourImages(ctx, tourID)
		if err != nil {
			return err
		}
		idx := slices.IndexFunc(images, func(img marketplace.TourImage) bool { return img.ID == imageID })
		if idx < 0 {
			return apperr.NotFound("image %s of tour %s not found", imageID, tourID)
		}
		_, err = tx.DeleteIDs(ctx, marketplace.TableTourImages, []uuid.UUID{imageID})
		return err
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("tour_id", tourID.String()).Str("image_id", imageID.String()).Msg("tour image removed")
	return nil
}

// Get returns a tour with its images. With public set, inactive tours and tours of
// unverified guides are reported as missing.
func (s *Service) Get(ctx context.Context, tourID uuid.UUID, public bool) (Detail, error) {
	var out Detail
	err := s.store.InTx(ctx, func(tx marketplace.Tx) error {
		tour, err := tx.GetTour(ctx, tourID)
		if err != nil {
			return err
		}
		if public {
			guide, err := tx.GetGuide(ctx, tour.GuideID)
			if err != nil {
				return err
			}
			if !tour.IsActive || guide.VerificationStatus != marketplace.VerificationVerified {
				return apperr.NotFound("tour %s not found", tourID)
			}
		}
		out.Tour = tour
		out.Images, err = tx.ListTourImages(ctx, tourID)
		return err
	})
	return out, err
}

// ListPublic returns active tours of VERIFIED guides, newest first.
func (s *Service) ListPublic(ctx context.Context) ([]marketplace.Tour, error) {
	return s.list(ctx, marketplace.TourFilter{ActiveOnly: true, VerifiedOnly: true})
}

// ListByGuide returns every tour of a guide, including inactive ones.
func (s *Service) ListByGuide(ctx context.Context, guideID uuid.UUID) ([]marketplace.Tour, error) {
	return s.list(ctx, marketplace.TourFilter{GuideID: guideID})
}

func (s *Service) list(ctx context.Context, f marketplace.TourFilter) ([]marketplace.Tour, error) {
	var out []marketplace.Tour
	err := s.store.InTx(ctx, func(tx marketplace.Tx) error {
		var err error
		out, err = tx.ListTours(ctx, f)
		return err
	})
	return out, err
}
