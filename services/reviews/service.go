package reviews

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

var reviewsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "seatrail",
	Name:      "reviews_recorded_total",
	Help:      "Review submissions by outcome.",
}, []string{"outcome"})

// ReviewInput is a tourist's review of one booking.
type ReviewInput struct {
	BookingID uuid.UUID `json:"booking_id"`
	TouristID uuid.UUID `json:"-"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
}

// Service records reviews and keeps each guide's cached rating in step with them.
type Service struct {
	store marketplace.Store
	pub   bus.Publisher
	log   zerolog.Logger
	now   func() time.Time
}

// NewService builds a review service. pub may be nil, in which case no events are published.
func NewService(store marketplace.Store, pub bus.Publisher, log zerolog.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	return &Service{
		store: store,
		pub:   pub,
		log:   log.With().Str("component", "reviews").Logger(),
		now:   func() time.Time { return time.Now().UTC() },
	}, nil
}

// RecordReview stores a review for a completed booking and recomputes the guide's rating
// in the same transaction.
func (s *Service) RecordReview(ctx context.Context, in ReviewInput) (marketplace.Review, error) {
	review, guide, err := s.recordReview(ctx, in)
	if err != nil {
		reviewsRecorded.WithLabelValues(apperr.KindOf(err).String()).Inc()
		return marketplace.Review{}, err
	}
	reviewsRecorded.WithLabelValues("ok").Inc()

	s.log.Info().
		Str("review_id", review.ID.String()).
		Str("guide_id", guide.ID.String()).
		Float64("average_rating", guide.AverageRating).
		Int("total_reviews", guide.TotalReviews).
		Msg("review recorded")

	s.publish(ctx, bus.SubjectReviewCreated, marketplace.ReviewCreatedEvent{
		ReviewID:      review.ID,
		BookingID:     review.BookingID,
		TouristID:     review.TouristID,
		GuideID:       review.GuideID,
		TourID:        review.TourID,
		Rating:        review.Rating,
		AverageRating: guide.AverageRating,
		TotalReviews:  guide.TotalReviews,
		At:            review.CreatedAt,
	})
	return review, nil
}

func (s *Service) recordReview(ctx context.Context, in ReviewInput) (marketplace.Review, marketplace.Guide, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return marketplace.Review{}, marketplace.Guide{}, apperr.Invalid("rating must be between 1 and 5, got %d", in.Rating)
	}
	if in.BookingID == uuid.Nil {
		return marketplace.Review{}, marketplace.Guide{}, apperr.Invalid("booking_id is required")
	}

	var (
		review marketplace.Review
		guide  marketplace.Guide
	)
	err := s.store.InTx(ctx, func(tx marketplace.Tx) error {
		booking, err := tx.GetBooking(ctx, in.BookingID)
		if err != nil {
			return err
		}
		if booking.TouristID != in.TouristID {
			return apperr.Policy("booking %s does not belong to tourist %s", booking.ID, in.TouristID)
		}
		if booking.Status != marketplace.BookingCompleted {
			return apperr.Policy("booking %s is %s, only completed bookings can be reviewed", booking.ID, booking.Status)
		}

		exists, err := tx.ReviewExists(ctx, booking.ID)
		if err != nil {
			return err
		}
		if exists {
			return apperr.Conflict("booking %s already has a review", booking.ID)
		}

		review = marketplace.Review{
			ID:        uuid.New(),
			BookingID: booking.ID,
			TouristID: booking.TouristID,
			GuideID:   booking.GuideID,
			TourID:    booking.TourID,
			Rating:    in.Rating,
			Comment:   strings.TrimSpace(in.Comment),
			CreatedAt: s.now(),
		}
		if err := tx.CreateReview(ctx, &review); err != nil {
			return err
		}

		guide, err = RecomputeGuideRating(ctx, tx, booking.GuideID)
		return err
	})
	return review, guide, err
}

// GuideRating returns the live aggregate over a guide's reviews.
func (s *Service) GuideRating(ctx context.Context, guideID uuid.UUID) (Rating, error) {
	var out Rating
	err := s.store.InTx(ctx, func(tx marketplace.Tx) error {
		if _, err := tx.GetGuide(ctx, guideID); err != nil {
			return err
		}
		counts, err := tx.RatingCounts(ctx, marketplace.ReviewFilter{GuideID: guideID})
		if err != nil {
			return err
		}
		out = newRating(counts)
		return nil
	})
	return out, err
}

// TourRating returns the live aggregate over a tour's reviews.
func (s *Service) TourRating(ctx context.Context, tourID uuid.UUID) (Rating, error) {
	var out Rating
	err := s.store.InTx(ctx, func(tx marketplace.Tx) error {
		if _, err := tx.GetTour(ctx, tourID); err != nil {
			return err
		}
		counts, err := tx.RatingCounts(ctx, marketplace.ReviewFilter{TourID: tourID})
		if err != nil {
			return err
		}
		out = newRating(counts)
		return nil
	})
	return out, err
}

func (s *Service) ListByGuide(ctx context.Context, guideID uuid.UUID) ([]marketplace.Review, error) {
	return s.list(ctx, marketplace.ReviewFilter{GuideID: guideID}, func(tx marketplace.Tx) error {
		_, err := tx.GetGuide(ctx, guideID)
		return err
	})
}

func (s *Service) ListByTour(ctx context.Context, tourID uuid.UUID) ([]marketplace.Review, error) {
	return s.list(ctx, marketplace.ReviewFilter{TourID: tourID}, func(tx marketplace.Tx) error {
		_, err := tx.GetTour(ctx, tourID)
		return err
	})
}

func (s *Service) list(ctx context.Context, f marketplace.ReviewFilter, check func(marketplace.Tx) error) ([]marketplace.Review, error) {
	var out []marketplace.Review
	err := s.store.InTx(ctx, func(tx marketplace.Tx) error {
		if err := check(tx); err != nil {
			return err
		}
		var err error
		out, err = tx.ListReviews(ctx, f)
		return err
	})
	return out, err
}

// RecomputeAll rewrites the cached rating of every guide and returns how many changed.
func (s *Service) RecomputeAll(ctx context.Context) (int, error) {
	changed := 0
	err := s.store.InTx(ctx, func(tx marketplace.Tx) error {
		guides, err := tx.ListGuides(ctx, marketplace.GuideFilter{})
		if err != nil {
			return err
		}
		for _, g := range guides {
			updated, err := RecomputeGuideRating(ctx, tx, g.ID)
			if err != nil {
				return err
			}
			if updated.AverageRating != g.AverageRating || updated.TotalReviews != g.TotalReviews {
				changed++
				s.log.Warn().
					Str("guide_id", g.ID.String()).
					Float64("was", g.AverageRating).
					Float64("now", updated.AverageRating).
					Msg("guide rating drifted")
			}
		}
		return nil
	})
	return changed, err
}

func (s *Service) publish(ctx context.Context, subject string, v any) {
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(ctx, subject, v); err != nil {
		s.log.Error().Err(err).Str("subject", subject).Msg("publish event")
	}
}
