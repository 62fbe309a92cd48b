package bookings

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"seatrail/pkg/apperr"
	"seatrail/services/marketplace"
)

// BookingInput is a tourist's request to join a tour.
type BookingInput struct {
	TourID          uuid.UUID `json:"tour_id"`
	BookingDate     time.Time `json:"booking_date"`
	NumberOfPeople  int       `json:"number_of_people"`
	SpecialRequests string    `json:"special_requests"`
}

// Service runs the booking lifecycle.
type Service struct {
	store marketplace.Store
	log   zerolog.Logger
	now   func() time.Time
}

func NewService(store marketplace.Store, log zerolog.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	return &Service{
		store: store,
		log:   log.With().Str("component", "bookings").Logger(),
		now:   func() time.Time { return time.Now().UTC() },
	}, nil
}

// amount multiplies in cents so 19.99 x 3 is 59.97 and not 59.970000000000006.
func amount(price float64, people int) float64 {
	cents := int64(math.Round(price * 100))
	return float64(cents*int64(people)) / 100
}

// Create books an active tour of a VERIFIED guide. The booking starts PENDING.
func (s *Service) Create(ctx context.Context, touristID uuid.UUID, in BookingInput) (marketplace.Booking, error) {
	if in.NumberOfPeople <= 0 {
		return marketplace.Booking{}, apperr.Invalid("number_of_people must be positive")
	}
	if in.BookingDate.IsZero() {
		return marketplace.Booking{}, apperr.Invalid("booking_date is required")
	}
	if !in.BookingDate.After(s.now()) {
		return marketplace.Booking{}, apperr.Invalid("booking_date must be in the future")
	}

	var booking marketplace.Booking
	err := s.store.InTx(ctx, func(tx marketplace.Tx) error {
		tourist, err := tx.GetUser(ctx, touristID)
		if err != nil {
			return err
		}
		if !tourist.IsActive {
			return apperr.Policy("user %s is banned", touristID)
		}

		tour, err := tx.GetTour(ctx, in.TourID)
		if err != nil {
			return err
		}
		guide, err := tx.GetGuide(ctx, tour.GuideID)
		if err != nil {
			return err
		}
		if !tour.IsActive || guide.VerificationStatus != marketplace.VerificationVerified {
			return apperr.Policy("tour %s is not bookable", tour.ID)
		}
		if guide.UserID == touristID {
			return apperr.Policy("guides cannot book their own tours")
		}
		if in.NumberOfPeople > tour.MaxGroupSize {
			return apperr.Invalid("tour %s takes at most %d people", tour.ID, tour.MaxGroupSize)
		}

		booking = marketplace.Booking{
			ID:              uuid.New(),
			TourID:          tour.ID,
			TouristID:       touristID,
			GuideID:         guide.ID,
			BookingDate:     in.BookingDate.UTC(),
			NumberOfPeople:  in.NumberOfPeople,
			TotalAmount:     amount(tour.PricePerPerson, in.NumberOfPeople),
			Status:          marketplace.BookingPending,
			PaymentStatus:   marketplace.PaymentPending,
			SpecialRequests: strings.TrimSpace(in.SpecialRequests),
		}
		return tx.CreateBooking(ctx, &booking)
	})
	if err != nil {
		return marketplace.Booking{}, err
	}
	s.log.Info().Str("booking_id", booking.ID.String()).Str("tour_id", booking.TourID.String()).Msg("booking created")
	return booking, nil
}

type party int

const (
	byGuide party = 1 << iota
	byTourist
)

// Confirm accepts a PENDING booking. Only the booked guide may confirm.
func (s *Service) Confirm(ctx context.Context, actorID, bookingID uuid.UUID) (marketplace.Booking, error) {
	return s.move(ctx, actorID, bookingID, marketplace.BookingConfirmed, byGuide)
}

// Complete marks a CONFIRMED booking as taken place. Only the booked guide may complete.
func (s *Service) Complete(ctx context.Context, actorID, bookingID uuid.UUID) (marketplace.Booking, error) {
	return s.move(ctx, actorID, bookingID, marketplace.BookingCompleted, byGuide)
}

// Cancel cancels a PENDING or CONFIRMED booking on behalf of either party.
func (s *Service) Cancel(ctx context.Context, actorID, bookingID uuid.UUID) (marketplace.Booking, error) {
	return s.move(ctx, actorID, bookingID, marketplace.BookingCancelled, byGuide|byTourist)
}

func (s *Service) move(ctx context.Context, actorID, bookingID uuid.UUID, to marketplace.BookingStatus, allowed party) (marketplace.Booking, error) {
	var booking marketplace.Booking
	err := s.store.InTx(ctx, func(tx marketplace.Tx) error {
		var err error
		booking, err = tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}

		var who party
		if booking.TouristID == actorID {
			who |= byTourist
		}
		if guide, err := tx.FindGuideByUser(ctx, actorID); err == nil && guide.ID == booking.GuideID {
			who |= byGuide
		} else if err != nil && !apperr.Is(err, apperr.KindNotFound) {
			return err
		}
		if who&allowed == 0 {
			return apperr.Policy("user %s may not move booking %s to %s", actorID, bookingID, to)
		}

		if err := booking.Status.Transition(to); err != nil {
			return err
		}
		booking.Status = to
		if to == marketplace.BookingCancelled && booking.PaymentStatus == marketplace.PaymentPaid {
			booking.PaymentStatus = marketplace.PaymentRefunded
		}
		return tx.UpdateBooking(ctx, &booking)
	})
	if err != nil {
		return marketplace.Booking{}, err
	}
	s.log.Info().Str("booking_id", bookingID.String()).Str("status", string(to)).Msg("booking updated")
	return booking, nil
}

// RecordPayment stores a payment for a booking and marks the booking PAID. Only the
// booking's tourist may pay for it.
func (s *Service) RecordPayment(ctx context.Context, actorID, bookingID uuid.UUID, paid float64, reference string) (marketplace.Payment, error) {
	if paid <= 0 {
		return marketplace.Payment{}, apperr.Invalid("amount must be positive")
	}

	var payment marketplace.Payment
	err := s.store.InTx(ctx, func(tx marketplace.Tx) error {
		booking, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking.TouristID != actorID {
			return apperr.Policy("user %s may not pay for booking %s", actorID, bookingID)
		}
		if booking.Status == marketplace.BookingCancelled {
			return apperr.Conflict("booking %s is cancelled", bookingID)
		}
		if booking.PaymentStatus == marketplace.PaymentPaid {
			return apperr.Conflict("booking %s is already paid", bookingID)
		}
		if math.Abs(paid-booking.TotalAmount) >= 0.005 {
			return apperr.Invalid("amount %.2f does not match booking total %.2f", paid, booking.TotalAmount)
		}

		payment = marketplace.Payment{
			ID:                uuid.New(),
			BookingID:         booking.ID,
			Amount:            booking.TotalAmount,
			Status:            marketplace.PaymentPaid,
			ProviderReference: strings.TrimSpace(reference),
		}
		if err := tx.CreatePayment(ctx, &payment); err != nil {
			return err
		}
		booking.PaymentStatus = marketplace.PaymentPaid
		return tx.UpdateBooking(ctx, &booking)
	})
	if err != nil {
		return marketplace.Payment{}, err
	}
	s.log.Info().Str("booking_id", bookingID.String()).Str("payment_id", payment.ID.String()).Msg("payment recorded")
	return payment, nil
}
