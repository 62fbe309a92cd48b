package marketplace

import (
	"time"

	"github.com/google/uuid"
)

// UserRemovedEvent is published after a user and every dependent row were deleted.
type UserRemovedEvent struct {
	ActorID     uuid.UUID        `json:"actor_id"`
	UserID      uuid.UUID        `json:"user_id"`
	GuideID     *uuid.UUID       `json:"guide_id,omitempty"`
	Deleted     map[string]int64 `json:"deleted"`
	StaleGuides []uuid.UUID      `json:"stale_guides,omitempty"`
	MediaURLs   []string         `json:"media_urls,omitempty"`
	At          time.Time        `json:"at"`
}

// UserStatusEvent is published when an administrator bans or unbans a user.
type UserStatusEvent struct {
	ActorID uuid.UUID `json:"actor_id"`
	UserID  uuid.UUID `json:"user_id"`
	Active  bool      `json:"active"`
	At      time.Time `json:"at"`
}

type GuideVerificationEvent struct {
	ActorID uuid.UUID          `json:"actor_id"`
	GuideID uuid.UUID          `json:"guide_id"`
	UserID  uuid.UUID          `json:"user_id"`
	From    VerificationStatus `json:"from"`
	To      VerificationStatus `json:"to"`
	Reason  string             `json:"reason,omitempty"`
	At      time.Time          `json:"at"`
}

type ReviewCreatedEvent struct {
	ReviewID      uuid.UUID `json:"review_id"`
	BookingID     uuid.UUID `json:"booking_id"`
	TouristID     uuid.UUID `json:"tourist_id"`
	GuideID       uuid.UUID `json:"guide_id"`
	TourID        uuid.UUID `json:"tour_id"`
	Rating        int       `json:"rating"`
	AverageRating float64   `json:"average_rating"`
	TotalReviews  int       `json:"total_reviews"`
	At            time.Time `json:"at"`
}
