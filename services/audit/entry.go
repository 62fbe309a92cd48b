package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"seatrail/pkg/bus"
	"seatrail/services/marketplace"
)

// Entry is one row of the audit table.
type Entry struct {
	ID      int64             `db:"id" json:"id"`
	Actor   string            `db:"actor" json:"actor"`
	Action  string            `db:"action" json:"action"`
	Obj     string            `db:"obj" json:"obj"`
	Details datatypes.JSONMap `db:"details" json:"details"`
	At      time.Time         `db:"at" json:"at"`
}

const systemActor = "system"

// entryFor maps a bus message onto the audit row describing it.
func entryFor(subject string, data []byte) (Entry, error) {
	switch subject {
	case bus.SubjectUserRemoved:
		var evt marketplace.UserRemovedEvent
		if err := decode(data, &evt); err != nil {
			return Entry{}, err
		}
		if evt.UserID == uuid.Nil {
			return Entry{}, errors.New("user_id missing from event")
		}
		details := map[string]any{
			"deleted":      countsToAny(evt.Deleted),
			"stale_guides": idsToAny(evt.StaleGuides),
			"media_urls":   len(evt.MediaURLs),
		}
		if evt.GuideID != nil {
			details["guide_id"] = evt.GuideID.String()
		}
		return newEntry(evt.ActorID, "user_removed", evt.UserID.String(), details, evt.At), nil

	case bus.SubjectUserBanned, bus.SubjectUserUnbanned:
		var evt marketplace.UserStatusEvent
		if err := decode(data, &evt); err != nil {
			return Entry{}, err
		}
		if evt.UserID == uuid.Nil {
			return Entry{}, errors.New("user_id missing from event")
		}
		action := "user_banned"
		if evt.Active {
			action = "user_unbanned"
		}
		return newEntry(evt.ActorID, action, evt.UserID.String(), map[string]any{"active": evt.Active}, evt.At), nil

	case bus.SubjectGuideVerification:
		var evt marketplace.GuideVerificationEvent
		if err := decode(data, &evt); err != nil {
			return Entry{}, err
		}
		if evt.GuideID == uuid.Nil {
			return Entry{}, errors.New("guide_id missing from event")
		}
		details := map[string]any{
			"user_id": evt.UserID.String(),
			"from":    string(evt.From),
			"to":      string(evt.To),
		}
		if evt.Reason != "" {
			details["reason"] = evt.Reason
		}
		action := "guide_" + strings.ToLower(string(evt.To))
		return newEntry(evt.ActorID, action, evt.GuideID.String(), details, evt.At), nil

	case bus.SubjectReviewCreated:
		var evt marketplace.ReviewCreatedEvent
		if err := decode(data, &evt); err != nil {
			return Entry{}, err
		}
		if evt.ReviewID == uuid.Nil {
			return Entry{}, errors.New("review_id missing from event")
		}
		details := map[string]any{
			"booking_id":     evt.BookingID.String(),
			"guide_id":       evt.GuideID.String(),
			"tour_id":        evt.TourID.String(),
			"rating":         evt.Rating,
			"average_rating": evt.AverageRating,
			"total_reviews":  evt.TotalReviews,
		}
		return newEntry(evt.TouristID, "review_created", evt.ReviewID.String(), details, evt.At), nil
	}
	return Entry{}, fmt.Errorf("no audit mapping for subject %q", subject)
}

func decode(data []byte, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	return nil
}

func newEntry(actor uuid.UUID, action, obj string, details map[string]any, at time.Time) Entry {
	name := systemActor
	if actor != uuid.Nil {
		name = actor.String()
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return Entry{Actor: name, Action: action, Obj: obj, Details: toJSONMap(details), At: at.UTC()}
}

func toJSONMap(src map[string]any) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	for k, v := range src {
		out[k] = v
	}
	return out
}

func countsToAny(src map[string]int64) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func idsToAny(ids []uuid.UUID) []any {
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
