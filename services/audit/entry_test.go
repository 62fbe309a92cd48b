package audit

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"seatrail/pkg/bus"
	"seatrail/services/marketplace"
)

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestEntryFor(t *testing.T) {
	actor := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	user := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	guide := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	stale := uuid.MustParse("00000000-0000-0000-0000-000000000003")
	review := uuid.MustParse("00000000-0000-0000-0000-000000000004")
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		subject string
		event   any
		want    Entry
	}{
		{
			name:    "user removed",
			subject: bus.SubjectUserRemoved,
			event: marketplace.UserRemovedEvent{
				ActorID: actor, UserID: user, GuideID: &guide,
				Deleted:     map[string]int64{"users": 1, "tours": 2},
				StaleGuides: []uuid.UUID{stale},
				MediaURLs:   []string{"https://x/1.jpg"},
				At:          at,
			},
			want: Entry{Actor: actor.String(), Action: "user_removed", Obj: user.String(), At: at, Details: map[string]any{
				"deleted":      map[string]any{"users": int64(1), "tours": int64(2)},
				"stale_guides": []any{stale.String()},
				"media_urls":   1,
				"guide_id":     guide.String(),
			}},
		},
		{
			name:    "user banned",
			subject: bus.SubjectUserBanned,
			event:   marketplace.UserStatusEvent{ActorID: actor, UserID: user, Active: false, At: at},
			want:    Entry{Actor: actor.String(), Action: "user_banned", Obj: user.String(), At: at, Details: map[string]any{"active": false}},
		},
		{
			name:    "user unbanned",
			subject: bus.SubjectUserUnbanned,
			event:   marketplace.UserStatusEvent{ActorID: actor, UserID: user, Active: true, At: at},
			want:    Entry{Actor: actor.String(), Action: "user_unbanned", Obj: user.String(), At: at, Details: map[string]any{"active": true}},
		},
		{
			name:    "guide rejected",
			subject: bus.SubjectGuideVerification,
			event: marketplace.GuideVerificationEvent{
				ActorID: actor, GuideID: guide, UserID: user,
				From: marketplace.VerificationPending, To: marketplace.VerificationRejected,
				Reason: "blurry id", At: at,
			},
			want: Entry{Actor: actor.String(), Action: "guide_rejected", Obj: guide.String(), At: at, Details: map[string]any{
				"user_id": user.String(), "from": "PENDING", "to": "REJECTED", "reason": "blurry id",
			}},
		},
		{
			name:    "review without tourist",
			subject: bus.SubjectReviewCreated,
			event: marketplace.ReviewCreatedEvent{
				ReviewID: review, BookingID: stale, GuideID: guide, TourID: user,
				Rating: 4, AverageRating: 4.13, TotalReviews: 8, At: at,
			},
			want: Entry{Actor: systemActor, Action: "review_created", Obj: review.String(), At: at, Details: map[string]any{
				"booking_id": stale.String(), "guide_id": guide.String(), "tour_id": user.String(),
				"rating": 4, "average_rating": 4.13, "total_reviews": 8,
			}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := entryFor(tt.subject, mustJSON(t, tt.event))
			if err != nil {
				t.Fatalf("entryFor() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("entryFor() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestEntryForRejects(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		data    []byte
	}{
		{name: "unknown subject", subject: "seatrail.other", data: []byte(`{}`)},
		{name: "bad json", subject: bus.SubjectUserBanned, data: []byte(`{`)},
		{name: "missing user", subject: bus.SubjectUserRemoved, data: []byte(`{"deleted":{}}`)},
		{name: "missing guide", subject: bus.SubjectGuideVerification, data: []byte(`{"to":"VERIFIED"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := entryFor(tt.subject, tt.data); err == nil {
				t.Fatal("entryFor() error = nil")
			}
		})
	}
}

func TestClampLimit(t *testing.T) {
	for in, want := range map[int]int{0: 50, -3: 50, 10: 10, 1000: maxRecent} {
		if got := clampLimit(in); got != want {
			t.Fatalf("clampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}
