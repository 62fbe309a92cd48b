package reviews

import (
	"context"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"seatrail/pkg/apperr"
	"seatrail/pkg/bus"
	"seatrail/services/marketplace"
	"seatrail/services/marketplace/markettest"
	"seatrail/services/marketplace/memstore"
)

func TestAverage(t *testing.T) {
	tests := []struct {
		name       string
		sum, count int64
		want       float64
	}{
		{name: "no reviews", sum: 0, count: 0, want: 0},
		{name: "single five", sum: 5, count: 1, want: 5},
		{name: "half up", sum: 33, count: 8, want: 4.13},
		{name: "thirds round down", sum: 13, count: 3, want: 4.33},
		{name: "two thirds round up", sum: 14, count: 3, want: 4.67},
		{name: "exact half", sum: 9, count: 2, want: 4.5},
		{name: "all ones", sum: 7, count: 7, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Average(tt.sum, tt.count); got != tt.want {
				t.Fatalf("Average(%d, %d) = %v, want %v", tt.sum, tt.count, got, tt.want)
			}
		})
	}
}

type fixture struct {
	store   *memstore.Store
	pub     *markettest.Publisher
	svc     *Service
	guide   marketplace.Guide
	tour    marketplace.Tour
	tourist marketplace.User
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memstore.New()
	pub := &markettest.Publisher{}
	svc, err := NewService(store, pub, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	_, guide := markettest.Guide(t, store, marketplace.VerificationVerified)
	return fixture{
		store:   store,
		pub:     pub,
		svc:     svc,
		guide:   guide,
		tour:    markettest.Tour(t, store, guide),
		tourist: markettest.User(t, store, marketplace.RoleUser),
	}
}

func TestRecordReviewUpdatesGuide(t *testing.T) {
	f := newFixture(t)
	booking := markettest.Booking(t, f.store, f.tour, f.tourist, marketplace.BookingCompleted)

	review, err := f.svc.RecordReview(context.Background(), ReviewInput{
		BookingID: booking.ID,
		TouristID: f.tourist.ID,
		Rating:    5,
		Comment:   "  great  ",
	})
	if err != nil {
		t.Fatalf("RecordReview() error = %v", err)
	}
	if review.Comment != "great" || review.GuideID != f.guide.ID || review.TourID != f.tour.ID {
		t.Fatalf("unexpected review %+v", review)
	}

	guide := markettest.GetGuide(t, f.store, f.guide.ID)
	if guide.AverageRating != 5 || guide.TotalReviews != 1 {
		t.Fatalf("guide rating = %v/%d, want 5/1", guide.AverageRating, guide.TotalReviews)
	}
	if got := f.pub.Subjects(); !reflect.DeepEqual(got, []string{bus.SubjectReviewCreated}) {
		t.Fatalf("published %v", got)
	}
}

func TestRecordReviewRejections(t *testing.T) {
	f := newFixture(t)
	completed := markettest.Booking(t, f.store, f.tour, f.tourist, marketplace.BookingCompleted)
	confirmed := markettest.Booking(t, f.store, f.tour, f.tourist, marketplace.BookingConfirmed)
	markettest.Review(t, f.store, markettest.Booking(t, f.store, f.tour, f.tourist, marketplace.BookingCompleted), 4)
	reviewed := markettest.Booking(t, f.store, f.tour, f.tourist, marketplace.BookingCompleted)
	markettest.Review(t, f.store, reviewed, 3)
	stranger := markettest.User(t, f.store, marketplace.RoleUser)

	tests := []struct {
		name string
		in   ReviewInput
		want apperr.Kind
	}{
		{name: "rating too low", in: ReviewInput{BookingID: completed.ID, TouristID: f.tourist.ID, Rating: 0}, want: apperr.KindInvalid},
		{name: "rating too high", in: ReviewInput{BookingID: completed.ID, TouristID: f.tourist.ID, Rating: 6}, want: apperr.KindInvalid},
		{name: "missing booking", in: ReviewInput{BookingID: uuid.New(), TouristID: f.tourist.ID, Rating: 4}, want: apperr.KindNotFound},
		{name: "not completed", in: ReviewInput{BookingID: confirmed.ID, TouristID: f.tourist.ID, Rating: 4}, want: apperr.KindPolicy},
		{name: "other tourist", in: ReviewInput{BookingID: completed.ID, TouristID: stranger.ID, Rating: 4}, want: apperr.KindPolicy},
		{name: "duplicate", in: ReviewInput{BookingID: reviewed.ID, TouristID: f.tourist.ID, Rating: 5}, want: apperr.KindConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RecordReview(context.Background(), tt.in)
			if got := apperr.KindOf(err); err == nil || got != tt.want {
				t.Fatalf("RecordReview() error = %v (kind %v), want %v", err, got, tt.want)
			}
		})
	}

	if n := f.store.Count(marketplace.TableReviews); n != 2 {
		t.Fatalf("reviews = %d, want 2", n)
	}
	if len(f.pub.Events) != 0 {
		t.Fatalf("events published for failed reviews: %v", f.pub.Subjects())
	}
}

// racingStore hides existing reviews from ReviewExists, as when two requests
// for the same booking pass the check concurrently.
type racingStore struct {
	marketplace.Store
}

func (s racingStore) InTx(ctx context.Context, fn func(tx marketplace.Tx) error) error {
	return s.Store.InTx(ctx, func(tx marketplace.Tx) error { return fn(racingTx{tx}) })
}

type racingTx struct {
	marketplace.Tx
}

func (racingTx) ReviewExists(context.Context, uuid.UUID) (bool, error) { return false, nil }

func TestRecordReviewUniqueBookingConflict(t *testing.T) {
	f := newFixture(t)
	svc, err := NewService(racingStore{f.store}, f.pub, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	booking := markettest.Booking(t, f.store, f.tour, f.tourist, marketplace.BookingCompleted)
	in := ReviewInput{BookingID: booking.ID, TouristID: f.tourist.ID, Rating: 4}
	ctx := context.Background()

	if _, err := svc.RecordReview(ctx, in); err != nil {
		t.Fatalf("first RecordReview() error = %v", err)
	}
	in.Rating = 1
	if _, err := svc.RecordReview(ctx, in); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("second RecordReview() error = %v, want conflict", err)
	}

	if n := f.store.Count(marketplace.TableReviews); n != 1 {
		t.Fatalf("reviews = %d, want 1", n)
	}
	if g := markettest.GetGuide(t, f.store, f.guide.ID); g.AverageRating != 4 || g.TotalReviews != 1 {
		t.Fatalf("guide rating = %v/%d, want 4/1", g.AverageRating, g.TotalReviews)
	}
}

func TestRecomputeRoundsHalfUp(t *testing.T) {
	f := newFixture(t)
	for _, rating := range []int{5, 5, 5, 4, 4, 4, 3, 3} {
		markettest.Review(t, f.store, markettest.Booking(t, f.store, f.tour, f.tourist, marketplace.BookingCompleted), rating)
	}

	changed, err := f.svc.RecomputeAll(context.Background())
	if err != nil {
		t.Fatalf("RecomputeAll() error = %v", err)
	}
	if changed != 1 {
		t.Fatalf("RecomputeAll() changed = %d, want 1", changed)
	}

	guide := markettest.GetGuide(t, f.store, f.guide.ID)
	if guide.AverageRating != 4.13 || guide.TotalReviews != 8 {
		t.Fatalf("guide rating = %v/%d, want 4.13/8", guide.AverageRating, guide.TotalReviews)
	}

	rating, err := f.svc.TourRating(context.Background(), f.tour.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := Rating{Average: 4.13, Count: 8, Breakdown: map[int]int64{1: 0, 2: 0, 3: 2, 4: 3, 5: 3}}
	if !reflect.DeepEqual(rating, want) {
		t.Fatalf("TourRating() = %+v, want %+v", rating, want)
	}
}

func TestGuideRatingUnknownGuide(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.GuideRating(context.Background(), uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("GuideRating() error = %v, want not found", err)
	}
}
