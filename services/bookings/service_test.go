package bookings

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"seatrail/pkg/apperr"
	"seatrail/services/marketplace"
	"seatrail/services/marketplace/markettest"
	"seatrail/services/marketplace/memstore"
)

func TestAmount(t *testing.T) {
	tests := []struct {
		price  float64
		people int
		want   float64
	}{
		{price: 19.99, people: 3, want: 59.97},
		{price: 25, people: 2, want: 50},
		{price: 0.1, people: 3, want: 0.3},
	}
	for _, tt := range tests {
		if got := amount(tt.price, tt.people); got != tt.want {
			t.Fatalf("amount(%v, %d) = %v, want %v", tt.price, tt.people, got, tt.want)
		}
	}
}

type fixture struct {
	svc       *Service
	store     *memstore.Store
	guideUser marketplace.User
	tourist   marketplace.User
	tour      marketplace.Tour
}

func newFixture(t *testing.T, status marketplace.VerificationStatus) fixture {
	t.Helper()
	store := memstore.New()
	svc, err := NewService(store, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	guideUser, guide := markettest.Guide(t, store, status)
	return fixture{
		svc:       svc,
		store:     store,
		guideUser: guideUser,
		tourist:   markettest.User(t, store, marketplace.RoleUser),
		tour:      markettest.Tour(t, store, guide),
	}
}

func (f fixture) input(people int) BookingInput {
	return BookingInput{TourID: f.tour.ID, BookingDate: time.Now().Add(72 * time.Hour), NumberOfPeople: people}
}

func TestLifecycle(t *testing.T) {
	f := newFixture(t, marketplace.VerificationVerified)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, f.tourist.ID, f.input(3))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if b.Status != marketplace.BookingPending || b.TotalAmount != 75 {
		t.Fatalf("booking = %s/%v, want PENDING/75", b.Status, b.TotalAmount)
	}

	if _, err := f.svc.Confirm(ctx, f.tourist.ID, b.ID); !apperr.Is(err, apperr.KindPolicy) {
		t.Fatalf("Confirm(tourist) error = %v, want policy violation", err)
	}
	if _, err := f.svc.Complete(ctx, f.guideUser.ID, b.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("Complete(pending) error = %v, want conflict", err)
	}
	if _, err := f.svc.Confirm(ctx, f.guideUser.ID, b.ID); err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if _, err := f.svc.RecordPayment(ctx, f.tourist.ID, b.ID, 75, "pi_123"); err != nil {
		t.Fatalf("RecordPayment() error = %v", err)
	}
	if _, err := f.svc.RecordPayment(ctx, f.tourist.ID, b.ID, 75, "pi_124"); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("second RecordPayment() error = %v, want conflict", err)
	}

	done, err := f.svc.Complete(ctx, f.guideUser.ID, b.ID)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if done.Status != marketplace.BookingCompleted || done.PaymentStatus != marketplace.PaymentPaid {
		t.Fatalf("booking = %s/%s", done.Status, done.PaymentStatus)
	}
	if _, err := f.svc.Cancel(ctx, f.tourist.ID, b.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("Cancel(completed) error = %v, want conflict", err)
	}
	if f.store.Count(marketplace.TablePayments) != 1 {
		t.Fatal("expected one payment row")
	}
}

func TestCancelRefundsPaidBooking(t *testing.T) {
	f := newFixture(t, marketplace.VerificationVerified)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, f.tourist.ID, f.input(1))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.RecordPayment(ctx, f.tourist.ID, b.ID, 25, ""); err != nil {
		t.Fatal(err)
	}
	cancelled, err := f.svc.Cancel(ctx, f.tourist.ID, b.ID)
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if cancelled.PaymentStatus != marketplace.PaymentRefunded {
		t.Fatalf("payment status = %s, want REFUNDED", cancelled.PaymentStatus)
	}
}

func TestCreateRejections(t *testing.T) {
	ctx := context.Background()

	pending := newFixture(t, marketplace.VerificationPending)
	if _, err := pending.svc.Create(ctx, pending.tourist.ID, pending.input(1)); !apperr.Is(err, apperr.KindPolicy) {
		t.Fatalf("Create(unverified guide) error = %v, want policy violation", err)
	}

	f := newFixture(t, marketplace.VerificationVerified)
	tests := []struct {
		name string
		in   BookingInput
		who  marketplace.User
		want apperr.Kind
	}{
		{name: "no people", in: f.input(0), who: f.tourist, want: apperr.KindInvalid},
		{name: "over capacity", in: f.input(11), who: f.tourist, want: apperr.KindInvalid},
		{name: "past date", in: BookingInput{TourID: f.tour.ID, BookingDate: time.Now().Add(-time.Hour), NumberOfPeople: 1}, who: f.tourist, want: apperr.KindInvalid},
		{name: "own tour", in: f.input(1), who: f.guideUser, want: apperr.KindPolicy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.who.ID, tt.in)
			if got := apperr.KindOf(err); err == nil || got != tt.want {
				t.Fatalf("Create() error = %v (kind %v), want %v", err, got, tt.want)
			}
		})
	}
}

func TestRecordPaymentOnlyByTourist(t *testing.T) {
	f := newFixture(t, marketplace.VerificationVerified)
	stranger := markettest.User(t, f.store, marketplace.RoleUser)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, f.tourist.ID, f.input(2))
	if err != nil {
		t.Fatal(err)
	}
	for _, who := range []marketplace.User{stranger, f.guideUser} {
		if _, err := f.svc.RecordPayment(ctx, who.ID, b.ID, 50, "pi_x"); !apperr.Is(err, apperr.KindPolicy) {
			t.Fatalf("RecordPayment(%s) error = %v, want policy violation", who.Role, err)
		}
	}
	if f.store.Count(marketplace.TablePayments) != 0 {
		t.Fatal("payment stored for a non-tourist")
	}
	if _, err := f.svc.RecordPayment(ctx, uuid.New(), uuid.New(), 50, ""); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("RecordPayment(missing booking) error = %v, want not found", err)
	}
}
