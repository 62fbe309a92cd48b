package marketplace

import (
	"testing"

	"seatrail/pkg/apperr"
)

func TestVerificationTransition(t *testing.T) {
	tests := []struct {
		from VerificationStatus
		to   VerificationStatus
		want apperr.Kind
		ok   bool
	}{
		{from: VerificationPending, to: VerificationVerified, ok: true},
		{from: VerificationRejected, to: VerificationVerified, ok: true},
		{from: VerificationVerified, to: VerificationVerified, want: apperr.KindConflict},
		{from: VerificationPending, to: VerificationRejected, ok: true},
		{from: VerificationVerified, to: VerificationRejected, ok: true},
		{from: VerificationRejected, to: VerificationRejected, want: apperr.KindConflict},
		{from: VerificationVerified, to: VerificationPending, want: apperr.KindInvalid},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := tt.from.Transition(tt.to)
			if tt.ok {
				if err != nil {
					t.Fatalf("Transition() error = %v", err)
				}
				return
			}
			if got := apperr.KindOf(err); err == nil || got != tt.want {
				t.Fatalf("Transition() error = %v (kind %v), want %v", err, got, tt.want)
			}
		})
	}
}

func TestBookingTransition(t *testing.T) {
	tests := []struct {
		from, to BookingStatus
		ok       bool
	}{
		{BookingPending, BookingConfirmed, true},
		{BookingPending, BookingCancelled, true},
		{BookingPending, BookingCompleted, false},
		{BookingConfirmed, BookingCompleted, true},
		{BookingConfirmed, BookingCancelled, true},
		{BookingCompleted, BookingCancelled, false},
		{BookingCancelled, BookingConfirmed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := tt.from.Transition(tt.to)
			if (err == nil) != tt.ok {
				t.Fatalf("Transition() error = %v, ok %v", err, tt.ok)
			}
			if err != nil && !apperr.Is(err, apperr.KindConflict) {
				t.Fatalf("Transition() kind = %v, want conflict", apperr.KindOf(err))
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	if r, err := ParseRole(" guide "); err != nil || r != RoleGuide {
		t.Fatalf("ParseRole() = %q, %v", r, err)
	}
	if _, err := ParseRole("owner"); !apperr.Is(err, apperr.KindInvalid) {
		t.Fatalf("ParseRole(owner) error = %v, want invalid", err)
	}
}

func TestRatingCounts(t *testing.T) {
	c := RatingCounts{0, 0, 1, 3, 4}
	if c.Count() != 8 {
		t.Fatalf("Count() = %d, want 8", c.Count())
	}
	if c.Sum() != 35 {
		t.Fatalf("Sum() = %d, want 35", c.Sum())
	}
}
