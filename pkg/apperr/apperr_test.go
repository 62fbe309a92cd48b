package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "not found", err: NotFound("user %d", 1), want: http.StatusNotFound},
		{name: "policy", err: Policy("cannot remove an admin user"), want: http.StatusForbidden},
		{name: "conflict", err: Conflict("already verified"), want: http.StatusConflict},
		{name: "invalid", err: Invalid("rating must be between 1 and 5"), want: http.StatusBadRequest},
		{name: "plain error", err: errors.New("boom"), want: http.StatusInternalServerError},
		{name: "wrapped classified", err: fmt.Errorf("remove user: %w", Conflict("dup")), want: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Fatalf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, KindConflict, "x") != nil {
		t.Fatal("Wrap(nil) should be nil")
	}

	cause := errors.New("duplicate key")
	err := Wrap(cause, KindConflict, "review already exists")
	if !errors.Is(err, cause) {
		t.Fatalf("wrapped error lost its cause: %v", err)
	}
	if !Is(err, KindConflict) {
		t.Fatalf("KindOf() = %v, want conflict", KindOf(err))
	}
	if got, want := err.Error(), "review already exists: duplicate key"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
