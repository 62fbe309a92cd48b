package marketplace

import (
	"strings"

	"seatrail/pkg/apperr"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleGuide Role = "GUIDE"
	RoleAdmin Role = "ADMIN"
)

// ParseRole accepts a role name in any case. The empty string is rejected.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleUser, RoleGuide, RoleAdmin:
		return r, nil
	}
	return "", apperr.Invalid("unknown role %q", s)
}

// VerificationStatus is the review state of a guide profile.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "PENDING"
	VerificationVerified VerificationStatus = "VERIFIED"
	VerificationRejected VerificationStatus = "REJECTED"
)

// ParseVerificationStatus accepts a status name in any case.
func ParseVerificationStatus(s string) (VerificationStatus, error) {
	switch v := VerificationStatus(strings.ToUpper(strings.TrimSpace(s))); v {
	case VerificationPending, VerificationVerified, VerificationRejected:
		return v, nil
	}
	return "", apperr.Invalid("unknown verification status %q", s)
}

// Transition validates moving from s to next. Any state may move to VERIFIED or
// REJECTED except the state itself; nothing moves back to PENDING.
func (s VerificationStatus) Transition(next VerificationStatus) error {
	switch next {
	case VerificationVerified:
		if s == VerificationVerified {
			return apperr.Conflict("guide is already verified")
		}
	case VerificationRejected:
		if s == VerificationRejected {
			return apperr.Conflict("guide is already rejected")
		}
	default:
		return apperr.Invalid("cannot transition guide to %s", next)
	}
	return nil
}

type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingCompleted BookingStatus = "COMPLETED"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCompleted, BookingCancelled},
}

// Transition validates moving a booking from s to next.
func (s BookingStatus) Transition(next BookingStatus) error {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return nil
		}
	}
	return apperr.Conflict("booking cannot move from %s to %s", s, next)
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

type Proficiency string

const (
	ProficiencyBasic        Proficiency = "BASIC"
	ProficiencyIntermediate Proficiency = "INTERMEDIATE"
	ProficiencyFluent       Proficiency = "FLUENT"
	ProficiencyNative       Proficiency = "NATIVE"
)

func ParseProficiency(s string) (Proficiency, error) {
	switch p := Proficiency(strings.ToUpper(strings.TrimSpace(s))); p {
	case ProficiencyBasic, ProficiencyIntermediate, ProficiencyFluent, ProficiencyNative:
		return p, nil
	}
	return "", apperr.Invalid("unknown proficiency %q", s)
}
