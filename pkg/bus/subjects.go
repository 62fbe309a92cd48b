package bus

import (
	"context"
	"io"

	"github.com/nats-io/nats.go"
)

const (
	// StreamName is the JetStream stream carrying every marketplace event.
	StreamName = "SEATRAIL"

	SubjectUserRemoved       = "seatrail.users.removed"
	SubjectUserBanned        = "seatrail.users.banned"
	SubjectUserUnbanned      = "seatrail.users.unbanned"
	SubjectGuideVerification = "seatrail.guides.verification"
	SubjectReviewCreated     = "seatrail.reviews.created"
)

// Subjects returns the subjects bound to StreamName.
func Subjects() []string { return []string{"seatrail.>"} }

// Publisher is satisfied by *Bus. Services depend on it so tests can record events.
type Publisher interface {
	Publish(ctx context.Context, subj string, v any) error
}

// Subscriber is satisfied by *Bus.
type Subscriber interface {
	Subscribe(ctx context.Context, subj, durable string, fn func(ctx context.Context, data []byte) error) (io.Closer, error)
}

var (
	_ Publisher  = (*Bus)(nil)
	_ Subscriber = (*Bus)(nil)
)

// Open connects to url and makes sure the marketplace stream exists.
func Open(url string, opts ...nats.Option) (*Bus, error) {
	b, err := New(url, opts...)
	if err != nil {
		return nil, err
	}
	if err := b.EnsureStream(StreamName, Subjects()...); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}
