package audit

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"seatrail/pkg/bus"
)

type subscription struct {
	subject string
	durable string
}

var subscriptions = []subscription{
	{subject: bus.SubjectUserRemoved, durable: "audit-users-removed"},
	{subject: bus.SubjectUserBanned, durable: "audit-users-banned"},
	{subject: bus.SubjectUserUnbanned, durable: "audit-users-unbanned"},
	{subject: bus.SubjectGuideVerification, durable: "audit-guides-verification"},
	{subject: bus.SubjectReviewCreated, durable: "audit-reviews-created"},
}

// Recorder writes one audit row for every marketplace event on the bus.
type Recorder struct {
	store Store
	sub   bus.Subscriber
	log   zerolog.Logger

	mu   sync.Mutex
	subs []io.Closer
}

func NewRecorder(store Store, sub bus.Subscriber, log zerolog.Logger) (*Recorder, error) {
	if store == nil {
		return nil, errors.New("audit store is required")
	}
	if sub == nil {
		return nil, errors.New("bus is required")
	}
	return &Recorder{store: store, sub: sub, log: log.With().Str("component", "audit").Logger()}, nil
}

// Start registers the durable consumers. Messages are handled until ctx is cancelled.
func (r *Recorder) Start(ctx context.Context) error {
	if r == nil {
		return errors.New("nil recorder")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range subscriptions {
		closer, err := r.sub.Subscribe(ctx, s.subject, s.durable, r.handler(s.subject))
		if err != nil {
			r.closeLocked()
			return err
		}
		r.subs = append(r.subs, closer)
	}
	return nil
}

func (r *Recorder) handler(subject string) func(context.Context, []byte) error {
	return func(ctx context.Context, data []byte) error {
		e, err := entryFor(subject, data)
		if err != nil {
			// Malformed events never decode; ack and drop them.
			r.log.Warn().Err(err).Str("subject", subject).Msg("dropping event")
			return nil
		}
		if err := r.store.Insert(ctx, e); err != nil {
			r.log.Error().Err(err).Str("subject", subject).Msg("write audit entry")
			return err
		}
		r.log.Debug().Str("action", e.Action).Str("obj", e.Obj).Msg("audit entry recorded")
		return nil
	}
}

// Close stops every subscription created by Start.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeLocked()
}

func (r *Recorder) closeLocked() error {
	var errs []error
	for _, s := range r.subs {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.subs = nil
	return errors.Join(errs...)
}
