package media

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"seatrail/pkg/bus"
	"seatrail/services/marketplace"
)

const janitorDurable = "media-janitor"

// Janitor deletes bucket objects left behind by removed users.
type Janitor struct {
	objects ObjectStore
	bucket  Bucket
	sub     bus.Subscriber
	log     zerolog.Logger

	subMu sync.Mutex
	subc  io.Closer
}

func NewJanitor(objects ObjectStore, bucket Bucket, sub bus.Subscriber, log zerolog.Logger) (*Janitor, error) {
	if objects == nil {
		return nil, errors.New("object store is required")
	}
	if sub == nil {
		return nil, errors.New("bus is required")
	}
	if err := bucket.validate(); err != nil {
		return nil, err
	}
	return &Janitor{objects: objects, bucket: bucket, sub: sub, log: log.With().Str("component", "media-janitor").Logger()}, nil
}

// Start subscribes to user removals and processes them until ctx is cancelled.
func (j *Janitor) Start(ctx context.Context) error {
	if j == nil {
		return errors.New("nil janitor")
	}
	sub, err := j.sub.Subscribe(ctx, bus.SubjectUserRemoved, janitorDurable, j.handleRemoval)
	if err != nil {
		return err
	}

	j.subMu.Lock()
	j.subc = sub
	j.subMu.Unlock()
	return nil
}

// Close stops the subscription if it was created.
func (j *Janitor) Close() error {
	if j == nil {
		return nil
	}
	j.subMu.Lock()
	defer j.subMu.Unlock()
	if j.subc == nil {
		return nil
	}
	err := j.subc.Close()
	j.subc = nil
	return err
}

func (j *Janitor) handleRemoval(ctx context.Context, data []byte) error {
	var evt marketplace.UserRemovedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		j.log.Warn().Err(err).Msg("dropping undecodable removal event")
		return nil
	}

	keys, skipped := j.keys(evt.MediaURLs)
	if skipped > 0 {
		j.log.Debug().Str("user_id", evt.UserID.String()).Int("skipped", skipped).Msg("media outside bucket left alone")
	}
	if len(keys) == 0 {
		return nil
	}
	if err := j.objects.DeleteObjects(ctx, j.bucket.Name, keys); err != nil {
		j.log.Error().Err(err).Str("user_id", evt.UserID.String()).Int("keys", len(keys)).Msg("delete orphaned media")
		return err
	}
	j.log.Info().Str("user_id", evt.UserID.String()).Int("keys", len(keys)).Msg("orphaned media deleted")
	return nil
}

// keys returns the distinct, sorted bucket keys referenced by urls.
func (j *Janitor) keys(urls []string) ([]string, int) {
	seen := make(map[string]struct{}, len(urls))
	skipped := 0
	for _, u := range urls {
		key, ok := j.bucket.Key(u)
		if !ok {
			skipped++
			continue
		}
		seen[key] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, skipped
}
