package cursor

import (
	"context"
	"sync"
	"time"

	"github.com/ryosukesatoh/discord-digest/internal/observability"
	"github.com/ryosukesatoh/discord-digest/internal/store"
)

// StoreName is the document the tracker persists to.
const StoreName = "user_data"

// DefaultLookback is used for a (user, channel) pair that has never been read.
const DefaultLookback = 24 * time.Hour

// naiveISO matches timestamps written without a zone, which are UTC.
const naiveISO = "2006-01-02T15:04:05.999999999"

// Tracker records, per user and channel, the time up to which the user has
// been caught up.
type Tracker struct {
	mu      sync.Mutex
	backend store.Backend
	cursors map[string]map[string]time.Time
	now     func() time.Time
}

// NewTracker loads the persisted cursors from backend.
func NewTracker(ctx context.Context, backend store.Backend) *Tracker {
	t := &Tracker{
		backend: backend,
		cursors: make(map[string]map[string]time.Time),
		now:     time.Now,
	}

	raw := store.Load(ctx, backend, StoreName, map[string]map[string]string{})
	log := observability.LoggerFromContext(ctx)
	for userID, channels := range raw {
		for channelID, ts := range channels {
			at, err := parseTimestamp(ts)
			if err != nil {
				log.Warn("dropping unparseable cursor", "user", userID, "channel", channelID, "value", ts)
				continue
			}
			t.set(userID, channelID, at)
		}
	}
	return t
}

func parseTimestamp(s string) (time.Time, error) {
	if at, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return at.UTC(), nil
	}
	return time.ParseInLocation(naiveISO, s, time.UTC)
}

func (t *Tracker) set(userID, channelID string, at time.Time) {
	channels, ok := t.cursors[userID]
	if !ok {
		channels = make(map[string]time.Time)
		t.cursors[userID] = channels
	}
	channels[channelID] = at.UTC()
}

// Boundary returns the time after which messages in channelID are new for
// userID.
func (t *Tracker) Boundary(userID, channelID string) time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()

	if at, ok := t.cursors[userID][channelID]; ok {
		return at
	}
	return t.now().UTC().Add(-DefaultLookback)
}

// MarkRead moves the cursor for (userID, channelID) to at and persists every
// cursor. A persistence failure is returned but the in-memory cursor is kept.
func (t *Tracker) MarkRead(ctx context.Context, userID, channelID string, at time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.set(userID, channelID, at)
	return store.Save(ctx, t.backend, StoreName, t.snapshot())
}

func (t *Tracker) snapshot() map[string]map[string]string {
	out := make(map[string]map[string]string, len(t.cursors))
	for userID, channels := range t.cursors {
		m := make(map[string]string, len(channels))
		for channelID, at := range channels {
			m[channelID] = at.Format(time.RFC3339Nano)
		}
		out[userID] = m
	}
	return out
}
