// Package scheduler runs the daily Fear & Greed report.
//
// There is exactly one recurring entry. Its settings are persisted on every
// change, and retiming replaces the cron entry rather than mutating it.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/ryosukesatoh/discord-digest/internal/observability"
	"github.com/ryosukesatoh/discord-digest/internal/store"
)

// StoreName is the document the settings are persisted to.
const StoreName = "fng_settings"

// Settings is the persisted scheduler configuration.
type Settings struct {
	Enabled   bool    `json:"enabled"`
	ChannelID *string `json:"channel_id"`
	Time      string  `json:"time"`
}

// Snapshot describes the scheduler for status displays.
type Snapshot struct {
	Settings
	Running  bool       `json:"running"`
	Timezone string     `json:"timezone"`
	NextRun  *time.Time `json:"next_run,omitempty"`
}

// FireFunc posts the report to a channel.
type FireFunc func(ctx context.Context, channelID string) error

type Scheduler struct {
	mu       sync.Mutex
	cron     *cron.Cron
	entry    cron.EntryID
	gen      uint64
	running  bool
	settings Settings
	backend  store.Backend
	fire     FireFunc
	loc      *time.Location
	ready    <-chan struct{}
	baseCtx  context.Context
}

type Option func(*Scheduler)

// WithLocation sets the time zone the time of day is interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) { s.loc = loc }
}

// WithReady delays every tick until ready is closed.
func WithReady(ready <-chan struct{}) Option {
	return func(s *Scheduler) { s.ready = ready }
}

// WithDefaultTime sets the time used when no settings were persisted.
func WithDefaultTime(t TimeOfDay) Option {
	return func(s *Scheduler) { s.settings.Time = t.String() }
}

// New loads persisted settings from backend. ctx bounds every tick.
func New(ctx context.Context, backend store.Backend, fire FireFunc, opts ...Option) *Scheduler {
	s := &Scheduler{
		settings: Settings{Time: "20:00"},
		backend:  backend,
		fire:     fire,
		loc:      time.UTC,
		baseCtx:  ctx,
	}
	for _, opt := range opts {
		opt(s)
	}

	def := s.settings
	s.settings = store.Load(ctx, backend, StoreName, def)
	if _, err := ParseTimeOfDay(s.settings.Time); err != nil {
		observability.LoggerFromContext(ctx).Warn("persisted time is invalid, using default", "time", s.settings.Time, "default", def.Time)
		s.settings.Time = def.Time
	}
	s.cron = cron.New(cron.WithLocation(s.loc))
	return s
}

// Restore starts the task if the persisted settings have it enabled.
func (s *Scheduler) Restore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.settings.Enabled {
		return nil
	}
	t, err := ParseTimeOfDay(s.settings.Time)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("persisted time is invalid, using 20:00", "time", s.settings.Time)
		t = TimeOfDay{Hour: 20}
		s.settings.Time = t.String()
	}
	return s.startLocked(t)
}

// Start schedules the daily task. It is a no-op when already running.
func (s *Scheduler) Start(t TimeOfDay) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked(t)
}

func (s *Scheduler) startLocked(t TimeOfDay) error {
	if s.running {
		return nil
	}
	gen := s.gen + 1
	id, err := s.cron.AddFunc(t.cronSpec(s.loc), func() { s.tick(gen) })
	if err != nil {
		return fmt.Errorf("scheduler: failed to schedule %s: %w", t, err)
	}
	s.gen = gen
	s.entry = id
	s.running = true
	s.cron.Start()
	observability.Logger().Info("daily report scheduled", "time", t.String(), "timezone", s.loc.String())
	return nil
}

// Stop cancels future ticks. A tick already executing is allowed to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if !s.running {
		return
	}
	s.cron.Remove(s.entry)
	s.entry = 0
	s.running = false
	observability.Logger().Info("daily report stopped")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Retime persists the new time and, when running, replaces the cron entry.
func (s *Scheduler) Retime(ctx context.Context, t TimeOfDay) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings.Time = t.String()
	err := store.Save(ctx, s.backend, StoreName, s.settings)

	if s.running {
		s.stopLocked()
		if startErr := s.startLocked(t); startErr != nil {
			return startErr
		}
	}
	return err
}

// Enable turns the daily report on. An empty channelID keeps the previously
// configured channel.
func (s *Scheduler) Enable(ctx context.Context, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := ParseTimeOfDay(s.settings.Time)
	if err != nil {
		return err
	}

	s.settings.Enabled = true
	if channelID != "" {
		s.settings.ChannelID = &channelID
	}
	saveErr := store.Save(ctx, s.backend, StoreName, s.settings)

	if err := s.startLocked(t); err != nil {
		return err
	}
	return saveErr
}

// Disable turns the daily report off.
func (s *Scheduler) Disable(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings.Enabled = false
	err := store.Save(ctx, s.backend, StoreName, s.settings)
	s.stopLocked()
	return err
}

func (s *Scheduler) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *Scheduler) Status() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Settings: s.settings,
		Running:  s.running,
		Timezone: s.loc.String(),
	}
	if next, ok := s.nextLocked(time.Now()); ok {
		snap.NextRun = &next
	}
	return snap
}

// Next returns the first tick strictly after from.
func (s *Scheduler) Next(from time.Time) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextLocked(from)
}

func (s *Scheduler) nextLocked(from time.Time) (time.Time, bool) {
	if !s.running {
		return time.Time{}, false
	}
	e := s.cron.Entry(s.entry)
	if !e.Valid() {
		return time.Time{}, false
	}
	return e.Schedule.Next(from), true
}

// current reports whether gen is the live schedule.
func (s *Scheduler) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running && s.gen == gen
}

// tick fires the schedule started as gen. A tick held by the ready barrier
// is dropped if the schedule was stopped or replaced in the meantime.
func (s *Scheduler) tick(gen uint64) {
	ctx := observability.WithInvocationID(s.baseCtx, uuid.NewString())
	log := observability.LoggerFromContext(ctx)

	if s.ready != nil {
		select {
		case <-s.ready:
		case <-ctx.Done():
			log.Warn("tick abandoned before the connection was ready")
			return
		}
	}
	if !s.current(gen) {
		log.Info("tick dropped, schedule was stopped or retimed")
		return
	}

	s.Fire(ctx)
}

// Fire runs one tick: post the report to the configured channel, or do
// nothing when disabled or no channel is set. Errors are logged and returned
// but never affect later ticks.
func (s *Scheduler) Fire(ctx context.Context) error {
	settings := s.Settings()
	log := observability.LoggerFromContext(ctx)

	if !settings.Enabled || settings.ChannelID == nil {
		log.Info("daily report skipped", "enabled", settings.Enabled, "has_channel", settings.ChannelID != nil)
		return nil
	}

	log.Info("posting daily report", "channel", *settings.ChannelID)
	if err := s.fire(ctx, *settings.ChannelID); err != nil {
		log.Error("daily report failed", "channel", *settings.ChannelID, "error", err)
		return err
	}
	return nil
}

// Shutdown stops the cron runner and waits for an in-flight tick.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
