package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ryosukesatoh/discord-digest/internal/bot"
	"github.com/ryosukesatoh/discord-digest/internal/config"
	"github.com/ryosukesatoh/discord-digest/internal/cursor"
	"github.com/ryosukesatoh/discord-digest/internal/discord"
	"github.com/ryosukesatoh/discord-digest/internal/observability"
	"github.com/ryosukesatoh/discord-digest/internal/publisher"
	"github.com/ryosukesatoh/discord-digest/internal/runner"
	"github.com/ryosukesatoh/discord-digest/internal/scheduler"
	"github.com/ryosukesatoh/discord-digest/internal/sentiment"
	"github.com/ryosukesatoh/discord-digest/internal/store"
	"github.com/ryosukesatoh/discord-digest/internal/summarizer"
)

const shutdownTimeout = 10 * time.Second

// app owns every long-lived component. It is built once at startup.
type app struct {
	backend      store.Backend
	closeBackend func() error
	client       *discord.Client
	scheduler    *scheduler.Scheduler
	reporter     *runner.Reporter
	dispatcher   *bot.Dispatcher
	web          *publisher.WebPublisher
	publishers   []publisher.Publisher
}

func newBackend(ctx context.Context, cfg config.StorageConfig) (store.Backend, func() error, error) {
	switch cfg.Backend {
	case "redis":
		rb := store.NewRedisBackend(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix)
		if err := rb.Ping(ctx); err != nil {
			rb.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		return rb, rb.Close, nil
	case "memory":
		return store.NewMemoryBackend(), func() error { return nil }, nil
	default:
		return store.NewFileBackend(cfg.Dir), func() error { return nil }, nil
	}
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	backend, closeBackend, err := newBackend(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	a := &app{backend: backend, closeBackend: closeBackend}

	sum, err := summarizer.New(cfg)
	if err != nil {
		return nil, err
	}

	a.client, err = discord.New(cfg.Discord.Token)
	if err != nil {
		return nil, err
	}

	defaultTime, err := scheduler.ParseTimeOfDay(cfg.Scheduler.DefaultTime)
	if err != nil {
		return nil, err
	}
	a.scheduler = scheduler.New(ctx, backend, a.postReport,
		scheduler.WithLocation(cfg.Location()),
		scheduler.WithReady(a.client.Ready()),
		scheduler.WithDefaultTime(defaultTime),
	)

	var pubs []publisher.Publisher
	if cfg.Publisher.WebhookURL != "" {
		pubs = append(pubs, publisher.NewDiscordWebhookPublisher(cfg.Publisher.WebhookURL))
	}
	if email := cfg.Publisher.Email; email.SMTPHost != "" {
		pubs = append(pubs, publisher.NewEmailPublisher(email.SMTPHost, email.SMTPPort, email.Username, email.Password, email.From, email.To))
	}
	if cfg.Publisher.Web.Addr != "" {
		a.web = publisher.NewWebPublisher(cfg.Publisher.Web.Addr, a.scheduler)
		pubs = append(pubs, a.web)
	}
	a.publishers = pubs
	a.reporter = runner.NewReporter(sentiment.NewClient(cfg.Sentiment.URL), a.client, pubs)

	a.dispatcher = bot.New(bot.Deps{
		Prefix:         cfg.Discord.Prefix,
		Sender:         a.client,
		Pipeline:       runner.New(a.client, sum),
		Cursors:        cursor.NewTracker(ctx, backend),
		Reporter:       a.reporter,
		Scheduler:      a.scheduler,
		UpdateMeLimit:  cfg.Limits.UpdateMeMessages,
		SummarizeLimit: cfg.Limits.SummarizeMessages,
	})
	a.client.SetHandler(a.dispatcher)
	return a, nil
}

func (a *app) postReport(ctx context.Context, channelID string) error {
	return a.reporter.Post(ctx, channelID)
}

// run connects and blocks until ctx is cancelled, then shuts down.
func (a *app) run(ctx context.Context) error {
	log := observability.Logger()

	if a.web != nil {
		if err := a.web.Start(); err != nil {
			return err
		}
	}
	if err := a.scheduler.Restore(ctx); err != nil {
		log.Error("failed to restore daily report", "error", err)
	}
	if err := a.client.Open(ctx); err != nil {
		return err
	}
	log.Info("bot started")

	<-ctx.Done()
	log.Info("shutting down")
	return a.shutdown()
}

func (a *app) shutdown() error {
	log := observability.Logger()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.client.Close(); err != nil {
		log.Warn("discord close error", "error", err)
	}
	if err := a.scheduler.Shutdown(shutdownCtx); err != nil {
		log.Warn("scheduler did not stop in time", "error", err)
	}
	if a.web != nil {
		if err := a.web.Shutdown(shutdownCtx); err != nil {
			log.Warn("status server shutdown error", "error", err)
		}
	}
	if err := a.closeBackend(); err != nil {
		log.Warn("store close error", "error", err)
	}

	log.Info("shutdown complete")
	return nil
}
