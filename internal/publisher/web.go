package publisher

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/gofiber/fiber/v2"

	"github.com/ryosukesatoh/discord-digest/internal/observability"
	"github.com/ryosukesatoh/discord-digest/internal/scheduler"
	"github.com/ryosukesatoh/discord-digest/internal/sentiment"
)

// StatusSource reports the daily scheduler state.
type StatusSource interface {
	Status() scheduler.Snapshot
}

// WebPublisher serves the latest report and scheduler status over HTTP.
type WebPublisher struct {
	addr   string
	app    *fiber.App
	status StatusSource
	mu     sync.RWMutex
	latest *sentiment.Report
}

func NewWebPublisher(addr string, status StatusSource) *WebPublisher {
	wp := &WebPublisher{addr: addr, status: status}
	wp.app = fiber.New(fiber.Config{
		AppName:               "discord-digest",
		DisableStartupMessage: true,
	})

	wp.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	wp.app.Get("/fng", wp.handleLatest)
	wp.app.Get("/scheduler", wp.handleScheduler)
	return wp
}

// Start begins serving HTTP in the background. Call Shutdown to stop.
func (wp *WebPublisher) Start() error {
	ln, err := net.Listen("tcp", wp.addr)
	if err != nil {
		return fmt.Errorf("web: failed to listen on %s: %w", wp.addr, err)
	}
	log := observability.WithFields("component", "status_server", "addr", ln.Addr().String())
	go func() {
		log.Info("status server listening")
		if err := wp.app.Listener(ln); err != nil {
			log.Error("status server error", "error", err)
		}
	}()
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (wp *WebPublisher) Shutdown(ctx context.Context) error {
	return wp.app.ShutdownWithContext(ctx)
}

func (wp *WebPublisher) Publish(_ context.Context, report *sentiment.Report) error {
	wp.mu.Lock()
	wp.latest = report
	wp.mu.Unlock()
	return nil
}

func (wp *WebPublisher) handleLatest(c *fiber.Ctx) error {
	wp.mu.RLock()
	report := wp.latest
	wp.mu.RUnlock()

	if report == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no report published yet"})
	}
	return c.JSON(report)
}

func (wp *WebPublisher) handleScheduler(c *fiber.Ctx) error {
	if wp.status == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "scheduler not configured"})
	}
	return c.JSON(wp.status.Status())
}
