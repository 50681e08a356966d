package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ryosukesatoh/discord-digest/internal/fetcher"
	"github.com/ryosukesatoh/discord-digest/internal/observability"
	"github.com/ryosukesatoh/discord-digest/internal/summarizer"
)

// Status is the outcome of one summary request.
type Status int

const (
	StatusOK Status = iota
	StatusEmpty
	StatusForbidden
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	case StatusForbidden:
		return "forbidden"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Request describes which messages to summarize.
type Request struct {
	ChannelID string
	Since     time.Time
	Limit     int
	Mode      summarizer.Mode
}

// Result always carries displayable text when Status is StatusOK, even if
// the summarizer failed.
type Result struct {
	Status       Status
	Summary      string
	MessageCount int
	Err          error
}

// Runner orchestrates the fetch -> summarize pipeline for one channel.
type Runner struct {
	fetcher    fetcher.Fetcher
	summarizer summarizer.Summarizer
}

func New(f fetcher.Fetcher, s summarizer.Summarizer) *Runner {
	return &Runner{
		fetcher:    f,
		summarizer: s,
	}
}

// Run executes the pipeline once. It never returns an error; failures are
// expressed in the Result.
func (r *Runner) Run(ctx context.Context, req Request) Result {
	log := observability.LoggerFromContext(ctx).With("channel", req.ChannelID, "mode", string(req.Mode))
	log.Info("fetching messages", "since", req.Since, "limit", req.Limit)

	messages, err := r.fetcher.Fetch(ctx, req.ChannelID, req.Since, req.Limit)
	if errors.Is(err, fetcher.ErrForbidden) {
		log.Warn("no permission to read channel")
		return Result{Status: StatusForbidden, Err: err}
	}
	if err != nil {
		log.Error("fetch failed", "error", err)
		return Result{Status: StatusFailed, Err: fmt.Errorf("runner: fetch failed: %w", err)}
	}
	log.Info("fetched messages", "count", len(messages))

	if len(messages) == 0 {
		return Result{Status: StatusEmpty}
	}

	summary, err := r.summarizer.Summarize(ctx, messages, req.Mode)
	if err != nil {
		log.Error("summarize failed", "error", err)
		return Result{
			Status:       StatusOK,
			Summary:      fmt.Sprintf("Error generating summary: %v", err),
			MessageCount: len(messages),
			Err:          err,
		}
	}

	return Result{Status: StatusOK, Summary: summary, MessageCount: len(messages)}
}
