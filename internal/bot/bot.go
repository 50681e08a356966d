// Package bot parses prefixed chat commands and runs their handlers.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ryosukesatoh/discord-digest/internal/chat"
	"github.com/ryosukesatoh/discord-digest/internal/observability"
	"github.com/ryosukesatoh/discord-digest/internal/runner"
	"github.com/ryosukesatoh/discord-digest/internal/scheduler"
)

var (
	ErrMissingArgument = errors.New("bot: missing required argument")
	ErrBadArgument     = errors.New("bot: invalid argument")
)

// Invocation is one parsed command message.
type Invocation struct {
	ID        string
	AuthorID  string
	ChannelID string
	Command   string
	Args      []string
}

// Pipeline runs a fetch and summarize pass over one channel.
type Pipeline interface {
	Run(ctx context.Context, req runner.Request) runner.Result
}

// Cursors tracks what each user has already read.
type Cursors interface {
	Boundary(userID, channelID string) time.Time
	MarkRead(ctx context.Context, userID, channelID string, at time.Time) error
}

// ReportPoster posts the sentiment report to a channel.
type ReportPoster interface {
	Post(ctx context.Context, channelID string) error
}

// Deps are the collaborators a Dispatcher is built from.
type Deps struct {
	Prefix         string
	Sender         chat.Sender
	Pipeline       Pipeline
	Cursors        Cursors
	Reporter       ReportPoster
	Scheduler      *scheduler.Scheduler
	UpdateMeLimit  int
	SummarizeLimit int
}

type handlerFunc func(ctx context.Context, inv Invocation) error

type Dispatcher struct {
	prefix         string
	sender         chat.Sender
	pipeline       Pipeline
	cursors        Cursors
	reporter       ReportPoster
	scheduler      *scheduler.Scheduler
	updateMeLimit  int
	summarizeLimit int
	now            func() time.Time
	handlers       map[string]handlerFunc
}

func New(deps Deps) *Dispatcher {
	d := &Dispatcher{
		prefix:         deps.Prefix,
		sender:         deps.Sender,
		pipeline:       deps.Pipeline,
		cursors:        deps.Cursors,
		reporter:       deps.Reporter,
		scheduler:      deps.Scheduler,
		updateMeLimit:  deps.UpdateMeLimit,
		summarizeLimit: deps.SummarizeLimit,
		now:            time.Now,
	}
	if d.prefix == "" {
		d.prefix = "!"
	}
	if d.updateMeLimit <= 0 {
		d.updateMeLimit = 1000
	}
	if d.summarizeLimit <= 0 {
		d.summarizeLimit = 2000
	}

	d.handlers = map[string]handlerFunc{
		"updateme":     d.handleUpdateMe,
		"summarize":    d.handleSummarize,
		"fng":          d.handleFNG,
		"fng_start":    d.handleFNGStart,
		"fng_stop":     d.handleFNGStop,
		"fng_status":   d.handleFNGStatus,
		"fng_time":     d.handleFNGTime,
		"help":         d.handleHelp,
		"help_summary": d.handleHelp,
	}
	return d
}

// Parse turns a message into an Invocation. It reports false for messages
// without the prefix and for unknown commands.
func (d *Dispatcher) Parse(authorID, channelID, content string) (Invocation, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(content), d.prefix)
	if !ok {
		return Invocation{}, false
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return Invocation{}, false
	}
	cmd := strings.ToLower(fields[0])
	if _, known := d.handlers[cmd]; !known {
		return Invocation{}, false
	}
	return Invocation{
		ID:        uuid.NewString(),
		AuthorID:  authorID,
		ChannelID: channelID,
		Command:   cmd,
		Args:      fields[1:],
	}, true
}

// HandleMessage parses and dispatches content. It reports whether the message
// was a command.
func (d *Dispatcher) HandleMessage(ctx context.Context, authorID, channelID, content string) bool {
	inv, ok := d.Parse(authorID, channelID, content)
	if !ok {
		return false
	}
	d.Dispatch(ctx, inv)
	return true
}

// Dispatch runs the handler for inv. Handler errors and panics are turned
// into a notice in the invoking channel; nothing propagates to the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, inv Invocation) {
	ctx = observability.WithInvocationID(ctx, inv.ID)
	log := observability.LoggerFromContext(ctx).With(
		"command", inv.Command,
		"actor", inv.AuthorID,
		"channel", inv.ChannelID,
	)

	handler, ok := d.handlers[inv.Command]
	if !ok {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("command panicked", "panic", r)
			d.reply(ctx, inv.ChannelID, fmt.Sprintf("❌ An error occurred: %v", r))
		}
	}()

	start := time.Now()
	log.Info("command received", "args", inv.Args)
	err := handler(ctx, inv)
	if err == nil {
		log.Info("command completed", "duration", time.Since(start))
		return
	}

	log.Error("command failed", "error", err, "duration", time.Since(start))
	d.reply(ctx, inv.ChannelID, d.errorNotice(err))
}

func (d *Dispatcher) errorNotice(err error) string {
	switch {
	case errors.Is(err, ErrMissingArgument):
		return fmt.Sprintf("❌ Missing required argument. Use `%shelp` for usage information.", d.prefix)
	case errors.Is(err, ErrBadArgument):
		return fmt.Sprintf("❌ Invalid argument. Use `%shelp` for usage information.", d.prefix)
	default:
		return fmt.Sprintf("❌ An error occurred: %v", err)
	}
}

// reply sends text, logging rather than returning a send failure.
func (d *Dispatcher) reply(ctx context.Context, channelID, text string) {
	if err := chat.SendChunks(ctx, d.sender, channelID, text); err != nil {
		observability.LoggerFromContext(ctx).Error("failed to send reply", "channel", channelID, "error", err)
	}
}
