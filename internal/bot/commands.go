package bot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ryosukesatoh/discord-digest/internal/observability"
	"github.com/ryosukesatoh/discord-digest/internal/runner"
	"github.com/ryosukesatoh/discord-digest/internal/scheduler"
	"github.com/ryosukesatoh/discord-digest/internal/summarizer"
)

const (
	defaultSummarizeHours = 24
	maxSummarizeHours     = 720
)

var (
	mentionRegex   = regexp.MustCompile(`^<#(\d+)>$`)
	snowflakeRegex = regexp.MustCompile(`^\d{17,20}$`)
)

// parseChannelRef accepts a channel mention or a bare snowflake id.
func parseChannelRef(s string) (string, bool) {
	if m := mentionRegex.FindStringSubmatch(s); m != nil {
		return m[1], true
	}
	if snowflakeRegex.MatchString(s) {
		return s, true
	}
	return "", false
}

func mention(channelID string) string {
	return "<#" + channelID + ">"
}

func (d *Dispatcher) handleUpdateMe(ctx context.Context, inv Invocation) error {
	if len(inv.Args) == 0 {
		d.reply(ctx, inv.ChannelID, fmt.Sprintf("❌ Please mention at least one channel. Usage: `%supdateme #channel1 #channel2`", d.prefix))
		return nil
	}

	channels := make([]string, 0, len(inv.Args))
	seen := make(map[string]bool, len(inv.Args))
	for _, arg := range inv.Args {
		id, ok := parseChannelRef(arg)
		if !ok {
			return fmt.Errorf("%w: %q is not a channel", ErrBadArgument, arg)
		}
		if !seen[id] {
			seen[id] = true
			channels = append(channels, id)
		}
	}

	d.reply(ctx, inv.ChannelID, "🔍 Fetching new messages... This may take a moment.")

	log := observability.LoggerFromContext(ctx)
	sections := make([]string, 0, len(channels))
	for _, channelID := range channels {
		since := d.cursors.Boundary(inv.AuthorID, channelID)
		fetchStart := d.now().UTC()

		res := d.pipeline.Run(ctx, runner.Request{
			ChannelID: channelID,
			Since:     since,
			Limit:     d.updateMeLimit,
			Mode:      summarizer.ModeUpdate,
		})

		switch res.Status {
		case runner.StatusForbidden:
			sections = append(sections, fmt.Sprintf("❌ **%s**: No permission to read this channel.", mention(channelID)))
			continue
		case runner.StatusFailed:
			sections = append(sections, fmt.Sprintf("❌ **%s**: Failed to fetch messages: %v", mention(channelID), res.Err))
			continue
		case runner.StatusEmpty:
			sections = append(sections, fmt.Sprintf("✅ **%s**: No new messages since your last check.", mention(channelID)))
		case runner.StatusOK:
			sections = append(sections, fmt.Sprintf("📊 **%s** (%d new messages):\n%s", mention(channelID), res.MessageCount, res.Summary))
		}

		if err := d.cursors.MarkRead(ctx, inv.AuthorID, channelID, fetchStart); err != nil {
			log.Error("failed to persist read cursor", "target", channelID, "error", err)
		}
	}

	d.reply(ctx, inv.ChannelID, strings.Join(sections, "\n\n"))
	return nil
}

// handleSummarize takes an optional channel followed by an optional hour
// count. A lone short number is read as the hour count.
func (d *Dispatcher) handleSummarize(ctx context.Context, inv Invocation) error {
	channelID := inv.ChannelID
	hours := defaultSummarizeHours
	args := inv.Args

	if len(args) > 2 {
		return fmt.Errorf("%w: too many arguments", ErrBadArgument)
	}
	if len(args) > 0 {
		if id, ok := parseChannelRef(args[0]); ok {
			channelID = id
			args = args[1:]
		} else if len(args) == 2 {
			return fmt.Errorf("%w: %q is not a channel", ErrBadArgument, args[0])
		}
	}
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("%w: %q is not a number of hours", ErrBadArgument, args[0])
		}
		hours = n
	}

	if hours < 1 || hours > maxSummarizeHours {
		d.reply(ctx, inv.ChannelID, "❌ Please specify hours between 1 and 720 (30 days).")
		return nil
	}

	d.reply(ctx, inv.ChannelID, fmt.Sprintf("🔍 Summarizing %s for the last %d hours... This may take a moment.", mention(channelID), hours))

	res := d.pipeline.Run(ctx, runner.Request{
		ChannelID: channelID,
		Since:     d.now().UTC().Add(-time.Duration(hours) * time.Hour),
		Limit:     d.summarizeLimit,
		Mode:      summarizer.ModeFull,
	})

	switch res.Status {
	case runner.StatusForbidden:
		d.reply(ctx, inv.ChannelID, fmt.Sprintf("❌ I don't have permission to read %s.", mention(channelID)))
	case runner.StatusFailed:
		return res.Err
	case runner.StatusEmpty:
		d.reply(ctx, inv.ChannelID, fmt.Sprintf("ℹ️ No messages found in %s for the last %d hours.", mention(channelID), hours))
	case runner.StatusOK:
		d.reply(ctx, inv.ChannelID, fmt.Sprintf("📊 **Summary of %s** (Last %d hours, %d messages):\n\n%s",
			mention(channelID), hours, res.MessageCount, res.Summary))
	}
	return nil
}

// handleFNG posts the report right now. The reporter already sends its own
// failure notice.
func (d *Dispatcher) handleFNG(ctx context.Context, inv Invocation) error {
	if err := d.reporter.Post(ctx, inv.ChannelID); err != nil {
		observability.LoggerFromContext(ctx).Warn("on-demand report failed", "error", err)
	}
	return nil
}

func (d *Dispatcher) handleFNGStart(ctx context.Context, inv Invocation) error {
	channelID := inv.ChannelID
	if len(inv.Args) > 0 {
		id, ok := parseChannelRef(inv.Args[0])
		if !ok {
			return fmt.Errorf("%w: %q is not a channel", ErrBadArgument, inv.Args[0])
		}
		channelID = id
	}

	if err := d.scheduler.Enable(ctx, channelID); err != nil {
		return err
	}
	snap := d.scheduler.Status()
	d.reply(ctx, inv.ChannelID, fmt.Sprintf("✅ Daily Fear & Greed report enabled for %s at %s (%s).",
		mention(channelID), snap.Time, snap.Timezone))
	return nil
}

func (d *Dispatcher) handleFNGStop(ctx context.Context, inv Invocation) error {
	if err := d.scheduler.Disable(ctx); err != nil {
		return err
	}
	d.reply(ctx, inv.ChannelID, "🛑 Daily Fear & Greed report disabled.")
	return nil
}

func (d *Dispatcher) handleFNGStatus(ctx context.Context, inv Invocation) error {
	d.reply(ctx, inv.ChannelID, formatStatus(d.scheduler.Status(), d.now()))
	return nil
}

func formatStatus(snap scheduler.Snapshot, now time.Time) string {
	state := "🔴 Disabled"
	if snap.Enabled {
		state = "🟢 Enabled"
	}
	channel := "not set"
	if snap.ChannelID != nil {
		channel = mention(*snap.ChannelID)
	}

	var sb strings.Builder
	sb.WriteString("📅 **Daily Fear & Greed report**\n")
	sb.WriteString(fmt.Sprintf("Status: %s\n", state))
	sb.WriteString(fmt.Sprintf("Channel: %s\n", channel))
	sb.WriteString(fmt.Sprintf("Time: %s (%s)", snap.Time, snap.Timezone))
	if snap.NextRun != nil {
		sb.WriteString(fmt.Sprintf("\nNext run: %s (%s)", snap.NextRun.Format("2006-01-02 15:04"), humanize.RelTime(*snap.NextRun, now, "ago", "from now")))
	}
	return sb.String()
}

func (d *Dispatcher) handleFNGTime(ctx context.Context, inv Invocation) error {
	if len(inv.Args) == 0 {
		return ErrMissingArgument
	}

	t, err := scheduler.ParseTimeOfDay(inv.Args[0])
	if errors.Is(err, scheduler.ErrInvalidTime) {
		d.reply(ctx, inv.ChannelID, fmt.Sprintf("❌ Invalid time %q. Use 24-hour HH:MM, e.g. `%sfng_time 18:30`.", inv.Args[0], d.prefix))
		return nil
	}
	if err != nil {
		return err
	}

	if err := d.scheduler.Retime(ctx, t); err != nil {
		return err
	}
	snap := d.scheduler.Status()
	msg := fmt.Sprintf("⏰ Daily Fear & Greed report time set to %s (%s).", t, snap.Timezone)
	if !snap.Running {
		msg += fmt.Sprintf(" Use `%sfng_start` to enable it.", d.prefix)
	}
	d.reply(ctx, inv.ChannelID, msg)
	return nil
}

func (d *Dispatcher) handleHelp(ctx context.Context, inv Invocation) error {
	d.reply(ctx, inv.ChannelID, helpText(d.prefix))
	return nil
}

func helpText(p string) string {
	return strings.NewReplacer("{p}", p).Replace(`📖 **Discord Summary Bot Commands**

**{p}updateme #channel1 #channel2**
Get a summary of new messages since your last check for the specified channels.
- Tracks your reading history per channel
- First use: summarizes messages from the last 24 hours

**{p}summarize [#channel] [hours]**
Get a full summary of messages from a channel within a time period.
- Default: current channel, last 24 hours
- Example: ` + "`{p}summarize #general 48`" + ` (last 48 hours)
- Maximum: 720 hours (30 days)

**{p}fng**
Post the current Crypto Fear & Greed Index.

**{p}fng_start [#channel]**
Post the index every day (default: this channel).

**{p}fng_stop**
Stop the daily post.

**{p}fng_status**
Show the daily post settings.

**{p}fng_time HH:MM**
Change the daily post time (24-hour clock).

**{p}help**
Show this help message`)
}
