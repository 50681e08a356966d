package runner

import (
	"context"
	"fmt"

	"github.com/ryosukesatoh/discord-digest/internal/chat"
	"github.com/ryosukesatoh/discord-digest/internal/observability"
	"github.com/ryosukesatoh/discord-digest/internal/publisher"
	"github.com/ryosukesatoh/discord-digest/internal/sentiment"
)

// Reporter fetches the sentiment index and posts it to a channel.
type Reporter struct {
	source     sentiment.Source
	sender     chat.Sender
	publishers []publisher.Publisher
}

func NewReporter(source sentiment.Source, sender chat.Sender, pubs []publisher.Publisher) *Reporter {
	return &Reporter{
		source:     source,
		sender:     sender,
		publishers: pubs,
	}
}

// Post sends the current report to channelID, or a failure notice when the
// index cannot be fetched. Publishers are notified after a successful post;
// a failing publisher does not fail the post.
func (r *Reporter) Post(ctx context.Context, channelID string) error {
	log := observability.LoggerFromContext(ctx).With("channel", channelID)

	report, err := r.source.Fetch(ctx)
	if err != nil {
		log.Error("sentiment fetch failed", "error", err)
		if sendErr := chat.SendChunks(ctx, r.sender, channelID, sentiment.FailureNotice); sendErr != nil {
			log.Error("failed to send failure notice", "error", sendErr)
		}
		return fmt.Errorf("runner: sentiment fetch failed: %w", err)
	}

	if err := chat.SendChunks(ctx, r.sender, channelID, sentiment.FormatReport(report)); err != nil {
		return fmt.Errorf("runner: failed to post report: %w", err)
	}
	log.Info("report posted", "value", report.Value, "band", report.Band.Label)

	r.publish(ctx, report)
	return nil
}

func (r *Reporter) publish(ctx context.Context, report *sentiment.Report) {
	log := observability.LoggerFromContext(ctx)
	failed := 0
	for _, pub := range r.publishers {
		if err := pub.Publish(ctx, report); err != nil {
			failed++
			log.Warn("publish failed", "publisher", fmt.Sprintf("%T", pub), "error", err)
		}
	}
	if failed > 0 {
		log.Warn("report published with failures", "failed", failed, "total", len(r.publishers))
	}
}
