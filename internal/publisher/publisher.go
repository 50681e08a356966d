package publisher

import (
	"context"

	"github.com/ryosukesatoh/discord-digest/internal/sentiment"
)

// Publisher publishes a sentiment report to some output destination.
type Publisher interface {
	Publish(ctx context.Context, report *sentiment.Report) error
}
