package fetcher

import (
	"context"
	"errors"
	"time"
)

// Message is a single chat message eligible for summarization.
type Message struct {
	ID          string
	Author      string
	Content     string
	Timestamp   time.Time
	Attachments []string
}

// Fetcher reads channel history.
type Fetcher interface {
	// Fetch returns up to limit messages posted after the given time, oldest
	// first, excluding messages written by automated accounts.
	Fetch(ctx context.Context, channelID string, after time.Time, limit int) ([]Message, error)
}

// ErrForbidden is returned when the bot may not read the channel.
var ErrForbidden = errors.New("fetcher: missing permission to read channel")
