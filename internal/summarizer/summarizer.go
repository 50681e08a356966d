package summarizer

import (
	"context"
	"fmt"

	"github.com/ryosukesatoh/discord-digest/internal/config"
	"github.com/ryosukesatoh/discord-digest/internal/fetcher"
)

// Mode selects how detailed a summary should be.
type Mode string

const (
	// ModeFull is used for an explicit time window.
	ModeFull Mode = "full"
	// ModeUpdate is used for catch-up summaries since a user's last check.
	ModeUpdate Mode = "update"
)

// Summarizer turns a channel transcript into a human readable summary.
type Summarizer interface {
	Summarize(ctx context.Context, messages []fetcher.Message, mode Mode) (string, error)
}

// New creates a new summarizer based on the configuration
func New(cfg *config.Config) (Summarizer, error) {
	sc := cfg.Summarizer
	switch sc.Type {
	case "openai":
		s := NewOpenAISummarizer(sc.APIKey, sc.Model, sc.MaxTokens, sc.TemperatureOrDefault())
		if sc.BaseURL != "" {
			s.baseURL = sc.BaseURL
		}
		return s, nil
	case "anthropic":
		s := NewAnthropicSummarizer(sc.APIKey, sc.Model, sc.MaxTokens)
		if sc.BaseURL != "" {
			s.baseURL = sc.BaseURL
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSummarizerType, sc.Type)
	}
}

// ErrUnsupportedSummarizerType is returned when an unsupported summarizer type is specified
var ErrUnsupportedSummarizerType = fmt.Errorf("unsupported summarizer type")
