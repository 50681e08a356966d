package sentiment

import (
	"context"
	"strings"
	"time"
)

// Band is one of the five Fear & Greed classification ranges.
type Band struct {
	Label string `json:"label"`
	Emoji string `json:"emoji"`
	Color int    `json:"color"`
}

var (
	ExtremeFear  = Band{Label: "Extreme Fear", Emoji: "😱", Color: 0xE74C3C}
	Fear         = Band{Label: "Fear", Emoji: "😨", Color: 0xE67E22}
	Neutral      = Band{Label: "Neutral", Emoji: "😐", Color: 0xF1C40F}
	Greed        = Band{Label: "Greed", Emoji: "😊", Color: 0x2ECC71}
	ExtremeGreed = Band{Label: "Extreme Greed", Emoji: "🤑", Color: 0x27AE60}
)

// Classify buckets an index value (0-100) into its band.
func Classify(value int) Band {
	switch {
	case value <= 25:
		return ExtremeFear
	case value <= 45:
		return Fear
	case value <= 55:
		return Neutral
	case value <= 75:
		return Greed
	default:
		return ExtremeGreed
	}
}

const barSegments = 10

// Bar renders a 10-segment gauge with floor(value/10) filled segments.
func Bar(value int) string {
	value = max(0, min(100, value))
	filled := value / 10
	return strings.Repeat("█", filled) + strings.Repeat("░", barSegments-filled)
}

// Report is one reading of the index.
type Report struct {
	Value          int       `json:"value"`
	Classification string    `json:"classification"`
	Band           Band      `json:"band"`
	Timestamp      time.Time `json:"timestamp"`
	// Previous is the prior day's value, when the provider returned one.
	Previous *int `json:"previous,omitempty"`
}

// Change returns today's value minus the previous one.
func (r *Report) Change() (int, bool) {
	if r.Previous == nil {
		return 0, false
	}
	return r.Value - *r.Previous, true
}

// Source fetches the current index reading.
type Source interface {
	Fetch(ctx context.Context) (*Report, error)
}
