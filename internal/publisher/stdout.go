package publisher

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/ryosukesatoh/discord-digest/internal/sentiment"
)

// StdoutPublisher prints the report to a terminal.
type StdoutPublisher struct {
	out io.Writer
}

// NewStdoutPublisher writes to w, or to os.Stdout when w is nil.
func NewStdoutPublisher(w io.Writer) *StdoutPublisher {
	if w == nil {
		w = os.Stdout
	}
	return &StdoutPublisher{out: w}
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	mutedStyle = lipgloss.NewStyle().Faint(true)
)

func (p *StdoutPublisher) Publish(_ context.Context, r *sentiment.Report) error {
	bandStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(fmt.Sprintf("#%06X", r.Band.Color)))

	fmt.Fprintln(p.out, titleStyle.Render("Crypto Fear & Greed Index"))
	fmt.Fprintf(p.out, "%s %d/100 %s\n", r.Band.Emoji, r.Value, bandStyle.Render(r.Band.Label))
	fmt.Fprintln(p.out, bandStyle.Render(sentiment.Bar(r.Value)))

	if delta, ok := r.Change(); ok {
		fmt.Fprintf(p.out, "Change vs yesterday: %+d (was %d)\n", delta, *r.Previous)
	}
	if !r.Timestamp.IsZero() {
		fmt.Fprintln(p.out, mutedStyle.Render("Updated "+humanize.Time(r.Timestamp)))
	}
	return nil
}
