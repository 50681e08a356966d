package sentiment

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// FailureNotice is posted when the index could not be fetched.
const FailureNotice = "❌ Failed to fetch the Fear & Greed Index. Please try again later."

// FormatReport renders a report as a Discord message.
func FormatReport(r *Report) string {
	var sb strings.Builder
	sb.WriteString("📈 **Crypto Fear & Greed Index**\n\n")
	sb.WriteString(fmt.Sprintf("%s **%d/100** · %s\n", r.Band.Emoji, r.Value, r.Band.Label))
	sb.WriteString(fmt.Sprintf("`%s`\n", Bar(r.Value)))

	if delta, ok := r.Change(); ok {
		sb.WriteString(fmt.Sprintf("Change vs yesterday: %+d (%d → %d)\n", delta, *r.Previous, r.Value))
	}

	if !r.Timestamp.IsZero() {
		sb.WriteString(fmt.Sprintf("Updated %s UTC (%s)", r.Timestamp.UTC().Format("2006-01-02 15:04"), humanize.Time(r.Timestamp)))
	}
	return strings.TrimRight(sb.String(), "\n")
}
