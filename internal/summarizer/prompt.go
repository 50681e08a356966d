package summarizer

import (
	"fmt"
	"strings"

	"github.com/ryosukesatoh/discord-digest/internal/fetcher"
)

const systemPrompt = "You are a helpful assistant that summarizes Discord conversations clearly and concisely."

const transcriptTimeLayout = "2006-01-02 15:04:05"

// Transcript renders one line per message: "[timestamp] author: content".
// Attachment URLs follow the content.
func Transcript(messages []fetcher.Message) string {
	var sb strings.Builder
	for i, m := range messages {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(fmt.Sprintf("[%s] %s: %s", m.Timestamp.UTC().Format(transcriptTimeLayout), m.Author, m.Content))
		if len(m.Attachments) > 0 {
			sb.WriteString(" (attachments: ")
			sb.WriteString(strings.Join(m.Attachments, ", "))
			sb.WriteString(")")
		}
	}
	return sb.String()
}

func detail(mode Mode) string {
	if mode == ModeFull {
		return "comprehensive"
	}
	return "concise"
}

// BuildPrompt builds the user prompt sent to the model.
func BuildPrompt(messages []fetcher.Message, mode Mode) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Please provide a %s summary of the following Discord channel messages.\n\n", detail(mode)))
	sb.WriteString(`Organize the summary by main topics discussed and key points. Include:
- Main topics and discussions
- Important decisions or announcements
- Action items or questions raised
- Notable attachments or links shared

Messages:
`)
	sb.WriteString(Transcript(messages))
	sb.WriteString("\n\nSummary:")
	return sb.String()
}
