package chat

import (
	"context"
	"fmt"
)

const (
	// MaxMessageLength is Discord's hard per-message character ceiling.
	MaxMessageLength = 2000
	// ChunkSize is the slice width used once a reply exceeds MaxMessageLength.
	ChunkSize = 1900
)

// Sender posts a single transport message to a channel.
type Sender interface {
	Send(ctx context.Context, channelID, content string) error
}

// Split returns text unchanged when it fits in one message, otherwise
// fixed-width ChunkSize slices in order. Lengths are counted in runes.
func Split(text string) []string {
	runes := []rune(text)
	if len(runes) <= MaxMessageLength {
		return []string{text}
	}

	chunks := make([]string, 0, len(runes)/ChunkSize+1)
	for start := 0; start < len(runes); start += ChunkSize {
		end := min(start+ChunkSize, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// SendChunks splits text and sends each chunk in order, stopping at the
// first failure.
func SendChunks(ctx context.Context, s Sender, channelID, text string) error {
	chunks := Split(text)
	for i, chunk := range chunks {
		if err := s.Send(ctx, channelID, chunk); err != nil {
			return fmt.Errorf("chat: failed to send chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	return nil
}
