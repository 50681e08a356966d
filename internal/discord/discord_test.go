package discord

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/ryosukesatoh/discord-digest/internal/fetcher"
)

type fakeAPI struct {
	pages    [][]*discordgo.Message
	err      error
	afterIDs []string
	sent     []string
}

func (f *fakeAPI) ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	f.afterIDs = append(f.afterIDs, afterID)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.pages) == 0 {
		return nil, nil
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

func (f *fakeAPI) ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, content)
	return &discordgo.Message{Content: content}, nil
}

type recordingHandler struct {
	calls []string
}

func (r *recordingHandler) HandleMessage(ctx context.Context, authorID, channelID, content string) bool {
	r.calls = append(r.calls, content)
	return true
}

func newTestClient(api restAPI) *Client {
	return &Client{api: api, baseCtx: context.Background(), ready: make(chan struct{})}
}

// page builds n messages with ids start..start+n-1, newest first like the API.
func page(start, n int, bot bool) []*discordgo.Message {
	msgs := make([]*discordgo.Message, 0, n)
	for i := start + n - 1; i >= start; i-- {
		msgs = append(msgs, &discordgo.Message{
			ID:        strconv.Itoa(1000 + i),
			Content:   "msg " + strconv.Itoa(i),
			Timestamp: time.Date(2025, 1, 15, 0, 0, i, 0, time.UTC),
			Author:    &discordgo.User{Username: "alice", Bot: bot},
		})
	}
	return msgs
}

func TestSnowflakeFromTime(t *testing.T) {
	if got := SnowflakeFromTime(time.UnixMilli(1462015105796)); got != "175928847298985984" {
		t.Errorf("Expected 175928847298985984, got %s", got)
	}
	if got := SnowflakeFromTime(time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)); got != "0" {
		t.Errorf("Expected 0 at the epoch, got %s", got)
	}
	if got := SnowflakeFromTime(time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)); got != "0" {
		t.Errorf("Expected 0 before the epoch, got %s", got)
	}
}

func TestFetchPaginatesOldestFirst(t *testing.T) {
	api := &fakeAPI{pages: [][]*discordgo.Message{page(0, 100, false), page(100, 30, false)}}
	c := newTestClient(api)
	after := time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC)

	msgs, err := c.Fetch(context.Background(), "c1", after, 1000)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(msgs) != 130 {
		t.Fatalf("Expected 130 messages, got %d", len(msgs))
	}
	if msgs[0].ID != "1000" || msgs[129].ID != "1129" {
		t.Errorf("Expected ascending order, got first=%s last=%s", msgs[0].ID, msgs[129].ID)
	}
	if len(api.afterIDs) != 2 || api.afterIDs[0] != SnowflakeFromTime(after) || api.afterIDs[1] != "1099" {
		t.Errorf("Unexpected after cursors: %v", api.afterIDs)
	}
}

func TestFetchStopsAtLimitAndSkipsBots(t *testing.T) {
	bots := page(0, 50, true)
	humans := page(50, 50, false)
	api := &fakeAPI{pages: [][]*discordgo.Message{append(humans, bots...), page(100, 100, false)}}
	c := newTestClient(api)

	msgs, err := c.Fetch(context.Background(), "c1", time.Time{}, 100)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(api.afterIDs) != 1 {
		t.Errorf("Expected to stop after one page, made %d calls", len(api.afterIDs))
	}
	if len(msgs) != 50 {
		t.Errorf("Expected 50 human messages, got %d", len(msgs))
	}
}

func TestFetchForbidden(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"missing access", &discordgo.RESTError{Message: &discordgo.APIErrorMessage{Code: discordgo.ErrCodeMissingAccess}}},
		{"missing permissions", &discordgo.RESTError{Message: &discordgo.APIErrorMessage{Code: discordgo.ErrCodeMissingPermissions}}},
		{"http 403", &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusForbidden}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(&fakeAPI{err: tt.err})
			_, err := c.Fetch(context.Background(), "c1", time.Time{}, 10)
			if !errors.Is(err, fetcher.ErrForbidden) {
				t.Errorf("Expected ErrForbidden, got %v", err)
			}
		})
	}
}

func TestFetchOtherErrors(t *testing.T) {
	c := newTestClient(&fakeAPI{err: &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusBadGateway}}})
	_, err := c.Fetch(context.Background(), "c1", time.Time{}, 10)
	if err == nil || errors.Is(err, fetcher.ErrForbidden) {
		t.Errorf("Expected a non-permission error, got %v", err)
	}
}

func TestSend(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(api)
	if err := c.Send(context.Background(), "c1", "hello"); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if len(api.sent) != 1 || api.sent[0] != "hello" {
		t.Errorf("Unexpected sent messages: %v", api.sent)
	}
}

func TestMessageRouting(t *testing.T) {
	h := &recordingHandler{}
	c := newTestClient(&fakeAPI{})
	c.SetHandler(h)

	c.onMessageCreate(nil, &discordgo.MessageCreate{Message: &discordgo.Message{Content: "!help", Author: &discordgo.User{ID: "1"}}})
	c.onMessageCreate(nil, &discordgo.MessageCreate{Message: &discordgo.Message{Content: "!help", Author: &discordgo.User{ID: "2", Bot: true}}})

	if len(h.calls) != 1 {
		t.Errorf("Expected only the human message to be routed, got %v", h.calls)
	}
}

func TestReadyClosesOnce(t *testing.T) {
	c := newTestClient(&fakeAPI{})
	c.onReady(nil, &discordgo.Ready{})
	c.onReady(nil, &discordgo.Ready{})

	select {
	case <-c.Ready():
	default:
		t.Error("Expected ready channel to be closed")
	}
}
