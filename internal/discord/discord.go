// Package discord adapts a discordgo session to the fetcher and chat
// interfaces and routes incoming commands to the dispatcher.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/ryosukesatoh/discord-digest/internal/fetcher"
	"github.com/ryosukesatoh/discord-digest/internal/observability"
)

// discordEpoch is 2015-01-01T00:00:00Z in Unix milliseconds.
const discordEpoch = 1420070400000

// pageSize is the largest page the channel history endpoint returns.
const pageSize = 100

// MessageHandler receives every non-bot message.
type MessageHandler interface {
	HandleMessage(ctx context.Context, authorID, channelID, content string) bool
}

// restAPI is the subset of *discordgo.Session used for REST calls.
type restAPI interface {
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type Client struct {
	session *discordgo.Session
	api     restAPI
	handler MessageHandler
	baseCtx context.Context

	ready     chan struct{}
	readyOnce sync.Once
}

// New creates a bot session. Call SetHandler and then Open to connect.
func New(token string) (*Client, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: failed to create session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentGuilds | discordgo.IntentGuildMessages | discordgo.IntentMessageContent

	c := &Client{
		session: s,
		api:     s,
		baseCtx: context.Background(),
		ready:   make(chan struct{}),
	}
	s.AddHandler(c.onReady)
	s.AddHandler(c.onMessageCreate)
	return c, nil
}

// SetHandler sets where incoming messages are routed.
func (c *Client) SetHandler(h MessageHandler) {
	c.handler = h
}

// Ready is closed once the gateway reports the session is ready.
func (c *Client) Ready() <-chan struct{} {
	return c.ready
}

// Open connects to the gateway. ctx is the parent of every handled command.
func (c *Client) Open(ctx context.Context) error {
	c.baseCtx = ctx
	if err := c.session.Open(); err != nil {
		return fmt.Errorf("discord: failed to open gateway: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.session.Close()
}

func (c *Client) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	name := ""
	if r.User != nil {
		name = r.User.String()
	}
	observability.WithFields("component", "discord").Info("connected to discord", "user", name, "guilds", len(r.Guilds))
	c.markReady()
}

func (c *Client) markReady() {
	c.readyOnce.Do(func() { close(c.ready) })
}

func (c *Client) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || c.handler == nil {
		return
	}
	c.handler.HandleMessage(c.baseCtx, m.Author.ID, m.ChannelID, m.Content)
}

// Send posts content as a single message.
func (c *Client) Send(ctx context.Context, channelID, content string) error {
	if _, err := c.api.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: failed to send message: %w", mapError(err))
	}
	return nil
}

// Fetch returns up to limit messages posted after the given time, oldest
// first. Messages by bots count toward limit but are not returned.
func (c *Client) Fetch(ctx context.Context, channelID string, after time.Time, limit int) ([]fetcher.Message, error) {
	var raw []*discordgo.Message
	afterID := SnowflakeFromTime(after)

	for len(raw) < limit {
		page, err := c.api.ChannelMessages(channelID, min(pageSize, limit-len(raw)), "", afterID, "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("discord: failed to read channel %s: %w", channelID, mapError(err))
		}
		if len(page) == 0 {
			break
		}
		raw = append(raw, page...)
		afterID = newestID(page)
		if len(page) < pageSize {
			break
		}
	}

	sort.SliceStable(raw, func(i, j int) bool {
		return snowflakeLess(raw[i].ID, raw[j].ID)
	})

	messages := make([]fetcher.Message, 0, len(raw))
	for _, m := range raw {
		if m.Author != nil && m.Author.Bot {
			continue
		}
		messages = append(messages, toMessage(m))
	}
	return messages, nil
}

func toMessage(m *discordgo.Message) fetcher.Message {
	msg := fetcher.Message{
		ID:        m.ID,
		Content:   m.Content,
		Timestamp: m.Timestamp.UTC(),
	}
	if m.Author != nil {
		msg.Author = m.Author.Username
	}
	for _, a := range m.Attachments {
		msg.Attachments = append(msg.Attachments, a.URL)
	}
	return msg
}

// mapError turns Discord's missing-access responses into fetcher.ErrForbidden.
func mapError(err error) error {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return err
	}
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeMissingAccess, discordgo.ErrCodeMissingPermissions:
			return fmt.Errorf("%w: %v", fetcher.ErrForbidden, err)
		}
	}
	if restErr.Response != nil && restErr.Response.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: %v", fetcher.ErrForbidden, err)
	}
	return err
}

// SnowflakeFromTime returns the smallest snowflake id for t, usable as an
// "after" cursor.
func SnowflakeFromTime(t time.Time) string {
	ms := t.UnixMilli() - discordEpoch
	if ms < 0 {
		ms = 0
	}
	return strconv.FormatUint(uint64(ms)<<22, 10)
}

func newestID(page []*discordgo.Message) string {
	newest := page[0].ID
	for _, m := range page[1:] {
		if snowflakeLess(newest, m.ID) {
			newest = m.ID
		}
	}
	return newest
}

func snowflakeLess(a, b string) bool {
	x, errA := strconv.ParseUint(a, 10, 64)
	y, errB := strconv.ParseUint(b, 10, 64)
	if errA != nil || errB != nil {
		return a < b
	}
	return x < y
}
