package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ryosukesatoh/discord-digest/internal/fetcher"
	"github.com/ryosukesatoh/discord-digest/internal/publisher"
	"github.com/ryosukesatoh/discord-digest/internal/sentiment"
	"github.com/ryosukesatoh/discord-digest/internal/summarizer"
)

// Mock implementations

type mockFetcher struct {
	messages []fetcher.Message
	err      error
	gotLimit int
	gotAfter time.Time
}

func (m *mockFetcher) Fetch(ctx context.Context, channelID string, after time.Time, limit int) ([]fetcher.Message, error) {
	m.gotLimit = limit
	m.gotAfter = after
	return m.messages, m.err
}

type mockSummarizer struct {
	summary string
	err     error
	called  bool
	gotMode summarizer.Mode
}

func (m *mockSummarizer) Summarize(ctx context.Context, messages []fetcher.Message, mode summarizer.Mode) (string, error) {
	m.called = true
	m.gotMode = mode
	return m.summary, m.err
}

type mockSender struct {
	sent []string
	err  error
}

func (m *mockSender) Send(ctx context.Context, channelID, content string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, content)
	return nil
}

type mockSource struct {
	report *sentiment.Report
	err    error
}

func (m *mockSource) Fetch(ctx context.Context) (*sentiment.Report, error) {
	return m.report, m.err
}

type mockPublisher struct {
	published bool
	err       error
}

func (m *mockPublisher) Publish(ctx context.Context, report *sentiment.Report) error {
	m.published = true
	return m.err
}

func recentMessages(n int) []fetcher.Message {
	msgs := make([]fetcher.Message, n)
	for i := range msgs {
		msgs[i] = fetcher.Message{
			ID:        fmt.Sprint(i),
			Author:    "alice",
			Content:   "hello",
			Timestamp: time.Now().Add(-time.Duration(n-i) * time.Minute),
		}
	}
	return msgs
}

func TestRunSuccess(t *testing.T) {
	f := &mockFetcher{messages: recentMessages(3)}
	s := &mockSummarizer{summary: "three messages"}
	since := time.Now().Add(-time.Hour)

	res := New(f, s).Run(context.Background(), Request{ChannelID: "c1", Since: since, Limit: 1000, Mode: summarizer.ModeUpdate})

	if res.Status != StatusOK {
		t.Fatalf("Expected StatusOK, got %s", res.Status)
	}
	if res.MessageCount != 3 || res.Summary != "three messages" {
		t.Errorf("Unexpected result: %+v", res)
	}
	if f.gotLimit != 1000 || !f.gotAfter.Equal(since) {
		t.Errorf("Expected fetch with limit 1000 after %v, got %d after %v", since, f.gotLimit, f.gotAfter)
	}
	if s.gotMode != summarizer.ModeUpdate {
		t.Errorf("Expected update mode, got %q", s.gotMode)
	}
}

func TestRunEmpty(t *testing.T) {
	s := &mockSummarizer{}
	res := New(&mockFetcher{}, s).Run(context.Background(), Request{ChannelID: "c1"})

	if res.Status != StatusEmpty {
		t.Fatalf("Expected StatusEmpty, got %s", res.Status)
	}
	if s.called {
		t.Error("Expected summarizer not to be called for an empty channel")
	}
}

func TestRunForbidden(t *testing.T) {
	f := &mockFetcher{err: fmt.Errorf("discord: %w", fetcher.ErrForbidden)}
	res := New(f, &mockSummarizer{}).Run(context.Background(), Request{ChannelID: "c1"})

	if res.Status != StatusForbidden {
		t.Fatalf("Expected StatusForbidden, got %s", res.Status)
	}
}

func TestRunFetchError(t *testing.T) {
	f := &mockFetcher{err: errors.New("gateway timeout")}
	res := New(f, &mockSummarizer{}).Run(context.Background(), Request{ChannelID: "c1"})

	if res.Status != StatusFailed || res.Err == nil {
		t.Fatalf("Expected StatusFailed with error, got %+v", res)
	}
}

func TestRunSummarizeErrorBecomesText(t *testing.T) {
	f := &mockFetcher{messages: recentMessages(2)}
	s := &mockSummarizer{err: errors.New("rate limited")}

	res := New(f, s).Run(context.Background(), Request{ChannelID: "c1"})

	if res.Status != StatusOK {
		t.Fatalf("Expected StatusOK even when summarizing fails, got %s", res.Status)
	}
	if res.Summary != "Error generating summary: rate limited" {
		t.Errorf("Unexpected summary text %q", res.Summary)
	}
	if res.MessageCount != 2 {
		t.Errorf("Expected message count 2, got %d", res.MessageCount)
	}
}

func TestReporterPostSuccess(t *testing.T) {
	sender := &mockSender{}
	failPub := &mockPublisher{err: errors.New("webhook down")}
	okPub := &mockPublisher{}
	report := &sentiment.Report{Value: 80, Band: sentiment.Classify(80)}

	r := NewReporter(&mockSource{report: report}, sender, []publisher.Publisher{failPub, okPub})
	if err := r.Post(context.Background(), "c1"); err != nil {
		t.Fatalf("Post returned error: %v", err)
	}

	if len(sender.sent) != 1 || !strings.Contains(sender.sent[0], "Extreme Greed") {
		t.Errorf("Expected formatted report to be sent, got %v", sender.sent)
	}
	if !failPub.published || !okPub.published {
		t.Error("Expected every publisher to be called even after one fails")
	}
}

func TestReporterPostFetchFailureSendsNotice(t *testing.T) {
	sender := &mockSender{}
	pub := &mockPublisher{}

	r := NewReporter(&mockSource{err: errors.New("timeout")}, sender, []publisher.Publisher{pub})
	if err := r.Post(context.Background(), "c1"); err == nil {
		t.Fatal("Expected error when the index cannot be fetched")
	}

	if len(sender.sent) != 1 || sender.sent[0] != sentiment.FailureNotice {
		t.Errorf("Expected failure notice, got %v", sender.sent)
	}
	if pub.published {
		t.Error("Expected publishers to be skipped on fetch failure")
	}
}

func TestReporterPostSendFailure(t *testing.T) {
	report := &sentiment.Report{Value: 10, Band: sentiment.Classify(10)}
	r := NewReporter(&mockSource{report: report}, &mockSender{err: errors.New("missing access")}, nil)

	if err := r.Post(context.Background(), "c1"); err == nil {
		t.Fatal("Expected error when the report cannot be sent")
	}
}
