package sentiment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const sampleResponse = `{
  "name": "Fear and Greed Index",
  "data": [
    {"value": "45", "value_classification": "Fear", "timestamp": "1736899200", "time_until_update": "3600"},
    {"value": "52", "value_classification": "Neutral", "timestamp": "1736812800"}
  ],
  "metadata": {"error": null}
}`

func TestClassifyBands(t *testing.T) {
	tests := []struct {
		value int
		want  string
	}{
		{0, "Extreme Fear"},
		{25, "Extreme Fear"},
		{26, "Fear"},
		{45, "Fear"},
		{46, "Neutral"},
		{55, "Neutral"},
		{56, "Greed"},
		{75, "Greed"},
		{76, "Extreme Greed"},
		{100, "Extreme Greed"},
	}
	for _, tt := range tests {
		if got := Classify(tt.value); got.Label != tt.want {
			t.Errorf("Classify(%d) = %q, expected %q", tt.value, got.Label, tt.want)
		}
	}
}

func TestBar(t *testing.T) {
	tests := []struct {
		value  int
		filled int
	}{
		{0, 0},
		{9, 0},
		{10, 1},
		{45, 4},
		{99, 9},
		{100, 10},
		{150, 10},
		{-5, 0},
	}
	for _, tt := range tests {
		bar := Bar(tt.value)
		if got := strings.Count(bar, "█"); got != tt.filled {
			t.Errorf("Bar(%d) has %d filled segments, expected %d", tt.value, got, tt.filled)
		}
		if got := strings.Count(bar, "█") + strings.Count(bar, "░"); got != 10 {
			t.Errorf("Bar(%d) has %d segments, expected 10", tt.value, got)
		}
	}
}

func TestFetchParsesResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "2" {
			t.Errorf("Expected limit=2, got %q", r.URL.Query().Get("limit"))
		}
		w.Write([]byte(sampleResponse))
	}))
	defer ts.Close()

	c := &Client{client: ts.Client(), baseURL: ts.URL}
	rep, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	if rep.Value != 45 || rep.Classification != "Fear" || rep.Band != Fear {
		t.Errorf("Unexpected report: %+v", rep)
	}
	if !rep.Timestamp.Equal(time.Unix(1736899200, 0)) {
		t.Errorf("Unexpected timestamp %v", rep.Timestamp)
	}
	if delta, ok := rep.Change(); !ok || delta != -7 {
		t.Errorf("Expected change -7, got %d (ok=%v)", delta, ok)
	}
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, ""},
		{"bad json", http.StatusOK, "{"},
		{"empty data", http.StatusOK, `{"data":[]}`},
		{"api error", http.StatusOK, `{"data":[],"metadata":{"error":"limit exceeded"}}`},
		{"bad value", http.StatusOK, `{"data":[{"value":"abc","timestamp":"1"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			c := &Client{client: ts.Client(), baseURL: ts.URL}
			if _, err := c.Fetch(context.Background()); err == nil {
				t.Fatal("Expected error")
			}
		})
	}
}

func TestFormatReport(t *testing.T) {
	prev := 52
	rep := &Report{
		Value:     45,
		Band:      Classify(45),
		Timestamp: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		Previous:  &prev,
	}

	out := FormatReport(rep)
	for _, want := range []string{
		"Fear & Greed Index",
		"😨 **45/100** · Fear",
		"`████░░░░░░`",
		"Change vs yesterday: -7 (52 → 45)",
		"Updated 2025-01-15 00:00 UTC",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected report to contain %q, got:\n%s", want, out)
		}
	}
}

func TestFormatReportWithoutPrevious(t *testing.T) {
	out := FormatReport(&Report{Value: 80, Band: Classify(80)})
	if strings.Contains(out, "Change vs yesterday") {
		t.Error("Expected no change line without a previous value")
	}
	if strings.Contains(out, "Updated") {
		t.Error("Expected no update line without a timestamp")
	}
}
