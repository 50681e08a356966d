package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

type failingBackend struct {
	err error
}

func (f failingBackend) Read(context.Context, string) ([]byte, error) { return nil, f.err }
func (f failingBackend) Write(context.Context, string, []byte) error  { return f.err }

func sampleMapping() map[string]map[string]string {
	return map[string]map[string]string{
		"111": {"900": "2025-01-15T08:00:00Z", "901": "2025-01-15T09:30:00Z"},
		"222": {"900": "2025-01-14T20:00:00Z"},
	}
}

func TestSaveLoadRoundTripAllBackends(t *testing.T) {
	mr := miniredis.RunT(t)

	backends := map[string]Backend{
		"memory": NewMemoryBackend(),
		"file":   NewFileBackend(t.TempDir()),
		"redis":  NewRedisBackend(mr.Addr(), "", 0, "digest:"),
	}

	for name, b := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			want := sampleMapping()
			if err := Save(ctx, b, "user_data", want); err != nil {
				t.Fatalf("Save returned error: %v", err)
			}

			got := Load(ctx, b, "user_data", map[string]map[string]string{})
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Expected %v after round trip, got %v", want, got)
			}
		})
	}
}

func TestLoadMissingReturnsDefault(t *testing.T) {
	def := map[string]string{"default": "yes"}
	got := Load(context.Background(), NewFileBackend(t.TempDir()), "absent", def)
	if !reflect.DeepEqual(got, def) {
		t.Errorf("Expected default %v, got %v", def, got)
	}
}

func TestLoadMalformedReturnsDefault(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	got := Load(context.Background(), NewFileBackend(dir), "broken", 42)
	if got != 42 {
		t.Errorf("Expected default 42 for malformed content, got %d", got)
	}
}

func TestLoadReadErrorReturnsDefault(t *testing.T) {
	got := Load(context.Background(), failingBackend{err: errors.New("disk on fire")}, "x", "fallback")
	if got != "fallback" {
		t.Errorf("Expected fallback, got %q", got)
	}
}

func TestSaveReportsWriteFailure(t *testing.T) {
	err := Save(context.Background(), failingBackend{err: errors.New("read-only")}, "x", map[string]int{"a": 1})
	if err == nil {
		t.Fatal("Expected error from failing backend")
	}
}

func TestSaveOverwritesWholeDocument(t *testing.T) {
	ctx := context.Background()
	b := NewFileBackend(t.TempDir())

	Save(ctx, b, "doc", map[string]string{"a": "1", "b": "2"})
	Save(ctx, b, "doc", map[string]string{"c": "3"})

	got := Load(ctx, b, "doc", map[string]string{})
	if len(got) != 1 || got["c"] != "3" {
		t.Errorf("Expected only key c after overwrite, got %v", got)
	}
}

func TestFileBackendWritesNamedJSONFile(t *testing.T) {
	dir := t.TempDir()
	b := NewFileBackend(dir)
	if err := b.Write(context.Background(), "fng_settings", []byte(`{}`)); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "fng_settings.json")); err != nil {
		t.Errorf("Expected fng_settings.json to exist: %v", err)
	}
}

func TestRedisBackendMissingKey(t *testing.T) {
	mr := miniredis.RunT(t)
	b := NewRedisBackend(mr.Addr(), "", 0, "digest:")

	_, err := b.Read(context.Background(), "nothing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if err := b.Write(context.Background(), "k", []byte("v")); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if got, _ := mr.Get("digest:k"); got != "v" {
		t.Errorf("Expected prefixed key to hold 'v', got %q", got)
	}
}

func TestLoadPartialDocumentKeepsDefaults(t *testing.T) {
	type settings struct {
		Enabled bool   `json:"enabled"`
		Time    string `json:"time"`
	}
	ctx := context.Background()
	def := settings{Time: "20:00"}

	for _, doc := range []string{`{}`, `null`, `{"enabled":true}`} {
		b := NewMemoryBackend()
		b.Write(ctx, "doc", []byte(doc))

		got := Load(ctx, b, "doc", def)
		if got.Time != "20:00" {
			t.Errorf("%s: expected default time 20:00, got %q", doc, got.Time)
		}
	}

	b := NewMemoryBackend()
	b.Write(ctx, "doc", []byte(`{"enabled":true,"time":"07:15"}`))
	if got := Load(ctx, b, "doc", def); !got.Enabled || got.Time != "07:15" {
		t.Errorf("Expected stored values to win over defaults, got %+v", got)
	}
}
