package watch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"go.uber.org/goleak"
)

func TestRelevant(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"run.json", true},
		{"run.png", true},
		{"run.pos.json", false},
		{"notes.txt", false},
		{".run.json.tmp", false},
	}
	for _, tt := range tests {
		if got := Relevant(tt.name); got != tt.want {
			t.Errorf("Relevant(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestWatcherBatchesChanges(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	w, err := New(dir, 50*time.Millisecond, log.New(io.Discard))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan Change, 8)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, func(c Change) { changes <- c }) }()

	for _, name := range []string{"a.json", "a.pos.json", "a.png"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	seen := map[string]bool{}
	deadline := time.After(5 * time.Second)
	for !seen["a.json"] || !seen["a.png"] {
		select {
		case c := <-changes:
			for _, n := range c.Names {
				seen[n] = true
			}
		case <-deadline:
			t.Fatalf("timed out; seen %v", seen)
		}
	}
	if seen["a.pos.json"] {
		t.Error("overlay change reported")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() = %v", err)
	}
}
