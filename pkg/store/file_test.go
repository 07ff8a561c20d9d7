package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	kerrors "github.com/matzehuels/kudsight/pkg/errors"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Write(ctx, "run-1.json", []byte(`{"nodes":[]}`)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read(ctx, "run-1.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != `{"nodes":[]}` {
		t.Errorf("Read = %s", got)
	}

	if err := s.Write(ctx, "run-1.json", []byte(`{}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, _ = s.Read(ctx, "run-1.json")
	if string(got) != `{}` {
		t.Errorf("Read after overwrite = %s", got)
	}
}

func TestFileStoreMissing(t *testing.T) {
	ctx := context.Background()
	s, _ := NewFileStore(t.TempDir())

	if _, err := s.Read(ctx, "nope.json"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read missing = %v, want ErrNotFound", err)
	}
	ok, err := s.Exists(ctx, "nope.json")
	if err != nil || ok {
		t.Errorf("Exists missing = %v, %v", ok, err)
	}
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, _ := NewFileStore(filepath.Join(dir, "data"))

	for _, name := range []string{"../escape.json", "sub/dir.json", "..", ".hidden"} {
		if err := s.Write(ctx, name, []byte("x")); !kerrors.Is(err, kerrors.ErrCodeInvalidPath) {
			t.Errorf("Write(%q) = %v, want INVALID_PATH", name, err)
		}
		if _, err := s.Read(ctx, name); !kerrors.Is(err, kerrors.ErrCodeInvalidPath) {
			t.Errorf("Read(%q) = %v, want INVALID_PATH", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.json")); !os.IsNotExist(err) {
		t.Error("write escaped the data directory")
	}
}

func TestFileStoreList(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, _ := NewFileStore(dir)

	for _, name := range []string{"a.json", "a.pos.json", "b.png"} {
		if err := s.Write(ctx, name, []byte("x")); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".tmp-123"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	names, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(names)
	if diff := cmp.Diff([]string{"a.json", "a.pos.json", "b.png"}, names); diff != "" {
		t.Errorf("List (-want +got):\n%s", diff)
	}
}

func TestSortNewestFirst(t *testing.T) {
	names := []string{"kud_20240101.json", "kud_20240301.json", "kud_20240201.json"}
	SortNewestFirst(names)
	want := []string{"kud_20240301.json", "kud_20240201.json", "kud_20240101.json"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}
}

func TestNewFileStoreEmptyDir(t *testing.T) {
	if _, err := NewFileStore(""); err == nil {
		t.Error("expected error for empty dir")
	}
}
