package cache

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil || hit || data != nil {
		t.Errorf("Get = (%v, %v, %v), want miss", data, hit, err)
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if _, hit, _ := c.Get(ctx, "pref:kudsight-theme"); hit {
		t.Fatal("hit on empty cache")
	}
	if err := c.Set(ctx, "pref:kudsight-theme", []byte("light"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "pref:kudsight-theme")
	if err != nil || !hit || string(data) != "light" {
		t.Errorf("Get = (%q, %v, %v)", data, hit, err)
	}

	if err := c.Delete(ctx, "pref:kudsight-theme"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "pref:kudsight-theme"); hit {
		t.Error("hit after Delete")
	}
	if err := c.Delete(ctx, "missing"); err != nil {
		t.Errorf("Delete missing: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_ = c.Set(ctx, "k", []byte("v"), time.Minute)
	if _, hit, _ := c.Get(ctx, "k"); !hit {
		t.Fatal("miss before expiry")
	}
	now = now.Add(2 * time.Minute)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("hit after expiry")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	_ = c.Set(ctx, "k", []byte("v"), 0)
	if err := os.WriteFile(c.path("k"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("corrupt entry: hit=%v err=%v", hit, err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	for _, k := range []string{"kud:alice:pref:theme", "kud:bob:pref:theme", "pref:theme"} {
		if err := c.Set(ctx, k, []byte("dark"), 0); err != nil {
			t.Fatal(err)
		}
	}

	n, err := c.Clear(ctx, "kud:alice:")
	if err != nil || n != 1 {
		t.Fatalf("Clear(prefix) = %d, %v; want 1", n, err)
	}
	if _, hit, _ := c.Get(ctx, "kud:alice:pref:theme"); hit {
		t.Error("scoped entry survived Clear")
	}
	if _, hit, _ := c.Get(ctx, "kud:bob:pref:theme"); !hit {
		t.Error("Clear removed another scope's entry")
	}

	if n, err := c.Clear(ctx, ""); err != nil || n != 2 {
		t.Errorf("Clear(\"\") = %d, %v; want 2", n, err)
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	if h1 != Hash([]byte("hello")) {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("Different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	if got := k.PrefKey("kudsight-theme"); got != "pref:kudsight-theme" {
		t.Errorf("PrefKey = %s", got)
	}
	png := k.DiagramKey("abc", DiagramKeyOpts{Format: "png"})
	svg := k.DiagramKey("abc", DiagramKeyOpts{Format: "svg"})
	if png == svg {
		t.Error("different formats should produce different keys")
	}
	if png != k.DiagramKey("abc", DiagramKeyOpts{Format: "png"}) {
		t.Error("DiagramKey should be deterministic")
	}
}

func TestScopedKeyer(t *testing.T) {
	scoped := NewScopedKeyer(nil, "kudsight:alice:")
	if got := scoped.PrefKey("kudsight-theme"); got != "kudsight:alice:pref:kudsight-theme" {
		t.Errorf("PrefKey = %s", got)
	}
	want := "kudsight:alice:" + NewDefaultKeyer().DiagramKey("h", DiagramKeyOpts{})
	if got := scoped.DiagramKey("h", DiagramKeyOpts{}); got != want {
		t.Errorf("DiagramKey = %s, want %s", got, want)
	}
}

// fakeRedis answers from a map using go-redis' test result constructors.
type fakeRedis struct {
	data   map[string]string
	ttls   map[string]time.Duration
	err    error
	closed bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.data[key] = string(value.([]byte))
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", f.err)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), f.err)
}

func (f *fakeRedis) Scan(_ context.Context, _ uint64, match string, _ int64) *redis.ScanCmd {
	prefix := strings.ReplaceAll(strings.TrimSuffix(match, "*"), `\`, "")
	var keys []string
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return redis.NewScanCmdResult(keys, 0, f.err)
}

func (f *fakeRedis) Close() error {
	f.closed = true
	return nil
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	c := &RedisCache{client: fake}

	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("Get missing = hit %v, err %v", hit, err)
	}
	if err := c.Set(ctx, "k", []byte("dark"), time.Hour); err != nil {
		t.Fatal(err)
	}
	if fake.ttls["k"] != time.Hour {
		t.Errorf("ttl = %v, want 1h", fake.ttls["k"])
	}
	data, hit, err := c.Get(ctx, "k")
	if err != nil || !hit || string(data) != "dark" {
		t.Errorf("Get = (%q, %v, %v)", data, hit, err)
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, ok := fake.data["k"]; ok {
		t.Error("key survived Delete")
	}
	if err := c.Close(); err != nil || !fake.closed {
		t.Error("Close did not close the client")
	}
}

func TestRedisCacheClear(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	c := &RedisCache{client: fake}
	for _, k := range []string{"kud:alice:pref:theme", "kud:alice:diagram:1", "kud:bob:pref:theme"} {
		_ = c.Set(ctx, k, []byte("x"), 0)
	}

	n, err := c.Clear(ctx, "kud:alice:")
	if err != nil || n != 2 {
		t.Fatalf("Clear = %d, %v; want 2", n, err)
	}
	if _, ok := fake.data["kud:bob:pref:theme"]; !ok {
		t.Error("Clear removed another scope's key")
	}
}

func TestGlobEscape(t *testing.T) {
	if got := globEscape(`a*b?[c]\`); got != `a\*b\?\[c\]\\` {
		t.Errorf("globEscape = %q", got)
	}
}

func TestRedisCacheError(t *testing.T) {
	fake := newFakeRedis()
	fake.err = errors.New("connection refused")
	c := &RedisCache{client: fake}

	if _, _, err := c.Get(context.Background(), "k"); err == nil {
		t.Error("expected error from failing client")
	}
}
