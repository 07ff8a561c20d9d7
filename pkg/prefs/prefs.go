// Package prefs stores small string preferences in a [cache.Cache].
package prefs

import (
	"context"

	"github.com/matzehuels/kudsight/pkg/cache"
	"github.com/matzehuels/kudsight/pkg/observability"
)

// Store reads and writes named string preferences.
type Store interface {
	Get(ctx context.Context, name string) (string, bool, error)
	Set(ctx context.Context, name, value string) error
}

// CacheStore keeps preferences as non-expiring cache entries.
type CacheStore struct {
	cache cache.Cache
	keyer cache.Keyer
}

// New returns a store over c. A nil keyer uses the default keyer.
func New(c cache.Cache, keyer cache.Keyer) *CacheStore {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	return &CacheStore{cache: c, keyer: keyer}
}

func (s *CacheStore) Get(ctx context.Context, name string) (string, bool, error) {
	data, ok, err := s.cache.Get(ctx, s.keyer.PrefKey(name))
	if err != nil || !ok {
		observability.Cache().OnCacheMiss(ctx, "pref")
		return "", false, err
	}
	observability.Cache().OnCacheHit(ctx, "pref")
	return string(data), true, nil
}

func (s *CacheStore) Set(ctx context.Context, name, value string) error {
	if err := s.cache.Set(ctx, s.keyer.PrefKey(name), []byte(value), 0); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, "pref", len(value))
	return nil
}

var _ Store = (*CacheStore)(nil)
