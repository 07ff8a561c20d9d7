package cache

// ScopedKeyer prefixes the keys of another Keyer, so several users or
// servers can share one Redis without reading each other's entries.
//
//	keyer := cache.NewScopedKeyer(nil, "kudsight:alice:")
type ScopedKeyer struct {
	Keyer
	prefix string
}

// NewScopedKeyer returns inner with every key prefixed. A nil inner is the
// default keyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return ScopedKeyer{Keyer: inner, prefix: prefix}
}

func (k ScopedKeyer) PrefKey(name string) string { return k.prefix + k.Keyer.PrefKey(name) }

func (k ScopedKeyer) DiagramKey(datasetHash string, opts DiagramKeyOpts) string {
	return k.prefix + k.Keyer.DiagramKey(datasetHash, opts)
}
