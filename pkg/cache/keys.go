package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Keyer builds cache keys for each kind of entry.
type Keyer interface {
	// PrefKey is the key of a user preference.
	PrefKey(name string) string

	// DiagramKey is the key of a rendered diagram for a dataset hash.
	DiagramKey(datasetHash string, opts DiagramKeyOpts) string
}

// DiagramKeyOpts are the render options that change diagram output.
type DiagramKeyOpts struct {
	Format string `json:"format"`
	Theme  string `json:"theme,omitempty"`
}

// DefaultKeyer is the standard [Keyer].
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) PrefKey(name string) string {
	return "pref:" + name
}

func (DefaultKeyer) DiagramKey(datasetHash string, opts DiagramKeyOpts) string {
	return hashKey("diagram", datasetHash, opts)
}

// hashKey returns prefix + ":" + the hex digest of parts encoded as JSON.
func hashKey(prefix string, parts ...any) string {
	h := sha256.New()
	_ = json.NewEncoder(h).Encode(parts)
	return prefix + ":" + hex.EncodeToString(h.Sum(nil))
}

// Hash returns the hex SHA-256 digest of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
