// Package config loads the kudsight configuration file.
//
// The file is TOML and lives at $XDG_CONFIG_HOME/kudsight/config.toml
// (falling back to ~/.config/kudsight/config.toml). A missing file is not an
// error: [Load] returns [Default]. Command-line flags override file values;
// that merge happens in the CLI.
//
//	data_dir = "out"
//	remote   = "http://localhost:5000"
//
//	[server]
//	addr     = ":5000"
//	analyzer = ["kudsight-analyze", "--format", "json"]
//
//	[storage]
//	backend = "mongo"
//	[storage.mongo]
//	uri = "mongodb://localhost:27017"
//
//	[prefs]
//	backend = "redis"
//	[prefs.redis]
//	addr = "localhost:6379"
//
//	[session]
//	debounce     = "1s"
//	flush_policy = "cancel"
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/kudsight/pkg/persist"
	"github.com/matzehuels/kudsight/pkg/render"
	"github.com/matzehuels/kudsight/pkg/theme"
)

const appName = "kudsight"

// Backend names accepted by [Storage] and [Prefs].
const (
	BackendFile  = "file"
	BackendMongo = "mongo"
	BackendRedis = "redis"
)

// Duration is a time.Duration that decodes from strings such as "250ms".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full configuration.
type Config struct {
	// DataDir holds datasets, layout overlays and diagram assets.
	DataDir string `toml:"data_dir"`

	// Remote is the address of a kudsight server. When set, view and list
	// talk to it instead of reading DataDir.
	Remote string `toml:"remote"`

	Server  Server  `toml:"server"`
	Storage Storage `toml:"storage"`
	Prefs   Prefs   `toml:"prefs"`
	Session Session `toml:"session"`
}

// Server configures `kudsight serve`.
type Server struct {
	Addr string `toml:"addr"`

	// Analyzer is the command run for analysis requests. The folder path is
	// appended as the last argument.
	Analyzer []string `toml:"analyzer"`
}

// Storage selects where datasets live.
type Storage struct {
	Backend string `toml:"backend"`
	Mongo   Mongo  `toml:"mongo"`
}

// Mongo configures the MongoDB store.
type Mongo struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// Prefs selects where preferences and rendered diagrams are cached.
type Prefs struct {
	Backend string `toml:"backend"`
	Dir     string `toml:"dir"`
	Redis   Redis  `toml:"redis"`

	// KeyPrefix scopes every cache key, so users can share one Redis.
	KeyPrefix string `toml:"key_prefix"`
}

// Redis configures the Redis cache.
type Redis struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// Session tunes interactive sessions.
type Session struct {
	Debounce         Duration `toml:"debounce"`
	FlushPolicy      string   `toml:"flush_policy"`
	ThemeTransition  Duration `toml:"theme_transition"`
	CameraTransition Duration `toml:"camera_transition"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir: "out",
		Server:  Server{Addr: ":5000"},
		Storage: Storage{Backend: BackendFile},
		Prefs: Prefs{
			Backend: BackendFile,
			Dir:     defaultCacheDir(),
			Redis:   Redis{Addr: "localhost:6379"},
		},
		Session: Session{
			Debounce:         Duration(persist.DefaultDelay),
			FlushPolicy:      string(persist.CaptureAtSchedule),
			ThemeTransition:  Duration(theme.DefaultTransition),
			CameraTransition: Duration(render.DefaultCameraTransition),
		},
	}
}

// Load reads the file at path over the defaults. An empty path uses
// [DefaultPath]. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := Parse(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data into cfg and validates the result. Keys absent from
// data keep their current values.
func Parse(data []byte, cfg *Config) error {
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg.Validate()
}

// Validate checks backend names and the flush policy.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFile, BackendMongo:
	default:
		return fmt.Errorf("storage.backend: unknown backend %q (want file or mongo)", c.Storage.Backend)
	}
	switch c.Prefs.Backend {
	case BackendFile, BackendRedis:
	default:
		return fmt.Errorf("prefs.backend: unknown backend %q (want file or redis)", c.Prefs.Backend)
	}
	if _, err := persist.ParsePolicy(c.Session.FlushPolicy); err != nil {
		return fmt.Errorf("session.flush_policy: %w", err)
	}
	if c.Session.Debounce < 0 {
		return fmt.Errorf("session.debounce: must not be negative")
	}
	return nil
}

// FlushPolicy returns the parsed session flush policy.
func (c Config) FlushPolicy() persist.Policy {
	p, _ := persist.ParsePolicy(c.Session.FlushPolicy)
	return p
}

// DefaultPath returns the platform config file location.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// defaultCacheDir follows XDG (~/.cache/kudsight/).
func defaultCacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appName)
	}
	return filepath.Join(home, ".cache", appName)
}
