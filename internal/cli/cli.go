// Package cli implements the kudsight command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/kudsight/pkg/backend"
	"github.com/matzehuels/kudsight/pkg/buildinfo"
	"github.com/matzehuels/kudsight/pkg/cache"
	"github.com/matzehuels/kudsight/pkg/config"
	"github.com/matzehuels/kudsight/pkg/prefs"
	"github.com/matzehuels/kudsight/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "kudsight"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Config is loaded before any command runs.
	Config config.Config

	configPath string
	dataDir    string
	remote     string
}

// New creates a new CLI instance with a default logger and configuration.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "kudsight explores code-structure graphs",
		Long: `kudsight serves and explores the module and class graphs produced by a
code analyzer. It keeps dragged node positions as layout overlays next to
each dataset and renders static UML-style diagrams with Graphviz.`,
		Version:      buildinfo.Resolved(),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/kudsight/config.toml)")
	flags.StringVar(&c.dataDir, "data-dir", "", "directory holding datasets and layouts")
	flags.StringVar(&c.remote, "remote", "", "kudsight server URL to use instead of the data directory")

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.listCommand())
	root.AddCommand(c.analyzeCommand())
	root.AddCommand(c.diagramCommand())
	root.AddCommand(c.themeCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the config file and applies flag overrides.
func (c *CLI) loadConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.dataDir != "" {
		cfg.DataDir = c.dataDir
	}
	if c.remote != "" {
		cfg.Remote = c.remote
	}
	c.Config = cfg
	c.Logger.Debug("configuration loaded", "data_dir", cfg.DataDir, "remote", cfg.Remote,
		"storage", cfg.Storage.Backend, "prefs", cfg.Prefs.Backend)
	return nil
}

// =============================================================================
// Storage Factories
// =============================================================================

// openStore opens the configured dataset store.
func (c *CLI) openStore(ctx context.Context) (store.Store, error) {
	switch c.Config.Storage.Backend {
	case config.BackendMongo:
		m := c.Config.Storage.Mongo
		return store.NewMongoStore(ctx, store.MongoConfig{
			URI:        m.URI,
			Database:   m.Database,
			Collection: m.Collection,
		})
	default:
		return store.NewFileStore(c.Config.DataDir)
	}
}

// openCache opens the configured preference and diagram cache.
func (c *CLI) openCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	p := c.Config.Prefs
	switch p.Backend {
	case config.BackendRedis:
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     p.Redis.Addr,
			Password: p.Redis.Password,
			DB:       p.Redis.DB,
		})
	default:
		return cache.NewFileCache(p.Dir)
	}
}

// openPrefs opens the preference store. A cache that cannot be opened
// degrades to in-memory preferences.
func (c *CLI) openPrefs(ctx context.Context) (prefs.Store, func()) {
	ch, err := c.openCache(ctx, false)
	if err != nil {
		c.Logger.Warn("preferences unavailable", "error", err)
		return nil, func() {}
	}
	return prefs.New(ch, c.keyer()), func() { ch.Close() }
}

// keyer returns the cache keyer, scoped by prefs.key_prefix when set.
func (c *CLI) keyer() cache.Keyer {
	if p := c.Config.Prefs.KeyPrefix; p != "" {
		return cache.NewScopedKeyer(nil, p)
	}
	return cache.NewDefaultKeyer()
}

// openLocal opens the configured store with the configured analyzer.
func (c *CLI) openLocal(ctx context.Context) (*backend.Local, error) {
	st, err := c.openStore(ctx)
	if err != nil {
		return nil, err
	}
	return backend.NewLocal(st, c.analyzer(st)), nil
}

// analyzer returns the configured analyzer, or nil when none is set.
func (c *CLI) analyzer(st store.Store) backend.Analyzer {
	cmd := c.Config.Server.Analyzer
	if len(cmd) == 0 {
		return nil
	}
	exec := backend.ExecAnalyzer{Command: cmd, Logger: c.Logger}
	if fs, ok := st.(*store.FileStore); ok {
		exec.OutDir = fs.Dir()
		return &exec
	}
	return &backend.StagedAnalyzer{Exec: exec, Store: st}
}

// openBackend returns the remote client when a server is configured, else
// the local store. The returned func releases it.
func (c *CLI) openBackend(ctx context.Context) (backend.Backend, func(), error) {
	if c.Config.Remote != "" {
		cl, err := backend.NewClient(c.Config.Remote, backend.WithRetryHook(func(attempt int, err error) {
			c.Logger.Debug("retrying server request", "attempt", attempt, "error", err)
		}))
		if err != nil {
			return nil, nil, err
		}
		return cl, func() {}, nil
	}
	local, err := c.openLocal(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("open data store: %w", err)
	}
	return local, func() { local.Store().Close() }, nil
}
