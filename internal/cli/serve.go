package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/matzehuels/kudsight/internal/metrics"
	"github.com/matzehuels/kudsight/pkg/cache"
	"github.com/matzehuels/kudsight/pkg/config"
	"github.com/matzehuels/kudsight/pkg/diagram"
	"github.com/matzehuels/kudsight/pkg/server"
)

type serveOpts struct {
	addr       string
	noMetrics  bool
	noDiagrams bool
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve datasets and layouts over HTTP",
		Long: `Serve the data directory (or MongoDB collection) to kudsight viewers.

Endpoints:
  GET  /list-json      dataset names, newest first
  GET  /out/{name}     a dataset, layout overlay or diagram asset
  POST /save-pos       store a layout overlay
  POST /upload         run the configured analyzer on folderPath
  GET  /metrics        Prometheus metrics
  GET  /healthz        liveness`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.addr == "" {
				opts.addr = c.Config.Server.Addr
			}
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from config, :5000)")
	cmd.Flags().BoolVar(&opts.noMetrics, "no-metrics", false, "do not expose /metrics")
	cmd.Flags().BoolVar(&opts.noDiagrams, "no-diagrams", false, "do not render diagrams for new datasets")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	local, err := c.openLocal(ctx)
	if err != nil {
		return fmt.Errorf("open data store: %w", err)
	}
	defer local.Store().Close()

	srvOpts := server.Options{Logger: c.Logger}

	if !opts.noMetrics {
		m := metrics.New(prometheus.NewRegistry())
		m.Register()
		srvOpts.Metrics = m.Handler()
	}

	if !opts.noDiagrams {
		ch, err := c.openCache(ctx, false)
		if err != nil {
			c.Logger.Warn("diagram cache unavailable", "error", err)
			ch = cache.NewNullCache()
		}
		defer ch.Close()
		srvOpts.Diagrams = diagram.NewRenderer(ch, c.keyer(), c.Logger)
	}

	if len(c.Config.Server.Analyzer) == 0 {
		c.Logger.Warn("no analyzer configured; /upload will fail", "hint", "set server.analyzer in the config file")
	}

	printInfo("Serving %s on %s", c.storeLabel(), StyleHighlight.Render(opts.addr))
	err = server.New(local, srvOpts).ListenAndServe(ctx, opts.addr)
	if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// storeLabel describes the dataset store for console output.
func (c *CLI) storeLabel() string {
	if c.Config.Storage.Backend == config.BackendMongo {
		return "mongo " + c.Config.Storage.Mongo.URI
	}
	return c.Config.DataDir
}
