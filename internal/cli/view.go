package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/kudsight/pkg/backend"
	"github.com/matzehuels/kudsight/pkg/session"
	"github.com/matzehuels/kudsight/pkg/store"
	"github.com/matzehuels/kudsight/pkg/viewmode"
	"github.com/matzehuels/kudsight/pkg/watch"
)

// drainTimeout bounds how long the viewer waits for layout saves on exit.
const drainTimeout = 5 * time.Second

type viewOpts struct {
	logFile string
	mode    string
	noWatch bool
}

// viewCommand creates the view command.
func (c *CLI) viewCommand() *cobra.Command {
	var opts viewOpts

	cmd := &cobra.Command{
		Use:   "view [dataset]",
		Short: "Explore datasets in the terminal",
		Long: `Open the interactive viewer on a dataset (default: the newest).

The graph mode draws the module and class graph with an orbiting camera;
the diagram mode shows whether a rendered diagram exists. Moving a node
saves its position to the dataset's layout overlay. Press ? for keys.

Log output goes to --log-file while the viewer owns the terminal.`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: c.completeDatasets,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return c.runView(cmd.Context(), name, opts)
		},
	}

	cmd.Flags().StringVar(&opts.logFile, "log-file", "", "log destination (default <prefs dir>/view.log)")
	cmd.Flags().StringVar(&opts.mode, "mode", string(viewmode.Graph), "initial mode: graph or diagram")
	cmd.Flags().BoolVar(&opts.noWatch, "no-watch", false, "do not reload the list when the data directory changes")

	return cmd
}

func (c *CLI) runView(ctx context.Context, name string, opts viewOpts) error {
	mode, err := viewmode.ParseMode(opts.mode)
	if err != nil {
		return err
	}

	closeLog, err := c.redirectLog(opts.logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	b, release, err := c.openBackend(ctx)
	if err != nil {
		return err
	}
	defer release()

	p, closePrefs := c.openPrefs(ctx)
	defer closePrefs()

	sess := session.New(c.sessionOptions(b, p))
	// The loop outlives an interrupt so closeSession can drain saves.
	loopCtx, stopLoop := context.WithCancel(context.WithoutCancel(ctx))
	defer stopLoop()
	go sess.Loop().Run(loopCtx)

	var program *tea.Program
	v := newViewer(ctx, sess, func(msg tea.Msg) { program.Send(msg) })
	program = tea.NewProgram(newViewModel(v), tea.WithAltScreen(), tea.WithContext(ctx))

	err = sess.Loop().Call(ctx, func() {
		v.attach()
		sess.Init(ctx)
		if mode != viewmode.Graph {
			v.setMode(mode)
		}
		if name != "" {
			sess.Load(ctx, name)
		}
		sess.RefreshList(ctx)
		v.invalidate()
	})
	if err != nil {
		return err
	}

	if !opts.noWatch {
		c.watchDatasets(loopCtx, b, sess)
	}

	c.Logger.Info("viewer started", "dataset", name, "mode", mode)
	_, runErr := program.Run()

	c.closeSession(sess)
	if runErr != nil && ctx.Err() == nil {
		return fmt.Errorf("viewer: %w", runErr)
	}
	return nil
}

// redirectLog sends log output to path (default under the prefs dir) for
// the lifetime of the viewer.
func (c *CLI) redirectLog(path string) (func(), error) {
	if path == "" {
		path = filepath.Join(c.Config.Prefs.Dir, "view.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	c.Logger.SetOutput(f)
	return func() {
		c.Logger.SetOutput(os.Stderr)
		f.Close()
	}, nil
}

// watchDatasets refreshes the dataset list when a local data directory
// changes. Remote backends are not watched.
func (c *CLI) watchDatasets(ctx context.Context, b backend.Backend, sess *session.Session) {
	local, ok := b.(*backend.Local)
	if !ok {
		return
	}
	fs, ok := local.Store().(*store.FileStore)
	if !ok {
		return
	}
	w, err := watch.New(fs.Dir(), watch.DefaultInterval, c.Logger)
	if err != nil {
		c.Logger.Warn("data directory not watched", "error", err)
		return
	}
	go func() {
		err := w.Run(ctx, func(watch.Change) {
			sess.Loop().Post(func() { sess.DatasetsChanged(ctx) })
		})
		if err != nil && ctx.Err() == nil {
			c.Logger.Warn("watcher stopped", "error", err)
		}
	}()
}

// closeSession flushes the session and waits for in-flight saves.
func (c *CLI) closeSession(sess *session.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	if err := sess.Loop().Call(ctx, sess.Close); err != nil {
		c.Logger.Warn("session close timed out", "error", err)
		return
	}
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for sess.Loop().Inflight() > 0 {
		select {
		case <-ctx.Done():
			c.Logger.Warn("pending layout saves abandoned", "inflight", sess.Loop().Inflight())
			return
		case <-tick.C:
		}
	}
}
