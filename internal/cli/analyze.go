package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/kudsight/pkg/backend"
	"github.com/matzehuels/kudsight/pkg/errors"
	"github.com/matzehuels/kudsight/pkg/graph"
	"github.com/matzehuels/kudsight/pkg/notify"
	"github.com/matzehuels/kudsight/pkg/prefs"
	"github.com/matzehuels/kudsight/pkg/session"
)

// analyzeCommand creates the analyze command.
func (c *CLI) analyzeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <folder>",
		Short: "Analyze a source folder and load the new dataset",
		Long: `Run the configured analyzer on a source folder, locally or on the server
given by --remote, then load the newest dataset and print its summary.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder := args[0]
			if c.Config.Remote == "" {
				if abs, err := filepath.Abs(folder); err == nil {
					folder = abs
				}
			}
			return c.runAnalyze(cmd.Context(), folder)
		},
	}
	return cmd
}

func (c *CLI) runAnalyze(ctx context.Context, folder string) error {
	b, release, err := c.openBackend(ctx)
	if err != nil {
		return err
	}
	defer release()

	sess := session.New(c.sessionOptions(b, nil))
	defer sess.Close()

	var failure *notify.Notification
	sess.Notices().Subscribe(func(n notify.Notification) {
		if n.Level == notify.Error && failure == nil {
			failure = &n
		}
	})

	prog := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, "Analyzing "+folder+"...")
	spinner.Start()

	sess.Loop().Post(func() {
		if err := sess.Analyze(ctx, folder); err != nil {
			sess.Notices().Err(notify.Error, err)
		}
	})
	sess.Loop().Settle()

	if failure != nil {
		spinner.StopWithError(failure.Message)
		return errors.New(failure.Code, "%s", failure.Message)
	}
	spinner.Stop()
	prog.done("Analysis finished")

	printDatasetSummary(sess)
	return nil
}

// sessionOptions builds session options from the configuration.
func (c *CLI) sessionOptions(b backend.Backend, p prefs.Store) session.Options {
	s := c.Config.Session
	return session.Options{
		Backend:          b,
		Prefs:            p,
		Logger:           c.Logger,
		DebounceDelay:    s.Debounce.Std(),
		FlushPolicy:      c.Config.FlushPolicy(),
		ThemeTransition:  s.ThemeTransition.Std(),
		CameraTransition: s.CameraTransition.Std(),
	}
}

// printDatasetSummary prints the dataset the session holds.
func printDatasetSummary(sess *session.Session) {
	st := sess.State()
	if !st.Loaded() {
		printWarning("Analysis produced no dataset")
		return
	}
	ds := st.Canonical()
	modules, classes := 0, 0
	for _, n := range ds.Nodes {
		switch n.Type {
		case graph.TypeModule:
			modules++
		case graph.TypeClass:
			classes++
		}
	}
	printSuccess("Loaded %s", StyleHighlight.Render(st.Name()))
	printKeyValue("Modules", fmt.Sprint(modules))
	printKeyValue("Classes", fmt.Sprint(classes))
	printKeyValue("Links", fmt.Sprint(len(ds.Links)))
	printKeyValue("Datasets", fmt.Sprint(len(sess.Datasets())))
	printNewline()
	printNextStep("Explore it", "kudsight view "+st.Name())
}
