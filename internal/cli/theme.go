package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/kudsight/pkg/loop"
	"github.com/matzehuels/kudsight/pkg/theme"
)

// themeCommand creates the theme command.
func (c *CLI) themeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "theme",
		Short: "Show or change the saved color theme",
		Long: `Show the theme the viewer starts with: the saved preference, else the
terminal background, else dark.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withTheme(cmd.Context(), func(tc *theme.Coordinator) error {
				printKeyValue("Theme", StyleHighlight.Render(string(tc.Current())))
				return nil
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:       "set <light|dark>",
		Short:     "Save a theme preference",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(theme.Light), string(theme.Dark)},
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := theme.Parse(args[0])
			if err != nil {
				return err
			}
			return c.withTheme(cmd.Context(), func(tc *theme.Coordinator) error {
				if err := tc.Apply(t); err != nil {
					return err
				}
				printSuccess("Theme set to %s", t)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle",
		Short: "Switch between light and dark",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withTheme(cmd.Context(), func(tc *theme.Coordinator) error {
				t, err := tc.Toggle()
				if err != nil {
					return err
				}
				printSuccess("Theme set to %s", t)
				return nil
			})
		},
	})

	return cmd
}

// withTheme runs fn against an initialized theme coordinator and waits for
// the preference write to finish.
func (c *CLI) withTheme(ctx context.Context, fn func(*theme.Coordinator) error) error {
	p, closePrefs := c.openPrefs(ctx)
	defer closePrefs()

	l := loop.New(loop.WithLogger(c.Logger))
	tc := theme.New(l, theme.Options{
		Prefs:      p,
		Transition: c.Config.Session.ThemeTransition.Std(),
		Logger:     c.Logger,
	})

	var err error
	l.Post(func() {
		tc.Init(ctx)
		err = fn(tc)
	})
	l.Settle()
	return err
}
