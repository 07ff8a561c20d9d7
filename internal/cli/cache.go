package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/kudsight/pkg/cache"
	"github.com/matzehuels/kudsight/pkg/config"
)

func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached diagrams and preferences",
	}
	cmd.AddCommand(c.cacheClearCommand(), c.cachePathCommand())
	return cmd
}

// cacheClearCommand drops the entries of the configured cache. With
// prefs.key_prefix set only that scope is cleared, so a shared Redis keeps
// other users' entries.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove cached diagrams and the saved theme",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ch, err := c.openCache(ctx, false)
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			defer ch.Close()

			cl, ok := ch.(cache.Clearer)
			if !ok {
				printWarning("The %s cache cannot be cleared", c.Config.Prefs.Backend)
				return nil
			}
			prefix := c.Config.Prefs.KeyPrefix
			n, err := cl.Clear(ctx, prefix)
			if err != nil {
				return err
			}
			if n == 0 {
				printInfo("Cache is empty")
				return nil
			}
			printSuccess("Cleared %d cached entries", n)
			if prefix != "" {
				printDetail("Scope: %s", prefix)
			}
			printDetail("Location: %s", c.cacheLocation())
			return nil
		},
	}
}

func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			writeLine(c.cacheLocation())
			return nil
		},
	}
}

func (c *CLI) cacheLocation() string {
	p := c.Config.Prefs
	if p.Backend == config.BackendRedis {
		return fmt.Sprintf("redis://%s/%d", p.Redis.Addr, p.Redis.DB)
	}
	return p.Dir
}
