package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/kudsight/pkg/backend"
	"github.com/matzehuels/kudsight/pkg/graph"
)

// datasetInfo is one row of `kudsight list`.
type datasetInfo struct {
	Name    string `json:"name"`
	Layout  bool   `json:"layout"`
	Diagram bool   `json:"diagram"`
}

// listCommand creates the list command.
func (c *CLI) listCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List datasets, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, release, err := c.openBackend(ctx)
			if err != nil {
				return err
			}
			defer release()

			infos, err := listDatasets(ctx, b)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(infos)
			}
			printDatasetTable(infos)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

// listDatasets lists datasets and probes their overlay and diagram
// concurrently.
func listDatasets(ctx context.Context, b backend.Backend) ([]datasetInfo, error) {
	names, err := b.ListDatasets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}

	infos := make([]datasetInfo, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, name := range names {
		g.Go(func() error {
			info := datasetInfo{Name: name}
			var err error
			if info.Layout, err = b.OverlayExists(gctx, graph.OverlayName(name)); err != nil {
				return err
			}
			if info.Diagram, err = b.AssetExists(gctx, graph.DiagramName(name)); err != nil {
				return err
			}
			infos[i] = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return infos, nil
}

func printDatasetTable(infos []datasetInfo) {
	if len(infos) == 0 {
		printInfo("No datasets yet")
		printNextStep("Run an analysis", "kudsight analyze <folder>")
		return
	}

	mark := func(v bool) string {
		if v {
			return iconSuccess
		}
		return "-"
	}
	rows := make([][]string, len(infos))
	for i, info := range infos {
		rows[i] = []string{info.Name, mark(info.Layout), mark(info.Diagram)}
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Dataset", "Layout", "Diagram").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case row == 0 && col == 0:
				return StyleHighlight
			case col > 0:
				return lipgloss.NewStyle().Foreground(colorGreen).Align(lipgloss.Center)
			}
			return lipgloss.NewStyle()
		})

	writeLine(t.Render())
	printDetail("%d datasets", len(infos))
}
