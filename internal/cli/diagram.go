package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/kudsight/pkg/backend"
	"github.com/matzehuels/kudsight/pkg/cache"
	"github.com/matzehuels/kudsight/pkg/diagram"
	"github.com/matzehuels/kudsight/pkg/errors"
	"github.com/matzehuels/kudsight/pkg/graph"
	"github.com/matzehuels/kudsight/pkg/theme"
)

type diagramOpts struct {
	output  string
	format  string
	theme   string
	compact bool
	noCache bool
}

// diagramCommand creates the diagram command.
func (c *CLI) diagramCommand() *cobra.Command {
	var opts diagramOpts

	cmd := &cobra.Command{
		Use:   "diagram [dataset]",
		Short: "Render the static UML-style diagram of a dataset",
		Long: `Render a dataset (default: the newest) as a Graphviz diagram.

Without --output the PNG is stored next to the dataset as <name>.png, where
the diagram view mode picks it up. With --output the diagram is written to
that file instead; --format dot prints the Graphviz source.`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: c.completeDatasets,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return c.runDiagram(cmd.Context(), name, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write to this file instead of the data store")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "png", "output format: png, svg or dot")
	cmd.Flags().StringVar(&opts.theme, "theme", "light", "palette: light or dark")
	cmd.Flags().BoolVar(&opts.compact, "compact", false, "omit attributes and methods")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the diagram cache")

	return cmd
}

func (c *CLI) runDiagram(ctx context.Context, name string, opts diagramOpts) error {
	t, err := theme.Parse(opts.theme)
	if err != nil {
		return err
	}
	dopts := diagram.Options{Theme: t, Compact: opts.compact}

	b, release, err := c.openBackend(ctx)
	if err != nil {
		return err
	}
	defer release()

	if name == "" {
		names, err := b.ListDatasets(ctx)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			return errors.New(errors.ErrCodeNotFound, "no datasets found")
		}
		name = names[0]
	}

	ch, err := c.openCache(ctx, opts.noCache)
	if err != nil {
		c.Logger.Warn("diagram cache unavailable", "error", err)
		ch = cache.NewNullCache()
	}
	defer ch.Close()
	renderer := diagram.NewRenderer(ch, c.keyer(), c.Logger)

	if opts.output == "" {
		return c.storeDiagram(ctx, b, renderer, name, dopts)
	}

	data, err := b.FetchDataset(ctx, name)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", name, err)
	}
	ds, err := graph.UnmarshalDataset(data)
	if err != nil {
		return err
	}
	ds.Normalize()

	var out []byte
	if opts.format == "dot" {
		out = []byte(diagram.ToDOT(ds, dopts))
	} else {
		format, err := diagram.ParseFormat(opts.format)
		if err != nil {
			return err
		}
		spinner := newSpinnerWithContext(ctx, "Rendering diagram...")
		spinner.Start()
		out, err = renderer.Render(ctx, ds, dopts, format)
		spinner.Stop()
		if err != nil {
			return err
		}
	}

	if opts.output == "-" {
		_, err := stdout.Write(out)
		return err
	}
	if err := os.WriteFile(opts.output, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}
	printSuccess("Rendered %s", name)
	printFile(opts.output)
	return nil
}

// storeDiagram renders the PNG asset into the local store.
func (c *CLI) storeDiagram(ctx context.Context, b backend.Backend, r *diagram.Renderer, name string, opts diagram.Options) error {
	local, ok := b.(*backend.Local)
	if !ok {
		return errors.New(errors.ErrCodeUnsupported, "storing diagrams on a remote server is not supported; use --output")
	}
	spinner := newSpinnerWithContext(ctx, "Rendering diagram...")
	spinner.Start()
	asset, err := r.Generate(ctx, local.Store(), name, opts)
	spinner.Stop()
	if err != nil {
		return err
	}
	printSuccess("Rendered %s", name)
	printFile(asset)
	return nil
}
