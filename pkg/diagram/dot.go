package diagram

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/kudsight/pkg/graph"
	"github.com/matzehuels/kudsight/pkg/theme"
)

// Format is an output image format.
type Format string

const (
	PNG Format = "png"
	SVG Format = "svg"
)

// ParseFormat converts a string to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case PNG:
		return PNG, nil
	case SVG:
		return SVG, nil
	}
	return "", fmt.Errorf("unknown diagram format %q (want png or svg)", s)
}

// Options configures diagram generation.
type Options struct {
	// Theme picks the colors. Empty uses the light palette, which prints
	// well.
	Theme theme.Theme

	// Compact omits attributes and methods from class records.
	Compact bool
}

func (o Options) palette() theme.Palette {
	if o.Theme == "" {
		return theme.PaletteFor(theme.Light)
	}
	return theme.PaletteFor(o.Theme)
}

// ToDOT converts a dataset to Graphviz DOT. Node order follows the dataset;
// links whose endpoints are not in the dataset are skipped.
func ToDOT(ds *graph.Dataset, opts Options) string {
	p := opts.palette()
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=BT;\n")
	fmt.Fprintf(&buf, "  bgcolor=%q;\n", p.BackgroundColor)
	fmt.Fprintf(&buf, "  node [shape=record, style=filled, fillcolor=%q, color=%q, fontcolor=%q, fontsize=12, fontname=\"Helvetica\"];\n",
		p.Background, p.Stroke, p.Title)
	fmt.Fprintf(&buf, "  edge [color=%q, fontcolor=%q, fontsize=10];\n", p.LinkColor, p.ArrowColor)
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.4;\n")
	buf.WriteString("\n")

	ids := ds.NodeIDs()
	for _, n := range ds.Nodes {
		fmt.Fprintf(&buf, "  %q [label=\"%s\"];\n", n.ID, recordLabel(n, opts.Compact))
	}

	buf.WriteString("\n")
	for _, l := range ds.Links {
		src, dst := l.SourceID(), l.TargetID()
		if _, ok := ids[src]; !ok {
			continue
		}
		if _, ok := ids[dst]; !ok {
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", src, dst, edgeAttrs(l.Relation))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func recordLabel(n *graph.Node, compact bool) string {
	title := escapeRecord(displayName(n))
	if n.IsAbstract {
		title = "«abstract»\\n" + title
	}

	if n.Type == graph.TypeModule {
		var meta []string
		if n.Version != "" {
			meta = append(meta, "version: "+n.Version)
		}
		meta = append(meta, fmt.Sprintf("classes: %d", len(n.Classes)))
		return "{" + title + "|" + lines(meta) + "}"
	}
	if compact {
		return "{" + title + "}"
	}
	return "{" + title + "|" + lines(n.Attributes) + "|" + lines(n.Methods) + "}"
}

func displayName(n *graph.Node) string {
	if i := strings.LastIndexAny(n.ID, ".:/"); i >= 0 && i < len(n.ID)-1 {
		return n.ID[i+1:]
	}
	return n.ID
}

// lines joins items as left-justified record lines.
func lines(items []string) string {
	var b strings.Builder
	for _, it := range items {
		b.WriteString(escapeRecord(it))
		b.WriteString("\\l")
	}
	return b.String()
}

var recordEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	`{`, `\{`,
	`}`, `\}`,
	`|`, `\|`,
	`<`, `\<`,
	`>`, `\>`,
	"\n", " ",
)

func escapeRecord(s string) string { return recordEscaper.Replace(s) }

func edgeAttrs(relation string) string {
	switch strings.ToLower(relation) {
	case "extended", "extends", "inherits":
		return `arrowhead=empty`
	case "implemented", "implements":
		return `arrowhead=empty, style=dashed`
	case "depended", "depends", "uses":
		return `arrowhead=vee, style=dashed`
	default:
		return fmt.Sprintf("arrowhead=vee, label=%q", relation)
	}
}

// Render lays out a DOT graph and renders it in format.
func Render(ctx context.Context, dot string, format Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var gf graphviz.Format
	switch format {
	case SVG:
		gf = graphviz.SVG
	case PNG:
		gf = graphviz.PNG
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, gf, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
