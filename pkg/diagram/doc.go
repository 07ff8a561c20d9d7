// Package diagram renders a dataset as a static UML-style class diagram.
//
// # Overview
//
// The diagram is the second presentation of a dataset next to the
// interactive graph. Classes appear as three-part records (name,
// attributes, methods), modules as two-part records (name, version and
// class count), and links as UML arrows chosen by relation:
//
//   - extended: solid line, hollow triangle
//   - implemented: dashed line, hollow triangle
//   - depended: dashed line, open arrow
//   - anything else: solid line, open arrow
//
// # Usage
//
// Convert a dataset to DOT, then render it in-process:
//
//	dot := diagram.ToDOT(ds, diagram.Options{Theme: theme.Light})
//	png, err := diagram.Render(ctx, dot, diagram.PNG)
//
// A [Renderer] caches rendered bytes by dataset content hash and writes the
// asset next to the dataset in a store:
//
//	r := diagram.NewRenderer(c, cache.NewDefaultKeyer(), logger)
//	asset, err := r.Generate(ctx, st, "run.json", diagram.Options{})
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz], which embeds Graphviz
// as WebAssembly, so no system installation is needed.
package diagram
