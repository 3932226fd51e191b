// Package render converts expression graphs to Graphviz DOT and renders
// them to SVG or PNG images.
package render

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/rnshah9/root/pkg/graph"
)

// Options configures DOT generation.
type Options struct {
	// Detailed includes node kind and metadata in node labels.
	// When false, only the node ID is shown.
	Detailed bool

	// Highlight marks the given node IDs (typically the normalization sets
	// assigned during unfolding) with a distinct fill.
	Highlight map[string]string
}

// ToDOT converts an expression graph to Graphviz DOT format.
//
// Synthetic normalized wrappers are rendered with dashed outlines and grey
// fill to distinguish them from original model nodes. Densities are drawn
// as ellipses, variables as plain boxes. Structural (non-value) edges are
// dashed.
func ToDOT(g *graph.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph model {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14];\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes() {
		label := fmtLabel(n, opts)
		attrs := fmtAttrs(n, label, opts)
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		if e.Value {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
		} else {
			fmt.Fprintf(&buf, "  %q -> %q [style=dashed];\n", e.From, e.To)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n *graph.Node, opts Options) string {
	if !opts.Detailed {
		return n.ID
	}

	parts := []string{fmt.Sprintf("kind: %s", n.Kind)}
	if hl, ok := opts.Highlight[n.ID]; ok && hl != "" {
		parts = append(parts, fmt.Sprintf("norm: %s", hl))
	}
	for _, k := range slices.Sorted(maps.Keys(n.Meta)) {
		parts = append(parts, fmt.Sprintf("%s: %v", k, n.Meta[k]))
	}

	return n.ID + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(n *graph.Node, label string, opts Options) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch {
	case n.IsSynthetic():
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey")
	case n.IsDensity():
		attrs = append(attrs, "shape=ellipse")
	}
	if _, ok := opts.Highlight[n.ID]; ok && !n.IsSynthetic() {
		attrs = append(attrs, "fillcolor=lightyellow")
	}
	return attrs
}

// SVG renders a DOT graph to SVG using Graphviz.
func SVG(dot string) ([]byte, error) {
	return renderFormat(dot, graphviz.SVG)
}

// PNG renders a DOT graph to PNG using Graphviz.
func PNG(dot string) ([]byte, error) {
	return renderFormat(dot, graphviz.PNG)
}

func renderFormat(dot string, format graphviz.Format) ([]byte, error) {
	ctx := context.Background()
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

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
