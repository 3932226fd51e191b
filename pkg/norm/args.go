package norm

import (
	"fmt"
	"strings"

	"github.com/rnshah9/root/pkg/argconfig"
	"github.com/rnshah9/root/pkg/graph"
)

// Top names the node to unfold below. Required by [OpenArgs].
func Top(id string) argconfig.Arg {
	return argconfig.Arg{Name: "Top", Strings: []string{id}}
}

// NormSet carries the observables to normalize over. Optional; an absent
// or empty set opens a session that wraps nothing.
func NormSet(ids ...string) argconfig.Arg {
	return argconfig.Arg{Name: "NormSet", Sets: [][]string{ids}}
}

// OpenArgs opens a session from tagged argument records instead of
// positional parameters. It accepts the arguments built by [Top] and
// [NormSet] and rejects anything else.
func OpenArgs(g *graph.Graph, args ...argconfig.Arg) (*Session, error) {
	cfg := argconfig.New("norm.OpenArgs")
	cfg.DefineString("top", "Top", 0, "", false)
	cfg.DefineSet("normSet", "NormSet", 0, nil)
	cfg.Require("Top")

	cfg.Process(args...)
	if !cfg.OK() {
		return nil, fmt.Errorf("norm: %s", strings.Join(cfg.Errs(), "; "))
	}

	return Open(g, cfg.GetString("top"), graph.Canonical(cfg.GetSet("normSet")))
}
