package norm

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/rnshah9/root/pkg/graph"
)

// snapshot captures the externally observable state of every node: server
// edges in order, sorted client lists, and attribute tags. Two snapshots
// compare equal iff the graphs are structurally identical.
type snapshot map[string]nodeState

type nodeState struct {
	Servers []graph.Edge
	Clients []string
	Attrs   []string
}

func capture(g *graph.Graph) snapshot {
	s := make(snapshot)
	for _, n := range g.Nodes() {
		s[n.ID] = nodeState{
			Servers: g.Servers(n.ID),
			Clients: g.Clients(n.ID),
			Attrs:   n.Attributes(),
		}
	}
	return s
}

func TestSession_EmptyNormSetIsNoOp(t *testing.T) {
	g := buildProductModel(t)
	before := capture(g)

	s, err := Open(g, "model", nil)
	if err != nil {
		t.Fatalf("Open() = %v", err)
	}
	if len(s.Created()) != 0 {
		t.Errorf("Created() = %v, want none", s.Created())
	}
	if got := s.Top(); got != "model" {
		t.Errorf("Top() = %s, want model", got)
	}
	s.Close()

	if after := capture(g); !reflect.DeepEqual(before, after) {
		t.Errorf("graph changed after empty-normset session:\nbefore: %v\nafter:  %v", before, after)
	}
}

func TestSession_RoundTrip(t *testing.T) {
	g := buildProductModel(t)
	before := capture(g)

	s, err := Open(g, "model", graph.NormSet{"x", "y"})
	if err != nil {
		t.Fatalf("Open() = %v", err)
	}
	if len(s.Created()) == 0 {
		t.Fatal("session created no wrappers")
	}
	s.Close()

	if after := capture(g); !reflect.DeepEqual(before, after) {
		t.Errorf("graph not restored after session:\nbefore: %v\nafter:  %v", before, after)
	}

	if err := g.Validate(); err != nil {
		t.Errorf("Validate() after round trip = %v", err)
	}
}

func TestSession_RoundTripDeepModel(t *testing.T) {
	// Three density levels with the top itself wrapped, a structural edge,
	// and a client outside the unfolded subgraph. The fold must restore all
	// of it exactly, including adjacency entries that only existed because
	// of the session.
	g := graph.New()
	for _, n := range []graph.Node{
		{ID: "top", Kind: graph.KindDensity},
		{ID: "mid", Kind: graph.KindDensity},
		{ID: "leaf", Kind: graph.KindDensity},
		{ID: "shape", Kind: graph.KindFunction},
		{ID: "ext", Kind: graph.KindFunction},
		{ID: "x", Kind: graph.KindVariable},
	} {
		if err := g.AddNode(n); err != nil {
			t.Fatalf("AddNode(%s) = %v", n.ID, err)
		}
	}
	for _, e := range []graph.Edge{
		{From: "top", To: "mid", Value: true},
		{From: "top", To: "shape"}, // structural dependency
		{From: "mid", To: "leaf", Value: true},
		{From: "leaf", To: "x", Value: true},
		{From: "ext", To: "mid", Value: true}, // client outside the subgraph
	} {
		if err := g.AddEdge(e); err != nil {
			t.Fatalf("AddEdge(%s->%s) = %v", e.From, e.To, err)
		}
	}
	before := capture(g)

	s, err := Open(g, "top", graph.NormSet{"x"})
	if err != nil {
		t.Fatalf("Open() = %v", err)
	}
	if got := s.Top(); got == "top" {
		t.Error("Top() = top, want the wrapper around it")
	}
	// ext is not reachable from top, so it must keep reading the original.
	if !g.HasServer("ext", "mid") {
		t.Errorf("Servers(ext) = %v, want the original mid", g.Servers("ext"))
	}
	s.Close()

	if after := capture(g); !reflect.DeepEqual(before, after) {
		t.Errorf("deep model not restored after session:\nbefore: %v\nafter:  %v", before, after)
	}
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	g := buildProductModel(t)
	before := capture(g)

	s, err := Open(g, "model", graph.NormSet{"x", "y"})
	if err != nil {
		t.Fatalf("Open() = %v", err)
	}
	s.Close()
	s.Close()

	if after := capture(g); !reflect.DeepEqual(before, after) {
		t.Error("double Close corrupted the graph")
	}
}

func TestSession_EndToEnd(t *testing.T) {
	// model is a self-normalized product density over p(x) and q(y),
	// unfolded with normset {x, y}.
	g := buildProductModel(t)

	s, err := Open(g, "model", graph.NormSet{"y", "x", "x"}) // unsorted, with dupes
	if err != nil {
		t.Fatalf("Open() = %v", err)
	}
	defer s.Close()

	// Pruning: p only depends on x, q only on y.
	if got := s.NormSet("p"); !got.Equal(graph.NormSet{"x"}) {
		t.Errorf("NormSet(p) = %v, want (x)", got)
	}
	if got := s.NormSet("q"); !got.Equal(graph.NormSet{"y"}) {
		t.Errorf("NormSet(q) = %v, want (y)", got)
	}

	// Two wrappers: one for p, one for q; model is self-normalized and
	// keeps its place as the top node.
	if got := s.Replaced(); !reflect.DeepEqual(got, []string{"p", "q"}) {
		t.Fatalf("Replaced() = %v, want [p q]", got)
	}
	created := s.Created()
	if len(created) != 2 {
		t.Fatalf("Created() = %v, want 2 wrappers", created)
	}
	if got := s.Top(); got != "model" {
		t.Errorf("Top() = %s, want model", got)
	}

	// model's value servers now point at the wrappers.
	servers := g.ValueServers("model")
	if !reflect.DeepEqual(servers, created) {
		t.Errorf("model servers = %v, want %v", servers, created)
	}

	// The wrappers read the original densities and their normset variables.
	wp, ok := g.Node(created[0])
	if !ok || wp.Kind != graph.KindNormalized || !wp.SelfNormalized {
		t.Fatalf("wrapper %v is not a self-normalized synthetic node", created[0])
	}
	if !g.HasServer(created[0], "p") || !g.HasServer(created[0], "x") {
		t.Errorf("wrapper %s servers = %v, want p and x", created[0], g.Servers(created[0]))
	}

	// The cache was primed under the pruned set.
	p, _ := g.Node("p")
	if !p.Primed(graph.NormSet{"x"}) {
		t.Error("p was not primed under (x)")
	}
}

func TestSession_TopNodeGetsWrapped(t *testing.T) {
	g := buildProductModel(t)
	model, _ := g.Node("model")
	model.SelfNormalized = false

	s, err := Open(g, "model", graph.NormSet{"x", "y"})
	if err != nil {
		t.Fatalf("Open() = %v", err)
	}
	defer s.Close()

	top := s.Top()
	if top == "model" {
		t.Fatal("Top() = model, want the wrapper around it")
	}
	n, ok := g.Node(top)
	if !ok || n.Kind != graph.KindNormalized {
		t.Errorf("Top() = %s (kind %v), want a normalized wrapper", top, n.Kind)
	}
	if !g.HasServer(top, "model") {
		t.Error("top wrapper does not read the original model")
	}
}

func TestSession_PruningDropsIrrelevantVariables(t *testing.T) {
	// p does not depend on z, so z must be absent from its effective set
	// even though it is requested.
	g := buildProductModel(t)
	g.AddNode(graph.Node{ID: "z", Kind: graph.KindVariable})
	g.AddEdge(graph.Edge{From: "model", To: "z", Value: true})

	s, err := Open(g, "model", graph.NormSet{"x", "y", "z"})
	if err != nil {
		t.Fatalf("Open() = %v", err)
	}
	defer s.Close()

	if got := s.NormSet("p"); got.Contains("z") {
		t.Errorf("NormSet(p) = %v, must not contain z", got)
	}
	if got := s.NormSet("model"); !got.Equal(graph.NormSet{"x", "y", "z"}) {
		t.Errorf("NormSet(model) = %v, want (x,y,z)", got)
	}
}

func TestSession_SelfNormalizedSkipRule(t *testing.T) {
	// A self-normalized plain density is never wrapped; a cached density
	// is wrapped even when self-normalized.
	g := graph.New()
	for _, n := range []graph.Node{
		{ID: "top", Kind: graph.KindFunction},
		{ID: "selfnorm", Kind: graph.KindDensity, SelfNormalized: true},
		{ID: "cached", Kind: graph.KindCachedDensity, SelfNormalized: true},
		{ID: "x", Kind: graph.KindVariable},
	} {
		g.AddNode(n)
	}
	for _, e := range []graph.Edge{
		{From: "top", To: "selfnorm", Value: true},
		{From: "top", To: "cached", Value: true},
		{From: "selfnorm", To: "x", Value: true},
		{From: "cached", To: "x", Value: true},
	} {
		g.AddEdge(e)
	}

	s, err := Open(g, "top", graph.NormSet{"x"})
	if err != nil {
		t.Fatalf("Open() = %v", err)
	}
	defer s.Close()

	if got := s.Replaced(); !reflect.DeepEqual(got, []string{"cached"}) {
		t.Errorf("Replaced() = %v, want [cached]", got)
	}

	// Even unwrapped, the self-normalized density had its cache primed.
	sn, _ := g.Node("selfnorm")
	if !sn.Primed(graph.NormSet{"x"}) {
		t.Error("selfnorm was not primed")
	}
}

func TestSession_CachedDensityClientsKeepOriginal(t *testing.T) {
	// Clients of cached-density kind must keep referencing the replaced
	// node during redirection.
	g := graph.New()
	for _, n := range []graph.Node{
		{ID: "top", Kind: graph.KindFunction},
		{ID: "cachedClient", Kind: graph.KindCachedDensity},
		{ID: "inner", Kind: graph.KindDensity},
		{ID: "x", Kind: graph.KindVariable},
	} {
		g.AddNode(n)
	}
	for _, e := range []graph.Edge{
		{From: "top", To: "cachedClient", Value: true},
		{From: "top", To: "inner", Value: true},
		{From: "cachedClient", To: "inner", Value: true},
		{From: "inner", To: "x", Value: true},
	} {
		g.AddEdge(e)
	}

	s, err := Open(g, "top", graph.NormSet{"x"})
	if err != nil {
		t.Fatalf("Open() = %v", err)
	}
	defer s.Close()

	if !g.HasServer("cachedClient", "inner") {
		t.Errorf("cachedClient servers = %v, want to keep inner", g.Servers("cachedClient"))
	}
	if g.HasServer("top", "inner") {
		t.Errorf("top servers = %v, want inner redirected to its wrapper", g.Servers("top"))
	}
}

func TestSession_ConflictLeavesGraphUntouched(t *testing.T) {
	g := graph.New()
	for _, n := range []graph.Node{
		{ID: "top", Kind: graph.KindFunction},
		{ID: "a", Kind: graph.KindFunction},
		{ID: "b", Kind: graph.KindFunction},
		{ID: "shared", Kind: graph.KindDensity},
		{ID: "x", Kind: graph.KindVariable},
		{ID: "y", Kind: graph.KindVariable},
	} {
		g.AddNode(n)
	}
	na, _ := g.Node("a")
	na.Overrides = map[string][]string{"shared": {"x"}}
	nb, _ := g.Node("b")
	nb.Overrides = map[string][]string{"shared": {"x", "y"}}
	for _, e := range []graph.Edge{
		{From: "top", To: "a", Value: true},
		{From: "top", To: "b", Value: true},
		{From: "a", To: "shared", Value: true},
		{From: "b", To: "shared", Value: true},
		{From: "shared", To: "x", Value: true},
		{From: "shared", To: "y", Value: true},
	} {
		g.AddEdge(e)
	}
	before := capture(g)

	_, err := Open(g, "top", graph.NormSet{"x", "y"})
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("Open() = %v, want *ConflictError", err)
	}

	if after := capture(g); !reflect.DeepEqual(before, after) {
		t.Error("conflicting Open left the graph mutated")
	}
}

func TestSession_NestedPlaceholdersDoNotCollide(t *testing.T) {
	// Two back-to-back sessions on the same graph reuse the placeholder
	// name; a collision would corrupt the second session.
	g := buildProductModel(t)
	for i := 0; i < 3; i++ {
		s, err := Open(g, "model", graph.NormSet{"x", "y"})
		if err != nil {
			t.Fatalf("Open() #%d = %v", i, err)
		}
		s.Close()
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func ExampleOpen() {
	g := graph.New()
	g.AddNode(graph.Node{ID: "gauss", Kind: graph.KindDensity})
	g.AddNode(graph.Node{ID: "x", Kind: graph.KindVariable})
	g.AddNode(graph.Node{ID: "mean", Kind: graph.KindVariable})
	g.AddEdge(graph.Edge{From: "gauss", To: "x", Value: true})
	g.AddEdge(graph.Edge{From: "gauss", To: "mean", Value: true})

	s, _ := Open(g, "gauss", graph.NormSet{"x"})
	fmt.Println("top:", s.Top())
	fmt.Println("normset:", s.NormSet("gauss"))
	s.Close()
	fmt.Println("after close:", g.NodeCount(), "nodes")

	// Output:
	// top: gauss_normalized
	// normset: (x)
	// after close: 3 nodes
}
