package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rnshah9/root/pkg/cache"
	"github.com/rnshah9/root/pkg/modelio"
	"github.com/rnshah9/root/pkg/store"
)

func writeGaussModel(t *testing.T) string {
	t.Helper()
	m := modelio.Model{
		Name: "gauss",
		Top:  "gauss",
		Nodes: []modelio.Node{
			{ID: "gauss", Kind: modelio.KindDensity},
			{ID: "x", Kind: modelio.KindVariable},
			{ID: "mean", Kind: modelio.KindVariable},
		},
		Edges: []modelio.Edge{
			{From: "gauss", To: "x"},
			{From: "gauss", To: "mean"},
		},
	}
	path := filepath.Join(t.TempDir(), "gauss.json")
	if err := modelio.WriteFile(m, path); err != nil {
		t.Fatalf("WriteFile() = %v", err)
	}
	return path
}

func TestExecute(t *testing.T) {
	runner := NewRunner(cache.NewNullCache(), nil, nil, nil)
	defer runner.Close()

	result, err := runner.Execute(context.Background(), Options{
		ModelPath: writeGaussModel(t),
		NormSet:   []string{"x"},
		Formats:   []string{FormatJSON, FormatDOT},
	})
	if err != nil {
		t.Fatalf("Execute() = %v", err)
	}

	rep := result.Report
	if rep.Top != "gauss_normalized" {
		t.Errorf("report top = %q, want gauss_normalized", rep.Top)
	}
	if len(rep.Wrappers) != 1 {
		t.Fatalf("wrappers = %+v, want one", rep.Wrappers)
	}
	w := rep.Wrappers[0]
	if w.Wraps != "gauss" || len(w.NormSet) != 1 || w.NormSet[0] != "x" {
		t.Errorf("wrapper = %+v, want gauss over (x)", w)
	}

	if len(result.Artifacts[FormatJSON]) == 0 {
		t.Error("missing json artifact")
	}
	dot := string(result.Artifacts[FormatDOT])
	if !strings.Contains(dot, "gauss_normalized") {
		t.Errorf("DOT artifact missing wrapper:\n%s", dot)
	}
	if result.ModelHash == "" {
		t.Error("missing model hash")
	}
}

func TestExecuteEmptyNormSet(t *testing.T) {
	runner := NewRunner(nil, nil, nil, nil)
	result, err := runner.Execute(context.Background(), Options{
		ModelPath: writeGaussModel(t),
	})
	if err != nil {
		t.Fatalf("Execute() = %v", err)
	}
	if result.Report.Top != "gauss" {
		t.Errorf("top = %q, want gauss", result.Report.Top)
	}
	if len(result.Report.Wrappers) != 0 {
		t.Errorf("wrappers = %+v, want none", result.Report.Wrappers)
	}
}

func TestExecuteCaching(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() = %v", err)
	}
	runner := NewRunner(c, nil, nil, nil)
	defer runner.Close()

	opts := Options{
		ModelPath: writeGaussModel(t),
		NormSet:   []string{"x"},
		Formats:   []string{FormatJSON, FormatDOT},
	}
	ctx := context.Background()

	first, err := runner.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("Execute() = %v", err)
	}
	if first.CacheInfo.UnfoldHit {
		t.Error("first run should miss the cache")
	}

	second, err := runner.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("Execute() = %v", err)
	}
	if !second.CacheInfo.UnfoldHit || !second.CacheInfo.RenderHit {
		t.Errorf("second run cache info = %+v, want hits", second.CacheInfo)
	}
	if second.Report.Top != first.Report.Top {
		t.Errorf("cached top = %q, want %q", second.Report.Top, first.Report.Top)
	}

	// Refresh bypasses the cache
	opts.Refresh = true
	third, err := runner.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("Execute() = %v", err)
	}
	if third.CacheInfo.UnfoldHit {
		t.Error("refresh run should bypass the cache")
	}
}

type fakeSource struct {
	recs map[string]store.Record
}

func (f *fakeSource) Get(ctx context.Context, id string) (store.Record, error) {
	rec, ok := f.recs[id]
	if !ok {
		return store.Record{}, store.ErrNotFound
	}
	return rec, nil
}

func TestLoadFromStore(t *testing.T) {
	src := &fakeSource{recs: map[string]store.Record{
		"abc": {ID: "abc", Name: "gauss", Model: modelio.Model{
			Top:   "gauss",
			Nodes: []modelio.Node{{ID: "gauss", Kind: modelio.KindDensity}},
		}},
	}}
	runner := NewRunner(nil, nil, src, nil)

	model, err := runner.Load(context.Background(), Options{ModelID: "abc"})
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if model.Top != "gauss" {
		t.Errorf("model top = %q, want gauss", model.Top)
	}

	if _, err := runner.Load(context.Background(), Options{ModelID: "ghost"}); err == nil {
		t.Error("Load(ghost) = nil error")
	}
}

func TestOptionsValidation(t *testing.T) {
	cases := []struct {
		name string
		opts Options
	}{
		{"no source", Options{}},
		{"both sources", Options{ModelPath: "a.json", ModelID: "abc"}},
		{"bad format", Options{ModelPath: "a.json", Formats: []string{"pdf"}}},
		{"duplicate observable", Options{ModelPath: "a.json", NormSet: []string{"x", "x"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.opts.ValidateAndSetDefaults(); err == nil {
				t.Errorf("ValidateAndSetDefaults() = nil, want error")
			}
		})
	}

	opts := Options{ModelPath: "a.json"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() = %v", err)
	}
	if len(opts.Formats) != 1 || opts.Formats[0] != FormatJSON {
		t.Errorf("default formats = %v, want [json]", opts.Formats)
	}
}
