package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/rnshah9/root/pkg/cache"
	"github.com/rnshah9/root/pkg/errors"
	"github.com/rnshah9/root/pkg/graph"
	"github.com/rnshah9/root/pkg/modelio"
	"github.com/rnshah9/root/pkg/norm"
	"github.com/rnshah9/root/pkg/observability"
	"github.com/rnshah9/root/pkg/render"
	"github.com/rnshah9/root/pkg/store"
)

// ModelSource fetches stored models by ID. *store.Store implements it;
// tests provide fakes.
type ModelSource interface {
	Get(ctx context.Context, id string) (store.Record, error)
}

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache, store, and logger - it
// doesn't store pipeline results. Multiple goroutines can safely use the
// same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Store  ModelSource
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache, keyer, and model store.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
// Store may be nil when only file-based models are used.
func NewRunner(c cache.Cache, keyer cache.Keyer, src ModelSource, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Store:  src,
		Logger: logger,
	}
}

// Execute runs the complete load → unfold → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)

	result := &Result{
		Artifacts: make(map[string][]byte),
	}

	// Stage 1: Load
	loadStart := time.Now()
	model, err := r.Load(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result.Stats.LoadTime = time.Since(loadStart)

	modelData, err := modelio.Marshal(model)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result.ModelHash = cache.Hash(modelData)

	r.Logger.Info("loaded model",
		"source", opts.source(),
		"nodes", len(model.Nodes),
		"duration", result.Stats.LoadTime)

	normSet := graph.Canonical(opts.NormSet)

	// Serve everything from cache when possible. A single miss forces a
	// full unfold because rendering needs the unfolded graph.
	if !opts.Refresh && r.fillFromCache(ctx, result, normSet, opts) {
		r.Logger.Info("served from cache", "formats", opts.Formats)
		return result, nil
	}

	// Stage 2: Unfold
	g, err := modelio.ToGraph(model)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidModel, err, "model does not form a valid graph")
	}
	if err := g.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCyclicModel, err, "model graph is not a DAG")
	}

	unfoldStart := time.Now()
	observability.Pipeline().OnUnfoldStart(ctx, model.Top, normSet)
	sess, err := norm.Open(g, model.Top, normSet)
	if err != nil {
		observability.Pipeline().OnUnfoldComplete(ctx, model.Top, 0, time.Since(unfoldStart), err)
		return nil, fmt.Errorf("unfold: %w", err)
	}
	defer sess.Close()

	result.Report = buildReport(g, sess, normSet)
	result.Stats.UnfoldTime = time.Since(unfoldStart)
	observability.Pipeline().OnUnfoldComplete(ctx, model.Top,
		len(result.Report.Wrappers), result.Stats.UnfoldTime, nil)
	result.Stats.NodeCount = result.Report.NodeCount
	result.Stats.EdgeCount = result.Report.EdgeCount

	r.Logger.Info("unfolded integrals",
		"top", result.Report.Top,
		"wrappers", len(result.Report.Wrappers),
		"duration", result.Stats.UnfoldTime)

	// Stage 3: Render from the unfolded graph, while the session is open.
	renderStart := time.Now()
	observability.Pipeline().OnRenderStart(ctx, opts.Formats)
	err = r.renderFormats(ctx, result, g, normSet, opts)
	observability.Pipeline().OnRenderComplete(ctx, opts.Formats, time.Since(renderStart), err)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Stats.RenderTime = time.Since(renderStart)

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// Load reads the model from a file or the model store.
func (r *Runner) Load(ctx context.Context, opts Options) (modelio.Model, error) {
	if err := opts.ValidateForLoad(); err != nil {
		return modelio.Model{}, err
	}

	start := time.Now()
	observability.Pipeline().OnLoadStart(ctx, opts.source())

	var model modelio.Model
	var err error
	switch {
	case opts.Model != nil:
		model = *opts.Model
	case opts.ModelPath != "":
		model, err = modelio.ReadFile(opts.ModelPath)
	case r.Store == nil:
		err = errors.New(errors.ErrCodeUnsupported, "no model store configured")
	default:
		var rec store.Record
		rec, err = r.Store.Get(ctx, opts.ModelID)
		model = rec.Model
	}

	observability.Pipeline().OnLoadComplete(ctx, opts.source(), len(model.Nodes), time.Since(start), err)
	return model, err
}

// fillFromCache attempts to satisfy the whole request from cache. It
// returns true only when the report and every requested artifact hit.
func (r *Runner) fillFromCache(ctx context.Context, result *Result, normSet graph.NormSet, opts Options) bool {
	reportKey := r.Keyer.UnfoldKey(result.ModelHash, normSet)
	data, hit, err := r.Cache.Get(ctx, reportKey)
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, "unfold")
		return false
	}
	rep, err := unmarshalReport(data)
	if err != nil {
		return false
	}
	observability.Cache().OnCacheHit(ctx, "unfold")

	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		if format == FormatJSON {
			artifacts[format] = data
			continue
		}
		key := r.Keyer.ArtifactKey(result.ModelHash, normSet, format)
		cached, hit, err := r.Cache.Get(ctx, key)
		if err != nil || !hit {
			observability.Cache().OnCacheMiss(ctx, "artifact")
			return false
		}
		observability.Cache().OnCacheHit(ctx, "artifact")
		artifacts[format] = cached
	}

	result.Report = rep
	result.Artifacts = artifacts
	result.Stats.NodeCount = rep.NodeCount
	result.Stats.EdgeCount = rep.EdgeCount
	result.CacheInfo.UnfoldHit = true
	result.CacheInfo.RenderHit = true
	return true
}

// renderFormats produces every requested artifact from the unfolded graph
// and writes report and artifacts back to the cache.
func (r *Runner) renderFormats(ctx context.Context, result *Result, g *graph.Graph, normSet graph.NormSet, opts Options) error {
	reportData, err := marshalReport(result.Report)
	if err != nil {
		return err
	}
	reportKey := r.Keyer.UnfoldKey(result.ModelHash, normSet)
	if cerr := r.Cache.Set(ctx, reportKey, reportData, cache.TTLUnfold); cerr == nil {
		observability.Cache().OnCacheSet(ctx, "unfold", len(reportData))
	}

	// Wrappers carry their assigned normalization sets as DOT highlights.
	highlight := make(map[string]string, len(result.Report.Wrappers))
	for _, w := range result.Report.Wrappers {
		highlight[w.ID] = graph.NormSet(w.NormSet).String()
	}

	var dot string
	for _, format := range opts.Formats {
		var data []byte
		switch format {
		case FormatJSON:
			data = reportData
		case FormatDOT, FormatSVG, FormatPNG:
			if dot == "" {
				dot = render.ToDOT(g, render.Options{Detailed: opts.Detailed, Highlight: highlight})
			}
			switch format {
			case FormatDOT:
				data = []byte(dot)
			case FormatSVG:
				data, err = render.SVG(dot)
			case FormatPNG:
				data, err = render.PNG(dot)
			}
			if err != nil {
				return fmt.Errorf("render %s: %w", format, err)
			}
		}

		result.Artifacts[format] = data
		if format != FormatJSON {
			key := r.Keyer.ArtifactKey(result.ModelHash, normSet, format)
			if cerr := r.Cache.Set(ctx, key, data, cache.TTLArtifact); cerr == nil {
				observability.Cache().OnCacheSet(ctx, "artifact", len(data))
			}
		}
	}

	return nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
