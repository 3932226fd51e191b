// Package pipeline provides the core unfolding pipeline.
//
// This package implements the complete load → unfold → render pipeline that
// can be used by CLI and API components. By centralizing this logic,
// we ensure consistent behavior across all entry points and avoid code
// duplication.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: Read a model from a file or the model store
//  2. Unfold: Open a normalization session over the model graph
//  3. Render: Generate output in various formats (JSON, DOT, SVG, PNG)
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, nil, logger)
//	opts := pipeline.Options{
//	    ModelPath: "gauss.json",
//	    NormSet:   []string{"x"},
//	    Formats:   []string{"svg"},
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/rnshah9/root/pkg/errors"
	"github.com/rnshah9/root/pkg/modelio"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

// Format constants for output formats.
const (
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
	FormatPNG  = "png"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON: true,
	FormatDOT:  true,
	FormatSVG:  true,
	FormatPNG:  true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the unfolding pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Load options. Exactly one of Model, ModelPath, or ModelID must be
	// set: Model is an inline definition (API requests), ModelPath reads a
	// model file, ModelID fetches from the store.
	Model     *modelio.Model `json:"model,omitempty"`
	ModelPath string         `json:"model_path,omitempty"`
	ModelID   string         `json:"model_id,omitempty"`

	// NormSet is the normalization set for the top node. An empty set
	// leaves the model untouched and produces a report without wrappers.
	NormSet []string `json:"normset,omitempty"`

	// Render options
	Formats  []string `json:"formats,omitempty"`
	Detailed bool     `json:"detailed,omitempty"` // Include kind and metadata in DOT labels

	// Refresh bypasses cached reports and artifacts.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Report describes the unfolding outcome.
	Report Report

	// ModelHash is the content hash of the loaded model.
	ModelHash string

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if !ValidFormats[f] {
			return errors.New(errors.ErrCodeInvalidFormat,
				"invalid format: %q (must be one of: json, dot, svg, png)", f)
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect
// as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLoad(); err != nil {
		return err
	}
	if err := errors.ValidateNormSet(o.NormSet); err != nil {
		return err
	}
	o.SetRenderDefaults()
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForLoad checks required fields for model loading.
func (o *Options) ValidateForLoad() error {
	sources := 0
	for _, set := range []bool{o.Model != nil, o.ModelPath != "", o.ModelID != ""} {
		if set {
			sources++
		}
	}
	if sources == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "model, model_path, or model_id is required")
	}
	if sources > 1 {
		return errors.New(errors.ErrCodeInvalidInput, "model, model_path, and model_id are mutually exclusive")
	}
	if o.ModelPath != "" {
		if err := errors.ValidatePath(o.ModelPath); err != nil {
			return err
		}
	}

	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	return nil
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatJSON}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// source names where the model came from, for logging and load hooks.
func (o *Options) source() string {
	switch {
	case o.ModelPath != "":
		return o.ModelPath
	case o.ModelID != "":
		return "store:" + o.ModelID
	default:
		return "inline"
	}
}
