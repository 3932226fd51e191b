package pipeline

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rnshah9/root/pkg/graph"
	"github.com/rnshah9/root/pkg/norm"
)

// Report summarizes the outcome of an unfolding session. It is the JSON
// payload returned by the API and the "json" render format.
type Report struct {
	// Top is the evaluation entry point after unfolding. When the top
	// density itself was wrapped this names the wrapper.
	Top string `json:"top"`

	// NormSet is the canonical normalization set of the request.
	NormSet []string `json:"normset"`

	// Wrappers lists the synthetic normalized nodes that were created,
	// in the order densities were wrapped.
	Wrappers []Wrapper `json:"wrappers,omitempty"`

	// NodeCount and EdgeCount describe the graph while unfolded.
	NodeCount int `json:"node_count"`
	EdgeCount int `json:"edge_count"`
}

// Wrapper describes one synthetic normalized node.
type Wrapper struct {
	ID      string   `json:"id"`
	Wraps   string   `json:"wraps"`
	NormSet []string `json:"normset"`
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount  int
	EdgeCount  int
	LoadTime   time.Duration
	UnfoldTime time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	UnfoldHit bool // Whether the report came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// buildReport captures the state of an open session.
func buildReport(g *graph.Graph, sess *norm.Session, normSet graph.NormSet) Report {
	rep := Report{
		Top:       sess.Top(),
		NormSet:   normSet,
		NodeCount: g.NodeCount(),
		EdgeCount: g.EdgeCount(),
	}

	replaced, created := sess.Replaced(), sess.Created()
	for i, id := range created {
		rep.Wrappers = append(rep.Wrappers, Wrapper{
			ID:      id,
			Wraps:   replaced[i],
			NormSet: sess.NormSet(replaced[i]),
		})
	}
	return rep
}

// marshalReport serializes a report for caching and the json format.
func marshalReport(rep Report) ([]byte, error) {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return data, nil
}

// unmarshalReport deserializes a cached report.
func unmarshalReport(data []byte) (Report, error) {
	var rep Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return Report{}, fmt.Errorf("decode report: %w", err)
	}
	return rep, nil
}
