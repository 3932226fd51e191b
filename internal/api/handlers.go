package api

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rnshah9/root/pkg/errors"
	"github.com/rnshah9/root/pkg/modelio"
	"github.com/rnshah9/root/pkg/norm"
	"github.com/rnshah9/root/pkg/pipeline"
	"github.com/rnshah9/root/pkg/store"
)

// unfoldResponse is the JSON body returned by POST /v1/unfold.
type unfoldResponse struct {
	Report    pipeline.Report `json:"report"`
	ModelHash string          `json:"model_hash"`
	Cached    bool            `json:"cached"`
}

// errorResponse is the JSON body for all error statuses.
type errorResponse struct {
	Error   string         `json:"error"`
	Code    errors.Code    `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUnfold(w http.ResponseWriter, r *http.Request) {
	var opts pipeline.Options
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "invalid request body: %v", err))
		return
	}
	// API requests must carry the model inline or reference the store;
	// server filesystem paths are not accepted.
	if opts.ModelPath != "" {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "model_path is not allowed over the API"))
		return
	}
	opts.Formats = []string{pipeline.FormatJSON}

	result, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, unfoldResponse{
		Report:    result.Report,
		ModelHash: result.ModelHash,
		Cached:    result.CacheInfo.UnfoldHit,
	})
}

// renderRequest extends the pipeline options with the single format to
// return. The artifact is written as the raw response body.
type renderRequest struct {
	pipeline.Options
	Format string `json:"format"`
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "invalid request body: %v", err))
		return
	}
	if req.Options.ModelPath != "" {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "model_path is not allowed over the API"))
		return
	}
	if req.Format == "" {
		req.Format = pipeline.FormatSVG
	}
	req.Options.Formats = []string{req.Format}

	result, err := s.runner.Execute(r.Context(), req.Options)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType(req.Format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Artifacts[req.Format])
}

// saveModelRequest is the JSON body for POST /v1/models.
type saveModelRequest struct {
	Name  string        `json:"name"`
	Model modelio.Model `json:"model"`
}

func (s *Server) handleSaveModel(w http.ResponseWriter, r *http.Request) {
	var req saveModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "invalid request body: %v", err))
		return
	}
	if err := errors.ValidateModelName(req.Name); err != nil {
		writeError(w, err)
		return
	}
	if _, err := modelio.ToGraph(req.Model); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidModel, err, "model does not form a valid graph"))
		return
	}

	rec, err := s.store.Save(r.Context(), req.Name, req.Model)
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeStorage, err, "failed to save model"))
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeStorage, err, "failed to list models"))
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteModel(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps pipeline and store errors to HTTP statuses. Conflicting
// normalization sets are a semantic error in the submitted model, reported
// as 422 with the conflicting node and both sets in the details.
func writeError(w http.ResponseWriter, err error) {
	var conflict *norm.ConflictError
	if stderrors.As(err, &conflict) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error: conflict.Error(),
			Code:  errors.ErrCodeConflictingNormSets,
			Details: map[string]any{
				"node":         conflict.NodeID,
				"requested":    conflict.Requested,
				"requested_by": conflict.RequestedBy,
				"existing":     conflict.Existing,
				"first_by":     conflict.FirstBy,
			},
		})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case stderrors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errors.ErrCodeModelNotFound) || errors.Is(err, errors.ErrCodeNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errors.ErrCodeInvalidInput),
		errors.Is(err, errors.ErrCodeInvalidModel),
		errors.Is(err, errors.ErrCodeInvalidNormSet),
		errors.Is(err, errors.ErrCodeInvalidFormat),
		errors.Is(err, errors.ErrCodeInvalidPath):
		status = http.StatusBadRequest
	case errors.Is(err, errors.ErrCodeCyclicModel):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, errors.ErrCodeStorage):
		status = http.StatusBadGateway
	}

	writeJSON(w, status, errorResponse{
		Error: errors.UserMessage(err),
		Code:  errors.GetCode(err),
	})
}

func contentType(format string) string {
	switch format {
	case pipeline.FormatSVG:
		return "image/svg+xml"
	case pipeline.FormatPNG:
		return "image/png"
	case pipeline.FormatDOT:
		return "text/vnd.graphviz"
	default:
		return "application/json"
	}
}
