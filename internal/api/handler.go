package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/siteconfig/internal/siteconfig"
	"github.com/eugenenazirov/siteconfig/internal/storage"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

const (
	sourceReplace   = "api:replace"
	sourceReconcile = "api:reconcile"
)

// Handler wires the configuration builder and snapshot storage into HTTP handlers.
type Handler struct {
	builder *siteconfig.Builder
	storage storage.Storage
	logger  *zap.Logger

	clock        func() time.Time
	maxBodyBytes int64
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithMaxBodyBytes limits the size of declarations accepted over HTTP.
func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// WithHandlerLogger sets the logger used for swap events.
func WithHandlerLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(builder *siteconfig.Builder, store storage.Storage, opts ...HandlerOption) *Handler {
	h := &Handler{
		builder:      builder,
		storage:      store,
		logger:       zap.NewNop(),
		maxBodyBytes: 1 << 20,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	if snap, err := h.storage.Current(); err == nil {
		resp.ConfigVersion = snap.Version
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	snap, err := h.storage.Current()
	if err != nil {
		if errors.Is(err, storage.ErrNotLoaded) {
			writeError(w, http.StatusServiceUnavailable, "Configuration unavailable", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSnapshotResponse(snap, nil, ""))
}

func (h *Handler) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	report, ok := h.buildFromRequest(w, r)
	if !ok {
		return
	}

	snap, err := h.storage.Swap(report.Config, sourceReplace)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	h.logSwap(r, snap)

	writeJSON(w, http.StatusOK, newSnapshotResponse(snap, report.Warnings, "Site configuration replaced"))
}

func (h *Handler) handlePatchConfig(w http.ResponseWriter, r *http.Request) {
	report, ok := h.buildFromRequest(w, r)
	if !ok {
		return
	}

	snap, err := h.storage.Update(sourceReconcile, func(current *storage.Snapshot) (siteconfig.SiteConfig, error) {
		if current == nil {
			return report.Config, nil
		}
		return siteconfig.Reconcile(current.Config, report.Config)
	})
	if err != nil {
		writeInternalError(w, err)
		return
	}
	h.logSwap(r, snap)

	writeJSON(w, http.StatusOK, newSnapshotResponse(snap, report.Warnings, "Site configuration reconciled"))
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	report, ok := h.buildFromRequest(w, r)
	if !ok {
		return
	}

	resp := validateResponse{
		Valid:    true,
		Config:   report.Config,
		Warnings: warningsOrEmpty(report.Warnings),
	}
	writeJSON(w, http.StatusOK, resp)
}

// buildFromRequest decodes and builds the declaration in the request body,
// writing the error response itself when that fails.
func (h *Handler) buildFromRequest(w http.ResponseWriter, r *http.Request) (siteconfig.Report, bool) {
	var raw map[string]any
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Invalid request", "declaration exceeds the allowed size")
			return siteconfig.Report{}, false
		}
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return siteconfig.Report{}, false
	}

	report, err := h.builder.BuildReport(raw)
	if err != nil {
		if errors.Is(err, siteconfig.ErrInvalidConfig) {
			writeConfigError(w, err)
			return siteconfig.Report{}, false
		}
		writeInternalError(w, err)
		return siteconfig.Report{}, false
	}
	return report, true
}

func (h *Handler) logSwap(r *http.Request, snap storage.Snapshot) {
	h.logger.Info("site configuration swapped",
		zap.Uint64("version", snap.Version),
		zap.String("source", snap.Source),
		zap.String("request_id", requestIDFromContext(r.Context())),
	)
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type snapshotResponse struct {
	Version   uint64                `json:"version"`
	Source    string                `json:"source"`
	UpdatedAt time.Time             `json:"updatedAt"`
	Config    siteconfig.SiteConfig `json:"config"`
	Warnings  []siteconfig.Warning  `json:"warnings,omitempty"`
	Message   string                `json:"message,omitempty"`
}

func newSnapshotResponse(snap storage.Snapshot, warnings []siteconfig.Warning, message string) snapshotResponse {
	return snapshotResponse{
		Version:   snap.Version,
		Source:    snap.Source,
		UpdatedAt: snap.UpdatedAt,
		Config:    snap.Config,
		Warnings:  warnings,
		Message:   message,
	}
}

type validateResponse struct {
	Valid    bool                  `json:"valid"`
	Config   siteconfig.SiteConfig `json:"config"`
	Warnings []siteconfig.Warning  `json:"warnings"`
}

type healthResponse struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	ConfigVersion uint64    `json:"configVersion,omitempty"`
}

type findingResponse struct {
	Kind     string `json:"kind"`
	Location string `json:"location"`
	Message  string `json:"message"`
}

type errorResponse struct {
	Error      string            `json:"error"`
	Details    string            `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Findings   []findingResponse `json:"findings,omitempty"`
}

func warningsOrEmpty(warnings []siteconfig.Warning) []siteconfig.Warning {
	if warnings == nil {
		return []siteconfig.Warning{}
	}
	return warnings
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeConfigError(w http.ResponseWriter, err error) {
	findings := siteconfig.Findings(err)
	resp := errorResponse{
		Error:      "Invalid site configuration",
		Details:    err.Error(),
		Suggestion: "Fix the listed fields and submit the whole declaration again",
		Findings:   make([]findingResponse, 0, len(findings)),
	}
	for _, f := range findings {
		resp.Findings = append(resp.Findings, findingResponse{
			Kind:     f.Kind(),
			Location: f.Location(),
			Message:  f.Error(),
		})
	}
	writeJSON(w, http.StatusUnprocessableEntity, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
