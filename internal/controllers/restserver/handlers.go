package restserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/chrissnell/radmon/internal/monitor"
	"github.com/chrissnell/radmon/internal/storage"
	"github.com/chrissnell/radmon/internal/types"
	"github.com/chrissnell/radmon/pkg/responseformat"
)

const maxReadingBody = 64 << 10

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

// SampleResponse is a stored sample as returned by /radiation/average
type SampleResponse struct {
	ID          uint64    `json:"id"`
	WindowStart time.Time `json:"window_start"`
	SampleCount int64     `json:"sample_count"`
	AlphaRate   float64   `json:"alpha_rate"`
	BetaRate    float64   `json:"beta_rate"`
	GammaRate   float64   `json:"gamma_rate"`
}

// HealthResponse is returned by /health
type HealthResponse struct {
	Status  string                        `json:"status"`
	Counter monitor.Stats                 `json:"counter"`
	Storage map[string]storage.HealthData `json:"storage,omitempty"`
}

// PostParticles records one reading. An empty 200 means it was counted.
func (h *Handlers) PostParticles(w http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(io.LimitReader(req.Body, maxReadingBody))
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, "could not read request body")
		return
	}

	reading, err := types.ParseReading(body)
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.controller.service.Record(reading); err != nil {
		h.writeServiceError(w, req, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// GetAverage closes the current window and returns its stored sample
func (h *Handlers) GetAverage(w http.ResponseWriter, req *http.Request) {
	sample, err := h.controller.service.Report(req.Context())
	if err != nil {
		h.writeServiceError(w, req, err)
		return
	}

	h.formatter.WriteResponse(w, req, SampleResponse{
		ID:          sample.ID,
		WindowStart: sample.WindowStart,
		SampleCount: sample.SampleCount,
		AlphaRate:   sample.AlphaRate,
		BetaRate:    sample.BetaRate,
		GammaRate:   sample.GammaRate,
	}, nil)
}

// GetResults returns the stored history, optionally bounded by from, to and limit
func (h *Handlers) GetResults(w http.ResponseWriter, req *http.Request) {
	q, err := parseSampleQuery(req)
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, err.Error())
		return
	}

	samples, err := h.controller.service.History(req.Context(), q)
	if err != nil {
		h.writeServiceError(w, req, err)
		return
	}
	if samples == nil {
		samples = []types.RadiationSample{}
	}

	h.formatter.WriteResponse(w, req, samples, nil)
}

// GetStats summarizes the stored history over the same query as GetResults
func (h *Handlers) GetStats(w http.ResponseWriter, req *http.Request) {
	q, err := parseSampleQuery(req)
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := h.controller.service.Summary(req.Context(), q)
	if err != nil {
		h.writeServiceError(w, req, err)
		return
	}

	h.formatter.WriteResponse(w, req, summary, nil)
}

// GetHealth reports liveness, the lifetime counters and storage health
func (h *Handlers) GetHealth(w http.ResponseWriter, req *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Counter: h.controller.service.Stats(),
	}

	status := http.StatusOK
	if h.controller.health != nil {
		resp.Storage = h.controller.health.GetAllHealth()
		for _, sh := range resp.Storage {
			if sh.Status != storage.StatusHealthy {
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
			}
		}
	}

	h.formatter.WriteStatus(w, req, status, resp)
}

func (h *Handlers) writeServiceError(w http.ResponseWriter, req *http.Request, err error) {
	switch {
	case errors.Is(err, types.ErrInvalidReading):
		h.formatter.WriteError(w, req, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrClosed):
		h.formatter.WriteError(w, req, http.StatusServiceUnavailable, "history storage unavailable")
	default:
		h.controller.logger.Errorf("error handling %s %s: %v", req.Method, req.URL.Path, err)
		h.formatter.WriteError(w, req, http.StatusInternalServerError, err.Error())
	}
}

// parseSampleQuery reads from and to (RFC 3339) and limit from the query string
func parseSampleQuery(req *http.Request) (types.SampleQuery, error) {
	var q types.SampleQuery
	params := req.URL.Query()

	if v := params.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return q, fmt.Errorf("invalid from: %q is not an RFC 3339 timestamp", v)
		}
		q.From = t
	}
	if v := params.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return q, fmt.Errorf("invalid to: %q is not an RFC 3339 timestamp", v)
		}
		q.To = t
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return q, fmt.Errorf("invalid range: to is before from")
	}
	if v := params.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return q, fmt.Errorf("invalid limit: %q", v)
		}
		q.Limit = n
	}

	return q, nil
}
