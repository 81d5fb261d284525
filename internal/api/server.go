// Package api exposes the monitor's status and control surface over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ezraeffect/vibewatch/internal/alarm"
	"github.com/ezraeffect/vibewatch/internal/analysis"
	"github.com/ezraeffect/vibewatch/internal/baseline"
	"github.com/ezraeffect/vibewatch/internal/db"
	"github.com/ezraeffect/vibewatch/internal/dsp"
	"github.com/ezraeffect/vibewatch/internal/httputil"
	"github.com/ezraeffect/vibewatch/internal/sensor"
	"github.com/ezraeffect/vibewatch/internal/version"
)

// Server wires the HTTP handlers to the running components. History may be
// nil when persistence is disabled.
type Server struct {
	analyzer *analysis.Analyzer
	engine   *alarm.Engine
	learner  *baseline.Learner
	reader   *sensor.Reader
	history  *db.DB
}

// NewServer creates a Server.
func NewServer(analyzer *analysis.Analyzer, engine *alarm.Engine, learner *baseline.Learner,
	reader *sensor.Reader, history *db.DB) *Server {
	return &Server{
		analyzer: analyzer,
		engine:   engine,
		learner:  learner,
		reader:   reader,
		history:  history,
	}
}

// ServeMux returns the route table.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/thresholds", s.handleThresholds)
	mux.HandleFunc("/api/learning/start", s.handleLearningStart)
	mux.HandleFunc("/api/learning/abort", s.handleLearningAbort)
	mux.HandleFunc("/api/spectrum", s.handleSpectrum)
	mux.HandleFunc("/api/events", s.handleEvents)
	return mux
}

type statusResponse struct {
	Version     string             `json:"version"`
	State       string             `json:"state"`
	Connected   bool               `json:"connected"`
	LastSample  time.Time          `json:"last_sample"`
	Features    dsp.WindowFeatures `json:"features"`
	Thresholds  alarm.ThresholdSet `json:"thresholds"`
	Learning    learningStatus     `json:"learning"`
	PollStats   pollStats          `json:"poll_stats"`
	Exceedances []alarm.Exceedance `json:"exceedances,omitempty"`
}

type learningStatus struct {
	State      string  `json:"state"`
	ElapsedSec float64 `json:"elapsed_sec"`
	TotalSec   float64 `json:"total_sec"`
}

type pollStats struct {
	TotalCycles  int64   `json:"total_cycles"`
	FailedCycles int64   `json:"failed_cycles"`
	SuccessRate  float64 `json:"success_rate"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	elapsed, total := s.learner.Progress()
	stats := s.reader.Stats()
	resp := statusResponse{
		Version:    version.String(),
		State:      s.analyzer.State().String(),
		Connected:  s.reader.Connected(),
		LastSample: s.reader.LastSampleAt(),
		Features:   s.analyzer.Features(),
		Thresholds: s.engine.Thresholds(),
		Learning: learningStatus{
			State:      s.learner.State().String(),
			ElapsedSec: elapsed.Seconds(),
			TotalSec:   total.Seconds(),
		},
		PollStats: pollStats{
			TotalCycles:  stats.TotalCycles,
			FailedCycles: stats.FailedCycles,
			SuccessRate:  stats.SuccessRate(),
		},
		Exceedances: s.engine.Exceedances(),
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// handleThresholds reads the active threshold set on GET and installs a
// replacement set atomically on PUT.
func (s *Server) handleThresholds(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		httputil.WriteJSON(w, http.StatusOK, s.engine.Thresholds())
	case http.MethodPut:
		s.putThresholds(w, r)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) putThresholds(w http.ResponseWriter, r *http.Request) {
	var ts alarm.ThresholdSet
	if err := json.NewDecoder(r.Body).Decode(&ts); err != nil {
		httputil.BadRequest(w, "invalid threshold JSON: "+err.Error())
		return
	}
	if ts.AccRMSMax < 0 || ts.VelPeakMax < 0 || ts.DispPeakMax < 0 || ts.TempMax < 0 {
		httputil.BadRequest(w, "thresholds must not be negative")
		return
	}
	s.engine.SetThresholds(ts)
	httputil.WriteJSON(w, http.StatusOK, ts)
}

func (s *Server) handleLearningStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	id, err := s.learner.Start()
	switch {
	case errors.Is(err, baseline.ErrSessionActive):
		httputil.WriteJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, baseline.ErrNotReady):
		httputil.WriteJSONError(w, http.StatusPreconditionFailed, err.Error())
	case err != nil:
		httputil.InternalServerError(w, err.Error())
	default:
		httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"session_id": id})
	}
}

func (s *Server) handleLearningAbort(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	s.learner.Abort()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSpectrum(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	q := analysis.Quantity(r.URL.Query().Get("quantity"))
	if q == "" {
		q = analysis.QuantityAcc
	}
	axis := 0
	if v := r.URL.Query().Get("axis"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			httputil.BadRequest(w, "invalid axis: "+v)
			return
		}
		axis = parsed
	}
	spec, err := s.analyzer.Spectrum(q, axis)
	if err != nil {
		if errors.Is(err, dsp.ErrShortSignal) {
			httputil.WriteJSONError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, spec)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.history == nil {
		httputil.NotFound(w, "history store disabled")
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			httputil.BadRequest(w, "invalid limit: "+v)
			return
		}
		limit = parsed
	}
	events, err := s.history.RecentAlarmEvents(limit)
	if err != nil {
		httputil.InternalServerError(w, "failed to load events: "+err.Error())
		return
	}
	if events == nil {
		events = []db.AlarmEvent{}
	}
	httputil.WriteJSON(w, http.StatusOK, events)
}
