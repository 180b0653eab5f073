package http

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"exoserve/db"
	"exoserve/ml"
	"exoserve/monitoring"
)

// Package-level collaborators, installed once at startup before the
// server starts serving. The pipeline is read-only afterwards.
var (
	logger    = zap.NewNop().Sugar()
	pipeline  ml.Predictor
	cache     *ml.PredictionCache
	metrics   = monitoring.NewMetrics()
	streamHub *monitoring.Hub

	// Stubbed in tests.
	savePredictionLog   = db.SavePredictions
	queryPredictionLog  = db.QueryRecentPredictions
	predictionLogActive = false
)

func SetLogger(l *zap.SugaredLogger) {
	if l != nil {
		logger = l
	}
}

// SetPipeline installs the loaded model. Passing nil leaves the service
// in the degraded no-model state.
func SetPipeline(p ml.Predictor) {
	pipeline = p
	loaded := 0.0
	if p != nil {
		loaded = 1
	}
	metrics.SetGauge("model_loaded", loaded)
}

// ModelLoaded reports whether a pipeline is installed.
func ModelLoaded() bool {
	return pipeline != nil
}

func SetCache(c *ml.PredictionCache) {
	cache = c
}

func SetMetrics(m *monitoring.Metrics) {
	if m != nil {
		metrics = m
	}
}

func SetStreamHub(h *monitoring.Hub) {
	streamHub = h
}

// EnablePredictionLog turns on SQLite batch logging.
func EnablePredictionLog(enabled bool) {
	predictionLogActive = enabled
}

// RegisterHandlers wires all routes.
func RegisterHandlers(mux *http.ServeMux, staticDir string) {
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("POST /predict", handlePredict)
	mux.HandleFunc("POST /predict/csv", handlePredictCSV)
	mux.HandleFunc("GET /api/predictions", handleRecentPredictions)
	mux.HandleFunc("GET /api/metrics", handleMetrics)
	mux.HandleFunc("GET /api/model", handleModelInfo)
	mux.HandleFunc("GET /ws/predictions", handleStream)
	mux.HandleFunc("GET /{$}", handleIndex(staticDir))
}

// handleHealth always answers 200; model state is reported, never
// treated as a failure.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "healthy",
		"model_loaded": ModelLoaded(),
	})
}

func handleIndex(staticDir string) http.HandlerFunc {
	index := filepath.Join(staticDir, "index.html")
	return func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, index)
	}
}

func handleModelInfo(w http.ResponseWriter, r *http.Request) {
	if !ModelLoaded() {
		writeError(w, http.StatusNotFound, "Model not loaded")
		return
	}
	writeJSON(w, http.StatusOK, pipeline.Info())
}

func handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, metrics.Snapshot())
}

func handleRecentPredictions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	records, err := queryPredictionLog(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"predictions": records,
		"total":       len(records),
	})
}

func handleStream(w http.ResponseWriter, r *http.Request) {
	if streamHub == nil {
		writeError(w, http.StatusServiceUnavailable, "prediction stream not available")
		return
	}
	streamHub.HandleWebSocket(w, r)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warnw("write response failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
