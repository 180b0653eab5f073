package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"exoserve/dataset"
	"exoserve/db"
	"exoserve/ml"
	"exoserve/monitoring"
)

// PredictRequest is the JSON body of POST /predict.
type PredictRequest struct {
	Data []ml.FeatureRow `json:"data"`
}

// PredictionResult is one per-row model output, 1-indexed in input order.
type PredictionResult struct {
	Index                    int     `json:"index"`
	Prediction               int     `json:"prediction"`
	IsExoplanet              bool    `json:"is_exoplanet"`
	Confidence               float64 `json:"confidence"`
	ExoplanetProbability     float64 `json:"exoplanet_probability"`
	FalsePositiveProbability float64 `json:"false_positive_probability"`
}

// PredictResponse is the success envelope of POST /predict.
type PredictResponse struct {
	Success      bool               `json:"success"`
	Predictions  []PredictionResult `json:"predictions"`
	TotalSamples int                `json:"total_samples"`
}

func handlePredict(w http.ResponseWriter, r *http.Request) {
	metrics.IncCounter("predict_requests_total")

	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, "json", &apiError{
			kind: errorKindValidation,
			err:  fmt.Errorf("invalid request body: %v", err),
		})
		return
	}

	if len(req.Data) == 0 {
		respondError(w, r, "json", &apiError{kind: errorKindValidation, err: errors.New("No data provided")})
		return
	}

	respondBatch(w, r, req.Data, "json")
}

func handlePredictCSV(w http.ResponseWriter, r *http.Request) {
	metrics.IncCounter("predict_requests_total")

	rows, err := dataset.ReadRows(r.Body)
	if err != nil {
		respondError(w, r, "csv", &apiError{kind: errorKindValidation, err: fmt.Errorf("invalid csv: %v", err)})
		return
	}
	if len(rows) == 0 {
		respondError(w, r, "csv", &apiError{kind: errorKindValidation, err: errors.New("No data provided")})
		return
	}

	respondBatch(w, r, rows, "csv")
}

func respondBatch(w http.ResponseWriter, r *http.Request, rows []ml.FeatureRow, source string) {
	start := time.Now()

	resp, apiErr := runBatch(rows, source)
	metrics.ObserveLatency("predict", time.Since(start))

	if apiErr != nil {
		respondError(w, r, source, apiErr)
		return
	}

	metrics.AddCounter("predictions_total", int64(resp.TotalSamples))
	writeJSON(w, http.StatusOK, resp)
}

func respondError(w http.ResponseWriter, r *http.Request, source string, apiErr *apiError) {
	metrics.IncCounter("predict_errors_total")
	logger.Warnw("prediction failed",
		"request_id", GetRequestID(r.Context()),
		"source", source,
		"kind", apiErr.kind.String(),
		"err", apiErr.err,
	)
	writeError(w, apiErr.Status(), apiErr.Error())
}

// runBatch vectorizes, infers and formats one batch. The whole batch
// fails together; no partial results.
func runBatch(rows []ml.FeatureRow, source string) (*PredictResponse, *apiError) {
	if !ModelLoaded() {
		return nil, &apiError{kind: errorKindModelUnavailable, err: errors.New("Model not loaded")}
	}

	vectors, err := ml.VectorizeRows(rows)
	if err != nil {
		// Incomplete rows answer 500 like any other batch failure;
		// the typed error still names the offending field.
		return nil, &apiError{kind: errorKindInference, err: err}
	}

	results := make([]PredictionResult, 0, len(vectors))
	for i, vector := range vectors {
		label, proba, err := predictOne(vector)
		if err != nil {
			return nil, &apiError{kind: errorKindInference, err: err}
		}
		results = append(results, formatResult(i+1, label, proba))
	}

	resp := &PredictResponse{
		Success:      true,
		Predictions:  results,
		TotalSamples: len(results),
	}

	logBatch(results, source)
	broadcastBatch(resp, source)
	return resp, nil
}

func predictOne(vector []float64) (int, []float64, error) {
	if cache != nil {
		if cached, ok := cache.Get(vector); ok {
			metrics.IncCounter("cache_hits_total")
			return cached.Label, cached.Proba, nil
		}
		metrics.IncCounter("cache_misses_total")
	}

	label, proba, err := pipeline.PredictVector(vector)
	if err != nil {
		return 0, nil, err
	}
	if len(proba) == 0 {
		return 0, nil, errors.New("model returned no probabilities")
	}

	if cache != nil {
		cache.Add(vector, ml.CachedPrediction{Label: label, Proba: proba})
	}
	return label, proba, nil
}

// formatResult maps a raw model output to the response shape.
// Confidence is the winning class's probability. A degenerate length-1
// distribution duplicates its sole value into both probability fields.
func formatResult(index, label int, proba []float64) PredictionResult {
	exoProb := proba[0]
	fpProb := proba[0]
	if len(proba) > 1 {
		fpProb = proba[0]
		exoProb = proba[1]
	}

	confidence := proba[0]
	for _, p := range proba[1:] {
		if p > confidence {
			confidence = p
		}
	}

	return PredictionResult{
		Index:                    index,
		Prediction:               label,
		IsExoplanet:              label == ml.PositiveClass,
		Confidence:               confidence,
		ExoplanetProbability:     exoProb,
		FalsePositiveProbability: fpProb,
	}
}

// logBatch appends results to the SQLite log. Logging is best-effort;
// a failure never fails the prediction response.
func logBatch(results []PredictionResult, source string) {
	if !predictionLogActive {
		return
	}

	records := make([]db.PredictionRecord, len(results))
	for i, result := range results {
		records[i] = db.PredictionRecord{
			RowIndex:                 result.Index,
			Label:                    result.Prediction,
			Confidence:               result.Confidence,
			ExoplanetProbability:     result.ExoplanetProbability,
			FalsePositiveProbability: result.FalsePositiveProbability,
			Source:                   source,
		}
	}
	if err := savePredictionLog(records); err != nil {
		logger.Warnw("prediction log write failed", "err", err)
	}
}

func broadcastBatch(resp *PredictResponse, source string) {
	if streamHub == nil {
		return
	}

	exoplanets := 0
	for _, result := range resp.Predictions {
		if result.IsExoplanet {
			exoplanets++
		}
	}
	streamHub.BroadcastBatch(monitoring.BatchEvent{
		TotalSamples: resp.TotalSamples,
		Exoplanets:   exoplanets,
		Source:       source,
		Timestamp:    time.Now(),
	})
}
