package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"exoserve/db"
	"exoserve/ml"
)

func sampleRow(flagNT float64) ml.FeatureRow {
	row := ml.FeatureRow{
		"koi_fpflag_nt": flagNT,
		"koi_fpflag_ss": 0,
		"koi_fpflag_co": 0,
		"koi_fpflag_ec": 0,
		"koi_period":    9.48803557,
		"koi_impact":    0.146,
		"koi_duration":  2.9575,
		"koi_depth":     615.8,
		"koi_prad":      2.26,
		"koi_teq":       793,
		"koi_insol":     93.59,
		"koi_model_snr": 35.8,
		"koi_steff":     5455,
		"koi_slogg":     4.467,
		"koi_srad":      0.927,
		"koi_kepmag":    15.347,
	}
	return row
}

func postPredict(t *testing.T, mux *http.ServeMux, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/predict", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestHandlePredictSingleRow(t *testing.T) {
	mux := newTestMux(t)
	SetPipeline(testPipeline())

	w := postPredict(t, mux, PredictRequest{Data: []ml.FeatureRow{sampleRow(1)}})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp PredictResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if !resp.Success || resp.TotalSamples != 1 || len(resp.Predictions) != 1 {
		t.Fatalf("unexpected envelope: %+v", resp)
	}

	p := resp.Predictions[0]
	if p.Index != 1 {
		t.Fatalf("expected index 1, got %d", p.Index)
	}
	// Not-transit-like flag set: the test forest calls it a false positive.
	if p.Prediction != 0 || p.IsExoplanet {
		t.Fatalf("unexpected prediction: %+v", p)
	}
	sum := p.ExoplanetProbability + p.FalsePositiveProbability
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("probabilities sum to %f", sum)
	}
	if p.Confidence != math.Max(p.ExoplanetProbability, p.FalsePositiveProbability) {
		t.Fatalf("confidence %f is not the winning probability", p.Confidence)
	}
}

func TestHandlePredictBatchOrderAndIndexing(t *testing.T) {
	mux := newTestMux(t)
	SetPipeline(testPipeline())

	rows := []ml.FeatureRow{sampleRow(0), sampleRow(1), sampleRow(0)}
	w := postPredict(t, mux, PredictRequest{Data: rows})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp PredictResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.TotalSamples != 3 || len(resp.Predictions) != 3 {
		t.Fatalf("unexpected batch size: %+v", resp)
	}
	for i, p := range resp.Predictions {
		if p.Index != i+1 {
			t.Fatalf("position %d has index %d", i, p.Index)
		}
		if p.IsExoplanet != (p.Prediction == 1) {
			t.Fatalf("is_exoplanet disagrees with prediction: %+v", p)
		}
	}
	if resp.Predictions[0].Prediction != 1 || resp.Predictions[1].Prediction != 0 {
		t.Fatalf("rows not predicted in input order: %+v", resp.Predictions)
	}
}

func TestHandlePredictNoData(t *testing.T) {
	mux := newTestMux(t)
	SetPipeline(testPipeline())

	for _, body := range []string{`{}`, `{"data":[]}`} {
		req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(body))
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, w.Code)
		}
		payload := decodeBody(t, w)
		if payload["error"] != "No data provided" {
			t.Fatalf("unexpected error: %v", payload["error"])
		}
		if _, ok := payload["predictions"]; ok {
			t.Fatal("error response must not carry predictions")
		}
	}
}

func TestHandlePredictMissingFeature(t *testing.T) {
	mux := newTestMux(t)
	SetPipeline(testPipeline())

	row := sampleRow(0)
	delete(row, "koi_period")
	w := postPredict(t, mux, PredictRequest{Data: []ml.FeatureRow{row}})

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	payload := decodeBody(t, w)
	msg, _ := payload["error"].(string)
	if !strings.Contains(msg, "koi_period") {
		t.Fatalf("error does not name the missing feature: %q", msg)
	}
}

func TestHandlePredictModelNotLoaded(t *testing.T) {
	mux := newTestMux(t)
	SetPipeline(nil)

	w := postPredict(t, mux, PredictRequest{Data: []ml.FeatureRow{sampleRow(0)}})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	payload := decodeBody(t, w)
	if payload["error"] != "Model not loaded" {
		t.Fatalf("unexpected error: %v", payload["error"])
	}
}

func TestHandlePredictIdempotent(t *testing.T) {
	mux := newTestMux(t)
	SetPipeline(testPipeline())

	body := PredictRequest{Data: []ml.FeatureRow{sampleRow(0), sampleRow(1)}}
	first := postPredict(t, mux, body)
	second := postPredict(t, mux, body)

	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("expected 200/200, got %d/%d", first.Code, second.Code)
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("identical input produced different output:\n%s\n%s",
			first.Body.String(), second.Body.String())
	}
}

func TestHandlePredictCacheMatchesColdPath(t *testing.T) {
	mux := newTestMux(t)
	SetPipeline(testPipeline())

	cold := postPredict(t, mux, PredictRequest{Data: []ml.FeatureRow{sampleRow(1)}})

	pcache, err := ml.NewPredictionCache(16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	SetCache(pcache)

	warm1 := postPredict(t, mux, PredictRequest{Data: []ml.FeatureRow{sampleRow(1)}})
	warm2 := postPredict(t, mux, PredictRequest{Data: []ml.FeatureRow{sampleRow(1)}})

	if cold.Body.String() != warm1.Body.String() || warm1.Body.String() != warm2.Body.String() {
		t.Fatal("cached result differs from cold result")
	}
	if pcache.Len() != 1 {
		t.Fatalf("expected 1 cache entry, got %d", pcache.Len())
	}
}

func TestHandlePredictCSVMatchesJSON(t *testing.T) {
	mux := newTestMux(t)
	SetPipeline(testPipeline())

	jsonResp := postPredict(t, mux, PredictRequest{Data: []ml.FeatureRow{sampleRow(1)}})

	row := sampleRow(1)
	var header, values []string
	for _, name := range ml.RequiredFeatures {
		header = append(header, name)
		values = append(values, fmt.Sprintf("%v", row[name]))
	}
	csvBody := strings.Join(header, ",") + "\n" + strings.Join(values, ",") + "\n"

	req := httptest.NewRequest(http.MethodPost, "/predict/csv", strings.NewReader(csvBody))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Body.String() != jsonResp.Body.String() {
		t.Fatalf("csv path differs from json path:\n%s\n%s", w.Body.String(), jsonResp.Body.String())
	}
}

func TestHandlePredictLogsBatch(t *testing.T) {
	mux := newTestMux(t)
	SetPipeline(testPipeline())
	EnablePredictionLog(true)

	var logged []db.PredictionRecord
	savePredictionLog = func(records []db.PredictionRecord) error {
		logged = append(logged, records...)
		return nil
	}
	t.Cleanup(func() { savePredictionLog = db.SavePredictions })

	w := postPredict(t, mux, PredictRequest{Data: []ml.FeatureRow{sampleRow(0), sampleRow(1)}})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(logged) != 2 {
		t.Fatalf("expected 2 logged records, got %d", len(logged))
	}
	if logged[0].Source != "json" || logged[1].RowIndex != 2 {
		t.Fatalf("unexpected log records: %+v", logged)
	}
}

func TestHandleRecentPredictions(t *testing.T) {
	mux := newTestMux(t)

	queryPredictionLog = func(limit int) ([]db.PredictionRecord, error) {
		if limit != 2 {
			return nil, fmt.Errorf("unexpected limit %d", limit)
		}
		return []db.PredictionRecord{{RowIndex: 1, Label: 1, Confidence: 0.9}}, nil
	}
	t.Cleanup(func() { queryPredictionLog = db.QueryRecentPredictions })

	req := httptest.NewRequest(http.MethodGet, "/api/predictions?limit=2", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	payload := decodeBody(t, w)
	if payload["total"].(float64) != 1 {
		t.Fatalf("unexpected total: %v", payload["total"])
	}
}

type failingPipeline struct{}

func (f *failingPipeline) PredictVector(vector []float64) (int, []float64, error) {
	return 0, nil, errors.New("inference backend failure")
}

func (f *failingPipeline) Info() ml.PipelineInfo {
	return ml.PipelineInfo{ModelType: "failing"}
}

func TestHandlePredictInferenceError(t *testing.T) {
	mux := newTestMux(t)
	SetPipeline(&failingPipeline{})

	w := postPredict(t, mux, PredictRequest{Data: []ml.FeatureRow{sampleRow(0)}})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	payload := decodeBody(t, w)
	if payload["error"] != "inference backend failure" {
		t.Fatalf("unexpected error: %v", payload["error"])
	}
}
