package ml

import "fmt"

// PositiveClass is the label meaning "confirmed exoplanet".
// Label 0 means "false positive".
const PositiveClass = 1

// RequiredFeatures is the exact column layout the pipeline was fit
// against: four KOI false-positive flags followed by twelve
// astrophysical measurements. Input rows may list features in any
// order, but vectors handed to the model must follow this order.
var RequiredFeatures = []string{
	"koi_fpflag_nt",
	"koi_fpflag_ss",
	"koi_fpflag_co",
	"koi_fpflag_ec",
	"koi_period",
	"koi_impact",
	"koi_duration",
	"koi_depth",
	"koi_prad",
	"koi_teq",
	"koi_insol",
	"koi_model_snr",
	"koi_steff",
	"koi_slogg",
	"koi_srad",
	"koi_kepmag",
}

// FeatureRow is one observation keyed by feature name.
type FeatureRow map[string]float64

// MissingFeatureError reports a row that lacks one of the required
// features. Row is 1-based to match response indexing.
type MissingFeatureError struct {
	Row     int
	Feature string
}

func (e *MissingFeatureError) Error() string {
	return fmt.Sprintf("row %d is missing required feature %q", e.Row, e.Feature)
}

// VectorizeRow selects the required features of a single row in
// canonical order. row is the 1-based position used for error reporting.
func VectorizeRow(features FeatureRow, row int) ([]float64, error) {
	vector := make([]float64, len(RequiredFeatures))
	for i, name := range RequiredFeatures {
		value, ok := features[name]
		if !ok {
			return nil, &MissingFeatureError{Row: row, Feature: name}
		}
		vector[i] = value
	}
	return vector, nil
}

// VectorizeRows vectorizes a batch, failing on the first incomplete row.
func VectorizeRows(rows []FeatureRow) ([][]float64, error) {
	vectors := make([][]float64, 0, len(rows))
	for i, row := range rows {
		vector, err := VectorizeRow(row, i+1)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, vector)
	}
	return vectors, nil
}
