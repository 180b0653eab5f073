package ml

import "errors"

// StandardScaler is the preprocessing stage of the pipeline artifact:
// per-column mean/scale computed at fit time. A scale of zero marks a
// constant column and passes the centered value through unchanged.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

func (s *StandardScaler) Validate(featureCount int) error {
	if len(s.Mean) != featureCount || len(s.Scale) != featureCount {
		return errors.New("scaler shape does not match feature count")
	}
	return nil
}

// Transform standardizes a single vector. The input is not modified.
func (s *StandardScaler) Transform(vector []float64) ([]float64, error) {
	if len(vector) != len(s.Mean) {
		return nil, errors.New("vector length does not match scaler")
	}
	scaled := make([]float64, len(vector))
	for i, value := range vector {
		scaled[i] = value - s.Mean[i]
		if s.Scale[i] != 0 {
			scaled[i] /= s.Scale[i]
		}
	}
	return scaled, nil
}
