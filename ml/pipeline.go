package ml

import (
	"errors"
	"fmt"
)

// Predictor is what the HTTP layer sees: a fitted model answering one
// vector at a time. The concrete Pipeline is read-only after load, so
// concurrent calls need no locking.
type Predictor interface {
	PredictVector(vector []float64) (label int, proba []float64, err error)
	Info() PipelineInfo
}

// PipelineInfo is artifact metadata exposed on the model info endpoint.
type PipelineInfo struct {
	ModelType    string   `json:"model_type"`
	FeatureNames []string `json:"feature_names"`
	Classes      []int    `json:"classes"`
	TreeCount    int      `json:"tree_count"`
}

// Pipeline is the deserialized model artifact: the feature contract,
// the class list, an optional scaler stage and the forest itself.
type Pipeline struct {
	ModelType    string          `json:"model_type"`
	FeatureNames []string        `json:"feature_names"`
	Classes      []int           `json:"classes"`
	Scaler       *StandardScaler `json:"scaler,omitempty"`
	Forest       *RandomForest   `json:"forest"`
}

func (p *Pipeline) Validate() error {
	if len(p.FeatureNames) != len(RequiredFeatures) {
		return fmt.Errorf("artifact expects %d features, service requires %d",
			len(p.FeatureNames), len(RequiredFeatures))
	}
	for i, name := range RequiredFeatures {
		if p.FeatureNames[i] != name {
			return fmt.Errorf("artifact feature %d is %q, expected %q", i, p.FeatureNames[i], name)
		}
	}
	if len(p.Classes) == 0 {
		return errors.New("artifact has no classes")
	}
	if p.Scaler != nil {
		if err := p.Scaler.Validate(len(p.FeatureNames)); err != nil {
			return err
		}
	}
	if p.Forest == nil {
		return errors.New("artifact has no forest")
	}
	return p.Forest.Validate(len(p.FeatureNames), len(p.Classes))
}

// PredictVector runs the scaler stage (when present) and the forest on
// one canonical-order vector. Returns the discrete label and the class
// distribution in class-list order.
func (p *Pipeline) PredictVector(vector []float64) (int, []float64, error) {
	if len(vector) != len(p.FeatureNames) {
		return 0, nil, fmt.Errorf("vector has %d values, model expects %d",
			len(vector), len(p.FeatureNames))
	}

	input := vector
	if p.Scaler != nil {
		scaled, err := p.Scaler.Transform(vector)
		if err != nil {
			return 0, nil, err
		}
		input = scaled
	}

	proba, err := p.Forest.PredictProba(input, len(p.Classes))
	if err != nil {
		return 0, nil, err
	}
	return p.Classes[ArgMax(proba)], proba, nil
}

func (p *Pipeline) Info() PipelineInfo {
	return PipelineInfo{
		ModelType:    p.ModelType,
		FeatureNames: append([]string(nil), p.FeatureNames...),
		Classes:      append([]int(nil), p.Classes...),
		TreeCount:    len(p.Forest.Trees),
	}
}
