package ml

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadPipeline deserializes a pipeline artifact from disk. Callers
// decide whether a failure is fatal; the server treats it as a
// degraded state, not a crash.
func LoadPipeline(path string) (*Pipeline, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}

	var pipeline Pipeline
	if err := json.Unmarshal(payload, &pipeline); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}

	switch pipeline.ModelType {
	case "random_forest":
	default:
		return nil, fmt.Errorf("unsupported model type %q", pipeline.ModelType)
	}

	if err := pipeline.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model artifact: %w", err)
	}
	return &pipeline, nil
}
