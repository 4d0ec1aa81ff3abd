package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

const ModelTypeRegressionForest = "regression_forest"

// Metrics are held-out evaluation results recorded at training time.
type Metrics struct {
	MAE  float64 `json:"mae"`
	RMSE float64 `json:"rmse"`
	R2   float64 `json:"r2"`
}

// Artifact is the persisted model: the forest plus the exact feature
// order it was fitted with. The feature list rides with the model so
// serving can never misorder inputs.
type Artifact struct {
	ModelType    string    `json:"model_type"`
	FeatureNames []string  `json:"feature_names"`
	TrainedAt    time.Time `json:"trained_at"`
	Samples      int       `json:"samples"`
	Metrics      Metrics   `json:"metrics"`
	Forest       *Forest   `json:"forest"`
}

// Schema returns a copy of the fitted feature order.
func (a *Artifact) Schema() Schema {
	return Schema(append([]string(nil), a.FeatureNames...))
}

func (a *Artifact) Save(path string) error {
	if err := a.validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

// LoadArtifact reads and validates a model artifact. Serving treats
// any failure here as fatal at startup.
func LoadArtifact(path string) (*Artifact, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	var artifact Artifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return nil, fmt.Errorf("parse model artifact: %w", err)
	}
	if err := artifact.validate(); err != nil {
		return nil, err
	}
	return &artifact, nil
}

func (a *Artifact) validate() error {
	if a.ModelType != ModelTypeRegressionForest {
		return fmt.Errorf("unsupported model type %q", a.ModelType)
	}
	if len(a.FeatureNames) == 0 {
		return errors.New("model artifact has no feature names")
	}
	if a.Forest == nil || len(a.Forest.Trees) == 0 {
		return errors.New("model artifact has no trees")
	}
	for ti := range a.Forest.Trees {
		for _, node := range a.Forest.Trees[ti].Nodes {
			if node.IsLeaf {
				continue
			}
			if node.FeatureIdx < 0 || node.FeatureIdx >= len(a.FeatureNames) {
				return fmt.Errorf("tree %d references feature index %d outside schema", ti, node.FeatureIdx)
			}
		}
	}
	return nil
}
