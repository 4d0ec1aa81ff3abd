package ml

import (
	"errors"
	"math"
)

// Evaluate computes held-out regression metrics for a fitted model.
func Evaluate(model Model, features [][]float64, targets []float64) (Metrics, error) {
	if len(features) == 0 {
		return Metrics{}, errors.New("no evaluation samples")
	}
	if len(features) != len(targets) {
		return Metrics{}, errors.New("features and targets size mismatch")
	}

	var absSum, sqSum float64
	for i, vector := range features {
		value, err := model.Predict(vector)
		if err != nil {
			return Metrics{}, err
		}
		diff := value - targets[i]
		absSum += math.Abs(diff)
		sqSum += diff * diff
	}

	targetMean := mean(targets)
	var totalSS float64
	for _, y := range targets {
		d := y - targetMean
		totalSS += d * d
	}
	r2 := 0.0
	if totalSS > 0 {
		r2 = 1 - sqSum/totalSS
	}

	n := float64(len(targets))
	return Metrics{
		MAE:  absSum / n,
		RMSE: math.Sqrt(sqSum / n),
		R2:   r2,
	}, nil
}
