package ml

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
)

// SearchSpace enumerates candidate forest hyperparameters. The grid is
// the cross product of the three axes.
type SearchSpace struct {
	Trees     []int
	MaxDepths []int
	MinLeafs  []int
}

// DefaultSearchSpace is small enough to sweep in seconds on the
// synthetic dataset while still separating under- and over-fitting.
func DefaultSearchSpace() SearchSpace {
	return SearchSpace{
		Trees:     []int{50, 100, 200},
		MaxDepths: []int{6, 9, 12},
		MinLeafs:  []int{2, 5},
	}
}

// Candidates expands the grid in a stable order, all sharing the seed.
func (s SearchSpace) Candidates(seed int64) []ForestConfig {
	var configs []ForestConfig
	for _, trees := range s.Trees {
		for _, depth := range s.MaxDepths {
			for _, leaf := range s.MinLeafs {
				configs = append(configs, ForestConfig{
					Trees:    trees,
					MaxDepth: depth,
					MinLeaf:  leaf,
					Seed:     seed,
				})
			}
		}
	}
	return configs
}

// Trial is one trained and scored candidate.
type Trial struct {
	Config   ForestConfig  `json:"config"`
	Metrics  Metrics       `json:"metrics"`
	Duration time.Duration `json:"duration"`
}

// SearchResult holds every trial, ranked best first.
type SearchResult struct {
	Best   Trial   `json:"best"`
	Trials []Trial `json:"trials"`
}

// GridSearch trains one forest per candidate on the train split and
// ranks candidates by held-out MAE, lower first, RMSE breaking ties.
// Candidates that fail to train are skipped.
func GridSearch(ctx context.Context, trainX [][]float64, trainY []float64, testX [][]float64, testY []float64, space SearchSpace, seed int64, log *zap.Logger) (*SearchResult, error) {
	if log == nil {
		log = zap.NewNop()
	}

	candidates := space.Candidates(seed)
	if len(candidates) == 0 {
		return nil, errors.New("empty search space")
	}
	log.Info("hyperparameter search started", zap.Int("candidates", len(candidates)))

	var trials []Trial
	for i, cfg := range candidates {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		start := time.Now()
		forest, err := TrainForest(trainX, trainY, cfg)
		if err != nil {
			log.Warn("candidate failed to train",
				zap.Int("trees", cfg.Trees), zap.Int("max_depth", cfg.MaxDepth),
				zap.Int("min_leaf", cfg.MinLeaf), zap.Error(err))
			continue
		}
		metrics, err := Evaluate(forest, testX, testY)
		if err != nil {
			log.Warn("candidate failed to evaluate",
				zap.Int("trees", cfg.Trees), zap.Int("max_depth", cfg.MaxDepth),
				zap.Int("min_leaf", cfg.MinLeaf), zap.Error(err))
			continue
		}

		trials = append(trials, Trial{Config: cfg, Metrics: metrics, Duration: time.Since(start)})
		log.Debug("candidate scored",
			zap.Int("candidate", i+1),
			zap.Int("trees", cfg.Trees), zap.Int("max_depth", cfg.MaxDepth),
			zap.Int("min_leaf", cfg.MinLeaf),
			zap.Float64("mae", metrics.MAE), zap.Float64("rmse", metrics.RMSE))
	}

	if len(trials) == 0 {
		return nil, errors.New("no candidate trained successfully")
	}

	sort.Slice(trials, func(i, j int) bool {
		if trials[i].Metrics.MAE != trials[j].Metrics.MAE {
			return trials[i].Metrics.MAE < trials[j].Metrics.MAE
		}
		return trials[i].Metrics.RMSE < trials[j].Metrics.RMSE
	})

	result := &SearchResult{Best: trials[0], Trials: trials}
	log.Info("hyperparameter search completed",
		zap.Int("trials", len(trials)),
		zap.Int("best_trees", result.Best.Config.Trees),
		zap.Int("best_max_depth", result.Best.Config.MaxDepth),
		zap.Int("best_min_leaf", result.Best.Config.MinLeaf),
		zap.Float64("best_mae", result.Best.Metrics.MAE))
	return result, nil
}
