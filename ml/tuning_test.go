package ml

import (
	"context"
	"testing"
)

func searchData() (trainX [][]float64, trainY []float64, testX [][]float64, testY []float64) {
	for i := 0; i < 60; i++ {
		x := float64(i % 12)
		row := []float64{x}
		target := 7 * x
		if i%5 == 0 {
			testX = append(testX, row)
			testY = append(testY, target)
		} else {
			trainX = append(trainX, row)
			trainY = append(trainY, target)
		}
	}
	return trainX, trainY, testX, testY
}

func TestSearchSpaceCandidates(t *testing.T) {
	space := SearchSpace{Trees: []int{10, 20}, MaxDepths: []int{4}, MinLeafs: []int{1, 2}}
	candidates := space.Candidates(9)
	if len(candidates) != 4 {
		t.Fatalf("candidates = %d, want 4", len(candidates))
	}
	for _, cfg := range candidates {
		if cfg.Seed != 9 {
			t.Fatalf("candidate seed = %d, want 9", cfg.Seed)
		}
	}
	if candidates[0].Trees != 10 || candidates[3].Trees != 20 {
		t.Fatalf("candidates not in grid order: %+v", candidates)
	}
}

func TestGridSearchPicksLowestMAE(t *testing.T) {
	trainX, trainY, testX, testY := searchData()

	space := SearchSpace{Trees: []int{5, 20}, MaxDepths: []int{2, 8}, MinLeafs: []int{1}}
	result, err := GridSearch(context.Background(), trainX, trainY, testX, testY, space, 42, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Trials) != 4 {
		t.Fatalf("trials = %d, want 4", len(result.Trials))
	}
	for i := 1; i < len(result.Trials); i++ {
		if result.Trials[i-1].Metrics.MAE > result.Trials[i].Metrics.MAE {
			t.Fatalf("trials not ranked by ascending MAE: %v then %v",
				result.Trials[i-1].Metrics.MAE, result.Trials[i].Metrics.MAE)
		}
	}
	if result.Best.Metrics.MAE != result.Trials[0].Metrics.MAE {
		t.Fatal("best trial does not match first ranked trial")
	}
	// Depth 8 can carve the 12 distinct inputs; depth 2 cannot.
	if result.Best.Config.MaxDepth != 8 {
		t.Fatalf("best max depth = %d, want 8", result.Best.Config.MaxDepth)
	}
}

func TestGridSearchEmptySpace(t *testing.T) {
	trainX, trainY, testX, testY := searchData()
	if _, err := GridSearch(context.Background(), trainX, trainY, testX, testY, SearchSpace{}, 1, nil); err == nil {
		t.Fatal("expected error for empty search space")
	}
}

func TestGridSearchCancelled(t *testing.T) {
	trainX, trainY, testX, testY := searchData()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := GridSearch(ctx, trainX, trainY, testX, testY, DefaultSearchSpace(), 1, nil)
	if err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
