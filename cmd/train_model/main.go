package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"cargoquant/artifact"
	"cargoquant/dataset"
	"cargoquant/db"
	"cargoquant/freight"
	"cargoquant/ml"
)

func main() {
	samples := flag.Int("samples", 1000, "number of synthetic shipments")
	seed := flag.Int64("seed", 42, "random seed for data generation and training")
	trees := flag.Int("trees", 100, "number of trees in the forest")
	maxDepth := flag.Int("max_depth", 12, "max tree depth")
	minLeaf := flag.Int("min_leaf", 2, "min samples per leaf")
	testRatio := flag.Float64("test_ratio", 0.2, "held-out fraction for evaluation")
	modelPath := flag.String("model_path", "./models/model.json", "model artifact output path")
	dataPath := flag.String("data", "", "train from this CSV instead of generating data")
	outlierSigma := flag.Float64("outlier_sigma", 0, "drop CSV rows with prices beyond this many standard deviations (0 disables)")
	tune := flag.Bool("tune", false, "grid-search hyperparameters on the held-out split before training")
	csvPath := flag.String("csv", "", "also write the dataset to this CSV file")
	dbPath := flag.String("db", "", "also record shipments and the run in this SQLite database")
	publish := flag.Bool("publish", false, "upload the artifact to the object store (MINIO_* env vars)")
	flag.Parse()

	start := time.Now()

	records, err := loadRecords(*dataPath, *samples, *seed, *outlierSigma)
	if err != nil {
		log.Fatalf("failed to load training data: %v", err)
	}

	if *csvPath != "" {
		if err := dataset.WriteCSV(*csvPath, records); err != nil {
			log.Fatalf("failed to write dataset CSV: %v", err)
		}
	}

	if *dbPath != "" {
		if err := db.InitDB(*dbPath); err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer db.CloseDB()
		if err := db.SaveShipments(records); err != nil {
			log.Fatalf("failed to save shipments: %v", err)
		}
	}

	features, targets, err := dataset.Matrix(records)
	if err != nil {
		log.Fatalf("failed to build training matrix: %v", err)
	}

	trainX, trainY, testX, testY := splitDataset(features, targets, *testRatio, *seed)

	cfg := ml.ForestConfig{
		Trees:    *trees,
		MaxDepth: *maxDepth,
		MinLeaf:  *minLeaf,
		Seed:     *seed,
	}
	if *tune {
		result, err := ml.GridSearch(context.Background(), trainX, trainY, testX, testY, ml.DefaultSearchSpace(), *seed, nil)
		if err != nil {
			log.Fatalf("hyperparameter search failed: %v", err)
		}
		for i, trial := range result.Trials {
			if i == 3 {
				break
			}
			log.Printf("tune #%d: trees=%d depth=%d min_leaf=%d mae=%.2f rmse=%.2f",
				i+1, trial.Config.Trees, trial.Config.MaxDepth, trial.Config.MinLeaf,
				trial.Metrics.MAE, trial.Metrics.RMSE)
		}
		cfg = result.Best.Config
	}

	forest, err := ml.TrainForest(trainX, trainY, cfg)
	if err != nil {
		log.Fatalf("failed to train model: %v", err)
	}

	metrics, err := ml.Evaluate(forest, testX, testY)
	if err != nil {
		log.Fatalf("failed to evaluate model: %v", err)
	}
	log.Printf("mae=%.2f rmse=%.2f r2=%.4f", metrics.MAE, metrics.RMSE, metrics.R2)

	art := &ml.Artifact{
		ModelType:    ml.ModelTypeRegressionForest,
		FeatureNames: ml.FeatureNames(),
		TrainedAt:    time.Now().UTC(),
		Samples:      len(records),
		Metrics:      metrics,
		Forest:       forest,
	}

	if err := os.MkdirAll(filepath.Dir(*modelPath), 0o755); err != nil {
		log.Fatalf("failed to create model dir: %v", err)
	}
	if err := art.Save(*modelPath); err != nil {
		log.Fatalf("failed to save model: %v", err)
	}

	if *dbPath != "" {
		run := db.TrainingRun{
			ModelPath:  *modelPath,
			Samples:    len(records),
			Trees:      cfg.Trees,
			MaxDepth:   cfg.MaxDepth,
			MAE:        metrics.MAE,
			RMSE:       metrics.RMSE,
			R2:         metrics.R2,
			DurationMS: time.Since(start).Milliseconds(),
			TrainedAt:  art.TrainedAt,
		}
		if err := db.SaveTrainingRun(run); err != nil {
			log.Fatalf("failed to record training run: %v", err)
		}
	}

	if *publish {
		if err := publishArtifact(*modelPath); err != nil {
			log.Fatalf("failed to publish artifact: %v", err)
		}
	}

	p := message.NewPrinter(language.English)
	p.Printf("model saved to %s (%d shipments, %d trees, %v)\n",
		*modelPath, len(records), cfg.Trees, time.Since(start).Round(time.Millisecond))
}

// loadRecords returns cleaned CSV rows, or a synthetic dataset when no
// CSV is given. Generated data is already well-formed and skips cleaning.
func loadRecords(dataPath string, samples int, seed int64, outlierSigma float64) ([]freight.Record, error) {
	if dataPath == "" {
		return dataset.Generate(samples, seed), nil
	}

	records, err := dataset.ReadCSV(dataPath)
	if err != nil {
		return nil, err
	}

	cleaner := dataset.NewCleaner()
	cleaned, issues := cleaner.Clean(records)
	for _, issue := range issues {
		log.Printf("dropped row %d: %s: %s", issue.Row, issue.Rule, issue.Message)
	}
	if outlierSigma > 0 {
		before := len(cleaned)
		cleaned = dataset.FilterOutliers(cleaned, outlierSigma)
		if dropped := before - len(cleaned); dropped > 0 {
			log.Printf("dropped %d price outliers beyond %.1f sigma", dropped, outlierSigma)
		}
	}
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("no usable rows in %s", dataPath)
	}
	return cleaned, nil
}

// splitDataset shuffles with the given seed and holds out testRatio of the
// rows for evaluation.
func splitDataset(features [][]float64, targets []float64, testRatio float64, seed int64) (trainX [][]float64, trainY []float64, testX [][]float64, testY []float64) {
	if testRatio <= 0 || testRatio >= 1 {
		testRatio = 0.2
	}

	rng := rand.New(rand.NewSource(seed))
	order := rng.Perm(len(features))

	split := int(float64(len(features)) * (1 - testRatio))
	for i, idx := range order {
		if i < split {
			trainX = append(trainX, features[idx])
			trainY = append(trainY, targets[idx])
		} else {
			testX = append(testX, features[idx])
			testY = append(testY, targets[idx])
		}
	}
	return trainX, trainY, testX, testY
}

// publishArtifact uploads the saved model using MINIO_* environment variables.
func publishArtifact(modelPath string) error {
	useSSL, _ := strconv.ParseBool(os.Getenv("MINIO_USE_SSL"))
	store, err := artifact.New(artifact.Config{
		Endpoint:  os.Getenv("MINIO_ENDPOINT"),
		AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		SecretKey: os.Getenv("MINIO_SECRET_KEY"),
		Region:    os.Getenv("MINIO_REGION"),
		UseSSL:    useSSL,
		Bucket:    os.Getenv("MINIO_BUCKET"),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := store.EnsureBucket(ctx, os.Getenv("MINIO_REGION")); err != nil {
		return err
	}
	return store.Publish(ctx, filepath.Base(modelPath), modelPath)
}
