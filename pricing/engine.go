// Package pricing runs the shipment quote pipeline: validate the raw
// request, one-hot encode it, align the features to the model schema,
// and predict a price.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"cargoquant/freight"
	"cargoquant/ml"
	"cargoquant/monitoring"
)

const defaultCacheSize = 1024

// Quote is one priced shipment.
type Quote struct {
	RequestID string           `json:"request_id"`
	Shipment  freight.Shipment `json:"shipment"`
	Price     float64          `json:"predicted_price"`
	Cached    bool             `json:"cached"`
	Latency   time.Duration    `json:"-"`
	CreatedAt time.Time        `json:"created_at"`
}

// ModelInfo describes the currently loaded model to callers.
type ModelInfo struct {
	ModelType    string     `json:"model_type"`
	FeatureNames []string   `json:"feature_names"`
	TrainedAt    time.Time  `json:"trained_at"`
	Samples      int        `json:"samples"`
	Trees        int        `json:"trees"`
	Metrics      ml.Metrics `json:"metrics"`
}

// Config configures an Engine.
type Config struct {
	CacheSize int
	Logger    *zap.Logger
	Recorders []Recorder
}

// bundle holds everything derived from one artifact, including the
// quote cache scoped to it. Swapped atomically on reload, so every
// request sees a consistent model, schema, and cache triple: a price
// computed against one model can only ever enter that model's cache.
type bundle struct {
	model  ml.Model
	schema ml.Schema
	cache  *lru.Cache[string, float64]
	info   ModelInfo
}

// Engine prices shipments against the loaded model artifact.
type Engine struct {
	bundle    atomic.Pointer[bundle]
	cacheSize int
	log       *zap.Logger
	recorders []Recorder
}

// NewEngine creates an engine serving the given artifact.
func NewEngine(artifact *ml.Artifact, cfg Config) (*Engine, error) {
	if artifact == nil {
		return nil, errors.New("pricing: artifact is required")
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	e := &Engine{
		cacheSize: cfg.CacheSize,
		log:       cfg.Logger,
		recorders: cfg.Recorders,
	}
	b, err := newBundle(artifact, cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	e.bundle.Store(b)
	return e, nil
}

func newBundle(artifact *ml.Artifact, cacheSize int) (*bundle, error) {
	cache, err := lru.New[string, float64](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("pricing: create quote cache: %w", err)
	}
	return &bundle{
		model:  artifact.Forest,
		schema: artifact.Schema(),
		cache:  cache,
		info: ModelInfo{
			ModelType:    artifact.ModelType,
			FeatureNames: artifact.Schema(),
			TrainedAt:    artifact.TrainedAt,
			Samples:      artifact.Samples,
			Trees:        len(artifact.Forest.Trees),
			Metrics:      artifact.Metrics,
		},
	}, nil
}

// Quote prices one raw request. Client faults come back wrapped in a
// StageError around freight.ValidationError; anything else wrapped by
// StageError is an internal fault.
func (e *Engine) Quote(ctx context.Context, raw map[string]any) (Quote, error) {
	start := time.Now()

	shipment, err := freight.ValidateRequest(raw)
	if err != nil {
		monitoring.RecordPipelineFailure(string(StageValidate))
		return Quote{}, &StageError{Stage: StageValidate, Err: err}
	}

	quote := Quote{
		RequestID: uuid.NewString(),
		Shipment:  shipment,
		CreatedAt: time.Now().UTC(),
	}

	// One bundle per request: cache lookups and writes below all go
	// through the bundle loaded here.
	b := e.bundle.Load()

	key := cacheKey(shipment)
	if price, ok := b.cache.Get(key); ok {
		quote.Price = price
		quote.Cached = true
		quote.Latency = time.Since(start)
		e.observe(quote)
		e.notify(ctx, quote)
		return quote, nil
	}

	features := ml.Encode(shipment)

	vector, err := b.schema.Align(features)
	if err != nil {
		monitoring.RecordPipelineFailure(string(StageAlign))
		return Quote{}, &StageError{Stage: StageAlign, Err: err}
	}

	price, err := e.predict(b.model, vector)
	if err != nil {
		monitoring.RecordPipelineFailure(string(StagePredict))
		return Quote{}, &StageError{Stage: StagePredict, Err: err}
	}

	quote.Price = roundPrice(price)
	quote.Latency = time.Since(start)
	b.cache.Add(key, quote.Price)
	e.observe(quote)
	e.notify(ctx, quote)
	return quote, nil
}

// predict shields the pipeline from the model: panics and non-finite
// outputs surface as PredictionError instead of taking the request
// down.
func (e *Engine) predict(model ml.Model, vector []float64) (price float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PredictionError{Reason: fmt.Sprintf("model panic: %v", r)}
		}
	}()

	price, err = model.Predict(vector)
	if err != nil {
		return 0, &PredictionError{Reason: "model evaluation", Err: err}
	}
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, &PredictionError{Reason: fmt.Sprintf("model returned non-finite value %v", price)}
	}
	return price, nil
}

// Reload swaps in the artifact at path. In-flight requests keep the
// bundle they started with; a price they finish computing lands in
// that retired bundle's cache, never in the new model's. The new
// bundle starts with an empty cache.
func (e *Engine) Reload(path string) error {
	artifact, err := ml.LoadArtifact(path)
	if err != nil {
		return err
	}

	b, err := newBundle(artifact, e.cacheSize)
	if err != nil {
		return err
	}
	e.bundle.Store(b)
	monitoring.RecordModelReload()
	e.log.Info("model reloaded",
		zap.String("path", path),
		zap.Int("features", len(artifact.FeatureNames)),
		zap.Int("trees", len(artifact.Forest.Trees)))
	return nil
}

// Info describes the currently loaded model.
func (e *Engine) Info() ModelInfo {
	return e.bundle.Load().info
}

func (e *Engine) observe(q Quote) {
	result := "computed"
	if q.Cached {
		result = "cached"
		monitoring.RecordCacheHit()
	}
	monitoring.RecordPrediction(result)
	monitoring.RecordPredictionLatency(float64(q.Latency) / float64(time.Millisecond))

	e.log.Debug("quote served",
		zap.String("request_id", q.RequestID),
		zap.Float64("price", q.Price),
		zap.Bool("cached", q.Cached),
		zap.Duration("latency", q.Latency))
}

// notify runs the recorders. A recorder must never fail the request,
// so panics are contained here.
func (e *Engine) notify(ctx context.Context, q Quote) {
	for _, r := range e.recorders {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					e.log.Warn("quote recorder panic", zap.Any("panic", rec))
				}
			}()
			r.Record(ctx, q)
		}()
	}
}

// cacheKey is exact on the cleaned inputs. The model is deterministic,
// so equal inputs always price the same.
func cacheKey(s freight.Shipment) string {
	var b strings.Builder
	b.WriteString(strconv.FormatFloat(s.DistanceKM, 'g', -1, 64))
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(s.WeightKG, 'g', -1, 64))
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(s.UrgencyDays, 'g', -1, 64))
	b.WriteByte('|')
	b.WriteString(string(s.CargoType))
	return b.String()
}

// roundPrice keeps two decimals, half away from zero.
func roundPrice(v float64) float64 {
	return math.Round(v*100) / 100
}
