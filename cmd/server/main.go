package main

import (
	"context"
	"flag"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"cargoquant/artifact"
	"cargoquant/config"
	"cargoquant/db"
	"cargoquant/events"
	qhttp "cargoquant/http"
	"cargoquant/logging"
	"cargoquant/ml"
	"cargoquant/monitoring"
	"cargoquant/pricing"
)

const heartbeatInterval = 30 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		stdlog.Fatalf("failed to load config %s: %v", *configPath, err)
	}

	log := logging.New(logging.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	defer log.Sync()

	if err := db.InitDB(cfg.Database.Path); err != nil {
		log.Fatal("failed to initialize database", zap.String("path", cfg.Database.Path), zap.Error(err))
	}
	defer db.CloseDB()

	if cfg.ArtifactEnabled() {
		fetchArtifact(cfg, log)
	}

	art, err := ml.LoadArtifact(cfg.Model.Path)
	if err != nil {
		log.Fatal("failed to load model artifact", zap.String("path", cfg.Model.Path), zap.Error(err))
	}
	log.Info("model artifact loaded",
		zap.String("path", cfg.Model.Path),
		zap.String("model_type", art.ModelType),
		zap.Int("samples", art.Samples),
		zap.Time("trained_at", art.TrainedAt))

	hub := monitoring.NewWebSocketHub(log)
	go hub.Start()
	defer hub.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runHeartbeat(ctx, hub, log)

	recorders := []pricing.Recorder{
		predictionStore(log),
		hubBroadcaster(hub, log),
	}

	var publisher events.Publisher
	if cfg.EventsEnabled() {
		publisher = events.NewKafkaPublisher(cfg.Events.Broker, cfg.Events.Topic, log)
		defer publisher.Close()
		recorders = append(recorders, eventPublisher(publisher))
		log.Info("quote events enabled", zap.String("broker", cfg.Events.Broker), zap.String("topic", cfg.Events.Topic))
	}

	engine, err := pricing.NewEngine(art, pricing.Config{
		CacheSize: cfg.Model.CacheSize,
		Logger:    log,
		Recorders: recorders,
	})
	if err != nil {
		log.Fatal("failed to build pricing engine", zap.Error(err))
	}

	qhttp.SetQuoteService(engine)
	qhttp.SetHub(hub)

	server := qhttp.NewServer(qhttp.ServerConfig{
		Port:            cfg.Http.Port,
		ReadTimeout:     cfg.ReadTimeout(),
		WriteTimeout:    cfg.WriteTimeout(),
		MaxRequestBytes: cfg.Http.MaxRequestBytes,
		AllowedOrigins:  cfg.Http.AllowedOrigins,
	}, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	if cfg.Model.Watch {
		go func() {
			err := ml.WatchArtifact(ctx, cfg.Model.Path, log, func() {
				if err := engine.Reload(cfg.Model.Path); err != nil {
					log.Warn("model reload failed, keeping current model",
						zap.String("path", cfg.Model.Path), zap.Error(err))
				}
			})
			if err != nil {
				log.Warn("artifact watcher stopped", zap.Error(err))
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	if err := server.Stop(); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	}
}

// fetchArtifact pulls the model artifact from the object store before startup.
// A fetch failure is not fatal when a local copy already exists.
func fetchArtifact(cfg *config.Config, log *zap.Logger) {
	store, err := artifact.New(artifact.Config{
		Endpoint:  cfg.Artifact.Endpoint,
		AccessKey: cfg.Artifact.AccessKey,
		SecretKey: cfg.Artifact.SecretKey,
		Region:    cfg.Artifact.Region,
		UseSSL:    cfg.Artifact.UseSSL,
		Bucket:    cfg.Artifact.Bucket,
	})
	if err != nil {
		log.Fatal("failed to configure artifact store", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := store.Fetch(ctx, cfg.Model.RemoteKey, cfg.Model.Path); err != nil {
		if _, statErr := os.Stat(cfg.Model.Path); statErr != nil {
			log.Fatal("failed to fetch model artifact and no local copy exists",
				zap.String("key", cfg.Model.RemoteKey), zap.Error(err))
		}
		log.Warn("failed to fetch model artifact, using local copy",
			zap.String("key", cfg.Model.RemoteKey), zap.Error(err))
		return
	}
	log.Info("model artifact fetched",
		zap.String("bucket", cfg.Artifact.Bucket), zap.String("key", cfg.Model.RemoteKey))
}

func runHeartbeat(ctx context.Context, hub *monitoring.WebSocketHub, log *zap.Logger) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := hub.SendHeartbeat(); err != nil {
				log.Warn("heartbeat broadcast failed", zap.Error(err))
			}
		}
	}
}

// predictionStore persists every served quote for the /api/predictions history.
func predictionStore(log *zap.Logger) pricing.Recorder {
	return pricing.RecorderFunc(func(ctx context.Context, q pricing.Quote) {
		row := db.PredictionRow{
			RequestID:      q.RequestID,
			DistanceKM:     q.Shipment.DistanceKM,
			WeightKG:       q.Shipment.WeightKG,
			CargoType:      string(q.Shipment.CargoType),
			UrgencyDays:    q.Shipment.UrgencyDays,
			PredictedPrice: q.Price,
			Cached:         q.Cached,
			LatencyMS:      float64(q.Latency) / float64(time.Millisecond),
			CreatedAt:      q.CreatedAt,
		}
		if err := db.SavePrediction(row); err != nil {
			log.Warn("failed to save prediction", zap.String("request_id", q.RequestID), zap.Error(err))
		}
	})
}

// hubBroadcaster pushes every served quote to connected WebSocket clients.
func hubBroadcaster(hub *monitoring.WebSocketHub, log *zap.Logger) pricing.Recorder {
	return pricing.RecorderFunc(func(ctx context.Context, q pricing.Quote) {
		event := monitoring.PredictionMessage{
			RequestID:      q.RequestID,
			DistanceKM:     q.Shipment.DistanceKM,
			WeightKG:       q.Shipment.WeightKG,
			CargoType:      string(q.Shipment.CargoType),
			UrgencyDays:    q.Shipment.UrgencyDays,
			PredictedPrice: q.Price,
			Cached:         q.Cached,
			Timestamp:      q.CreatedAt,
		}
		if err := hub.BroadcastPrediction(event); err != nil {
			log.Warn("failed to broadcast prediction", zap.String("request_id", q.RequestID), zap.Error(err))
		}
	})
}

// eventPublisher forwards quotes to Kafka off the request path. Publish
// failures are logged by the publisher itself.
func eventPublisher(pub events.Publisher) pricing.Recorder {
	return pricing.RecorderFunc(func(ctx context.Context, q pricing.Quote) {
		event := events.QuoteEvent{
			RequestID:      q.RequestID,
			DistanceKM:     q.Shipment.DistanceKM,
			WeightKG:       q.Shipment.WeightKG,
			CargoType:      string(q.Shipment.CargoType),
			UrgencyDays:    q.Shipment.UrgencyDays,
			PredictedPrice: q.Price,
			Cached:         q.Cached,
			CreatedAt:      q.CreatedAt,
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = pub.Publish(ctx, event.RequestID, event)
		}()
	})
}
