package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"cargoquant/db"
	"cargoquant/freight"
	"cargoquant/monitoring"
	"cargoquant/pricing"
)

// QuoteService prices raw prediction requests. The pricing engine
// implements it; tests swap in fakes.
type QuoteService interface {
	Quote(ctx context.Context, raw map[string]any) (pricing.Quote, error)
	Info() pricing.ModelInfo
}

var (
	quoteService QuoteService
	wsHub        *monitoring.WebSocketHub
	logger       = zap.NewNop()
)

// SetQuoteService 注入预测服务
func SetQuoteService(s QuoteService) {
	quoteService = s
}

// SetHub 注入WebSocket中心
func SetHub(h *monitoring.WebSocketHub) {
	wsHub = h
}

// SetLogger 注入日志器
func SetLogger(log *zap.Logger) {
	if log != nil {
		logger = log
	}
}

func RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("POST /predict", handlePredict)
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/model", handleModelInfo)
	mux.HandleFunc("GET /api/predictions", handleRecentPredictions)
	mux.HandleFunc("GET /api/ws/predictions", handlePredictionsWS)
	mux.Handle("GET /metrics", monitoring.MetricsHandler())
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func handlePredict(w http.ResponseWriter, r *http.Request) {
	if quoteService == nil {
		respondDetail(w, http.StatusServiceUnavailable, "model not loaded")
		return
	}

	dec := json.NewDecoder(r.Body)
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil || raw == nil {
		respondDetail(w, http.StatusUnprocessableEntity, "Invalid input format: request body must be a JSON object")
		return
	}
	// Exactly one JSON object: trailing content is malformed input.
	if _, err := dec.Token(); err != io.EOF {
		respondDetail(w, http.StatusUnprocessableEntity, "Invalid input format: request body must be a JSON object")
		return
	}

	quote, err := quoteService.Quote(r.Context(), raw)
	if err != nil {
		status, detail := quoteErrorResponse(err)
		if status >= http.StatusInternalServerError {
			logger.Error("quote failed",
				zap.String("request_id", GetRequestID(r.Context())),
				zap.String("stage", failedStage(err)),
				zap.Error(err))
		}
		respondDetail(w, status, detail)
		return
	}

	respondJSON(w, map[string]float64{"predicted_price": quote.Price})
}

// quoteErrorResponse maps pipeline failures onto the public contract:
// client faults surface verbatim with 422, everything else becomes an
// opaque 500.
func quoteErrorResponse(err error) (int, string) {
	var verr *freight.ValidationError
	if errors.As(err, &verr) {
		return http.StatusUnprocessableEntity, verr.Error()
	}
	return http.StatusInternalServerError, "internal error"
}

func failedStage(err error) string {
	var serr *pricing.StageError
	if errors.As(err, &serr) {
		return string(serr.Stage)
	}
	return "unknown"
}

func handleModelInfo(w http.ResponseWriter, r *http.Request) {
	if quoteService == nil {
		respondDetail(w, http.StatusServiceUnavailable, "model not loaded")
		return
	}
	respondJSON(w, quoteService.Info())
}

func handleRecentPredictions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 1000 {
			limit = l
		}
	}

	rows, err := db.RecentPredictions(limit)
	if err != nil {
		logger.Error("query recent predictions", zap.Error(err))
		respondDetail(w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, map[string]interface{}{
		"data":  rows,
		"count": len(rows),
	})
}

func handlePredictionsWS(w http.ResponseWriter, r *http.Request) {
	if wsHub == nil {
		respondDetail(w, http.StatusServiceUnavailable, "prediction feed not enabled")
		return
	}
	wsHub.HandleWebSocket(w, r)
}

// respondJSON 统一JSON响应
func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warn("failed to encode response", zap.Error(err))
	}
}

// respondDetail 统一错误响应,负载只有一个detail字段
func respondDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"detail": detail}); err != nil {
		logger.Warn("failed to encode error response", zap.Error(err))
	}
}
