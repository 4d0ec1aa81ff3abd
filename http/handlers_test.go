package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"cargoquant/db"
	"cargoquant/ml"
	"cargoquant/pricing"
)

func TestMain(m *testing.M) {
	// Setup
	dbPath := "./test.db"
	db.InitDB(dbPath)

	code := m.Run()

	// Teardown
	db.CloseDB()
	os.Remove(dbPath)
	os.Exit(code)
}

func TestHealthHandler(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/health", nil)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(handleHealth)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	expected := `{"status":"ok"}`
	if rr.Body.String() != expected+"\n" && rr.Body.String() != expected {
		t.Errorf("handler returned unexpected body: got %v want %v", rr.Body.String(), expected)
	}
}

func TestModelInfoHandler(t *testing.T) {
	mux := http.NewServeMux()
	RegisterHandlers(mux)
	SetQuoteService(&fakeQuoteService{info: pricing.ModelInfo{
		ModelType:    ml.ModelTypeRegressionForest,
		FeatureNames: ml.FeatureNames(),
		Samples:      1000,
		Trees:        100,
	}})
	defer SetQuoteService(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/model", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var info pricing.ModelInfo
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if info.ModelType != ml.ModelTypeRegressionForest {
		t.Errorf("model_type = %q", info.ModelType)
	}
	if info.Samples != 1000 || info.Trees != 100 {
		t.Errorf("info = %+v", info)
	}
}

func TestModelInfoHandlerServiceMissing(t *testing.T) {
	mux := http.NewServeMux()
	RegisterHandlers(mux)
	SetQuoteService(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/model", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestRecentPredictionsHandler(t *testing.T) {
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"req-a", "req-b", "req-c"} {
		err := db.SavePrediction(db.PredictionRow{
			RequestID:      id,
			DistanceKM:     100 * float64(i+1),
			WeightKG:       500,
			CargoType:      "general",
			UrgencyDays:    10,
			PredictedPrice: 200 + float64(i),
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("seed prediction: %v", err)
		}
	}

	mux := http.NewServeMux()
	RegisterHandlers(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/predictions?limit=2", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var payload struct {
		Data  []db.PredictionRow `json:"data"`
		Count int                `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload.Count != 2 || len(payload.Data) != 2 {
		t.Fatalf("count = %d, data = %d rows", payload.Count, len(payload.Data))
	}
	// Newest first.
	if payload.Data[0].RequestID != "req-c" || payload.Data[1].RequestID != "req-b" {
		t.Errorf("rows out of order: %s, %s", payload.Data[0].RequestID, payload.Data[1].RequestID)
	}
}

func TestEndpointLabel(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/predict", "/predict"},
		{"/api/health", "/api/health"},
		{"/api/predictions", "/api/predictions"},
		{"/api/ws/predictions", "/api/ws/predictions"},
		{"/metrics", "/metrics"},
		{"/favicon.ico", "other"},
		{"/predict/extra", "other"},
	}
	for _, tt := range tests {
		if got := endpointLabel(tt.path); got != tt.want {
			t.Errorf("endpointLabel(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
