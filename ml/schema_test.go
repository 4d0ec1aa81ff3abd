package ml

import (
	"errors"
	"reflect"
	"testing"

	"cargoquant/freight"
)

// The aligner must follow the model's order even when it differs from
// the canonical training order.
func TestSchemaAlignShuffledOrder(t *testing.T) {
	schema := Schema{
		"distance_km", "weight_kg", "urgency_days",
		"cargo_type_perishable", "cargo_type_fragile", "cargo_type_general",
	}
	features := Encode(freight.Shipment{
		DistanceKM: 500, WeightKG: 2000, CargoType: freight.CargoFragile, UrgencyDays: 5,
	})

	vector, err := schema.Align(features)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{500, 2000, 5, 0, 1, 0}
	if !reflect.DeepEqual(vector, want) {
		t.Fatalf("aligned vector %v, want %v", vector, want)
	}
}

func TestSchemaAlignMissingFeature(t *testing.T) {
	schema := Schema{"distance_km", "handling_class"}
	features := map[string]float64{"distance_km": 10}

	_, err := schema.Align(features)
	if err == nil {
		t.Fatal("expected error")
	}
	var aerr *AlignmentError
	if !errors.As(err, &aerr) {
		t.Fatalf("expected *AlignmentError, got %T", err)
	}
	if aerr.Feature != "handling_class" {
		t.Fatalf("expected missing feature handling_class, got %s", aerr.Feature)
	}
}

func TestSchemaAlignDropsExtras(t *testing.T) {
	schema := Schema{"weight_kg"}
	features := map[string]float64{"weight_kg": 7, "distance_km": 100, "noise": 3}

	vector, err := schema.Align(features)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vector) != 1 || vector[0] != 7 {
		t.Fatalf("unexpected vector: %v", vector)
	}
}

func TestSchemaAlignEmpty(t *testing.T) {
	vector, err := Schema{}.Align(map[string]float64{"a": 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vector) != 0 {
		t.Fatalf("expected empty vector, got %v", vector)
	}
}
