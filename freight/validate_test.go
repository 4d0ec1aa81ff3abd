package freight

import (
	"errors"
	"testing"
)

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want Shipment
	}{
		{
			name: "json numbers",
			raw: map[string]any{
				"distance_km": 500.0, "weight_kg": 2000.0,
				"cargo_type": "fragile", "urgency_days": 5.0,
			},
			want: Shipment{DistanceKM: 500, WeightKG: 2000, CargoType: CargoFragile, UrgencyDays: 5},
		},
		{
			name: "numeric strings coerce",
			raw: map[string]any{
				"distance_km": "120.5", "weight_kg": " 800 ",
				"cargo_type": "general", "urgency_days": "3",
			},
			want: Shipment{DistanceKM: 120.5, WeightKG: 800, CargoType: CargoGeneral, UrgencyDays: 3},
		},
		{
			name: "negative values pass through unclamped",
			raw: map[string]any{
				"distance_km": -10.0, "weight_kg": 0.0,
				"cargo_type": "perishable", "urgency_days": -1.0,
			},
			want: Shipment{DistanceKM: -10, WeightKG: 0, CargoType: CargoPerishable, UrgencyDays: -1},
		},
		{
			name: "extra fields ignored",
			raw: map[string]any{
				"distance_km": 1.0, "weight_kg": 2.0,
				"cargo_type": "general", "urgency_days": 3.0,
				"customer_id": "abc",
			},
			want: Shipment{DistanceKM: 1, WeightKG: 2, CargoType: CargoGeneral, UrgencyDays: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateRequest(tt.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestValidateRequestErrors(t *testing.T) {
	valid := func() map[string]any {
		return map[string]any{
			"distance_km": 500.0, "weight_kg": 2000.0,
			"cargo_type": "fragile", "urgency_days": 5.0,
		}
	}

	tests := []struct {
		name string
		raw  map[string]any
		kind ErrorKind
		msg  string
	}{
		{
			name: "empty body reports first required field",
			raw:  map[string]any{},
			kind: MissingField,
			msg:  "Missing required field: distance_km",
		},
		{
			name: "missing weight",
			raw: map[string]any{
				"distance_km": 500.0, "cargo_type": "fragile", "urgency_days": 5.0,
			},
			kind: MissingField,
			msg:  "Missing required field: weight_kg",
		},
		{
			name: "missing urgency",
			raw: map[string]any{
				"distance_km": 500.0, "weight_kg": 2000.0, "cargo_type": "fragile",
			},
			kind: MissingField,
			msg:  "Missing required field: urgency_days",
		},
		{
			name: "unknown cargo type",
			raw:  withField(valid(), "cargo_type", "hazardous"),
			kind: InvalidEnum,
			msg:  "Invalid cargo_type. Must be one of: ['general', 'fragile', 'perishable']",
		},
		{
			name: "non-string cargo type is an enum fault",
			raw:  withField(valid(), "cargo_type", 5.0),
			kind: InvalidEnum,
			msg:  "Invalid cargo_type. Must be one of: ['general', 'fragile', 'perishable']",
		},
		{
			name: "non-numeric distance",
			raw:  withField(valid(), "distance_km", "far"),
			kind: InvalidFormat,
			msg:  "Invalid input format: distance_km is not a number",
		},
		{
			name: "null weight",
			raw:  withField(valid(), "weight_kg", nil),
			kind: InvalidFormat,
			msg:  "Invalid input format: weight_kg is not a number",
		},
		{
			name: "bool urgency",
			raw:  withField(valid(), "urgency_days", true),
			kind: InvalidFormat,
			msg:  "Invalid input format: urgency_days is not a number",
		},
		{
			name: "array distance",
			raw:  withField(valid(), "distance_km", []any{1.0}),
			kind: InvalidFormat,
			msg:  "Invalid input format: distance_km is not a number",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateRequest(tt.raw)
			if err == nil {
				t.Fatal("expected error")
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if verr.Kind != tt.kind {
				t.Fatalf("expected kind %d, got %d", tt.kind, verr.Kind)
			}
			if err.Error() != tt.msg {
				t.Fatalf("expected message %q, got %q", tt.msg, err.Error())
			}
		})
	}
}

// Missing-field order mirrors the required list, not map iteration.
func TestValidateRequestMissingOrder(t *testing.T) {
	raw := map[string]any{"urgency_days": 5.0}
	_, err := ValidateRequest(raw)
	if err == nil || err.Error() != "Missing required field: distance_km" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCargoTypeValid(t *testing.T) {
	for _, ct := range CargoTypes() {
		if !ct.Valid() {
			t.Errorf("%s should be valid", ct)
		}
	}
	if CargoType("bulk").Valid() {
		t.Error("bulk should not be valid")
	}
	if CargoType("").Valid() {
		t.Error("empty cargo type should not be valid")
	}
}

func withField(raw map[string]any, key string, value any) map[string]any {
	raw[key] = value
	return raw
}
