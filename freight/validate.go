package freight

import (
	"errors"
	"strconv"
	"strings"
)

type ErrorKind int

const (
	MissingField ErrorKind = iota
	InvalidFormat
	InvalidEnum
)

// ValidationError is a client-side input fault: retrying the same
// request can never succeed.
type ValidationError struct {
	Kind  ErrorKind
	Field string
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case MissingField:
		return "Missing required field: " + e.Field
	case InvalidEnum:
		return "Invalid " + e.Field + ". Must be one of: " + allowedList()
	default:
		return "Invalid input format: " + e.Field + " is not a number"
	}
}

// requiredFields is checked in this exact order; the first missing
// field is the one reported.
var requiredFields = []string{"distance_km", "weight_kg", "cargo_type", "urgency_days"}

// ValidateRequest turns a raw request body into a Shipment.
// Checks run in a fixed order: field presence, cargo_type membership,
// numeric coercion.
func ValidateRequest(raw map[string]any) (Shipment, error) {
	for _, field := range requiredFields {
		if _, ok := raw[field]; !ok {
			return Shipment{}, &ValidationError{Kind: MissingField, Field: field}
		}
	}

	cargo, ok := raw["cargo_type"].(string)
	if !ok || !CargoType(cargo).Valid() {
		return Shipment{}, &ValidationError{Kind: InvalidEnum, Field: "cargo_type"}
	}

	distance, err := toFloat(raw["distance_km"])
	if err != nil {
		return Shipment{}, &ValidationError{Kind: InvalidFormat, Field: "distance_km"}
	}
	weight, err := toFloat(raw["weight_kg"])
	if err != nil {
		return Shipment{}, &ValidationError{Kind: InvalidFormat, Field: "weight_kg"}
	}
	urgency, err := toFloat(raw["urgency_days"])
	if err != nil {
		return Shipment{}, &ValidationError{Kind: InvalidFormat, Field: "urgency_days"}
	}

	return Shipment{
		DistanceKM:  distance,
		WeightKG:    weight,
		CargoType:   CargoType(cargo),
		UrgencyDays: urgency,
	}, nil
}

var errNotANumber = errors.New("not a number")

// toFloat accepts JSON numbers and numeric strings; everything else
// (bool, null, arrays, objects) is a format fault.
func toFloat(v any) (float64, error) {
	switch value := v.(type) {
	case float64:
		return value, nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(value), 64)
	default:
		return 0, errNotANumber
	}
}

// allowedList keeps the bracketed, quoted spelling clients already
// match on.
func allowedList() string {
	parts := make([]string, len(cargoTypes))
	for i, ct := range cargoTypes {
		parts[i] = "'" + string(ct) + "'"
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
