package ml

import (
	"sort"

	"cargoquant/freight"
)

// Continuous feature names match the request fields. One-hot flag
// names are derived from the cargo enum so the validator and the
// encoder cannot drift apart.
const (
	FeatureDistanceKM  = "distance_km"
	FeatureWeightKG    = "weight_kg"
	FeatureUrgencyDays = "urgency_days"

	cargoFeaturePrefix = "cargo_type_"
)

// CargoFeature returns the one-hot column name for a cargo type.
func CargoFeature(ct freight.CargoType) string {
	return cargoFeaturePrefix + string(ct)
}

// Encode expands a shipment into the flat feature map the model is
// fitted on: three continuous passthroughs plus exactly one cargo
// flag set to 1. Deterministic and side-effect free.
func Encode(s freight.Shipment) map[string]float64 {
	features := map[string]float64{
		FeatureDistanceKM:  s.DistanceKM,
		FeatureWeightKG:    s.WeightKG,
		FeatureUrgencyDays: s.UrgencyDays,
	}
	for _, ct := range freight.CargoTypes() {
		flag := 0.0
		if s.CargoType == ct {
			flag = 1.0
		}
		features[CargoFeature(ct)] = flag
	}
	return features
}

// FeatureNames returns the canonical training-time column order:
// continuous fields first, then the cargo flags alphabetically.
func FeatureNames() []string {
	names := []string{FeatureDistanceKM, FeatureWeightKG, FeatureUrgencyDays}
	flags := make([]string, 0, 3)
	for _, ct := range freight.CargoTypes() {
		flags = append(flags, CargoFeature(ct))
	}
	sort.Strings(flags)
	return append(names, flags...)
}
