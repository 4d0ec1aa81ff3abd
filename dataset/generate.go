package dataset

import (
	"math/rand"

	"cargoquant/freight"
	"cargoquant/ml"
)

// Pricing rule the synthetic market follows. The urgency premium
// scales with the cargo multiplier; distance and weight do not.
const (
	basePrice      = 50.0
	ratePerKM      = 0.5
	ratePerKG      = 0.1
	urgencyWindow  = 30.0
	urgencyPremium = 10.0
)

func cargoMultiplier(ct freight.CargoType) float64 {
	switch ct {
	case freight.CargoFragile:
		return 1.3
	case freight.CargoPerishable:
		return 1.5
	default:
		return 1.0
	}
}

// Price applies the synthetic pricing rule to a shipment.
func Price(s freight.Shipment) float64 {
	urgencyFee := (urgencyWindow - s.UrgencyDays) * urgencyPremium * cargoMultiplier(s.CargoType)
	return basePrice + ratePerKM*s.DistanceKM + ratePerKG*s.WeightKG + urgencyFee
}

// Generate produces n synthetic shipment records from a seeded
// source. Base fields are integer-valued uniforms: distance in
// [50,2000), weight in [100,10000), urgency in [1,30).
func Generate(n int, seed int64) []freight.Record {
	rng := rand.New(rand.NewSource(seed))
	cargo := freight.CargoTypes()

	records := make([]freight.Record, 0, n)
	for i := 0; i < n; i++ {
		s := freight.Shipment{
			DistanceKM:  float64(50 + rng.Intn(1950)),
			WeightKG:    float64(100 + rng.Intn(9900)),
			CargoType:   cargo[rng.Intn(len(cargo))],
			UrgencyDays: float64(1 + rng.Intn(29)),
		}
		records = append(records, freight.Record{Shipment: s, PriceUSD: Price(s)})
	}
	return records
}

// Matrix expands records through the serving encoder so training and
// prediction share one feature definition, and returns the design
// matrix in canonical column order alongside the target vector.
func Matrix(records []freight.Record) ([][]float64, []float64, error) {
	schema := ml.Schema(ml.FeatureNames())
	features := make([][]float64, 0, len(records))
	targets := make([]float64, 0, len(records))
	for _, record := range records {
		vector, err := schema.Align(ml.Encode(record.Shipment))
		if err != nil {
			return nil, nil, err
		}
		features = append(features, vector)
		targets = append(targets, record.PriceUSD)
	}
	return features, targets, nil
}
