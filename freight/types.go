package freight

// CargoType is the closed set of cargo categories the service prices.
type CargoType string

const (
	CargoGeneral    CargoType = "general"
	CargoFragile    CargoType = "fragile"
	CargoPerishable CargoType = "perishable"
)

var cargoTypes = []CargoType{CargoGeneral, CargoFragile, CargoPerishable}

// CargoTypes returns the closed set in declaration order.
func CargoTypes() []CargoType {
	return append([]CargoType(nil), cargoTypes...)
}

func (c CargoType) Valid() bool {
	for _, ct := range cargoTypes {
		if c == ct {
			return true
		}
	}
	return false
}

// Shipment is a validated, typed shipment request. Values are kept as
// received; the service never clamps ranges.
type Shipment struct {
	DistanceKM  float64   `json:"distance_km"`
	WeightKG    float64   `json:"weight_kg"`
	CargoType   CargoType `json:"cargo_type"`
	UrgencyDays float64   `json:"urgency_days"`
}

// Record is one labeled training row.
type Record struct {
	Shipment
	PriceUSD float64 `json:"price_usd"`
}
