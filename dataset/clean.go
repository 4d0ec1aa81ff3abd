package dataset

import (
	"fmt"
	"math"

	"cargoquant/freight"
)

// CleaningRule checks one labeled shipment before it enters training.
type CleaningRule interface {
	Apply(freight.Record) error
	Name() string
}

// Issue describes one rejected training row.
type Issue struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
	Row     int    `json:"row"`
}

// CleaningStats summarizes one Clean pass.
type CleaningStats struct {
	TotalProcessed int            `json:"total_processed"`
	Passed         int            `json:"passed"`
	Rejected       int            `json:"rejected"`
	Issues         map[string]int `json:"issues"`
}

// Cleaner filters loaded training rows through a rule chain. Rows that
// violate any rule are dropped rather than repaired; a repaired label
// would poison the regression target.
type Cleaner struct {
	rules []CleaningRule
	stats CleaningStats
}

// NewCleaner builds a cleaner with the default rule set.
func NewCleaner() *Cleaner {
	cleaner := &Cleaner{
		stats: CleaningStats{Issues: make(map[string]int)},
	}
	cleaner.AddRule(NewMeasurementRule())
	cleaner.AddRule(CargoRule{})
	cleaner.AddRule(NewPriceRule())
	return cleaner
}

// AddRule appends a rule to the chain.
func (c *Cleaner) AddRule(rule CleaningRule) {
	c.rules = append(c.rules, rule)
}

// Clean returns the rows that pass every rule, plus one issue per
// rejected row naming the first rule it violated.
func (c *Cleaner) Clean(records []freight.Record) ([]freight.Record, []Issue) {
	var cleaned []freight.Record
	var issues []Issue

	for i, record := range records {
		c.stats.TotalProcessed++

		var failed *Issue
		for _, rule := range c.rules {
			if err := rule.Apply(record); err != nil {
				failed = &Issue{Rule: rule.Name(), Message: err.Error(), Row: i}
				c.stats.Issues[rule.Name()]++
				break
			}
		}

		if failed != nil {
			c.stats.Rejected++
			issues = append(issues, *failed)
			continue
		}
		c.stats.Passed++
		cleaned = append(cleaned, record)
	}

	return cleaned, issues
}

// Stats returns the counters accumulated across Clean calls.
func (c *Cleaner) Stats() CleaningStats {
	return c.stats
}

// MeasurementRule rejects rows whose physical measurements are
// non-finite, non-positive, or implausibly large.
type MeasurementRule struct {
	MaxDistanceKM  float64
	MaxWeightKG    float64
	MaxUrgencyDays float64
}

func NewMeasurementRule() MeasurementRule {
	return MeasurementRule{
		MaxDistanceKM:  50000,
		MaxWeightKG:    500000,
		MaxUrgencyDays: 365,
	}
}

func (r MeasurementRule) Name() string {
	return "measurement_validation"
}

func (r MeasurementRule) Apply(record freight.Record) error {
	if !isFinite(record.DistanceKM) || record.DistanceKM <= 0 || record.DistanceKM > r.MaxDistanceKM {
		return fmt.Errorf("distance_km %v out of range (0, %v]", record.DistanceKM, r.MaxDistanceKM)
	}
	if !isFinite(record.WeightKG) || record.WeightKG <= 0 || record.WeightKG > r.MaxWeightKG {
		return fmt.Errorf("weight_kg %v out of range (0, %v]", record.WeightKG, r.MaxWeightKG)
	}
	if !isFinite(record.UrgencyDays) || record.UrgencyDays < 0 || record.UrgencyDays > r.MaxUrgencyDays {
		return fmt.Errorf("urgency_days %v out of range [0, %v]", record.UrgencyDays, r.MaxUrgencyDays)
	}
	return nil
}

// CargoRule rejects rows with a cargo category outside the closed set.
type CargoRule struct{}

func (CargoRule) Name() string {
	return "cargo_validation"
}

func (CargoRule) Apply(record freight.Record) error {
	if !record.CargoType.Valid() {
		return fmt.Errorf("unknown cargo_type %q", record.CargoType)
	}
	return nil
}

// PriceRule rejects rows whose label is non-finite, non-positive, or
// beyond any plausible freight invoice.
type PriceRule struct {
	MaxPriceUSD float64
}

func NewPriceRule() PriceRule {
	return PriceRule{MaxPriceUSD: 1e7}
}

func (r PriceRule) Name() string {
	return "price_validation"
}

func (r PriceRule) Apply(record freight.Record) error {
	if !isFinite(record.PriceUSD) || record.PriceUSD <= 0 || record.PriceUSD > r.MaxPriceUSD {
		return fmt.Errorf("price_usd %v out of range (0, %v]", record.PriceUSD, r.MaxPriceUSD)
	}
	return nil
}

// FilterOutliers drops rows whose price sits more than threshold
// standard deviations from the mean. Outlier labels are dropped, not
// replaced, so the remaining targets stay honest.
func FilterOutliers(records []freight.Record, threshold float64) []freight.Record {
	if len(records) == 0 || threshold <= 0 {
		return records
	}

	prices := make([]float64, len(records))
	for i, r := range records {
		prices[i] = r.PriceUSD
	}
	mean, stdDev := meanStdDev(prices)
	if stdDev == 0 {
		return records
	}

	kept := make([]freight.Record, 0, len(records))
	for _, r := range records {
		if math.Abs(r.PriceUSD-mean)/stdDev <= threshold {
			kept = append(kept, r)
		}
	}
	return kept
}

func meanStdDev(values []float64) (float64, float64) {
	n := len(values)
	if n == 0 {
		return 0, 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)

	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(n)

	return mean, math.Sqrt(variance)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
