package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"cargoquant/freight"
)

var csvHeader = []string{"distance_km", "weight_kg", "cargo_type", "urgency_days", "price_usd"}

// WriteCSV dumps records with a header row, one shipment per line.
func WriteCSV(path string, records []freight.Record) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for _, record := range records {
		row := []string{
			formatFloat(record.DistanceKM),
			formatFloat(record.WeightKG),
			string(record.CargoType),
			formatFloat(record.UrgencyDays),
			formatFloat(record.PriceUSD),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadCSV loads records previously written by WriteCSV. Rows must be
// well-formed; semantic checks (enum membership, ranges) belong to the
// Cleaner so that one bad row drops instead of failing the file.
func ReadCSV(path string) ([]freight.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("csv %s is empty", path)
	}

	records := make([]freight.Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		record, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("csv %s row %d: %w", path, i+2, err)
		}
		records = append(records, record)
	}
	return records, nil
}

func parseRow(row []string) (freight.Record, error) {
	if len(row) != len(csvHeader) {
		return freight.Record{}, fmt.Errorf("expected %d columns, got %d", len(csvHeader), len(row))
	}
	distance, err := strconv.ParseFloat(row[0], 64)
	if err != nil {
		return freight.Record{}, fmt.Errorf("bad distance_km %q", row[0])
	}
	weight, err := strconv.ParseFloat(row[1], 64)
	if err != nil {
		return freight.Record{}, fmt.Errorf("bad weight_kg %q", row[1])
	}
	cargo := freight.CargoType(row[2])
	urgency, err := strconv.ParseFloat(row[3], 64)
	if err != nil {
		return freight.Record{}, fmt.Errorf("bad urgency_days %q", row[3])
	}
	price, err := strconv.ParseFloat(row[4], 64)
	if err != nil {
		return freight.Record{}, fmt.Errorf("bad price_usd %q", row[4])
	}

	return freight.Record{
		Shipment: freight.Shipment{
			DistanceKM:  distance,
			WeightKG:    weight,
			CargoType:   cargo,
			UrgencyDays: urgency,
		},
		PriceUSD: price,
	}, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
