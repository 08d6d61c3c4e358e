package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"rnaseqcli/internal/activity"
)

// ReadNetworkCSV reads regulator-target interactions from a delimited stream
// with a header row: regulator, target, weight, confidence. The confidence
// column is optional.
func ReadNetworkCSV(r io.Reader, comma rune) (*activity.Network, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read network: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("network needs a header row and at least one interaction, got %d rows", len(rows))
	}

	header := rows[0]
	if len(header) < 3 {
		return nil, fmt.Errorf("network header needs regulator, target and weight columns")
	}

	interactions := make([]activity.Interaction, 0, len(rows)-1)
	for rowIdx, row := range rows[1:] {
		if len(row) < 3 {
			return nil, fmt.Errorf("row %d: %d cells, need at least 3", rowIdx+2, len(row))
		}
		regulator := strings.TrimSpace(row[0])
		target := strings.TrimSpace(row[1])
		if regulator == "" || target == "" {
			return nil, fmt.Errorf("row %d: empty regulator or target", rowIdx+2)
		}
		weight, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d (%s -> %s): non-numeric weight %q", rowIdx+2, regulator, target, row[2])
		}
		confidence := ""
		if len(row) > 3 {
			confidence = strings.TrimSpace(row[3])
		}
		interactions = append(interactions, activity.Interaction{
			Regulator:  regulator,
			Target:     target,
			Weight:     weight,
			Confidence: confidence,
		})
	}

	return activity.NewNetwork(interactions), nil
}
