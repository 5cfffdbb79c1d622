package httpapi

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/cdubvdub/fpl-power-meter-api/internal/rows"
)

// ParseRows reads a batch CSV. A header row naming an address column is
// honored; without one the first column is the address. An optional
// unit column overrides the unit token parsed out of the address.
func ParseRows(r io.Reader) ([]rows.NormalizedRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %v", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	addrCol, unitCol := 0, -1
	if col, ucol, ok := headerColumns(records[0]); ok {
		addrCol, unitCol = col, ucol
		records = records[1:]
	}

	var batch []rows.NormalizedRow
	for _, record := range records {
		if addrCol >= len(record) {
			continue
		}
		row := rows.Normalize(record[addrCol])
		if row.Address == "" {
			continue
		}
		if unitCol >= 0 && unitCol < len(record) {
			if unit := strings.TrimSpace(record[unitCol]); unit != "" {
				row.Unit = strings.ToUpper(unit)
			}
		}
		batch = append(batch, row)
	}
	return batch, nil
}

// headerColumns detects a header row and returns the address and unit
// column indexes.
func headerColumns(record []string) (int, int, bool) {
	addrCol, unitCol := -1, -1
	for i, field := range record {
		switch name := strings.ToLower(strings.TrimSpace(field)); {
		case strings.Contains(name, "address"):
			if addrCol == -1 {
				addrCol = i
			}
		case name == "unit" || name == "apt" || strings.Contains(name, "unit"):
			unitCol = i
		}
	}
	if addrCol == -1 {
		return 0, -1, false
	}
	return addrCol, unitCol, true
}
