// Package rows prepares raw address lines for portal lookups.
package rows

import (
	"regexp"
	"strings"
)

// NormalizedRow is one address (plus optional unit) ready for lookup.
type NormalizedRow struct {
	Address string `json:"address"`
	Unit    string `json:"unit,omitempty"`
}

// unitToken matches an APT/UNIT/# prefixed token anywhere in the line,
// e.g. "APT 4B", "UNIT 12", "#301".
var unitToken = regexp.MustCompile(`(?i)(?:\b(?:APT|UNIT)\b\.?\s*#?\s*|#\s*)([A-Za-z0-9-]+)`)

var spaceRun = regexp.MustCompile(`\s{2,}`)

// Normalize splits the unit designator out of a raw address line. The
// returned address keeps street, city, state and zip with the unit token
// stripped. Calling Normalize on its own output is a no-op.
func Normalize(raw string) NormalizedRow {
	line := strings.TrimSpace(raw)
	row := NormalizedRow{Address: line}

	m := unitToken.FindStringSubmatchIndex(line)
	if m == nil {
		row.Address = tidy(line)
		return row
	}

	row.Unit = strings.ToUpper(line[m[2]:m[3]])
	row.Address = tidy(line[:m[0]] + line[m[1]:])
	return row
}

// tidy collapses whitespace and dangling separators left behind after
// the unit token is removed.
func tidy(s string) string {
	s = spaceRun.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, " ,", ",")
	s = strings.ReplaceAll(s, ",,", ",")
	s = strings.Trim(s, " ,")
	return s
}
