package reconcile

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// RowData is one import row keyed by column name. Values are raw cell text.
type RowData map[string]string

// SentinelRow is the trailing blank row every import batch ends with. The row
// codec appends it and RunBatch drops it, so the convention lives in exactly
// two named places.
var SentinelRow = RowData{}

// Lookup returns the value of the first name present in the row. A present
// but empty cell still wins over later names, so a track_title column that is
// blank never falls through to the Release's bare title.
func (r RowData) Lookup(names ...string) (string, bool) {
	for _, name := range names {
		if v, ok := r[name]; ok {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

// Get is Lookup without the presence flag. Missing fields read as "".
func (r RowData) Get(names ...string) string {
	v, _ := r.Lookup(names...)
	return v
}

// trackField returns the candidate column names for a Track field, prefixed
// name first.
func trackField(name string) []string {
	return []string{"track_" + name, name}
}

// trackColumn picks the single column a Track field is read from. A nested
// Track only owns the prefixed columns; the bare ones belong to its Release.
func trackColumn(row RowData, name string, nested bool) string {
	if nested {
		return "track_" + name
	}
	for _, c := range trackField(name) {
		if _, ok := row[c]; ok {
			return c
		}
	}
	return name
}

// numericRegex validates a number after currency and separator cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// parseNumber converts a spreadsheet amount to float64. Blank cells are zero.
// Currency symbols, thousands separators and accounting negatives "(1.50)"
// are accepted.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")

	if negative {
		s = "-" + s
	}
	if !numericRegex.MatchString(s) {
		return 0, false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// parseBool accepts the spellings spreadsheets produce. Blank is false.
func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1":
		return true, true
	case "false", "f", "no", "n", "0", "":
		return false, true
	default:
		return false, false
	}
}

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would land more than this many years in the future are taken
// as the previous century: with pivot=20 in 2025, "46" is 1946 and "24" is 2024.
var TwoDigitYearPivot = 20

// dateLayout is the stored and exported form of every date.
const dateLayout = "2006-01-02"

var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006",
		"1.2.2006", "01.02.2006", "2006/01/02", "2006.01.02",
		"Jan 2, 2006", "2 Jan 2006", "20060102",
	}
)

// parseDate normalizes a spreadsheet date to YYYY-MM-DD. Blank cells stay
// blank. Month-first layouts are tried before day-first ones.
func parseDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", true
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(dateLayout), true
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t.Format(dateLayout), true
		}
	}
	return "", false
}

// splitList splits a ";"-joined cell, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func joinList(items []string) string {
	return strings.Join(items, ";")
}

func formatBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}
