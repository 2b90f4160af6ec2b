package core

// convert.go cleans spreadsheet cells on the way in and formats exported
// values on the way out.
//
// Cells arrive with the usual spreadsheet artifacts:
//   - Excel formula prefixes (="value") used to keep leading zeros on ISRCs and barcodes
//   - Surrounding quotes and the Excel text prefix (')
//   - Stray whitespace
//
// Exported numbers are written without exponent or trailing zeros so that a
// sheet survives an export/import cycle unchanged.

import (
	"fmt"
	"strconv"
	"strings"
)

// MakeHeaderIndex creates a HeaderIndex from a CSV header row.
// Keys are lowercased for case-insensitive matching. When a name repeats,
// the last occurrence wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanCell(h))
		idx[key] = i
	}
	return idx
}

// CleanCell removes common CSV artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes one pair of matching surrounding quotes
// - Removes the Excel text prefix (')
//
// A lone trailing apostrophe is kept, so titles like "Rockin'" survive.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	// Remove leading '='
	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		return strings.TrimSpace(s[2 : len(s)-1])
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return strings.TrimSpace(s[1 : len(s)-1])
	}
	return strings.TrimPrefix(s, "'")
}

// FormatValue renders one flattened cell for CSV output.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprint(x)
	}
}
