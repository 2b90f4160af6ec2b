package core

import (
	"time"

	"github.com/JonMunkholm/royalty/internal/catalog"
	"github.com/JonMunkholm/royalty/internal/reconcile"
)

// HeaderIndex maps column names (lowercase) to their position in the CSV row.
type HeaderIndex map[string]int

// ImportRequest is one spreadsheet import.
type ImportRequest struct {
	Kind     catalog.Kind
	Tenant   string // Client id the rows belong to
	FileName string
	Data     []byte

	// Terms holds the optional term sheets of a Contract import.
	Terms map[catalog.TermList][]byte
}

// FailedRow contains information about a row that failed to import.
type FailedRow struct {
	FileName   string `json:"fileName"`
	LineNumber int    `json:"lineNumber"`
	Reason     string `json:"reason"`
	Code       string `json:"code"`
}

// ImportResult contains the final result of an import.
type ImportResult struct {
	ImportID   string        `json:"importId"`
	Kind       catalog.Kind  `json:"kind"`
	FileName   string        `json:"fileName"`
	TotalRows  int           `json:"totalRows"`
	Succeeded  []string      `json:"succeeded"`
	FailedRows []FailedRow   `json:"failedRows"`
	Duration   time.Duration `json:"duration"`
}

// Sheet is a decoded CSV file. Rows end with the sentinel row; Lines holds
// the 1-based file line of every row before it.
type Sheet struct {
	Header []string
	Rows   []reconcile.RowData
	Lines  []int
}
