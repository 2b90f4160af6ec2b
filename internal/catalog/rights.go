package catalog

import "fmt"

// Right is a contract's stake in an entity's income or costs.
type Right struct {
	ContractID string  `json:"contractId"`
	Percentage float64 `json:"percentage"`
}

// Rights is embedded by Release, Track and Work.
type Rights struct {
	SalesReturnsRights []Right `json:"salesReturnsRights"`
	CostsRights        []Right `json:"costsRights"`
}

// ContractIDs returns the distinct contract ids referenced by both lists,
// sales/returns first, in stored order.
func (r Rights) ContractIDs() []string {
	var ids []string
	for _, list := range [][]Right{r.SalesReturnsRights, r.CostsRights} {
		for _, right := range list {
			if right.ContractID == "" {
				continue
			}
			ids, _ = AppendUnique(ids, right.ContractID)
		}
	}
	return ids
}

// TermList selects one of a Contract's five term lists.
type TermList string

const (
	TermsSales      TermList = "sales"
	TermsReturns    TermList = "returns"
	TermsCosts      TermList = "costs"
	TermsMechanical TermList = "mechanical"
	TermsReserves   TermList = "reserves"
)

// TermLists is the fixed order term sheets are exported and imported in.
var TermLists = []TermList{TermsSales, TermsReturns, TermsCosts, TermsMechanical, TermsReserves}

// ParseTermList validates a term list name.
func ParseTermList(s string) (TermList, error) {
	for _, l := range TermLists {
		if string(l) == s {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown term list: %q", s)
}

// Term is one rate line of a contract. ContractName ties an imported term row
// back to its parent Contract.
type Term struct {
	ContractName  string  `json:"contractName"`
	Channel       string  `json:"channel"`
	Configuration string  `json:"configuration"`
	PriceCategory string  `json:"priceCategory"`
	Territory     string  `json:"territory"`
	Rate          float64 `json:"rate"`
	Basis         string  `json:"basis"`
}

// AppendUnique appends id to ids unless it is already present. The second
// return value reports whether ids changed.
func AppendUnique(ids []string, id string) ([]string, bool) {
	for _, existing := range ids {
		if existing == id {
			return ids, false
		}
	}
	return append(ids, id), true
}
