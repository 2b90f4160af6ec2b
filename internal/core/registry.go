package core

import (
	"fmt"
	"sort"

	"github.com/JonMunkholm/royalty/internal/catalog"
	"github.com/JonMunkholm/royalty/internal/reconcile"
)

// Layout describes the sheet of one entity kind.
type Layout struct {
	Kind    catalog.Kind
	Label   string
	Columns []string
	// HeaderKeys are the columns of which at least one must appear for a row
	// to be recognised as the header.
	HeaderKeys []string
	// Importable is false for export-only layouts.
	Importable bool
}

// termLayout is shared by the five Contract term sheets.
var termLayout = Layout{
	Label:      "Contract terms",
	Columns:    reconcile.TermColumns(),
	HeaderKeys: []string{"contractName"},
	Importable: true,
}

var registry = make(map[catalog.Kind]Layout)

func init() {
	register(catalog.KindCampaign, "Campaigns", "identifier")
	register(catalog.KindContract, "Contracts", "name")
	register(catalog.KindPayee, "Payees", "vatNo")
	register(catalog.KindRelease, "Releases", "catNo")
	register(catalog.KindTrack, "Tracks", "isrc")
	register(catalog.KindWork, "Works", "identifier")
	register(catalog.KindCost, "Costs", "description")
}

// register adds the layout for k. Panics if k is already registered.
func register(k catalog.Kind, label string, keyColumn string) {
	if _, exists := registry[k]; exists {
		panic(fmt.Sprintf("layout already registered: %s", k))
	}
	registry[k] = Layout{
		Kind:       k,
		Label:      label,
		Columns:    reconcile.Columns(k),
		HeaderKeys: []string{"id", keyColumn},
		Importable: reconcile.Importable(k),
	}
}

// LayoutFor returns the layout of kind k.
func LayoutFor(k catalog.Kind) (Layout, bool) {
	l, ok := registry[k]
	return l, ok
}

// Layouts returns every layout sorted by kind.
func Layouts() []Layout {
	out := make([]Layout, 0, len(registry))
	for _, l := range registry {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Kind < out[j].Kind
	})
	return out
}
