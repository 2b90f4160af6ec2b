package reconcile

import (
	"context"
	"fmt"
	"reflect"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/royalty/internal/catalog"
)

// Value is one exported cell: a string, float64 or bool.
type Value = any

// Loader resolves child ids during flattening.
type Loader interface {
	FindByID(ctx context.Context, k catalog.Kind, id string) (catalog.Entity, error)
}

// DefaultFlattenWorkers bounds how many entities are expanded at once.
const DefaultFlattenWorkers = 8

// Flatten expands entities of kind k into export rows, in input order.
//
// A child id that cannot be loaded is skipped. The call itself fails only when
// an element is nil or of another kind, or when ctx ends first.
func Flatten(ctx context.Context, k catalog.Kind, entities []catalog.Entity, loader Loader) ([][]Value, error) {
	return FlattenN(ctx, k, entities, loader, DefaultFlattenWorkers)
}

// FlattenN is Flatten with an explicit worker bound. workers <= 1 flattens
// sequentially.
func FlattenN(ctx context.Context, k catalog.Kind, entities []catalog.Entity, loader Loader, workers int) ([][]Value, error) {
	if Columns(k) == nil {
		return nil, fmt.Errorf("flatten %s: %w", k, ErrUnsupportedKind)
	}
	for i, e := range entities {
		if isNil(e) || e.Kind() != k {
			return nil, fmt.Errorf("flatten %s: element %d: %w", k, i, ErrNotEntitySequence)
		}
	}

	perEntity := make([][][]Value, len(entities))

	g, gctx := errgroup.WithContext(ctx)
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for i, e := range entities {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			perEntity[i] = flattenOne(gctx, e, loader)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// A lookup interrupted by cancellation looks like a miss; do not hand back
	// a silently truncated sheet.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows [][]Value
	for _, r := range perEntity {
		rows = append(rows, r...)
	}
	return rows, nil
}

func flattenOne(ctx context.Context, e catalog.Entity, loader Loader) [][]Value {
	switch v := e.(type) {
	case *catalog.Campaign:
		return flattenCampaign(ctx, v, loader)
	case *catalog.Contract:
		return [][]Value{contractRow(v)}
	case *catalog.Payee:
		return [][]Value{{
			v.ID, v.Name, v.Address, v.Country, v.VatNo,
			v.BankName, v.BankAddress, v.AccountNo, v.SortCode, v.IBAN,
		}}
	case *catalog.Release:
		return flattenRelease(ctx, v, loader)
	case *catalog.Track:
		return [][]Value{{
			v.ID, v.ISRC, v.Title, v.Version, v.Artist, joinList(v.Aliases), v.Duration,
			formatRights(v.SalesReturnsRights), formatRights(v.CostsRights),
		}}
	case *catalog.Work:
		return [][]Value{{
			v.ID, v.Identifier, v.Title, v.Composer, v.Publisher, joinList(v.Aliases),
			formatRights(v.SalesReturnsRights), formatRights(v.CostsRights),
		}}
	case *catalog.Cost:
		return [][]Value{{v.ID, v.Description, v.Category, v.Amount, v.Date, joinList(v.AssociatedContractIDs)}}
	}
	return nil
}

// flattenCampaign emits one row per associated id, releases then tracks then
// works, with only that child's reference column filled. A campaign with no
// associations still gets a single row.
func flattenCampaign(ctx context.Context, c *catalog.Campaign, loader Loader) [][]Value {
	base := func(release, track, work string) []Value {
		return []Value{c.ID, c.Title, c.Artist, c.Identifier, release, track, work, c.ContractID}
	}

	if len(c.ReleaseIDs) == 0 && len(c.TrackIDs) == 0 && len(c.WorkIDs) == 0 {
		return [][]Value{base("", "", "")}
	}

	var rows [][]Value
	for _, id := range c.ReleaseIDs {
		if key, ok := childKey(ctx, loader, catalog.KindRelease, id); ok {
			rows = append(rows, base(key, "", ""))
		}
	}
	for _, id := range c.TrackIDs {
		if key, ok := childKey(ctx, loader, catalog.KindTrack, id); ok {
			rows = append(rows, base("", key, ""))
		}
	}
	for _, id := range c.WorkIDs {
		if key, ok := childKey(ctx, loader, catalog.KindWork, id); ok {
			rows = append(rows, base("", "", key))
		}
	}
	return rows
}

// flattenRelease emits the Release joined with each of its Tracks. A Release
// without tracks produces no rows; it does not get Campaign's empty fallback.
func flattenRelease(ctx context.Context, r *catalog.Release, loader Loader) [][]Value {
	var rows [][]Value
	for _, id := range r.TrackIDs {
		e, err := loader.FindByID(ctx, catalog.KindTrack, id)
		if err != nil {
			continue
		}
		t, ok := e.(*catalog.Track)
		if !ok {
			continue
		}
		rows = append(rows, []Value{
			r.ID, r.CatNo, r.Title, r.Artist, joinList(r.Aliases), r.Barcode, r.Format,
			r.ReleaseDate, r.PriceCategory, formatBool(r.ExemptFromMechanicals),
			t.ID, t.ISRC, t.Title, t.Version, t.Artist, joinList(t.Aliases), t.Duration,
			formatRights(r.SalesReturnsRights), formatRights(r.CostsRights),
			formatRights(t.SalesReturnsRights), formatRights(t.CostsRights),
		})
	}
	return rows
}

func childKey(ctx context.Context, loader Loader, k catalog.Kind, id string) (string, bool) {
	e, err := loader.FindByID(ctx, k, id)
	if err != nil || isNil(e) {
		return "", false
	}
	return e.BusinessKey(), true
}

func contractRow(c *catalog.Contract) []Value {
	return []Value{c.ID, c.Name, c.AccountingPeriod, c.Type, c.MinPayout, c.PayeeID}
}

func termRow(t catalog.Term) []Value {
	return []Value{t.ContractName, t.Channel, t.Configuration, t.PriceCategory, t.Territory, t.Rate, t.Basis}
}

// ContractSheets is the Contract export: one summary sheet plus one sheet per
// term list.
type ContractSheets struct {
	Contracts [][]Value
	Terms     map[catalog.TermList][][]Value
}

// FlattenContracts flattens contracts together with their terms. Every term row
// carries its Contract's name in the contractName column so the sheets can be
// re-associated on import, even when the stored term predates a rename.
func FlattenContracts(contracts []catalog.Entity) (*ContractSheets, error) {
	sheets := &ContractSheets{Terms: make(map[catalog.TermList][][]Value, len(catalog.TermLists))}
	for _, l := range catalog.TermLists {
		sheets.Terms[l] = [][]Value{}
	}

	for i, e := range contracts {
		c, ok := e.(*catalog.Contract)
		if !ok || c == nil {
			return nil, fmt.Errorf("flatten contract: element %d: %w", i, ErrNotEntitySequence)
		}
		sheets.Contracts = append(sheets.Contracts, contractRow(c))
		for _, l := range catalog.TermLists {
			for _, t := range *c.Terms(l) {
				t.ContractName = c.Name
				sheets.Terms[l] = append(sheets.Terms[l], termRow(t))
			}
		}
	}
	return sheets, nil
}

// isNil catches both a nil interface and a typed nil pointer.
func isNil(e catalog.Entity) bool {
	if e == nil {
		return true
	}
	v := reflect.ValueOf(e)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
