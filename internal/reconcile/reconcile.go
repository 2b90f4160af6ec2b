package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/royalty/internal/catalog"
	"github.com/JonMunkholm/royalty/internal/store"
)

// Extra carries the rows that travel alongside a Contract import.
type Extra struct {
	Terms map[catalog.TermList][]RowData
}

// Reconciler merges single rows into the catalog.
type Reconciler struct {
	store store.Store
	locks *KeyLocker
}

// NewReconciler returns a Reconciler backed by s.
func NewReconciler(s store.Store) *Reconciler {
	return &Reconciler{store: s, locks: NewKeyLocker()}
}

// Reconcile finds or creates the entity of kind k that row describes in
// tenant, merges the row into it and saves it.
func (r *Reconciler) Reconcile(ctx context.Context, k catalog.Kind, row RowData, tenant string, extra Extra) (catalog.Entity, error) {
	if tenant == "" {
		return nil, ErrMissingTenant
	}

	switch k {
	case catalog.KindCampaign:
		return r.campaign(ctx, row, tenant)
	case catalog.KindContract:
		return r.contract(ctx, row, tenant, extra)
	case catalog.KindPayee:
		return r.payee(ctx, row, tenant)
	case catalog.KindRelease:
		return r.release(ctx, row, tenant)
	case catalog.KindTrack:
		return r.track(ctx, row, tenant, false)
	case catalog.KindWork:
		return r.work(ctx, row, tenant)
	}
	return nil, fmt.Errorf("reconcile %s: %w", k, ErrUnsupportedKind)
}

// resolve finds the entity a row targets, or builds a fresh one.
//
// A non-empty id is tried first and must belong to tenant. When the id misses,
// or no id is given, the business key is required and looked up within the
// tenant. A new entity always gets a fresh id so the store never holds ids
// that arrived from a spreadsheet.
func resolve[T catalog.Entity](
	ctx context.Context,
	s store.Store,
	k catalog.Kind,
	tenant, id, key string,
	fresh func(id string) T,
) (T, error) {
	var zero T

	if id != "" {
		e, err := store.Get[T](ctx, s, k, id)
		switch {
		case err == nil && e.TenantID() == tenant:
			return e, nil
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return zero, err
		}
	}

	if key == "" {
		return zero, &MissingFieldError{Field: catalog.BusinessKeyField(k)}
	}

	e, err := store.FindOneAs[T](ctx, s, k, tenant, key)
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return zero, err
	}
	return fresh(catalog.NewID()), nil
}

// claim resolves the entity a row targets and locks it until the returned
// unlock runs.
//
// The business key is locked before resolving so two rows creating the same
// entity cannot both insert it. The resolved id is locked next, so a row that
// names the entity by id and one that names it by key share a single writer.
// The entity is then re-read under the id lock to pick up any save that
// completed while this row waited.
func claim[T catalog.Entity](
	ctx context.Context,
	r *Reconciler,
	k catalog.Kind,
	tenant, id, key string,
	fresh func(id string) T,
) (T, func(), error) {
	var zero T

	unlockKey := func() {}
	if key != "" {
		unlockKey = r.locks.Lock(lockName(tenant, k, "key", key))
	}

	e, err := resolve(ctx, r.store, k, tenant, id, key, fresh)
	if err != nil {
		unlockKey()
		return zero, nil, err
	}

	unlockID := r.locks.Lock(lockName(tenant, k, "id", e.EntityID()))
	unlock := func() {
		unlockID()
		unlockKey()
	}

	current, err := store.Get[T](ctx, r.store, k, e.EntityID())
	switch {
	case err == nil:
		e = current
	case !errors.Is(err, store.ErrNotFound):
		unlock()
		return zero, nil, err
	}
	return e, unlock, nil
}

// keyOr keeps the stored business key when the row resolved by id alone.
func keyOr(key, existing string) string {
	if key == "" {
		return existing
	}
	return key
}

func (r *Reconciler) save(ctx context.Context, e catalog.Entity) (catalog.Entity, error) {
	if err := r.store.Save(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *Reconciler) campaign(ctx context.Context, row RowData, tenant string) (catalog.Entity, error) {
	id, key := row.Get("id"), row.Get("identifier")
	c, unlock, err := claim(ctx, r, catalog.KindCampaign, tenant, id, key, func(id string) *catalog.Campaign {
		return &catalog.Campaign{ID: id, ClientID: tenant}
	})
	if err != nil {
		return nil, err
	}
	defer unlock()

	c.Identifier = keyOr(key, c.Identifier)
	c.Title = row.Get("title")
	c.Artist = row.Get("artist")

	c.ContractID = ""
	if ref := row.Get("contractId"); ref != "" {
		if c.ContractID, err = r.contractRef(ctx, tenant, "contractId", ref); err != nil {
			return nil, err
		}
	}

	refs := []struct {
		column string
		kind   catalog.Kind
		ids    *[]string
	}{
		{"releaseCatNo", catalog.KindRelease, &c.ReleaseIDs},
		{"trackIsrc", catalog.KindTrack, &c.TrackIDs},
		{"workIdentifier", catalog.KindWork, &c.WorkIDs},
	}
	for _, ref := range refs {
		v := row.Get(ref.column)
		if v == "" {
			continue
		}
		child, err := r.store.FindOne(ctx, ref.kind, tenant, v)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s %q: %w", ref.column, v, err)
		}
		*ref.ids, _ = catalog.AppendUnique(*ref.ids, child.EntityID())
	}

	return r.save(ctx, c)
}

func (r *Reconciler) contract(ctx context.Context, row RowData, tenant string, extra Extra) (catalog.Entity, error) {
	id, key := row.Get("id"), row.Get("name")
	c, unlock, err := claim(ctx, r, catalog.KindContract, tenant, id, key, func(id string) *catalog.Contract {
		return &catalog.Contract{ID: id, ClientID: tenant}
	})
	if err != nil {
		return nil, err
	}
	defer unlock()

	minPayout, ok := parseNumber(row.Get("minPayout"))
	if !ok {
		return nil, &InvalidFieldError{Field: "minPayout", Value: row.Get("minPayout"), Want: "number"}
	}

	c.Name = keyOr(key, c.Name)
	c.AccountingPeriod = row.Get("accountingPeriod")
	c.Type = row.Get("type")
	c.MinPayout = minPayout
	c.PayeeID = row.Get("payeeId")

	for _, l := range catalog.TermLists {
		list := c.Terms(l)
		for _, termRow := range extra.Terms[l] {
			if termRow.Get("contractName") != c.Name {
				continue
			}
			t, err := parseTerm(termRow)
			if err != nil {
				return nil, fmt.Errorf("%s term: %w", l, err)
			}
			*list = append(*list, t)
		}
	}

	return r.save(ctx, c)
}

func parseTerm(row RowData) (catalog.Term, error) {
	rate, ok := parseNumber(row.Get("rate"))
	if !ok {
		return catalog.Term{}, &InvalidFieldError{Field: "rate", Value: row.Get("rate"), Want: "number"}
	}
	return catalog.Term{
		ContractName:  row.Get("contractName"),
		Channel:       row.Get("channel"),
		Configuration: row.Get("configuration"),
		PriceCategory: row.Get("priceCategory"),
		Territory:     row.Get("territory"),
		Rate:          rate,
		Basis:         row.Get("basis"),
	}, nil
}

func (r *Reconciler) payee(ctx context.Context, row RowData, tenant string) (catalog.Entity, error) {
	id, key := row.Get("id"), row.Get("vatNo")
	p, unlock, err := claim(ctx, r, catalog.KindPayee, tenant, id, key, func(id string) *catalog.Payee {
		return &catalog.Payee{ID: id, ClientID: tenant}
	})
	if err != nil {
		return nil, err
	}
	defer unlock()

	p.VatNo = keyOr(key, p.VatNo)
	p.Name = row.Get("name")
	p.Address = row.Get("address")
	p.Country = row.Get("country")
	p.BankName = row.Get("bankName")
	p.BankAddress = row.Get("bankAddress")
	p.AccountNo = row.Get("accountNo")
	p.SortCode = row.Get("sortCode")
	p.IBAN = row.Get("iban")

	return r.save(ctx, p)
}

// hasTrack reports whether a Release row also describes one of its Tracks.
func hasTrack(row RowData) bool {
	return row.Get("track_isrc") != "" || row.Get("track_id") != ""
}

func (r *Reconciler) release(ctx context.Context, row RowData, tenant string) (catalog.Entity, error) {
	id, key := row.Get("id"), row.Get("catNo")
	// Release locks are taken before Track locks, always.
	rel, unlock, err := claim(ctx, r, catalog.KindRelease, tenant, id, key, func(id string) *catalog.Release {
		return &catalog.Release{ID: id, ClientID: tenant}
	})
	if err != nil {
		return nil, err
	}
	defer unlock()

	exempt, ok := parseBool(row.Get("exemptFromMechanicals"))
	if !ok {
		return nil, &InvalidFieldError{Field: "exemptFromMechanicals", Value: row.Get("exemptFromMechanicals"), Want: "boolean"}
	}
	releaseDate, ok := parseDate(row.Get("releaseDate"))
	if !ok {
		return nil, &InvalidFieldError{Field: "releaseDate", Value: row.Get("releaseDate"), Want: "date"}
	}

	rel.CatNo = keyOr(key, rel.CatNo)
	rel.Title = row.Get("title")
	rel.Artist = row.Get("artist")
	rel.Aliases = splitList(row.Get("aliases"))
	rel.Barcode = row.Get("barcode")
	rel.Format = row.Get("format")
	rel.ReleaseDate = releaseDate
	rel.PriceCategory = row.Get("priceCategory")
	rel.ExemptFromMechanicals = exempt
	if err := r.appendRights(ctx, tenant, row, "salesReturnsRights", "costsRights", &rel.Rights); err != nil {
		return nil, err
	}

	if hasTrack(row) {
		t, err := r.track(ctx, row, tenant, true)
		if err != nil {
			return nil, fmt.Errorf("track: %w", err)
		}
		rel.TrackIDs, _ = catalog.AppendUnique(rel.TrackIDs, t.EntityID())
	}

	return r.save(ctx, rel)
}

// track reconciles a Track row. Nested rows come from a Release sheet, where
// the bare id column belongs to the Release, so only track_id is honoured.
func (r *Reconciler) track(ctx context.Context, row RowData, tenant string, nested bool) (catalog.Entity, error) {
	id := row.Get(trackField("id")...)
	if nested {
		id = row.Get("track_id")
	}
	key := row.Get(trackField("isrc")...)
	t, unlock, err := claim(ctx, r, catalog.KindTrack, tenant, id, key, func(id string) *catalog.Track {
		return &catalog.Track{ID: id, ClientID: tenant}
	})
	if err != nil {
		return nil, err
	}
	defer unlock()

	t.ISRC = keyOr(key, t.ISRC)
	t.Title = row.Get(trackField("title")...)
	t.Version = row.Get(trackField("version")...)
	t.Artist = row.Get(trackField("artist")...)
	t.Aliases = splitList(row.Get(trackField("aliases")...))
	t.Duration = row.Get(trackField("duration")...)
	err = r.appendRights(ctx, tenant, row,
		trackColumn(row, "salesReturnsRights", nested),
		trackColumn(row, "costsRights", nested),
		&t.Rights)
	if err != nil {
		return nil, err
	}

	return r.save(ctx, t)
}

func (r *Reconciler) work(ctx context.Context, row RowData, tenant string) (catalog.Entity, error) {
	id, key := row.Get("id"), row.Get("identifier")
	w, unlock, err := claim(ctx, r, catalog.KindWork, tenant, id, key, func(id string) *catalog.Work {
		return &catalog.Work{ID: id, ClientID: tenant}
	})
	if err != nil {
		return nil, err
	}
	defer unlock()

	w.Identifier = keyOr(key, w.Identifier)
	w.Title = row.Get("title")
	w.Composer = row.Get("composer")
	w.Publisher = row.Get("publisher")
	w.Aliases = splitList(row.Get("aliases"))
	if err := r.appendRights(ctx, tenant, row, "salesReturnsRights", "costsRights", &w.Rights); err != nil {
		return nil, err
	}

	return r.save(ctx, w)
}
