package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/royalty/internal/catalog"
	"github.com/JonMunkholm/royalty/internal/store"
)

const tenant = "client-1"

func newReconciler() (*Reconciler, *store.Memory) {
	mem := store.NewMemory()
	return NewReconciler(mem), mem
}

// toRowData turns an exported row back into an import row.
func toRowData(header []string, row []Value) RowData {
	rd := make(RowData, len(header))
	for i, name := range header {
		rd[name] = fmt.Sprint(row[i])
	}
	return rd
}

// =============================================================================
// Identity resolution
// =============================================================================

func TestReconcile_MissingBusinessKey(t *testing.T) {
	rec, _ := newReconciler()
	ctx := context.Background()

	tests := []struct {
		kind  catalog.Kind
		field string
	}{
		{catalog.KindCampaign, "Identifier"},
		{catalog.KindContract, "Name"},
		{catalog.KindPayee, "VatNo"},
		{catalog.KindRelease, "CatNo"},
		{catalog.KindTrack, "Isrc"},
		{catalog.KindWork, "Identifier"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			_, err := rec.Reconcile(ctx, tt.kind, RowData{"title": "x"}, tenant, Extra{})
			var missing *MissingFieldError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, tt.field+" must be passed", err.Error())
		})
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	rec, mem := newReconciler()
	ctx := context.Background()
	row := RowData{"name": "Acme", "vatNo": "V1", "country": "GB"}

	first, err := rec.Reconcile(ctx, catalog.KindPayee, row, tenant, Extra{})
	require.NoError(t, err)

	row["country"] = "DK"
	second, err := rec.Reconcile(ctx, catalog.KindPayee, row, tenant, Extra{})
	require.NoError(t, err)

	assert.Equal(t, first.EntityID(), second.EntityID())
	assert.Equal(t, 1, mem.Len(catalog.KindPayee))

	got, err := store.Get[*catalog.Payee](ctx, mem, catalog.KindPayee, first.EntityID())
	require.NoError(t, err)
	assert.Equal(t, "DK", got.Country)
	assert.Equal(t, tenant, got.ClientID)
}

func TestReconcile_UpdateOverwritesMissingFields(t *testing.T) {
	rec, mem := newReconciler()
	ctx := context.Background()

	_, err := rec.Reconcile(ctx, catalog.KindWork, RowData{
		"identifier": "T-1", "title": "Song", "composer": "A. Writer", "aliases": "One;Two",
	}, tenant, Extra{})
	require.NoError(t, err)

	_, err = rec.Reconcile(ctx, catalog.KindWork, RowData{"identifier": "T-1", "title": "Song II"}, tenant, Extra{})
	require.NoError(t, err)

	w, err := store.FindOneAs[*catalog.Work](ctx, mem, catalog.KindWork, tenant, "T-1")
	require.NoError(t, err)
	assert.Equal(t, "Song II", w.Title)
	assert.Empty(t, w.Composer)
	assert.Empty(t, w.Aliases)
}

func TestReconcile_ByIDKeepsBusinessKey(t *testing.T) {
	rec, mem := newReconciler()
	ctx := context.Background()

	created, err := rec.Reconcile(ctx, catalog.KindRelease, RowData{"catNo": "CAT1", "title": "Old"}, tenant, Extra{})
	require.NoError(t, err)

	updated, err := rec.Reconcile(ctx, catalog.KindRelease, RowData{"id": created.EntityID(), "title": "New"}, tenant, Extra{})
	require.NoError(t, err)
	assert.Equal(t, created.EntityID(), updated.EntityID())

	r, err := store.Get[*catalog.Release](ctx, mem, catalog.KindRelease, created.EntityID())
	require.NoError(t, err)
	assert.Equal(t, "CAT1", r.CatNo)
	assert.Equal(t, "New", r.Title)
}

func TestReconcile_UnknownIDFallsBackToKey(t *testing.T) {
	rec, mem := newReconciler()
	ctx := context.Background()

	created, err := rec.Reconcile(ctx, catalog.KindTrack, RowData{"isrc": "GB0001"}, tenant, Extra{})
	require.NoError(t, err)

	again, err := rec.Reconcile(ctx, catalog.KindTrack, RowData{"id": "not-a-stored-id", "isrc": "GB0001"}, tenant, Extra{})
	require.NoError(t, err)
	assert.Equal(t, created.EntityID(), again.EntityID())

	fresh, err := rec.Reconcile(ctx, catalog.KindTrack, RowData{"id": "spreadsheet-id", "isrc": "GB0002"}, tenant, Extra{})
	require.NoError(t, err)
	assert.NotEqual(t, "spreadsheet-id", fresh.EntityID())
	assert.Equal(t, 2, mem.Len(catalog.KindTrack))
}

func TestReconcile_NeverCrossesTenants(t *testing.T) {
	rec, mem := newReconciler()
	ctx := context.Background()

	theirs, err := rec.Reconcile(ctx, catalog.KindPayee, RowData{"vatNo": "V1", "name": "Theirs"}, "client-2", Extra{})
	require.NoError(t, err)

	// Our row names their id; it must not be updated or moved.
	ours, err := rec.Reconcile(ctx, catalog.KindPayee, RowData{"id": theirs.EntityID(), "vatNo": "V1", "name": "Ours"}, tenant, Extra{})
	require.NoError(t, err)
	assert.NotEqual(t, theirs.EntityID(), ours.EntityID())
	assert.Equal(t, tenant, ours.TenantID())

	stored, err := store.Get[*catalog.Payee](ctx, mem, catalog.KindPayee, theirs.EntityID())
	require.NoError(t, err)
	assert.Equal(t, "Theirs", stored.Name)
	assert.Equal(t, "client-2", stored.ClientID)
}

func TestReconcile_Errors(t *testing.T) {
	rec, _ := newReconciler()
	ctx := context.Background()

	_, err := rec.Reconcile(ctx, catalog.KindPayee, RowData{"vatNo": "V1"}, "", Extra{})
	assert.ErrorIs(t, err, ErrMissingTenant)

	for _, k := range []catalog.Kind{catalog.KindClient, catalog.KindParent, catalog.KindCost} {
		_, err = rec.Reconcile(ctx, k, RowData{"id": "x"}, tenant, Extra{})
		assert.ErrorIs(t, err, ErrUnsupportedKind, k)
	}

	_, err = rec.Reconcile(ctx, catalog.KindContract, RowData{"name": "Deal", "minPayout": "lots"}, tenant, Extra{})
	var invalid *InvalidFieldError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "minPayout", invalid.Field)

	_, err = rec.Reconcile(ctx, catalog.KindRelease, RowData{"catNo": "C", "exemptFromMechanicals": "maybe"}, tenant, Extra{})
	assert.ErrorAs(t, err, &invalid)
}

type failingStore struct {
	store.Store
}

func (failingStore) Save(context.Context, catalog.Entity) error {
	return errors.New("disk full")
}

func TestReconcile_SaveFailureSurfaces(t *testing.T) {
	rec := NewReconciler(failingStore{Store: store.NewMemory()})

	_, err := rec.Reconcile(context.Background(), catalog.KindWork, RowData{"identifier": "T-1"}, tenant, Extra{})
	assert.EqualError(t, err, "disk full")
}

// =============================================================================
// Associations
// =============================================================================

func TestReconcile_CampaignDedupAppend(t *testing.T) {
	rec, mem := newReconciler()
	ctx := context.Background()

	require.NoError(t, mem.Save(ctx, &catalog.Release{ID: "r1", ClientID: tenant, CatNo: "CAT1"}))
	require.NoError(t, mem.Save(ctx, &catalog.Track{ID: "t1", ClientID: tenant, ISRC: "GB0001"}))
	require.NoError(t, mem.Save(ctx, &catalog.Work{ID: "w1", ClientID: "client-2", Identifier: "T-1"}))

	row := RowData{"identifier": "CMP", "releaseCatNo": "CAT1", "trackIsrc": "GB0001", "workIdentifier": "T-1"}

	first, err := rec.Reconcile(ctx, catalog.KindCampaign, row, tenant, Extra{})
	require.NoError(t, err)
	c := first.(*catalog.Campaign)
	assert.Equal(t, []string{"r1"}, c.ReleaseIDs)
	assert.Equal(t, []string{"t1"}, c.TrackIDs)
	// The work lives in another tenant, so the lookup misses and is ignored.
	assert.Empty(t, c.WorkIDs)

	second, err := rec.Reconcile(ctx, catalog.KindCampaign, row, tenant, Extra{})
	require.NoError(t, err)
	c = second.(*catalog.Campaign)
	assert.Len(t, c.ReleaseIDs, 1)
	assert.Len(t, c.TrackIDs, 1)
}

func TestReconcile_CampaignMissingRefIsNoop(t *testing.T) {
	rec, _ := newReconciler()

	e, err := rec.Reconcile(context.Background(), catalog.KindCampaign,
		RowData{"identifier": "CMP", "releaseCatNo": "NOPE"}, tenant, Extra{})
	require.NoError(t, err)
	assert.Empty(t, e.(*catalog.Campaign).ReleaseIDs)
}

func TestReconcile_ReleaseCreatesTrack(t *testing.T) {
	rec, mem := newReconciler()
	ctx := context.Background()

	row := RowData{
		"catNo": "CAT1", "title": "Album", "aliases": "LP1; Album One",
		"exemptFromMechanicals": "TRUE",
		"track_isrc": "GB0001", "track_title": "Song", "track_duration": "3:30",
	}

	e, err := rec.Reconcile(ctx, catalog.KindRelease, row, tenant, Extra{})
	require.NoError(t, err)
	rel := e.(*catalog.Release)
	assert.Equal(t, []string{"LP1", "Album One"}, rel.Aliases)
	assert.True(t, rel.ExemptFromMechanicals)
	require.Len(t, rel.TrackIDs, 1)

	tr, err := store.Get[*catalog.Track](ctx, mem, catalog.KindTrack, rel.TrackIDs[0])
	require.NoError(t, err)
	assert.Equal(t, "GB0001", tr.ISRC)
	assert.Equal(t, "Song", tr.Title)
	assert.Equal(t, "3:30", tr.Duration)

	// Same row again: no new track, no duplicate id.
	e, err = rec.Reconcile(ctx, catalog.KindRelease, row, tenant, Extra{})
	require.NoError(t, err)
	assert.Len(t, e.(*catalog.Release).TrackIDs, 1)
	assert.Equal(t, 1, mem.Len(catalog.KindTrack))
}

func TestReconcile_ReleaseWithoutTrackData(t *testing.T) {
	rec, mem := newReconciler()

	e, err := rec.Reconcile(context.Background(), catalog.KindRelease,
		RowData{"catNo": "CAT1", "track_title": "Orphan"}, tenant, Extra{})
	require.NoError(t, err)
	assert.Empty(t, e.(*catalog.Release).TrackIDs)
	assert.Zero(t, mem.Len(catalog.KindTrack))
}

func TestReconcile_ReleaseTrackErrorFailsRow(t *testing.T) {
	rec, mem := newReconciler()

	_, err := rec.Reconcile(context.Background(), catalog.KindRelease,
		RowData{"catNo": "CAT1", "track_id": "missing"}, tenant, Extra{})
	var missing *MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "Isrc", missing.Field)
	assert.Zero(t, mem.Len(catalog.KindRelease))
}

func TestReconcile_TrackPrefersPrefixedFields(t *testing.T) {
	rec, _ := newReconciler()

	tests := []struct {
		name string
		row  RowData
		want string
	}{
		{"prefixed only", RowData{"track_isrc": "I1", "track_title": "Prefixed"}, "Prefixed"},
		{"bare only", RowData{"isrc": "I2", "title": "Bare"}, "Bare"},
		{"both present", RowData{"isrc": "I3", "title": "Bare", "track_title": "Prefixed"}, "Prefixed"},
		{"prefixed blank wins", RowData{"isrc": "I4", "title": "Bare", "track_title": ""}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := rec.Reconcile(context.Background(), catalog.KindTrack, tt.row, tenant, Extra{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.(*catalog.Track).Title)
		})
	}
}

func TestReconcile_ContractTermsAppend(t *testing.T) {
	rec, _ := newReconciler()
	ctx := context.Background()

	extra := Extra{Terms: map[catalog.TermList][]RowData{
		catalog.TermsSales: {
			{"contractName": "Deal", "channel": "Physical", "territory": "GB", "rate": "18%"},
			{"contractName": "Other", "channel": "Digital", "rate": "25"},
			{"contractName": "Deal", "channel": "Digital", "rate": "0.25"},
		},
		catalog.TermsReserves: {
			{"contractName": "Deal", "rate": "(10)"},
		},
	}}
	row := RowData{"name": "Deal", "minPayout": "$1,000.50", "payeeId": "payee-1"}

	e, err := rec.Reconcile(ctx, catalog.KindContract, row, tenant, extra)
	require.NoError(t, err)
	c := e.(*catalog.Contract)
	assert.Equal(t, 1000.5, c.MinPayout)
	assert.Equal(t, "payee-1", c.PayeeID)
	require.Len(t, c.SalesTerms, 2)
	assert.Equal(t, "Physical", c.SalesTerms[0].Channel)
	assert.Equal(t, 18.0, c.SalesTerms[0].Rate)
	assert.Equal(t, "Digital", c.SalesTerms[1].Channel)
	require.Len(t, c.ReservesTerms, 1)
	assert.Equal(t, -10.0, c.ReservesTerms[0].Rate)
	assert.Empty(t, c.MechanicalTerms)

	// Re-importing the same sheets appends again; terms are never deduplicated.
	e, err = rec.Reconcile(ctx, catalog.KindContract, row, tenant, extra)
	require.NoError(t, err)
	assert.Len(t, e.(*catalog.Contract).SalesTerms, 4)
}

func TestReconcile_ContractBadTermRate(t *testing.T) {
	rec, _ := newReconciler()

	extra := Extra{Terms: map[catalog.TermList][]RowData{
		catalog.TermsCosts: {{"contractName": "Deal", "rate": "half"}},
	}}
	_, err := rec.Reconcile(context.Background(), catalog.KindContract, RowData{"name": "Deal"}, tenant, extra)
	var invalid *InvalidFieldError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "rate", invalid.Field)
}

// =============================================================================
// Rights
// =============================================================================

func seedContract(t *testing.T, mem *store.Memory) {
	t.Helper()
	require.NoError(t, mem.Save(context.Background(), &catalog.Contract{ID: "k1", ClientID: tenant, Name: "Deal"}))
	require.NoError(t, mem.Save(context.Background(), &catalog.Contract{ID: "k9", ClientID: "client-2", Name: "Theirs"}))
}

func TestReconcile_RightsAppendWithoutDedup(t *testing.T) {
	rec, mem := newReconciler()
	ctx := context.Background()
	seedContract(t, mem)

	row := RowData{"identifier": "T-1", "salesReturnsRights": "Deal:50; k1:25%", "costsRights": "k1:100"}

	e, err := rec.Reconcile(ctx, catalog.KindWork, row, tenant, Extra{})
	require.NoError(t, err)
	w := e.(*catalog.Work)
	assert.Equal(t, []catalog.Right{{ContractID: "k1", Percentage: 50}, {ContractID: "k1", Percentage: 25}}, w.SalesReturnsRights)
	assert.Equal(t, []catalog.Right{{ContractID: "k1", Percentage: 100}}, w.CostsRights)

	e, err = rec.Reconcile(ctx, catalog.KindWork, row, tenant, Extra{})
	require.NoError(t, err)
	w = e.(*catalog.Work)
	assert.Len(t, w.SalesReturnsRights, 4)
	assert.Len(t, w.CostsRights, 2)

	// An empty cell leaves stored rights alone.
	e, err = rec.Reconcile(ctx, catalog.KindWork, RowData{"identifier": "T-1"}, tenant, Extra{})
	require.NoError(t, err)
	assert.Len(t, e.(*catalog.Work).SalesReturnsRights, 4)
}

func TestReconcile_ReleaseAndNestedTrackRights(t *testing.T) {
	rec, mem := newReconciler()
	ctx := context.Background()
	seedContract(t, mem)

	row := RowData{
		"catNo": "CAT1", "salesReturnsRights": "Deal:10",
		"track_isrc": "GB0001", "track_salesReturnsRights": "Deal:20", "track_costsRights": "k1:5",
	}
	e, err := rec.Reconcile(ctx, catalog.KindRelease, row, tenant, Extra{})
	require.NoError(t, err)
	rel := e.(*catalog.Release)
	assert.Equal(t, []catalog.Right{{ContractID: "k1", Percentage: 10}}, rel.SalesReturnsRights)
	assert.Empty(t, rel.CostsRights)

	tr, err := store.Get[*catalog.Track](ctx, mem, catalog.KindTrack, rel.TrackIDs[0])
	require.NoError(t, err)
	assert.Equal(t, []catalog.Right{{ContractID: "k1", Percentage: 20}}, tr.SalesReturnsRights)
	assert.Equal(t, []catalog.Right{{ContractID: "k1", Percentage: 5}}, tr.CostsRights)

	// A Track sheet reads the bare columns.
	e, err = rec.Reconcile(ctx, catalog.KindTrack, RowData{"isrc": "GB0001", "costsRights": "Deal:1"}, tenant, Extra{})
	require.NoError(t, err)
	assert.Len(t, e.(*catalog.Track).CostsRights, 2)
}

func TestReconcile_RightsErrors(t *testing.T) {
	rec, mem := newReconciler()
	ctx := context.Background()
	seedContract(t, mem)

	tests := []struct {
		name string
		cell string
	}{
		{"unknown contract", "Nope:10"},
		{"other tenant's contract by id", "k9:10"},
		{"other tenant's contract by name", "Theirs:10"},
		{"no percentage", "Deal"},
		{"bad percentage", "Deal:half"},
		{"no contract", ":10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rec.Reconcile(ctx, catalog.KindWork, RowData{"identifier": "T-1", "costsRights": tt.cell}, tenant, Extra{})
			var invalid *InvalidFieldError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, "costsRights", invalid.Field)
		})
	}
	assert.Equal(t, 0, mem.Len(catalog.KindWork))
}

func TestReconcile_CampaignContract(t *testing.T) {
	rec, mem := newReconciler()
	ctx := context.Background()
	seedContract(t, mem)

	e, err := rec.Reconcile(ctx, catalog.KindCampaign, RowData{"identifier": "CMP", "contractId": "Deal"}, tenant, Extra{})
	require.NoError(t, err)
	assert.Equal(t, "k1", e.(*catalog.Campaign).ContractID)

	e, err = rec.Reconcile(ctx, catalog.KindCampaign, RowData{"identifier": "CMP", "contractId": "k1"}, tenant, Extra{})
	require.NoError(t, err)
	assert.Equal(t, "k1", e.(*catalog.Campaign).ContractID)

	e, err = rec.Reconcile(ctx, catalog.KindCampaign, RowData{"identifier": "CMP"}, tenant, Extra{})
	require.NoError(t, err)
	assert.Empty(t, e.(*catalog.Campaign).ContractID)

	_, err = rec.Reconcile(ctx, catalog.KindCampaign, RowData{"identifier": "CMP", "contractId": "k9"}, tenant, Extra{})
	var invalid *InvalidFieldError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "contractId", invalid.Field)
}

func TestRoundTrip_RightsInSameTenant(t *testing.T) {
	ctx := context.Background()
	rec, mem := newReconciler()
	seedContract(t, mem)

	w := &catalog.Work{ID: "w1", ClientID: tenant, Identifier: "T-1", Rights: catalog.Rights{
		SalesReturnsRights: []catalog.Right{{ContractID: "k1", Percentage: 12.5}},
	}}
	require.NoError(t, mem.Save(ctx, w))

	rows, err := Flatten(ctx, catalog.KindWork, []catalog.Entity{w}, mem)
	require.NoError(t, err)

	e, err := rec.Reconcile(ctx, catalog.KindWork, toRowData(Columns(catalog.KindWork), rows[0]), tenant, Extra{})
	require.NoError(t, err)
	got := e.(*catalog.Work)
	assert.Equal(t, "w1", got.ID)
	// Re-importing an export appends the same rights again.
	assert.Equal(t, []catalog.Right{
		{ContractID: "k1", Percentage: 12.5},
		{ContractID: "k1", Percentage: 12.5},
	}, got.SalesReturnsRights)
}

// =============================================================================
// Round trip
// =============================================================================

func TestRoundTrip_ReleaseWithTrack(t *testing.T) {
	ctx := context.Background()
	src := store.NewMemory()

	track := &catalog.Track{ID: catalog.NewID(), ClientID: "source", ISRC: "GB-ABC-24-00001", Title: "Song", Aliases: []string{"S1"}}
	release := &catalog.Release{
		ID: catalog.NewID(), ClientID: "source", CatNo: "CAT001", Title: "Album",
		Aliases: []string{"A", "B"}, ExemptFromMechanicals: true, TrackIDs: []string{track.ID},
	}
	require.NoError(t, src.Save(ctx, track))
	require.NoError(t, src.Save(ctx, release))

	rows, err := Flatten(ctx, catalog.KindRelease, []catalog.Entity{release}, src)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	rec, dst := newReconciler()
	e, err := rec.Reconcile(ctx, catalog.KindRelease, toRowData(Columns(catalog.KindRelease), rows[0]), "fresh", Extra{})
	require.NoError(t, err)

	got := e.(*catalog.Release)
	require.Len(t, got.TrackIDs, 1)
	assert.Equal(t, "fresh", got.ClientID)
	assert.Equal(t, []string{"A", "B"}, got.Aliases)
	assert.True(t, got.ExemptFromMechanicals)

	// The exported ids belong to the source store, so both entities are new.
	assert.NotEqual(t, release.ID, got.ID)
	gotTrack, err := store.Get[*catalog.Track](ctx, dst, catalog.KindTrack, got.TrackIDs[0])
	require.NoError(t, err)
	assert.Equal(t, track.ISRC, gotTrack.ISRC)
	assert.Equal(t, []string{"S1"}, gotTrack.Aliases)
}

func TestRoundTrip_ContractSheets(t *testing.T) {
	ctx := context.Background()
	contract := &catalog.Contract{
		ID: "k1", ClientID: "source", Name: "Deal", MinPayout: 50,
		SalesTerms:      []catalog.Term{{Channel: "Digital", Rate: 0.25}},
		MechanicalTerms: []catalog.Term{{Territory: "GB", Rate: 8.5}},
	}

	sheets, err := FlattenContracts([]catalog.Entity{contract})
	require.NoError(t, err)
	require.Len(t, sheets.Contracts, 1)

	extra := Extra{Terms: map[catalog.TermList][]RowData{}}
	for l, rows := range sheets.Terms {
		for _, row := range rows {
			extra.Terms[l] = append(extra.Terms[l], toRowData(TermColumns(), row))
		}
	}

	rec, _ := newReconciler()
	e, err := rec.Reconcile(ctx, catalog.KindContract, toRowData(Columns(catalog.KindContract), sheets.Contracts[0]), "fresh", extra)
	require.NoError(t, err)

	got := e.(*catalog.Contract)
	assert.Equal(t, 50.0, got.MinPayout)
	require.Len(t, got.SalesTerms, 1)
	assert.Equal(t, 0.25, got.SalesTerms[0].Rate)
	assert.Equal(t, "Deal", got.SalesTerms[0].ContractName)
	require.Len(t, got.MechanicalTerms, 1)
	assert.Equal(t, "GB", got.MechanicalTerms[0].Territory)
}

// =============================================================================
// Field parsing
// =============================================================================

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"", 0, true},
		{"12", 12, true},
		{" 1,234.50 ", 1234.5, true},
		{"$99", 99, true},
		{"£3.10", 3.1, true},
		{"€7", 7, true},
		{"(15.25)", -15.25, true},
		{"18%", 18, true},
		{"1e3", 1000, true},
		{"abc", 0, false},
		{"1.2.3", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseNumber(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseBool(t *testing.T) {
	for _, s := range []string{"TRUE", "true", "Yes", "y", "1", "T"} {
		v, ok := parseBool(s)
		assert.True(t, ok, s)
		assert.True(t, v, s)
	}
	for _, s := range []string{"FALSE", "no", "0", "", "f"} {
		v, ok := parseBool(s)
		assert.True(t, ok, s)
		assert.False(t, v, s)
	}
	_, ok := parseBool("perhaps")
	assert.False(t, ok)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"", "", true},
		{"2024-03-15", "2024-03-15", true},
		{"3/15/2024", "2024-03-15", true},
		{"03/15/2024", "2024-03-15", true},
		{"Mar 15, 2024", "2024-03-15", true},
		{"20240315", "2024-03-15", true},
		{"3/15/24", "2024-03-15", true},
		{"6/1/95", "1995-06-01", true},
		{"soon", "", false},
		{"13/45/2024", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseDate(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRowDataLookup(t *testing.T) {
	row := RowData{"title": " Bare ", "track_title": "Prefixed"}

	v, ok := row.Lookup("missing", "title")
	assert.True(t, ok)
	assert.Equal(t, "Bare", v)

	assert.Equal(t, "Prefixed", row.Get(trackField("title")...))

	_, ok = row.Lookup("missing")
	assert.False(t, ok)
	assert.Empty(t, row.Get("missing"))
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"a", "b"}, splitList("a; ;b;"))
	assert.Equal(t, "a;b", joinList([]string{"a", "b"}))
}
