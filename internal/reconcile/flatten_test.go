package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/royalty/internal/catalog"
	"github.com/JonMunkholm/royalty/internal/store"
)

func seededLoader(t *testing.T) *store.Memory {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()
	for _, e := range []catalog.Entity{
		&catalog.Release{ID: "r1", ClientID: tenant, CatNo: "CAT1"},
		&catalog.Release{ID: "r2", ClientID: tenant, CatNo: "CAT2"},
		&catalog.Track{ID: "t1", ClientID: tenant, ISRC: "GB0001", Title: "One", Aliases: []string{"Uno", "Eins"}},
		&catalog.Track{ID: "t2", ClientID: tenant, ISRC: "GB0002", Title: "Two"},
		&catalog.Work{ID: "w1", ClientID: tenant, Identifier: "T-1"},
	} {
		require.NoError(t, mem.Save(ctx, e))
	}
	return mem
}

func TestFlatten_CampaignWithoutAssociations(t *testing.T) {
	c := &catalog.Campaign{ID: "c1", Title: "Spring", Artist: "Band", Identifier: "CMP1",
		ReleaseIDs: []string{}, TrackIDs: []string{}, WorkIDs: []string{}}

	rows, err := Flatten(context.Background(), catalog.KindCampaign, []catalog.Entity{c}, store.NewMemory())
	require.NoError(t, err)
	assert.Equal(t, [][]Value{{"c1", "Spring", "Band", "CMP1", "", "", "", ""}}, rows)
}

func TestFlatten_CampaignOneRowPerAssociation(t *testing.T) {
	c := &catalog.Campaign{ID: "c1", Title: "Spring", Artist: "Band", Identifier: "CMP1",
		ReleaseIDs: []string{"r1"}, TrackIDs: []string{"t1"}}

	rows, err := Flatten(context.Background(), catalog.KindCampaign, []catalog.Entity{c}, seededLoader(t))
	require.NoError(t, err)
	assert.Equal(t, [][]Value{
		{"c1", "Spring", "Band", "CMP1", "CAT1", "", "", ""},
		{"c1", "Spring", "Band", "CMP1", "", "GB0001", "", ""},
	}, rows)
}

func TestFlatten_CampaignOrderAndMisses(t *testing.T) {
	c := &catalog.Campaign{ID: "c1", Identifier: "CMP1",
		ReleaseIDs: []string{"r2", "gone", "r1"}, TrackIDs: []string{"t2"}, WorkIDs: []string{"w1"}}

	rows, err := Flatten(context.Background(), catalog.KindCampaign, []catalog.Entity{c}, seededLoader(t))
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "CAT2", rows[0][4])
	assert.Equal(t, "CAT1", rows[1][4])
	assert.Equal(t, "GB0002", rows[2][5])
	assert.Equal(t, "T-1", rows[3][6])
}

func TestFlatten_ReleaseCrossProduct(t *testing.T) {
	r := &catalog.Release{ID: "r1", CatNo: "CAT1", Title: "Album", Aliases: []string{"A", "B"},
		TrackIDs: []string{"t2", "missing", "t1"}}

	rows, err := Flatten(context.Background(), catalog.KindRelease, []catalog.Entity{r}, seededLoader(t))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, []Value{
		"r1", "CAT1", "Album", "", "A;B", "", "", "", "", "FALSE",
		"t2", "GB0002", "Two", "", "", "", "",
		"", "", "", "",
	}, rows[0])
	assert.Equal(t, "t1", rows[1][10])
	assert.Equal(t, "Uno;Eins", rows[1][15])
	assert.Len(t, rows[0], len(Columns(catalog.KindRelease)))
}

func TestFlatten_RightsAndCampaignContract(t *testing.T) {
	ctx := context.Background()
	mem := seededLoader(t)

	r := &catalog.Release{ID: "r9", CatNo: "CAT9", TrackIDs: []string{"t1"}, Rights: catalog.Rights{
		SalesReturnsRights: []catalog.Right{{ContractID: "k1", Percentage: 50}, {ContractID: "k2", Percentage: 12.5}},
		CostsRights:        []catalog.Right{{ContractID: "k1", Percentage: 100}},
	}}
	rows, err := Flatten(ctx, catalog.KindRelease, []catalog.Entity{r}, mem)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	cols := Columns(catalog.KindRelease)
	assert.Equal(t, "k1:50;k2:12.5", rows[0][indexOf(cols, "salesReturnsRights")])
	assert.Equal(t, "k1:100", rows[0][indexOf(cols, "costsRights")])
	assert.Equal(t, "", rows[0][indexOf(cols, "track_salesReturnsRights")])

	w := &catalog.Work{ID: "w9", Identifier: "T-9", Rights: catalog.Rights{
		CostsRights: []catalog.Right{{ContractID: "k3", Percentage: 0.25}},
	}}
	rows, err = Flatten(ctx, catalog.KindWork, []catalog.Entity{w}, mem)
	require.NoError(t, err)
	assert.Equal(t, "k3:0.25", rows[0][indexOf(Columns(catalog.KindWork), "costsRights")])

	c := &catalog.Campaign{ID: "c9", Identifier: "CMP9", ContractID: "k1"}
	rows, err = Flatten(ctx, catalog.KindCampaign, []catalog.Entity{c}, mem)
	require.NoError(t, err)
	assert.Equal(t, "k1", rows[0][indexOf(Columns(catalog.KindCampaign), "contractId")])
}

func indexOf(cols []string, name string) int {
	for i, c := range cols {
		if c == name {
			return i
		}
	}
	return -1
}

func TestFlatten_ReleaseWithoutTracksHasNoRows(t *testing.T) {
	r := &catalog.Release{ID: "r1", CatNo: "CAT1", ExemptFromMechanicals: true}

	rows, err := Flatten(context.Background(), catalog.KindRelease, []catalog.Entity{r}, store.NewMemory())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestFlatten_SingleRowKinds(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		kind   catalog.Kind
		entity catalog.Entity
		want   []Value
	}{
		{
			name:   "payee",
			kind:   catalog.KindPayee,
			entity: &catalog.Payee{ID: "p1", Name: "Acme", VatNo: "V1", IBAN: "GB00"},
			want:   []Value{"p1", "Acme", "", "", "V1", "", "", "", "", "GB00"},
		},
		{
			name:   "contract",
			kind:   catalog.KindContract,
			entity: &catalog.Contract{ID: "k1", Name: "Deal", MinPayout: 25, PayeeID: "p1"},
			want:   []Value{"k1", "Deal", "", "", 25.0, "p1"},
		},
		{
			name:   "track",
			kind:   catalog.KindTrack,
			entity: &catalog.Track{ID: "t1", ISRC: "GB0001", Aliases: []string{"x", "y"}},
			want:   []Value{"t1", "GB0001", "", "", "", "x;y", "", "", ""},
		},
		{
			name:   "work",
			kind:   catalog.KindWork,
			entity: &catalog.Work{ID: "w1", Identifier: "T-1", Composer: "C"},
			want:   []Value{"w1", "T-1", "", "C", "", "", "", ""},
		},
		{
			name:   "cost",
			kind:   catalog.KindCost,
			entity: &catalog.Cost{ID: "c1", Amount: 9.5, AssociatedContractIDs: []string{"k1", "k2"}},
			want:   []Value{"c1", "", "", 9.5, "", "k1;k2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := Flatten(ctx, tt.kind, []catalog.Entity{tt.entity}, store.NewMemory())
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, tt.want, rows[0])
			assert.Len(t, rows[0], len(Columns(tt.kind)))
		})
	}
}

func TestFlatten_PreservesInputOrder(t *testing.T) {
	var entities []catalog.Entity
	for _, id := range []string{"w5", "w3", "w9", "w1", "w7", "w2", "w8", "w4", "w6"} {
		entities = append(entities, &catalog.Work{ID: id})
	}

	rows, err := FlattenN(context.Background(), catalog.KindWork, entities, store.NewMemory(), 3)
	require.NoError(t, err)
	require.Len(t, rows, len(entities))
	for i, e := range entities {
		assert.Equal(t, e.EntityID(), rows[i][0])
	}
}

func TestFlatten_RejectsNonEntities(t *testing.T) {
	ctx := context.Background()
	var typedNil *catalog.Track

	tests := []struct {
		name     string
		entities []catalog.Entity
	}{
		{"nil element", []catalog.Entity{&catalog.Track{ID: "t1"}, nil}},
		{"typed nil", []catalog.Entity{typedNil}},
		{"wrong kind", []catalog.Entity{&catalog.Work{ID: "w1"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Flatten(ctx, catalog.KindTrack, tt.entities, store.NewMemory())
			assert.ErrorIs(t, err, ErrNotEntitySequence)
		})
	}

	_, err := Flatten(ctx, catalog.KindClient, nil, store.NewMemory())
	assert.ErrorIs(t, err, ErrUnsupportedKind)

	rows, err := Flatten(ctx, catalog.KindTrack, nil, store.NewMemory())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestFlatten_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Flatten(ctx, catalog.KindWork, []catalog.Entity{&catalog.Work{ID: "w1"}}, store.NewMemory())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFlattenContracts(t *testing.T) {
	contracts := []catalog.Entity{
		&catalog.Contract{ID: "k1", Name: "Deal",
			SalesTerms:    []catalog.Term{{ContractName: "Stale", Channel: "Digital", Rate: 0.2}},
			ReservesTerms: []catalog.Term{{Rate: 10}, {Rate: 5}}},
		&catalog.Contract{ID: "k2", Name: "Other",
			SalesTerms: []catalog.Term{{Channel: "Physical", Rate: 0.1}}},
	}

	sheets, err := FlattenContracts(contracts)
	require.NoError(t, err)
	assert.Len(t, sheets.Contracts, 2)
	assert.Len(t, sheets.Terms, len(catalog.TermLists))

	sales := sheets.Terms[catalog.TermsSales]
	require.Len(t, sales, 2)
	assert.Equal(t, []Value{"Deal", "Digital", "", "", "", 0.2, ""}, sales[0])
	assert.Equal(t, "Other", sales[1][0])
	assert.Len(t, sheets.Terms[catalog.TermsReserves], 2)
	assert.Empty(t, sheets.Terms[catalog.TermsCosts])

	_, err = FlattenContracts([]catalog.Entity{&catalog.Payee{}})
	assert.ErrorIs(t, err, ErrNotEntitySequence)
}
