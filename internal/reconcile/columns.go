// Package reconcile moves catalog entities between the graph and flat rows.
//
// Export goes through [Flatten], which expands each entity and its associated
// children into one or more rows. Import goes through [BatchRunner.RunBatch],
// which drives the [Reconciler] over every row: resolve the row's identity by
// id or business key, overwrite scalar fields, dedup-append association ids,
// append rights, and save.
//
// Both directions share the column names returned by [Columns], which is what
// lets an exported sheet be imported again unchanged.
package reconcile

import "github.com/JonMunkholm/royalty/internal/catalog"

var (
	campaignColumns = []string{
		"id", "title", "artist", "identifier",
		"releaseCatNo", "trackIsrc", "workIdentifier", "contractId",
	}
	contractColumns = []string{
		"id", "name", "accountingPeriod", "type", "minPayout", "payeeId",
	}
	termColumns = []string{
		"contractName", "channel", "configuration", "priceCategory",
		"territory", "rate", "basis",
	}
	payeeColumns = []string{
		"id", "name", "address", "country", "vatNo",
		"bankName", "bankAddress", "accountNo", "sortCode", "iban",
	}
	releaseColumns = []string{
		"id", "catNo", "title", "artist", "aliases", "barcode", "format",
		"releaseDate", "priceCategory", "exemptFromMechanicals",
		"track_id", "track_isrc", "track_title", "track_version",
		"track_artist", "track_aliases", "track_duration",
		"salesReturnsRights", "costsRights",
		"track_salesReturnsRights", "track_costsRights",
	}
	trackColumns = []string{
		"id", "isrc", "title", "version", "artist", "aliases", "duration",
		"salesReturnsRights", "costsRights",
	}
	workColumns = []string{
		"id", "identifier", "title", "composer", "publisher", "aliases",
		"salesReturnsRights", "costsRights",
	}
	costColumns = []string{
		"id", "description", "category", "amount", "date", "associatedContractIds",
	}
)

// Columns returns the row header for kind k, or nil when k has no layout.
func Columns(k catalog.Kind) []string {
	switch k {
	case catalog.KindCampaign:
		return campaignColumns
	case catalog.KindContract:
		return contractColumns
	case catalog.KindPayee:
		return payeeColumns
	case catalog.KindRelease:
		return releaseColumns
	case catalog.KindTrack:
		return trackColumns
	case catalog.KindWork:
		return workColumns
	case catalog.KindCost:
		return costColumns
	}
	return nil
}

// TermColumns returns the header shared by all five term sheets.
func TermColumns() []string {
	return termColumns
}

// Importable reports whether rows of kind k can be reconciled.
func Importable(k catalog.Kind) bool {
	switch k {
	case catalog.KindCampaign, catalog.KindContract, catalog.KindPayee,
		catalog.KindRelease, catalog.KindTrack, catalog.KindWork:
		return true
	}
	return false
}

// keyColumn is the row column holding the business key for kind k.
func keyColumn(k catalog.Kind) string {
	switch k {
	case catalog.KindCampaign, catalog.KindWork:
		return "identifier"
	case catalog.KindContract:
		return "name"
	case catalog.KindPayee:
		return "vatNo"
	case catalog.KindRelease:
		return "catNo"
	case catalog.KindTrack:
		return "isrc"
	}
	return ""
}
