// Package catalog defines the royalty catalog graph: the entity kinds, their
// persisted document shapes, and the small set of invariants every kind shares.
//
// Every entity implements [Entity]. Code that needs per-kind behavior switches on
// [Kind] rather than relying on a registry of constructors, so the set of kinds
// is closed and visible in one place.
package catalog

import (
	"fmt"
	"strings"
)

// Kind tags a catalog entity type.
type Kind string

const (
	KindParent   Kind = "parent"
	KindClient   Kind = "client"
	KindContract Kind = "contract"
	KindPayee    Kind = "payee"
	KindCampaign Kind = "campaign"
	KindRelease  Kind = "release"
	KindTrack    Kind = "track"
	KindWork     Kind = "work"
	KindCost     Kind = "cost"
)

// Kinds lists every kind in a stable order.
var Kinds = []Kind{
	KindParent, KindClient, KindContract, KindPayee, KindCampaign,
	KindRelease, KindTrack, KindWork, KindCost,
}

// ParseKind converts a user-supplied name ("releases", "Release") to a Kind.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, "s")
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown kind: %q", s)
}

// TenantScoped reports whether entities of this kind belong to a Client.
// Parents sit above tenants; Clients are the tenant root and scope themselves.
func (k Kind) TenantScoped() bool {
	return k != KindParent
}

// BusinessKeyField returns the display name of the field that identifies an
// entity of this kind within a tenant when no id is supplied. Kinds without a
// business key return "".
func BusinessKeyField(k Kind) string {
	switch k {
	case KindContract:
		return "Name"
	case KindPayee:
		return "VatNo"
	case KindRelease:
		return "CatNo"
	case KindTrack:
		return "Isrc"
	case KindWork, KindCampaign:
		return "Identifier"
	default:
		return ""
	}
}
