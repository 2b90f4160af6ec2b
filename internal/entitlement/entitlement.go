// Package entitlement decides whether a principal may read or write a single
// catalog entity. The decision is a pure predicate: it never errors, and
// absent or empty fields degrade to "no match".
package entitlement

import (
	"errors"

	"github.com/JonMunkholm/royalty/internal/catalog"
)

// ErrForbidden is returned by callers that translate a Forbidden decision
// into an error at their boundary.
var ErrForbidden = errors.New("forbidden")

// Mode is the kind of access being requested.
type Mode string

const (
	Read  Mode = "read"
	Write Mode = "write"
)

// Principal describes who is acting. It is supplied by the auth layer and
// only ever read here.
type Principal struct {
	Internal    bool     `json:"internal"`
	ParentID    string   `json:"parentId,omitempty"`
	TenantID    string   `json:"tenantId,omitempty"`
	PayeeID     string   `json:"payeeId,omitempty"`
	ContractIDs []string `json:"contractIds,omitempty"`
}

// IsPayee reports whether the principal is scoped down to a single payee.
func (p Principal) IsPayee() bool {
	return p.PayeeID != ""
}

// HasContract reports whether id is among the granted contracts.
func (p Principal) HasContract(id string) bool {
	if id == "" {
		return false
	}
	for _, granted := range p.ContractIDs {
		if granted == id {
			return true
		}
	}
	return false
}

// GrantsAny reports whether any of ids is granted.
func (p Principal) GrantsAny(ids []string) bool {
	for _, id := range ids {
		if p.HasContract(id) {
			return true
		}
	}
	return false
}

// Forbidden reports whether p may NOT access e in the given mode.
func Forbidden(e catalog.Entity, p Principal, mode Mode) bool {
	if e == nil {
		return true
	}

	switch v := e.(type) {
	case *catalog.Parent:
		return !(p.Internal || matches(p.ParentID, v.ID))

	case *catalog.Client:
		if p.Internal || matches(p.ParentID, v.ParentID) {
			return false
		}
		return !(matches(p.TenantID, v.ID) && !p.IsPayee())
	}

	// Every remaining kind is owned by a tenant. Writes need a non-payee
	// principal scoped to that tenant; reads get the same plus a per-kind
	// payee carve-out.
	if tenantMember(e, p) {
		return false
	}
	if mode != Read || !p.IsPayee() {
		return true
	}
	return !payeeMayRead(e, p)
}

// FilterReadable returns the entities p may read, preserving order.
func FilterReadable(entities []catalog.Entity, p Principal) []catalog.Entity {
	out := make([]catalog.Entity, 0, len(entities))
	for _, e := range entities {
		if !Forbidden(e, p, Read) {
			out = append(out, e)
		}
	}
	return out
}

func tenantMember(e catalog.Entity, p Principal) bool {
	return MayWriteTenant(p, e.TenantID())
}

// MayWriteTenant reports whether p may write entities owned by tenant. Only a
// non-payee principal scoped to that tenant may; internal and parent-scoped
// principals administer Clients, not the data inside them.
func MayWriteTenant(p Principal, tenant string) bool {
	return !p.Internal && !p.IsPayee() && matches(p.TenantID, tenant)
}

func payeeMayRead(e catalog.Entity, p Principal) bool {
	switch v := e.(type) {
	case *catalog.Payee:
		return matches(p.PayeeID, v.ID)
	case *catalog.Contract:
		return matches(p.PayeeID, v.PayeeID)
	case *catalog.Campaign:
		return p.HasContract(v.ContractID)
	case *catalog.Release, *catalog.Track, *catalog.Work, *catalog.Cost:
		return p.GrantsAny(catalog.RightsContractIDs(e))
	}
	return false
}

// matches compares two ids, treating empty as never matching.
func matches(a, b string) bool {
	return a != "" && a == b
}
