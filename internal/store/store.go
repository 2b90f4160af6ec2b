// Package store persists catalog entities as JSON documents.
//
// The reconciliation pipeline only ever needs four primitives: find by id,
// find by business key within a tenant, save, and list a tenant's entities of
// one kind. [Memory] serves tests and the CLI's dry runs, [Postgres] is the
// production backend, and [Cached] fronts either with a Redis business-key
// lookup cache.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/royalty/internal/catalog"
)

var (
	// ErrNotFound is returned when no entity matches a lookup.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicateKey is returned by Save when another entity in the same
	// tenant already holds the business key.
	ErrDuplicateKey = errors.New("duplicate business key")

	// ErrTenantChanged is returned by Save when an existing id would move to
	// a different tenant or kind.
	ErrTenantChanged = errors.New("entity tenant cannot change")
)

// Store is the storage collaborator consumed by the reconcile and core packages.
type Store interface {
	// FindByID returns the entity of kind k with the given id.
	FindByID(ctx context.Context, k catalog.Kind, id string) (catalog.Entity, error)
	// FindOne returns the entity of kind k in tenant whose business key is key.
	FindOne(ctx context.Context, k catalog.Kind, tenant, key string) (catalog.Entity, error)
	// Save inserts or replaces e by id.
	Save(ctx context.Context, e catalog.Entity) error
	// List returns every entity of kind k in tenant, oldest first.
	List(ctx context.Context, k catalog.Kind, tenant string) ([]catalog.Entity, error)
}

// Get loads an entity by id and asserts its concrete type.
func Get[T catalog.Entity](ctx context.Context, s Store, k catalog.Kind, id string) (T, error) {
	var zero T
	e, err := s.FindByID(ctx, k, id)
	if err != nil {
		return zero, err
	}
	v, ok := e.(T)
	if !ok {
		return zero, fmt.Errorf("%s %s: unexpected type %T", k, id, e)
	}
	return v, nil
}

// FindOneAs loads an entity by business key and asserts its concrete type.
func FindOneAs[T catalog.Entity](ctx context.Context, s Store, k catalog.Kind, tenant, key string) (T, error) {
	var zero T
	e, err := s.FindOne(ctx, k, tenant, key)
	if err != nil {
		return zero, err
	}
	v, ok := e.(T)
	if !ok {
		return zero, fmt.Errorf("%s %q: unexpected type %T", k, key, e)
	}
	return v, nil
}
