package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/royalty/internal/catalog"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS catalog_entities (
	id           uuid PRIMARY KEY,
	kind         text        NOT NULL,
	tenant_id    text,
	business_key text        NOT NULL DEFAULT '',
	doc          jsonb       NOT NULL,
	created_at   timestamptz NOT NULL DEFAULT now(),
	updated_at   timestamptz NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS catalog_entities_business_key_idx
	ON catalog_entities (tenant_id, kind, business_key)
	WHERE business_key <> '';

CREATE INDEX IF NOT EXISTS catalog_entities_tenant_kind_idx
	ON catalog_entities (tenant_id, kind, created_at);
`

const (
	findByIDSQL = `SELECT doc FROM catalog_entities WHERE id = $1 AND kind = $2`

	findOneSQL = `
SELECT doc FROM catalog_entities
WHERE tenant_id = $1 AND kind = $2 AND business_key = $3`

	// Tenant and kind are written on insert only.
	saveSQL = `
INSERT INTO catalog_entities (id, kind, tenant_id, business_key, doc)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE
SET business_key = EXCLUDED.business_key,
    doc          = EXCLUDED.doc,
    updated_at   = now()
WHERE catalog_entities.tenant_id IS NOT DISTINCT FROM EXCLUDED.tenant_id
  AND catalog_entities.kind = EXCLUDED.kind`

	listSQL = `
SELECT doc FROM catalog_entities
WHERE tenant_id = $1 AND kind = $2
ORDER BY created_at, id`
)

// Postgres stores entities in a single jsonb document table.
type Postgres struct {
	db DBTX
}

// NewPostgres wraps a pool, connection or transaction.
func NewPostgres(db DBTX) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the document table and its indexes if missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (p *Postgres) FindByID(ctx context.Context, k catalog.Kind, id string) (catalog.Entity, error) {
	pgID, ok := toPgUUID(id)
	if !ok {
		// A malformed id can never match a stored row.
		return nil, fmt.Errorf("%s %s: %w", k, id, ErrNotFound)
	}

	var doc []byte
	err := p.db.QueryRow(ctx, findByIDSQL, pgID, string(k)).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s %s: %w", k, id, ErrNotFound)
		}
		return nil, fmt.Errorf("find %s %s: %w", k, id, err)
	}
	return catalog.Decode(k, doc)
}

func (p *Postgres) FindOne(ctx context.Context, k catalog.Kind, tenant, key string) (catalog.Entity, error) {
	if key == "" {
		return nil, fmt.Errorf("%s %q: %w", k, key, ErrNotFound)
	}

	var doc []byte
	err := p.db.QueryRow(ctx, findOneSQL, toPgText(tenant), string(k), key).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s %q: %w", k, key, ErrNotFound)
		}
		return nil, fmt.Errorf("find %s %q: %w", k, key, err)
	}
	return catalog.Decode(k, doc)
}

func (p *Postgres) Save(ctx context.Context, e catalog.Entity) error {
	doc, err := catalog.Encode(e)
	if err != nil {
		return err
	}
	pgID, ok := toPgUUID(e.EntityID())
	if !ok {
		return fmt.Errorf("save %s: invalid id %q", e.Kind(), e.EntityID())
	}

	tag, err := p.db.Exec(ctx, saveSQL,
		pgID,
		string(e.Kind()),
		toPgText(e.TenantID()),
		e.BusinessKey(),
		doc,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("save %s %q: %w", e.Kind(), e.BusinessKey(), ErrDuplicateKey)
		}
		return fmt.Errorf("save %s %s: %w", e.Kind(), e.EntityID(), err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("save %s %s: %w", e.Kind(), e.EntityID(), ErrTenantChanged)
	}
	return nil
}

func (p *Postgres) List(ctx context.Context, k catalog.Kind, tenant string) ([]catalog.Entity, error) {
	rows, err := p.db.Query(ctx, listSQL, toPgText(tenant), string(k))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", k, err)
	}
	docs, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", k, err)
	}

	out := make([]catalog.Entity, 0, len(docs))
	for _, doc := range docs {
		e, err := catalog.Decode(k, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// toPgText maps "" to SQL NULL so Parents (no tenant) never collide in the
// business-key index.
func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

func toPgUUID(s string) (pgtype.UUID, bool) {
	u, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}, false
	}
	return pgtype.UUID{Bytes: u, Valid: true}, true
}
