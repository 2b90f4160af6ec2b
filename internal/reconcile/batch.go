package reconcile

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/royalty/internal/catalog"
	"github.com/JonMunkholm/royalty/internal/logging"
)

// DefaultBatchWorkers bounds concurrent row groups per batch.
const DefaultBatchWorkers = 4

// Observer is told the outcome of every reconciled row.
type Observer interface {
	RowReconciled(k catalog.Kind, err error)
}

// RowSuccess is one reconciled row.
type RowSuccess struct {
	Index  int
	Entity catalog.Entity
}

// BatchResult holds per-row outcomes, each ordered by input index. Indexes
// refer to the rows passed to RunBatch, sentinel included.
type BatchResult struct {
	Succeeded []RowSuccess
	Errors    []RowError
}

// Entities returns the reconciled entities in row order.
func (b *BatchResult) Entities() []catalog.Entity {
	out := make([]catalog.Entity, len(b.Succeeded))
	for i, s := range b.Succeeded {
		out[i] = s.Entity
	}
	return out
}

// BatchRunner drives a Reconciler over a sequence of rows.
type BatchRunner struct {
	rec      *Reconciler
	workers  int
	observer Observer
}

// BatchOption configures a BatchRunner.
type BatchOption func(*BatchRunner)

// WithWorkers sets how many row groups run at once. 1 is fully sequential.
func WithWorkers(n int) BatchOption {
	return func(b *BatchRunner) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithObserver registers o for per-row outcomes.
func WithObserver(o Observer) BatchOption {
	return func(b *BatchRunner) {
		b.observer = o
	}
}

// NewBatchRunner returns a runner over rec.
func NewBatchRunner(rec *Reconciler, opts ...BatchOption) *BatchRunner {
	b := &BatchRunner{rec: rec, workers: DefaultBatchWorkers}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// DropSentinel removes the trailing sentinel row every import batch ends with.
// The last row is removed whatever it contains.
func DropSentinel(rows []RowData) []RowData {
	if len(rows) == 0 {
		return rows
	}
	return rows[:len(rows)-1]
}

// RunBatch reconciles every row except the trailing sentinel.
//
// A failing row is recorded and never stops the others. Rows that target the
// same entity run in input order on one worker; unrelated rows run
// concurrently. Every row also holds the Reconciler's locks on the entity it
// writes, so concurrent batches never lose each other's updates. When ctx
// ends, rows not yet started are recorded with the context error.
func (b *BatchRunner) RunBatch(ctx context.Context, k catalog.Kind, rows []RowData, tenant string, extra Extra) (*BatchResult, error) {
	if rows == nil {
		return nil, ErrDataNotArray
	}
	if tenant == "" {
		return nil, ErrMissingTenant
	}
	if !Importable(k) {
		return nil, fmt.Errorf("reconcile %s: %w", k, ErrUnsupportedKind)
	}

	logger := logging.WithFields(ctx, "kind", k, "tenant", tenant)
	start := time.Now()

	rows = DropSentinel(rows)
	entities := make([]catalog.Entity, len(rows))
	errs := make([]error, len(rows))

	g := new(errgroup.Group)
	g.SetLimit(b.workers)

	for _, group := range b.groupRows(ctx, k, rows, tenant) {
		g.Go(func() error {
			for _, i := range group {
				if err := ctx.Err(); err != nil {
					errs[i] = err
					continue
				}
				entities[i], errs[i] = b.rec.Reconcile(ctx, k, rows[i], tenant, extra)
				if b.observer != nil {
					b.observer.RowReconciled(k, errs[i])
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	result := &BatchResult{}
	for i := range rows {
		if errs[i] != nil {
			logger.Debug("row failed", "row", i, "error", errs[i])
			result.Errors = append(result.Errors, RowError{Index: i, Err: errs[i]})
			continue
		}
		result.Succeeded = append(result.Succeeded, RowSuccess{Index: i, Entity: entities[i]})
	}

	logger.Info("batch reconciled",
		"rows", len(rows),
		"succeeded", len(result.Succeeded),
		"failed", len(result.Errors),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// groupRows partitions row indexes so that rows reaching the same entity share
// a group, whether they name it by id or by business key. An id is also linked
// to the business key stored under it, and a Release row reaches the Track it
// carries. Groups keep first-seen order and rows keep input order within each.
func (b *BatchRunner) groupRows(ctx context.Context, k catalog.Kind, rows []RowData, tenant string) [][]int {
	names := make([][]string, len(rows))
	sets := make(nameSets)
	for i, row := range rows {
		names[i] = b.rowIdentities(ctx, k, row, tenant)
		for _, n := range names[i] {
			sets.union(names[i][0], n)
		}
	}

	var groups [][]int
	byRoot := make(map[string]int)
	for i := range rows {
		if len(names[i]) == 0 {
			// Unidentifiable rows fail on their own.
			groups = append(groups, []int{i})
			continue
		}
		root := sets.find(names[i][0])
		if g, ok := byRoot[root]; ok {
			groups[g] = append(groups[g], i)
			continue
		}
		byRoot[root] = len(groups)
		groups = append(groups, []int{i})
	}
	return groups
}

// rowIdentities returns the lock names row can reach. A failed lookup only
// loses the stored-key link; the row still runs.
func (b *BatchRunner) rowIdentities(ctx context.Context, k catalog.Kind, row RowData, tenant string) []string {
	var names []string
	add := func(k catalog.Kind, id, key string) {
		if key != "" {
			names = append(names, lockName(tenant, k, "key", key))
		}
		if id == "" {
			return
		}
		names = append(names, lockName(tenant, k, "id", id))
		e, err := b.rec.store.FindByID(ctx, k, id)
		if err == nil && e.TenantID() == tenant && e.BusinessKey() != "" {
			names = append(names, lockName(tenant, k, "key", e.BusinessKey()))
		}
	}

	if k == catalog.KindTrack {
		add(k, row.Get(trackField("id")...), row.Get(trackField("isrc")...))
	} else {
		add(k, row.Get("id"), row.Get(keyColumn(k)))
	}
	if k == catalog.KindRelease && hasTrack(row) {
		add(catalog.KindTrack, row.Get("track_id"), row.Get(trackField("isrc")...))
	}
	return names
}

// nameSets is a disjoint-set forest over lock names.
type nameSets map[string]string

func (s nameSets) find(x string) string {
	if _, ok := s[x]; !ok {
		s[x] = x
	}
	for s[x] != x {
		s[x] = s[s[x]]
		x = s[x]
	}
	return x
}

func (s nameSets) union(a, b string) {
	if ra, rb := s.find(a), s.find(b); ra != rb {
		s[rb] = ra
	}
}
