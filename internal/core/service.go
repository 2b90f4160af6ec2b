package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/royalty/internal/catalog"
	"github.com/JonMunkholm/royalty/internal/entitlement"
	"github.com/JonMunkholm/royalty/internal/logging"
	"github.com/JonMunkholm/royalty/internal/metrics"
	"github.com/JonMunkholm/royalty/internal/reconcile"
	"github.com/JonMunkholm/royalty/internal/store"
)

// ImportTimeout is the maximum duration of one import batch.
var ImportTimeout = 10 * time.Minute

// Options tunes a Service. Zero values select the package defaults.
type Options struct {
	BatchWorkers         int
	FlattenWorkers       int
	MaxConcurrentImports int
	MaxWait              time.Duration
}

// Service provides the import and export operations of the catalog.
type Service struct {
	store          store.Store
	runner         *reconcile.BatchRunner
	limiter        *ImportLimiter
	metrics        *metrics.Metrics
	flattenWorkers int
}

// NewService creates a Service over s. m may be nil.
func NewService(s store.Store, m *metrics.Metrics, opts Options) *Service {
	batchOpts := []reconcile.BatchOption{reconcile.WithWorkers(opts.BatchWorkers)}
	if m != nil {
		batchOpts = append(batchOpts, reconcile.WithObserver(m))
	}

	flattenWorkers := opts.FlattenWorkers
	if flattenWorkers <= 0 {
		flattenWorkers = reconcile.DefaultFlattenWorkers
	}

	return &Service{
		store:          s,
		runner:         reconcile.NewBatchRunner(reconcile.NewReconciler(s), batchOpts...),
		limiter:        NewImportLimiter(opts.MaxConcurrentImports, opts.MaxWait),
		metrics:        m,
		flattenWorkers: flattenWorkers,
	}
}

// Limiter returns the import limiter, for status reporting and drain.
func (s *Service) Limiter() *ImportLimiter {
	return s.limiter
}

// Import reconciles one spreadsheet into the tenant named by req.Tenant.
//
// The returned error covers the request as a whole (validation, access,
// limiter, unreadable file). Row failures never fail the import; they are
// listed in ImportResult.FailedRows.
func (s *Service) Import(ctx context.Context, p entitlement.Principal, req ImportRequest) (*ImportResult, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	if err := s.authorizeWrite(ctx, p, req.Kind, req.Tenant); err != nil {
		return nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		if errors.Is(err, ErrTooManyImports) && s.metrics != nil {
			s.metrics.ImportsBusy.Inc()
		}
		return nil, err
	}
	defer s.limiter.Release()
	if s.metrics != nil {
		s.metrics.ImportsActive.Inc()
		defer s.metrics.ImportsActive.Dec()
	}

	ctx, cancel := context.WithTimeout(ctx, ImportTimeout)
	defer cancel()

	importID := uuid.New().String()
	logger := logging.WithFields(ctx,
		"import_id", importID,
		"kind", req.Kind,
		"tenant", req.Tenant,
		"file", req.FileName,
	)
	if ip := GetIPAddressFromContext(ctx); ip != "" {
		logger = logger.With("client_ip", ip)
	}
	start := time.Now()

	layout, _ := LayoutFor(req.Kind)
	sheet, err := DecodeSheet(req.Data, layout)
	if err != nil {
		logger.Warn("import rejected", "error", err)
		return nil, err
	}

	extra, err := decodeTerms(req.Terms)
	if err != nil {
		logger.Warn("import rejected", "error", err)
		return nil, err
	}

	batch, err := s.runner.RunBatch(ctx, req.Kind, sheet.Rows, req.Tenant, extra)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{
		ImportID:   importID,
		Kind:       req.Kind,
		FileName:   req.FileName,
		TotalRows:  len(sheet.Lines),
		Succeeded:  make([]string, 0, len(batch.Succeeded)),
		FailedRows: make([]FailedRow, 0, len(batch.Errors)),
	}
	for _, ok := range batch.Succeeded {
		result.Succeeded = append(result.Succeeded, ok.Entity.EntityID())
	}
	for _, rowErr := range batch.Errors {
		result.FailedRows = append(result.FailedRows, FailedRow{
			FileName:   req.FileName,
			LineNumber: sheet.Lines[rowErr.Index],
			Reason:     rowErr.Err.Error(),
			Code:       MapError(rowErr.Err).Code,
		})
	}
	result.Duration = time.Since(start)

	if s.metrics != nil {
		s.metrics.ObserveImport(req.Kind, result.Duration)
	}
	logger.Info("import completed",
		"rows", result.TotalRows,
		"succeeded", len(result.Succeeded),
		"failed", len(result.FailedRows),
		"duration_ms", result.Duration.Milliseconds(),
	)

	return result, nil
}

// decodeTerms decodes the term sheets of a Contract import.
func decodeTerms(sheets map[catalog.TermList][]byte) (reconcile.Extra, error) {
	extra := reconcile.Extra{}
	if len(sheets) == 0 {
		return extra, nil
	}

	extra.Terms = make(map[catalog.TermList][]reconcile.RowData, len(sheets))
	for l, data := range sheets {
		sheet, err := DecodeSheet(data, termLayout)
		if err != nil {
			return extra, fmt.Errorf("%s terms: %w", l, err)
		}
		extra.Terms[l] = reconcile.DropSentinel(sheet.Rows)
	}
	return extra, nil
}

// authorizeWrite checks that p may write entities owned by tenant. Every
// importable kind is tenant-scoped, so the decision does not depend on the
// row contents or on whether the Client is stored yet.
func (s *Service) authorizeWrite(ctx context.Context, p entitlement.Principal, k catalog.Kind, tenant string) error {
	if entitlement.MayWriteTenant(p, tenant) {
		return nil
	}
	if s.metrics != nil {
		s.metrics.Denied(k, string(entitlement.Write), 1)
	}
	logging.WithFields(ctx, "kind", k, "tenant", tenant).Warn("import denied")
	return fmt.Errorf("import %s into %s: %w", k, tenant, entitlement.ErrForbidden)
}

// Export flattens every entity of kind k in tenant that p may read and
// returns it as CSV.
func (s *Service) Export(ctx context.Context, p entitlement.Principal, k catalog.Kind, tenant string) ([]byte, error) {
	layout, ok := LayoutFor(k)
	if !ok {
		return nil, fmt.Errorf("export %s: %w", k, reconcile.ErrUnsupportedKind)
	}

	start := time.Now()
	readable, err := s.listReadable(ctx, p, k, tenant)
	if err != nil {
		return nil, err
	}

	rows, err := reconcile.FlattenN(ctx, k, readable, readableLoader{store: s.store, p: p}, s.flattenWorkers)
	if err != nil {
		return nil, err
	}

	out, err := EncodeSheet(layout.Columns, rows)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", k, err)
	}

	if s.metrics != nil {
		s.metrics.ObserveExport(k, len(rows), time.Since(start))
	}
	logging.WithFields(ctx, "kind", k, "tenant", tenant).Debug("export completed",
		"entities", len(readable),
		"rows", len(rows),
	)
	return out, nil
}

// ExportTerms returns one Contract term list of tenant as CSV. Every row
// carries the current name of its Contract.
func (s *Service) ExportTerms(ctx context.Context, p entitlement.Principal, tenant string, l catalog.TermList) ([]byte, error) {
	if _, err := catalog.ParseTermList(string(l)); err != nil {
		return nil, err
	}

	readable, err := s.listReadable(ctx, p, catalog.KindContract, tenant)
	if err != nil {
		return nil, err
	}

	sheets, err := reconcile.FlattenContracts(readable)
	if err != nil {
		return nil, err
	}
	return EncodeSheet(termLayout.Columns, sheets.Terms[l])
}

// Template returns an empty sheet with the header of kind k.
func (s *Service) Template(k catalog.Kind) ([]byte, error) {
	return Template(k)
}

// Template returns an empty sheet with the header of kind k.
func Template(k catalog.Kind) ([]byte, error) {
	layout, ok := LayoutFor(k)
	if !ok {
		return nil, fmt.Errorf("template %s: %w", k, reconcile.ErrUnsupportedKind)
	}
	return EncodeSheet(layout.Columns, nil)
}

// Get returns one entity, or an error wrapping entitlement.ErrForbidden when
// p may not read it.
func (s *Service) Get(ctx context.Context, p entitlement.Principal, k catalog.Kind, id string) (catalog.Entity, error) {
	e, err := s.store.FindByID(ctx, k, id)
	if err != nil {
		return nil, err
	}
	if entitlement.Forbidden(e, p, entitlement.Read) {
		if s.metrics != nil {
			s.metrics.Denied(k, string(entitlement.Read), 1)
		}
		return nil, fmt.Errorf("%s %s: %w", k, id, entitlement.ErrForbidden)
	}
	return e, nil
}

// readableLoader resolves export children, reporting the ones p may not read
// as missing so the flattener skips them.
type readableLoader struct {
	store store.Store
	p     entitlement.Principal
}

func (l readableLoader) FindByID(ctx context.Context, k catalog.Kind, id string) (catalog.Entity, error) {
	e, err := l.store.FindByID(ctx, k, id)
	if err != nil {
		return nil, err
	}
	if entitlement.Forbidden(e, l.p, entitlement.Read) {
		return nil, fmt.Errorf("%s %s: %w", k, id, store.ErrNotFound)
	}
	return e, nil
}

func (s *Service) listReadable(ctx context.Context, p entitlement.Principal, k catalog.Kind, tenant string) ([]catalog.Entity, error) {
	if tenant == "" {
		return nil, reconcile.ErrMissingTenant
	}

	all, err := s.store.List(ctx, k, tenant)
	if err != nil {
		return nil, err
	}

	readable := entitlement.FilterReadable(all, p)
	if s.metrics != nil {
		s.metrics.Denied(k, string(entitlement.Read), len(all)-len(readable))
	}
	return readable, nil
}
