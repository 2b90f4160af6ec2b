package reconcile

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/JonMunkholm/royalty/internal/catalog"
	"github.com/JonMunkholm/royalty/internal/store"
)

// Rights cells hold "contract:percentage" pairs separated by ";". On import
// the contract may be given by id or by name; exports always write the id.

// rights parses the cell in column and resolves each contract within tenant.
// An empty cell yields no rights.
func (r *Reconciler) rights(ctx context.Context, tenant, column, cell string) ([]catalog.Right, error) {
	var out []catalog.Right
	for _, item := range splitList(cell) {
		sep := strings.LastIndex(item, ":")
		if sep < 0 {
			return nil, &InvalidFieldError{Field: column, Value: item, Want: "contract:percentage pair"}
		}
		ref, cell := strings.TrimSpace(item[:sep]), strings.TrimSpace(item[sep+1:])
		pct, ok := parseNumber(cell)
		if !ok || ref == "" || cell == "" {
			return nil, &InvalidFieldError{Field: column, Value: item, Want: "contract:percentage pair"}
		}

		contractID, err := r.contractRef(ctx, tenant, column, ref)
		if err != nil {
			return nil, err
		}
		out = append(out, catalog.Right{ContractID: contractID, Percentage: pct})
	}
	return out, nil
}

// contractRef resolves a contract id or name to the id of a Contract owned by
// tenant.
func (r *Reconciler) contractRef(ctx context.Context, tenant, column, ref string) (string, error) {
	c, err := store.Get[*catalog.Contract](ctx, r.store, catalog.KindContract, ref)
	switch {
	case err == nil && c.TenantID() == tenant:
		return c.ID, nil
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return "", err
	}

	e, err := r.store.FindOne(ctx, catalog.KindContract, tenant, ref)
	if errors.Is(err, store.ErrNotFound) {
		return "", &InvalidFieldError{Field: column, Value: ref, Want: "known contract"}
	}
	if err != nil {
		return "", err
	}
	return e.EntityID(), nil
}

// appendRights reads both rights columns and appends what they hold. Rights
// are never deduplicated: importing the same sheet twice doubles them.
func (r *Reconciler) appendRights(ctx context.Context, tenant string, row RowData, salesColumn, costsColumn string, dst *catalog.Rights) error {
	sales, err := r.rights(ctx, tenant, salesColumn, row.Get(salesColumn))
	if err != nil {
		return err
	}
	costs, err := r.rights(ctx, tenant, costsColumn, row.Get(costsColumn))
	if err != nil {
		return err
	}
	dst.SalesReturnsRights = append(dst.SalesReturnsRights, sales...)
	dst.CostsRights = append(dst.CostsRights, costs...)
	return nil
}

func formatRights(list []catalog.Right) string {
	items := make([]string, 0, len(list))
	for _, right := range list {
		items = append(items, right.ContractID+":"+strconv.FormatFloat(right.Percentage, 'f', -1, 64))
	}
	return joinList(items)
}
