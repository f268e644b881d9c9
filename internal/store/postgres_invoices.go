package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/rezonia/ksef-sync/internal/model"
)

const invoiceColumns = `id, ksef_reference_number, entity_id, invoice_number, issue_date,
	seller_name, seller_tax_id, buyer_name, buyer_tax_id, total_net, total_gross,
	currency, invoice_type, xml_content, is_exported, is_archived, exported_at, archived_at, created_at`

const itemColumns = `id, invoice_id, name, quantity, unit, unit_price_net, net_value, vat_rate, vat_value, gross_value`

func (p *Postgres) GetByReference(ctx context.Context, referenceNumber string) (*model.Invoice, error) {
	var inv model.Invoice
	err := p.db.GetContext(ctx, &inv,
		`SELECT `+invoiceColumns+` FROM invoices WHERE ksef_reference_number = $1`, referenceNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("invoice %s: %w", referenceNumber, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	if err := p.loadItems(ctx, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (p *Postgres) ExistsByReference(ctx context.Context, referenceNumber string) (bool, error) {
	var exists bool
	err := p.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM invoices WHERE ksef_reference_number = $1)`, referenceNumber)
	if err != nil {
		return false, fmt.Errorf("check invoice reference: %w", err)
	}
	return exists, nil
}

func (p *Postgres) CreateWithItems(ctx context.Context, inv *model.Invoice) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin invoice insert: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowxContext(ctx,
		`INSERT INTO invoices (ksef_reference_number, entity_id, invoice_number, issue_date,
			seller_name, seller_tax_id, buyer_name, buyer_tax_id, total_net, total_gross,
			currency, invoice_type, xml_content)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING id, created_at`,
		inv.ReferenceNumber, inv.EntityID, inv.InvoiceNumber, inv.IssueDate,
		inv.SellerName, inv.SellerTaxID, inv.BuyerName, inv.BuyerTaxID,
		inv.TotalNet, inv.TotalGross, inv.Currency, inv.Type, inv.XMLContent,
	).Scan(&inv.ID, &inv.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("invoice %s: %w", inv.ReferenceNumber, model.ErrDuplicateReference)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}

	for i := range inv.Items {
		item := &inv.Items[i]
		item.InvoiceID = inv.ID
		err := tx.QueryRowxContext(ctx,
			`INSERT INTO invoice_items (invoice_id, name, quantity, unit, unit_price_net,
				net_value, vat_rate, vat_value, gross_value)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 RETURNING id`,
			item.InvoiceID, item.Name, item.Quantity, item.Unit, item.UnitPriceNet,
			item.NetValue, item.VATRate, item.VATValue, item.GrossValue,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("insert invoice item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit invoice insert: %w", err)
	}
	return nil
}

func (p *Postgres) ListForExport(ctx context.Context, entityID int64, ids []int64) ([]model.Invoice, error) {
	query := `SELECT ` + prefixColumns("i", invoiceColumns) + ` FROM invoices i WHERE i.entity_id = $1`
	args := []interface{}{entityID}
	if len(ids) > 0 {
		query += ` AND i.id = ANY($2)`
		args = append(args, pq.Array(ids))
	} else {
		query += ` AND i.is_exported = FALSE`
	}
	query += ` ORDER BY i.issue_date ASC, i.id ASC`

	var invoices []model.Invoice
	if err := p.db.SelectContext(ctx, &invoices, query, args...); err != nil {
		return nil, fmt.Errorf("list invoices for export: %w", err)
	}
	for i := range invoices {
		if err := p.loadItems(ctx, &invoices[i]); err != nil {
			return nil, err
		}
	}
	return invoices, nil
}

func (p *Postgres) ListByEntity(ctx context.Context, entityID int64, f model.InvoiceFilter, page, perPage int) ([]model.Invoice, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	where, args := invoiceFilterClauses(entityID, f)
	args = append(args, perPage, (page-1)*perPage)
	query := fmt.Sprintf(`SELECT `+invoiceColumns+` FROM invoices WHERE %s
		ORDER BY issue_date DESC, id DESC LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args))

	var invoices []model.Invoice
	if err := p.db.SelectContext(ctx, &invoices, query, args...); err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return invoices, nil
}

func (p *Postgres) CountByEntity(ctx context.Context, entityID int64, f model.InvoiceFilter) (int, error) {
	where, args := invoiceFilterClauses(entityID, f)
	var count int
	if err := p.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM invoices WHERE `+where, args...); err != nil {
		return 0, fmt.Errorf("count invoices: %w", err)
	}
	return count, nil
}

func (p *Postgres) Archive(ctx context.Context, id int64, at time.Time) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE invoices SET is_archived = TRUE, archived_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("archive invoice: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("invoice %d: %w", id, model.ErrNotFound)
	}
	return nil
}

// markExported flips the exported flag for the given invoices inside an
// existing transaction; used by the batch ledger commit.
func markExported(ctx context.Context, tx *sqlx.Tx, invoiceIDs []int64, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE invoices SET is_exported = TRUE, exported_at = $1 WHERE id = ANY($2)`,
		at, pq.Array(invoiceIDs))
	if err != nil {
		return fmt.Errorf("mark invoices exported: %w", err)
	}
	return nil
}

func (p *Postgres) loadItems(ctx context.Context, inv *model.Invoice) error {
	inv.Items = nil
	err := p.db.SelectContext(ctx, &inv.Items,
		`SELECT `+itemColumns+` FROM invoice_items WHERE invoice_id = $1 ORDER BY id`, inv.ID)
	if err != nil {
		return fmt.Errorf("load invoice items: %w", err)
	}
	return nil
}

func invoiceFilterClauses(entityID int64, f model.InvoiceFilter) (string, []interface{}) {
	clauses := []string{"entity_id = $1"}
	args := []interface{}{entityID}
	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if f.DateFrom != nil {
		add("issue_date >= $%d", *f.DateFrom)
	}
	if f.DateTo != nil {
		add("issue_date <= $%d", *f.DateTo)
	}
	if f.InvoiceNumber != "" {
		add("invoice_number LIKE $%d", "%"+f.InvoiceNumber+"%")
	}
	if f.SellerTaxID != "" {
		add("seller_tax_id = $%d", f.SellerTaxID)
	}
	if f.BuyerTaxID != "" {
		add("buyer_tax_id = $%d", f.BuyerTaxID)
	}
	return strings.Join(clauses, " AND "), args
}

// prefixColumns qualifies a comma-separated column list with a table alias
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = alias + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
