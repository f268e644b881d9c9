package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rezonia/ksef-sync/internal/model"
)

// Memory implements the store interfaces in process memory. It mirrors the
// Postgres semantics closely enough for service tests: unique reference
// numbers, atomic invoice+items inserts, issue-date ordering.
type Memory struct {
	mu sync.Mutex

	entities map[int64]*model.Entity
	invoices []*model.Invoice
	batches  []*model.ExportBatch
	links    map[int64][]int64 // batch id -> invoice ids

	nextInvoiceID int64
	nextItemID    int64
	nextBatchID   int64

	// FailItemInsert makes the next CreateWithItems fail after the invoice
	// row, exercising the rollback path.
	FailItemInsert bool
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		entities:      make(map[int64]*model.Entity),
		links:         make(map[int64][]int64),
		nextInvoiceID: 1,
		nextItemID:    1,
		nextBatchID:   1,
	}
}

// PutEntity seeds an entity
func (m *Memory) PutEntity(e *model.Entity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.entities[e.ID] = &cp
}

func (m *Memory) GetByID(ctx context.Context, id int64) (*model.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entities[id]
	if !ok {
		return nil, fmt.Errorf("entity %d: %w", id, model.ErrNotFound)
	}
	cp := *e
	return &cp, nil
}

func (m *Memory) UpdateToken(ctx context.Context, id int64, token string, expiry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entities[id]
	if !ok {
		return fmt.Errorf("entity %d: %w", id, model.ErrNotFound)
	}
	e.KsefToken = token
	exp := expiry
	e.KsefTokenExp = &exp
	return nil
}

func (m *Memory) GetByReference(ctx context.Context, referenceNumber string) (*model.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invoices {
		if inv.ReferenceNumber == referenceNumber {
			cp := *inv
			cp.Items = append([]model.LineItem(nil), inv.Items...)
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("invoice %s: %w", referenceNumber, model.ErrNotFound)
}

func (m *Memory) ExistsByReference(ctx context.Context, referenceNumber string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invoices {
		if inv.ReferenceNumber == referenceNumber {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) CreateWithItems(ctx context.Context, inv *model.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.invoices {
		if existing.ReferenceNumber == inv.ReferenceNumber {
			return fmt.Errorf("invoice %s: %w", inv.ReferenceNumber, model.ErrDuplicateReference)
		}
	}
	if m.FailItemInsert {
		return fmt.Errorf("insert invoice item: simulated failure")
	}
	inv.ID = m.nextInvoiceID
	m.nextInvoiceID++
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now()
	}
	for i := range inv.Items {
		inv.Items[i].ID = m.nextItemID
		inv.Items[i].InvoiceID = inv.ID
		m.nextItemID++
	}
	cp := *inv
	cp.Items = append([]model.LineItem(nil), inv.Items...)
	m.invoices = append(m.invoices, &cp)
	return nil
}

func (m *Memory) ListForExport(ctx context.Context, entityID int64, ids []int64) ([]model.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := make(map[int64]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var result []model.Invoice
	for _, inv := range m.invoices {
		if inv.EntityID != entityID {
			continue
		}
		if len(ids) > 0 {
			if !wanted[inv.ID] {
				continue
			}
		} else if inv.IsExported {
			continue
		}
		cp := *inv
		cp.Items = append([]model.LineItem(nil), inv.Items...)
		result = append(result, cp)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].IssueDate.Equal(result[j].IssueDate) {
			return result[i].IssueDate.Before(result[j].IssueDate)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (m *Memory) ListByEntity(ctx context.Context, entityID int64, f model.InvoiceFilter, page, perPage int) ([]model.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	var matched []model.Invoice
	for _, inv := range m.invoices {
		if inv.EntityID == entityID && matchesFilter(inv, f) {
			matched = append(matched, *inv)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].IssueDate.Equal(matched[j].IssueDate) {
			return matched[i].IssueDate.After(matched[j].IssueDate)
		}
		return matched[i].ID > matched[j].ID
	})
	start := (page - 1) * perPage
	if start >= len(matched) {
		return nil, nil
	}
	end := start + perPage
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func (m *Memory) CountByEntity(ctx context.Context, entityID int64, f model.InvoiceFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, inv := range m.invoices {
		if inv.EntityID == entityID && matchesFilter(inv, f) {
			count++
		}
	}
	return count, nil
}

func (m *Memory) Archive(ctx context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invoices {
		if inv.ID == id {
			inv.IsArchived = true
			archivedAt := at
			inv.ArchivedAt = &archivedAt
			return nil
		}
	}
	return fmt.Errorf("invoice %d: %w", id, model.ErrNotFound)
}

func (m *Memory) Create(ctx context.Context, batch *model.ExportBatch, invoiceIDs []int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	batch.ID = m.nextBatchID
	m.nextBatchID++
	cp := *batch
	m.batches = append(m.batches, &cp)
	m.links[batch.ID] = append([]int64(nil), invoiceIDs...)
	for _, invoiceID := range invoiceIDs {
		for _, inv := range m.invoices {
			if inv.ID == invoiceID {
				inv.IsExported = true
				exportedAt := batch.ExportDate
				inv.ExportedAt = &exportedAt
			}
		}
	}
	return batch.ID, nil
}

func (m *Memory) ListBatchesByEntity(ctx context.Context, entityID int64, page, perPage int) ([]model.ExportBatch, error) {
	return m.batchList(entityID, page, perPage)
}

func (m *Memory) CountBatchesByEntity(ctx context.Context, entityID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, b := range m.batches {
		if b.EntityID == entityID {
			count++
		}
	}
	return count, nil
}

func (m *Memory) batchList(entityID int64, page, perPage int) ([]model.ExportBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	var matched []model.ExportBatch
	for _, b := range m.batches {
		if b.EntityID == entityID {
			matched = append(matched, *b)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].ExportDate.After(matched[j].ExportDate)
	})
	start := (page - 1) * perPage
	if start >= len(matched) {
		return nil, nil
	}
	end := start + perPage
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func (m *Memory) GetDetails(ctx context.Context, batchID, entityID int64) (*model.ExportBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.batches {
		if b.ID == batchID && b.EntityID == entityID {
			cp := *b
			for _, invoiceID := range m.links[batchID] {
				for _, inv := range m.invoices {
					if inv.ID == invoiceID {
						invCp := *inv
						invCp.Items = append([]model.LineItem(nil), inv.Items...)
						cp.Invoices = append(cp.Invoices, invCp)
					}
				}
			}
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("batch %d: %w", batchID, model.ErrNotFound)
}

// Links returns the invoice ids linked to a batch. Test helper.
func (m *Memory) Links(batchID int64) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.links[batchID]...)
}

// Invoices returns copies of all stored invoices. Test helper.
func (m *Memory) Invoices() []model.Invoice {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]model.Invoice, 0, len(m.invoices))
	for _, inv := range m.invoices {
		cp := *inv
		cp.Items = append([]model.LineItem(nil), inv.Items...)
		result = append(result, cp)
	}
	return result
}

func matchesFilter(inv *model.Invoice, f model.InvoiceFilter) bool {
	if f.DateFrom != nil && inv.IssueDate.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && inv.IssueDate.After(*f.DateTo) {
		return false
	}
	if f.InvoiceNumber != "" && !strings.Contains(inv.InvoiceNumber, f.InvoiceNumber) {
		return false
	}
	if f.SellerTaxID != "" && inv.SellerTaxID != f.SellerTaxID {
		return false
	}
	if f.BuyerTaxID != "" && inv.BuyerTaxID != f.BuyerTaxID {
		return false
	}
	return true
}
