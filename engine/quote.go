package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	jerrors "github.com/juju/errors"

	"github.com/mistermingming/ProcurementManagement/util/log"
)

// QuoteItem is one priced option picked for a quote, denormalized: it keeps
// the logical table it came from plus a label and the price at submit time.
type QuoteItem struct {
	Table string  `json:"table"`
	Label string  `json:"label"`
	Price float64 `json:"price"`
}

type Quote struct {
	ID        int64       `json:"id"`
	Reference string      `json:"reference"`
	Customer  string      `json:"customer"`
	Total     float64     `json:"total"`
	CreatedAt string      `json:"created_at"`
	Items     []QuoteItem `json:"items"`
}

// SubmitQuote records a quote snapshot: one summary row plus every submitted
// item, in one transaction. The full item list is authoritative; the total is
// the sum of item prices.
func (s *Store) SubmitQuote(ctx context.Context, customer string, items []QuoteItem) (*Quote, error) {
	customer = strings.TrimSpace(customer)
	if len(customer) == 0 {
		return nil, jerrors.Trace(&FieldError{Field: "customer"})
	}
	if len(items) == 0 {
		return nil, jerrors.Trace(ErrNoItems)
	}

	var total float64
	for i := range items {
		items[i].Table = strings.TrimSpace(items[i].Table)
		items[i].Label = strings.TrimSpace(items[i].Label)
		if _, ok := s.reg.Lookup(items[i].Table); !ok {
			return nil, jerrors.Trace(ErrTableNotFound)
		}
		if len(items[i].Label) == 0 {
			return nil, jerrors.Trace(&FieldError{Field: "label"})
		}
		if items[i].Price < 0 {
			return nil, jerrors.Trace(&FieldError{Field: "price"})
		}
		total += items[i].Price
	}

	q := &Quote{
		Reference: uuid.New().String(),
		Customer:  customer,
		Total:     total,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Items:     items,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, jerrors.Trace(err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO quotes (reference, customer, total, created_at) VALUES (?, ?, ?, ?)",
		q.Reference, q.Customer, q.Total, q.CreatedAt)
	if err != nil {
		return nil, jerrors.Trace(err)
	}
	q.ID, err = res.LastInsertId()
	if err != nil {
		return nil, jerrors.Trace(err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO quote_items (quote_id, option_table, label, price) VALUES (?, ?, ?, ?)")
	if err != nil {
		return nil, jerrors.Trace(err)
	}
	defer stmt.Close()
	for _, item := range items {
		if _, err = stmt.ExecContext(ctx, q.ID, item.Table, item.Label, item.Price); err != nil {
			if isConstraintErr(err) {
				return nil, jerrors.Trace(ErrIntegrity)
			}
			return nil, jerrors.Trace(err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, jerrors.Trace(err)
	}
	log.Info("quote %s recorded, customer[%s] items[%d] total[%.2f]",
		q.Reference, q.Customer, len(q.Items), q.Total)
	return q, nil
}

// ListQuotes returns recorded quotes newest first, items included.
func (s *Store) ListQuotes(ctx context.Context) ([]Quote, error) {
	rs, err := s.db.QueryContext(ctx,
		"SELECT id, reference, customer, total, created_at FROM quotes ORDER BY id DESC")
	if err != nil {
		return nil, jerrors.Trace(err)
	}
	defer rs.Close()

	quotes := make([]Quote, 0, 8)
	for rs.Next() {
		var q Quote
		if err = rs.Scan(&q.ID, &q.Reference, &q.Customer, &q.Total, &q.CreatedAt); err != nil {
			return nil, jerrors.Trace(err)
		}
		quotes = append(quotes, q)
	}
	if err = rs.Err(); err != nil {
		return nil, jerrors.Trace(err)
	}

	for i := range quotes {
		items, err := s.listQuoteItems(ctx, quotes[i].ID)
		if err != nil {
			return nil, jerrors.Trace(err)
		}
		quotes[i].Items = items
	}
	return quotes, nil
}

func (s *Store) listQuoteItems(ctx context.Context, quoteID int64) ([]QuoteItem, error) {
	rs, err := s.db.QueryContext(ctx,
		"SELECT option_table, label, price FROM quote_items WHERE quote_id = ? ORDER BY id", quoteID)
	if err != nil {
		return nil, jerrors.Trace(err)
	}
	defer rs.Close()

	items := make([]QuoteItem, 0, 8)
	for rs.Next() {
		var item QuoteItem
		if err = rs.Scan(&item.Table, &item.Label, &item.Price); err != nil {
			return nil, jerrors.Trace(err)
		}
		items = append(items, item)
	}
	return items, rs.Err()
}
