package inventory

import (
	"context"
	"fmt"
	"time"

	"barstock/internal/core/apperror"
	appctx "barstock/internal/core/context"
	"barstock/internal/core/id"
	"barstock/internal/core/tx"
	"barstock/pkg/logger"
)

// Ledger is the only writer of movements and cached stock.
// Stock rows are a projection of the movement log: every Apply appends one
// movement and moves the matching stock row by the same delta in the same
// transaction.
type Ledger struct {
	repo Repository
	txm  tx.Manager
	now  func() time.Time
}

// NewLedger creates a ledger over repo.
func NewLedger(repo Repository, txm tx.Manager) *Ledger {
	return &Ledger{
		repo: repo,
		txm:  txm,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Entry describes one ledger write.
type Entry struct {
	Location      Location
	ItemID        id.ID
	Delta         int64
	Reason        string
	SourceType    *string
	SourceID      *int64
	SourceEventID *id.ID
	IsReversal    bool
	ReversalOfID  *id.ID
}

// Applied is the outcome of one ledger write.
type Applied struct {
	Movement Movement `json:"movement"`
	Stock    Stock    `json:"stock"`
}

// Apply appends a movement and adjusts cached stock. It performs no
// availability check; callers that must not overdraw check first.
// Joins the caller's transaction when one is active.
func (l *Ledger) Apply(ctx context.Context, e Entry) (Applied, error) {
	if !e.Location.IsPhysical() {
		return Applied{}, apperror.NewValidation(fmt.Sprintf("invalid location %q", e.Location))
	}
	if e.Delta == 0 {
		return Applied{}, apperror.NewValidation("movement change must not be zero")
	}
	if id.IsNil(e.ItemID) {
		return Applied{}, apperror.NewValidation("inventory_item_id is required")
	}

	m := Movement{
		ID:            id.New(),
		Location:      e.Location,
		ItemID:        e.ItemID,
		Change:        e.Delta,
		Reason:        e.Reason,
		SourceType:    e.SourceType,
		SourceID:      e.SourceID,
		SourceEventID: e.SourceEventID,
		IsReversal:    e.IsReversal,
		ReversalOfID:  e.ReversalOfID,
		CreatedAt:     l.now(),
		CreatedBy:     appctx.UserIDPtr(ctx),
	}

	var result Applied
	err := l.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := l.repo.InsertMovement(ctx, m); err != nil {
			return fmt.Errorf("insert movement: %w", err)
		}
		stock, err := l.repo.UpsertStock(ctx, e.ItemID, e.Location, e.Delta)
		if err != nil {
			return fmt.Errorf("upsert stock: %w", err)
		}
		result = Applied{Movement: m, Stock: stock}
		return nil
	})
	if err != nil {
		return Applied{}, err
	}

	logger.Debug(ctx, "ledger movement applied",
		"movement_id", m.ID,
		"item_id", e.ItemID,
		"location", e.Location,
		"delta", e.Delta,
		"quantity", result.Stock.Quantity,
	)
	return result, nil
}

// Reconciliation compares the cached stock with the movement log.
type Reconciliation struct {
	ItemID         id.ID    `json:"inventory_item_id"`
	Location       Location `json:"location"`
	LedgerQuantity int64    `json:"ledger_quantity"`
	CachedQuantity int64    `json:"cached_quantity"`
	HasStockRow    bool     `json:"has_stock_row"`
	Consistent     bool     `json:"consistent"`
}

// Reconcile checks that the cached stock equals the sum of movements.
func (l *Ledger) Reconcile(ctx context.Context, itemID id.ID, location Location) (Reconciliation, error) {
	if !location.IsPhysical() {
		return Reconciliation{}, apperror.NewValidation(fmt.Sprintf("invalid location %q", location))
	}

	sum, err := l.repo.SumMovements(ctx, itemID, location)
	if err != nil {
		return Reconciliation{}, fmt.Errorf("sum movements: %w", err)
	}
	stock, found, err := l.repo.GetStock(ctx, itemID, location)
	if err != nil {
		return Reconciliation{}, fmt.Errorf("get stock: %w", err)
	}

	r := Reconciliation{
		ItemID:         itemID,
		Location:       location,
		LedgerQuantity: sum,
		CachedQuantity: stock.Quantity,
		HasStockRow:    found,
	}
	r.Consistent = r.LedgerQuantity == r.CachedQuantity
	return r, nil
}

// Rebuild overwrites the cached quantity with the ledger sum when they differ.
func (l *Ledger) Rebuild(ctx context.Context, itemID id.ID, location Location) (Reconciliation, error) {
	var result Reconciliation
	err := l.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		r, err := l.Reconcile(ctx, itemID, location)
		if err != nil {
			return err
		}
		if !r.Consistent {
			if _, err := l.repo.SetStockQuantity(ctx, itemID, location, r.LedgerQuantity); err != nil {
				return fmt.Errorf("set stock quantity: %w", err)
			}
			logger.Warn(ctx, "stock rebuilt from ledger",
				"item_id", itemID,
				"location", location,
				"cached", r.CachedQuantity,
				"ledger", r.LedgerQuantity,
			)
			r.CachedQuantity = r.LedgerQuantity
			r.HasStockRow = true
			r.Consistent = true
		}
		result = r
		return nil
	})
	return result, err
}

func strPtr(s string) *string { return &s }
