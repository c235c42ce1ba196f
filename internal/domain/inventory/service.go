package inventory

import (
	"time"

	"barstock/internal/core/tx"
	"barstock/internal/domain/catalog"
)

// Service coordinates multi-step stock operations on top of the Ledger.
// Each public operation runs in one transaction and commits only on success.
type Service struct {
	repo    Repository
	ledger  *Ledger
	txm     tx.Manager
	events  catalog.EventStore
	bottles catalog.BottleCatalog
	recipes RecipeSource
	orders  EventOrderSource
	audit   AuditLogger
	today   func() time.Time
}

// Deps groups Service collaborators.
type Deps struct {
	Repo    Repository
	TxM     tx.Manager
	Events  catalog.EventStore
	Bottles catalog.BottleCatalog
	// Recipes is needed by cocktail batch consumption only.
	Recipes RecipeSource
	Orders  EventOrderSource
	// Audit is optional.
	Audit AuditLogger
}

// NewService creates the inventory service.
func NewService(d Deps) *Service {
	return &Service{
		repo:    d.Repo,
		ledger:  NewLedger(d.Repo, d.TxM),
		txm:     d.TxM,
		events:  d.Events,
		bottles: d.Bottles,
		recipes: d.Recipes,
		orders:  d.Orders,
		audit:   d.Audit,
		today: func() time.Time {
			y, m, day := time.Now().UTC().Date()
			return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
		},
	}
}

// Ledger exposes the underlying ledger for reconciliation.
func (s *Service) Ledger() *Ledger {
	return s.ledger
}
