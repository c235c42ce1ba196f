package inventory

import (
	"context"
	"strings"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
	"barstock/pkg/logger"
)

// TransferRequest moves whole units between locations.
type TransferRequest struct {
	ItemID     id.ID
	From       Location
	To         Location
	Quantity   int64
	Reason     string
	SourceType string
	SourceID   *int64
}

// TransferResult holds both ledger legs.
type TransferResult struct {
	ItemID   id.ID    `json:"inventory_item_id"`
	From     Location `json:"from_location"`
	To       Location `json:"to_location"`
	Quantity int64    `json:"quantity"`
	Reason   string   `json:"reason"`
	Out      Applied  `json:"out"`
	In       Applied  `json:"in"`
}

// Transfer debits From and credits To by the same quantity in one transaction.
//
// The availability read does not lock the source row; two concurrent
// transfers can both pass the check before either debits. Stock may then go
// negative, and the ledger still records exactly what happened.
func (s *Service) Transfer(ctx context.Context, req TransferRequest) (TransferResult, error) {
	if req.Quantity <= 0 {
		return TransferResult{}, apperror.NewValidation("quantity must be positive").
			WithDetail("quantity", req.Quantity)
	}
	if !req.From.IsPhysical() || !req.To.IsPhysical() {
		return TransferResult{}, apperror.NewValidation("from and to must be BAR or WAREHOUSE")
	}
	if req.From == req.To {
		return TransferResult{}, apperror.NewValidation("from and to locations must differ")
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = ReasonTransfer
	}
	sourceType := strings.TrimSpace(req.SourceType)
	if sourceType == "" {
		sourceType = SourceTypeTransfer
	}

	result := TransferResult{
		ItemID:   req.ItemID,
		From:     req.From,
		To:       req.To,
		Quantity: req.Quantity,
		Reason:   reason,
	}

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetItem(ctx, req.ItemID); err != nil {
			return err
		}

		src, found, err := s.repo.GetStock(ctx, req.ItemID, req.From)
		if err != nil {
			return err
		}
		if !found {
			return apperror.NewConflict("no stock at source location").
				WithDetail("inventory_item_id", req.ItemID).
				WithDetail("location", req.From)
		}
		if src.Available() < req.Quantity {
			return apperror.NewInsufficientStock(req.ItemID.String(), string(req.From), req.Quantity, src.Available())
		}

		base := Entry{
			ItemID:     req.ItemID,
			Reason:     reason,
			SourceType: &sourceType,
			SourceID:   req.SourceID,
		}

		out := base
		out.Location, out.Delta = req.From, -req.Quantity
		if result.Out, err = s.ledger.Apply(ctx, out); err != nil {
			return err
		}

		in := base
		in.Location, in.Delta = req.To, req.Quantity
		if result.In, err = s.ledger.Apply(ctx, in); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return TransferResult{}, err
	}

	logger.Info(ctx, "inventory transfer completed",
		"item_id", req.ItemID,
		"from", req.From,
		"to", req.To,
		"quantity", req.Quantity,
	)
	return result, nil
}
