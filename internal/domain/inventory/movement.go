package inventory

import (
	"context"
	"fmt"
	"strings"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
	"barstock/pkg/logger"
)

// MovementRequest is an operator-entered stock adjustment.
type MovementRequest struct {
	ItemID     id.ID
	Location   Location
	Change     int64
	Reason     string
	SourceType *string
	SourceID   *int64
}

// CreateMovement records a manual adjustment. Usage and waste must be
// negative; transfers go through Transfer. No availability check is made,
// so an operator override may drive stock negative.
func (s *Service) CreateMovement(ctx context.Context, req MovementRequest) (Applied, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return Applied{}, apperror.NewValidation("reason is required")
	}
	switch strings.ToUpper(reason) {
	case ReasonTransfer:
		return Applied{}, apperror.NewConflict("use inventory transfers to move stock between locations")
	case ReasonUsage, ReasonWaste:
		if req.Change > 0 {
			return Applied{}, apperror.NewValidation(fmt.Sprintf("%s must have a negative change", strings.ToUpper(reason))).
				WithDetail("change", req.Change)
		}
	}
	if req.Change == 0 {
		return Applied{}, apperror.NewValidation("change must not be zero")
	}
	if !req.Location.IsPhysical() {
		return Applied{}, apperror.NewValidation(fmt.Sprintf("invalid location %q", req.Location))
	}

	var result Applied
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetItem(ctx, req.ItemID); err != nil {
			return err
		}
		sourceType := req.SourceType
		if sourceType == nil {
			sourceType = strPtr(SourceTypeManual)
		}
		applied, err := s.ledger.Apply(ctx, Entry{
			Location:   req.Location,
			ItemID:     req.ItemID,
			Delta:      req.Change,
			Reason:     reason,
			SourceType: sourceType,
			SourceID:   req.SourceID,
		})
		if err != nil {
			return err
		}
		result = applied
		return nil
	})
	if err != nil {
		return Applied{}, err
	}

	logger.Info(ctx, "inventory movement recorded",
		"item_id", req.ItemID,
		"location", req.Location,
		"change", req.Change,
		"reason", reason,
	)
	return result, nil
}
