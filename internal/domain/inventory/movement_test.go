package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
)

func TestCreateMovement(t *testing.T) {
	f := newFixture()
	item := f.repo.addItem(BottleBacking{BottleID: id.New()}, "Gin", "bottle")
	ctx := context.Background()

	tests := []struct {
		name    string
		req     MovementRequest
		check   func(error) bool
		wantQty int64
	}{
		{
			name:    "receipt",
			req:     MovementRequest{ItemID: item.ID, Location: LocationBar, Change: 4, Reason: "delivery"},
			wantQty: 4,
		},
		{
			name:    "usage may drive stock negative",
			req:     MovementRequest{ItemID: item.ID, Location: LocationBar, Change: -6, Reason: "usage"},
			wantQty: -2,
		},
		{
			name:    "positive usage",
			req:     MovementRequest{ItemID: item.ID, Location: LocationBar, Change: 1, Reason: "USAGE"},
			check:   apperror.IsValidation,
			wantQty: -2,
		},
		{
			name:    "positive waste",
			req:     MovementRequest{ItemID: item.ID, Location: LocationBar, Change: 1, Reason: " Waste "},
			check:   apperror.IsValidation,
			wantQty: -2,
		},
		{
			name:    "transfer reason",
			req:     MovementRequest{ItemID: item.ID, Location: LocationBar, Change: 1, Reason: "transfer"},
			check:   apperror.IsConflict,
			wantQty: -2,
		},
		{
			name:    "unknown item",
			req:     MovementRequest{ItemID: id.New(), Location: LocationBar, Change: 1, Reason: "delivery"},
			check:   apperror.IsNotFound,
			wantQty: -2,
		},
		{
			name:    "zero change",
			req:     MovementRequest{ItemID: item.ID, Location: LocationBar, Change: 0, Reason: "count"},
			check:   apperror.IsValidation,
			wantQty: -2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			applied, err := f.svc.CreateMovement(ctx, tt.req)
			if tt.check != nil {
				assert.True(t, tt.check(err), "unexpected error: %v", err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantQty, applied.Stock.Quantity)
				assert.True(t, applied.Movement.SourceTypeIs(SourceTypeManual))
			}
			assert.Equal(t, tt.wantQty, f.repo.qty(item.ID, LocationBar))
		})
	}
}
