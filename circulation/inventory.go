package circulation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/book-lending-engine-go/features/command/adjuststock"
	"github.com/AntonStoeckl/book-lending-engine-go/shared/shell"
)

// Inventory corrects the number of copies of a stock row.
type Inventory struct {
	adjust shell.CoreCommandHandler[adjuststock.Command, adjuststock.Result]
	now    func() time.Time
}

func newInventory(deps Dependencies, s settings) (*Inventory, error) {
	adjust, err := wrapCommand[adjuststock.Command, adjuststock.Result](
		adjuststock.NewCommandHandler(deps.Store,
			adjuststock.WithAuditLog(deps.Audit),
			adjuststock.WithRetryOptions(s.retryOptionsFor(adjuststock.Command{}.CommandType())...),
		), s)
	if err != nil {
		return nil, err
	}

	return &Inventory{adjust: adjust, now: s.now}, nil
}

// AdjustStock adds delta copies to stockID; a negative delta writes copies off.
func (i *Inventory) AdjustStock(ctx context.Context, stockID uuid.UUID, delta int, actingUserID uuid.UUID) (adjuststock.Result, error) {
	return i.adjust.Handle(ctx, adjuststock.BuildCommand(stockID, delta, actingUserID, i.now()))
}
