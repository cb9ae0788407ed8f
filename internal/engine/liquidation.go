package engine

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Liquidate sells every share the strategy owns at price through the normal queue and
// waits, bounded by the configured timeout, until all of them have been applied.
//
// Intents already queued for the strategy are settled first so the share count is exact.
// A timeout or shares left over after the final barrier is a liquidation stall.
func (e *ExecutionEngine) Liquidate(ctx context.Context, id types.StrategyID, price decimal.Decimal) error {
	if !e.known(id) {
		return errors.Newf(errors.ErrCodeUnknownStrategy, "unknown strategy id %d", id)
	}

	ctx, cancel := context.WithTimeout(ctx, e.config.LiquidationTimeout)
	defer cancel()

	if err := e.Flush(ctx); err != nil {
		return e.stall(id, err)
	}

	snapshot, err := e.Snapshot(id)
	if err != nil {
		return err
	}

	for range snapshot.Quantity {
		intent := types.NewOrderIntent(id, types.SideSell, price)
		if err := intent.Validate(); err != nil {
			return err
		}

		if err := e.enqueue(request{intent: intent, reason: types.ExecutionReasonLiquidation, barrier: nil}); err != nil {
			return e.stall(id, err)
		}
	}

	if err := e.Flush(ctx); err != nil {
		return e.stall(id, err)
	}

	after, err := e.Snapshot(id)
	if err != nil {
		return err
	}

	if after.Quantity != 0 {
		return errors.Newf(errors.ErrCodeLiquidationStall, "%s still holds %d shares after liquidation", after.Name, after.Quantity)
	}

	e.log.Debug("Liquidated strategy",
		zap.String("strategy", after.Name),
		zap.Int64("shares", snapshot.Quantity),
		zap.String("price", price.String()),
	)

	return nil
}

func (e *ExecutionEngine) stall(id types.StrategyID, cause error) error {
	if errors.IsFatal(cause) {
		return cause
	}

	return errors.Wrapf(errors.ErrCodeLiquidationStall, cause,
		"liquidation of strategy %d did not complete within %s", id, e.config.LiquidationTimeout.Round(time.Millisecond))
}
