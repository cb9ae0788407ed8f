package types

import (
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
)

// StrategyID is the opaque handle the execution engine hands out for a registered account.
type StrategyID int

// Side is the direction of an order intent.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// String returns the human readable action used in reports ("Buy" / "Sell").
func (s Side) String() string {
	switch s {
	case SideBuy:
		return "Buy"
	case SideSell:
		return "Sell"
	default:
		return string(s)
	}
}

var validate = validator.New()

// OrderIntent is a strategy's request to buy or sell one share at a price.
// It is created at decision time, consumed exactly once by the engine and never mutated.
type OrderIntent struct {
	ID         string          `yaml:"id" json:"id" validate:"required,uuid"`
	StrategyID StrategyID      `yaml:"strategy_id" json:"strategy_id" validate:"gte=0"`
	Side       Side            `yaml:"side" json:"side" validate:"required,oneof=BUY SELL"`
	Price      decimal.Decimal `yaml:"price" json:"price"`
}

// NewOrderIntent creates an intent with a fresh id.
func NewOrderIntent(strategyID StrategyID, side Side, price decimal.Decimal) OrderIntent {
	return OrderIntent{
		ID:         uuid.New().String(),
		StrategyID: strategyID,
		Side:       side,
		Price:      price,
	}
}

// Validate validates the OrderIntent struct.
func (o *OrderIntent) Validate() error {
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order intent", err)
	}

	if !o.Price.IsPositive() {
		return errors.Newf(errors.ErrCodeInvalidOrder, "order price must be positive, got %s", o.Price)
	}

	return nil
}
