package types

import "github.com/shopspring/decimal"

type ExecutionStatus string

const (
	ExecutionStatusFilled  ExecutionStatus = "FILLED"
	ExecutionStatusRefused ExecutionStatus = "REFUSED"
)

const (
	ExecutionReasonStrategy           string = "strategy"
	ExecutionReasonLiquidation        string = "liquidation"
	ExecutionReasonInsufficientFunds  string = "insufficient_funds"
	ExecutionReasonInsufficientShares string = "insufficient_shares"
)

// Execution is the outcome of applying one intent to its owning account.
type Execution struct {
	// Sequence is the global application order, starting at 1.
	Sequence      uint64          `yaml:"sequence" json:"sequence"`
	IntentID      string          `yaml:"intent_id" json:"intent_id"`
	StrategyID    StrategyID      `yaml:"strategy_id" json:"strategy_id"`
	StrategyName  string          `yaml:"strategy_name" json:"strategy_name"`
	Side          Side            `yaml:"side" json:"side"`
	Price         decimal.Decimal `yaml:"price" json:"price"`
	Quantity      int64           `yaml:"quantity" json:"quantity"`
	Status        ExecutionStatus `yaml:"status" json:"status"`
	Reason        string          `yaml:"reason" json:"reason"`
	BalanceAfter  decimal.Decimal `yaml:"balance_after" json:"balance_after"`
	QuantityAfter int64           `yaml:"quantity_after" json:"quantity_after"`
}

// IsFilled reports whether the execution changed the account.
func (e Execution) IsFilled() bool {
	return e.Status == ExecutionStatusFilled
}
