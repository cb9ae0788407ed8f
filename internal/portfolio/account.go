package portfolio

import (
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
)

// SharesPerOrder is the number of shares moved by one executed intent.
const SharesPerOrder int64 = 1

// Account is one strategy's cash balance plus its portfolio.
// A buy lowers the balance by exactly the price, a sell raises it by exactly the price.
type Account struct {
	name            string
	balance         decimal.Decimal
	startingBalance decimal.Decimal
	portfolio       *Portfolio
}

// NewAccount creates an account with the given starting balance.
func NewAccount(name string, startingBalance decimal.Decimal) *Account {
	return &Account{
		name:            name,
		balance:         startingBalance,
		startingBalance: startingBalance,
		portfolio:       NewPortfolio(),
	}
}

// Buy buys one share at price. It is refused when the price exceeds the balance (no margin).
func (a *Account) Buy(price decimal.Decimal) error {
	if price.GreaterThan(a.balance) {
		return errors.Newf(errors.ErrCodeInsufficientFunds, "price %s exceeds balance %s", price, a.balance)
	}

	if err := a.portfolio.RecordBuy(price, SharesPerOrder); err != nil {
		return err
	}

	a.balance = a.balance.Sub(price)

	return nil
}

// Sell sells one share at price. It is refused when nothing is owned.
func (a *Account) Sell(price decimal.Decimal) error {
	if a.portfolio.Quantity() < SharesPerOrder {
		return errors.Newf(errors.ErrCodeInsufficientShares, "no shares owned to sell at %s", price)
	}

	if _, err := a.portfolio.RecordSell(price, SharesPerOrder); err != nil {
		return err
	}

	a.balance = a.balance.Add(price)

	return nil
}

func (a *Account) Name() string {
	return a.name
}

func (a *Account) Balance() decimal.Decimal {
	return a.balance
}

func (a *Account) StartingBalance() decimal.Decimal {
	return a.startingBalance
}

func (a *Account) Portfolio() *Portfolio {
	return a.portfolio
}

// Quantity returns the number of shares owned.
func (a *Account) Quantity() int64 {
	return a.portfolio.Quantity()
}
