package portfolio

import (
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/shopspring/decimal"
)

// TradingDaysPerYear converts a tick count into elapsed years.
const TradingDaysPerYear = 252

var hundred = decimal.NewFromInt(100)

// Report replays the account history and summarizes it.
//
// The yearly return is (totalSell / totalBuy) / years * 100. It is not (sell-buy)/buy;
// the formula is kept as-is for parity with earlier results. It is omitted when no time
// has elapsed or nothing was bought.
func (a *Account) Report(label string, ticks int) types.Report {
	history := a.portfolio.History()
	totalBuy := decimal.Zero
	totalSell := decimal.Zero

	for _, entry := range history {
		amount := entry.Price.Mul(decimal.NewFromInt(entry.Quantity))
		if entry.Action == types.SideBuy {
			totalBuy = totalBuy.Add(amount)
		} else {
			totalSell = totalSell.Add(amount)
		}
	}

	report := types.Report{
		Label:               label,
		Ticks:               ticks,
		StartingBalance:     a.startingBalance,
		FinalBalance:        a.balance,
		TotalBuy:            totalBuy,
		TotalSell:           totalSell,
		RealizedGain:        a.portfolio.RealizedGainLoss(),
		Quantity:            a.portfolio.Quantity(),
		YearlyReturnPercent: nil,
		History:             history,
	}

	years := decimal.NewFromInt(int64(ticks)).Div(decimal.NewFromInt(TradingDaysPerYear))
	if years.IsPositive() && !totalBuy.IsZero() {
		yearly := totalSell.Div(totalBuy).Div(years).Mul(hundred)
		report.YearlyReturnPercent = &yearly
	}

	return report
}
