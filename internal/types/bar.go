package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar is one daily OHLCV bar as stored by the market data downloader.
type Bar struct {
	Symbol string
	Date   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal
}

// PricePoint projects the bar onto the closing price replayed by the simulation.
func (b Bar) PricePoint() PricePoint {
	return PricePoint{
		Symbol: b.Symbol,
		Date:   b.Date,
		Close:  b.Close,
	}
}
