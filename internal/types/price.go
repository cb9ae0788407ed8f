package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date layout used by price stores and the CLI.
const DateLayout = "2006-01-02"

// PricePoint is one replayed tick: the closing price of a symbol on a calendar date.
type PricePoint struct {
	Symbol string          `yaml:"symbol" json:"symbol" csv:"symbol"`
	Date   time.Time       `yaml:"date" json:"date" csv:"date"`
	Close  decimal.Decimal `yaml:"close" json:"close" csv:"close"`
}

// IsValid reports whether the point carries a positive closing price.
func (p PricePoint) IsValid() bool {
	return p.Close.IsPositive()
}

// DateString formats the date as YYYY-MM-DD.
func (p PricePoint) DateString() string {
	return p.Date.Format(DateLayout)
}
