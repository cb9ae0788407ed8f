package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/shopspring/decimal"
)

// DataGenerator generates daily closing prices for tests.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how prices are generated.
type GeneratorConfig struct {
	// Symbol is the ticker stamped on every point (e.g., "AAPL")
	Symbol string
	// StartDate is the first trading day of the series
	StartDate time.Time
	// Count is the number of trading days to generate
	Count int
	// InitialPrice is the starting close
	InitialPrice float64
	// Volatility controls price movement (0.02 = 2% typical daily volatility)
	Volatility float64
	// Trend is the drift over the whole series (-0.5 to 0.5 for bearish to bullish)
	Trend float64
	// SkipWeekends leaves Saturdays and Sundays out of the calendar
	SkipWeekends bool
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbol:       "TEST",
		StartDate:    time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC),
		Count:        1260,
		InitialPrice: 100.0,
		Volatility:   0.02,
		Trend:        0.0,
		SkipWeekends: true,
	}
}

// Generate creates a chronologically ordered price series.
// The closes follow a geometric Brownian motion and are rounded to cents.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.PricePoint {
	data := make([]types.PricePoint, config.Count)
	currentPrice := config.InitialPrice
	currentDate := config.StartDate

	for i := 0; i < config.Count; i++ {
		if config.SkipWeekends {
			currentDate = nextTradingDay(currentDate)
		}

		// Box-Muller transform for normal distribution
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		drift := config.Trend / float64(config.Count)

		next := currentPrice * (1 + config.Volatility*z + drift)
		if next <= 0.01 {
			next = currentPrice * 0.99 // Prevent non-positive prices
		}

		data[i] = types.PricePoint{
			Symbol: config.Symbol,
			Date:   currentDate,
			Close:  decimal.NewFromFloat(next).Round(2),
		}

		currentPrice = next
		currentDate = currentDate.AddDate(0, 0, 1)
	}

	return data
}

// Closes returns only the closing prices of a series.
func Closes(points []types.PricePoint) []decimal.Decimal {
	closes := make([]decimal.Decimal, len(points))
	for i, point := range points {
		closes[i] = point.Close
	}

	return closes
}

// GenerateYears is a convenience function to generate the given number of trading years
// with default settings.
func GenerateYears(symbol string, years int) []types.PricePoint {
	gen := NewDataGenerator(42) // Fixed seed for reproducibility
	config := DefaultConfig()
	config.Symbol = symbol
	config.Count = years * 252

	return gen.Generate(config)
}

func nextTradingDay(date time.Time) time.Time {
	for date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
		date = date.AddDate(0, 0, 1)
	}

	return date
}
