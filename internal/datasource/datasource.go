// Package datasource provides the price series replayed by the simulation.
package datasource

import (
	"iter"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-replay/internal/types"
)

// ViewName is the relation every price store is exposed as.
const ViewName = "stock_data"

// PriceSource yields closing prices in chronological order.
type PriceSource interface {
	// Initialize attaches the price store at path. Supported stores are parquet files,
	// csv files and DuckDB databases holding a stock_data table.
	Initialize(path string) error
	// ReadAll yields every point within the optional bounds (inclusive), oldest first.
	// Iteration stops after the first error.
	ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) iter.Seq2[types.PricePoint, error]
	// Count returns the number of points ReadAll would yield for the same bounds.
	Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error)
	// Close releases any resources.
	Close() error
}

func inRange(date time.Time, start, end optional.Option[time.Time]) bool {
	if s, err := start.Take(); err == nil && date.Before(s) {
		return false
	}

	if e, err := end.Take(); err == nil && date.After(e) {
		return false
	}

	return true
}
