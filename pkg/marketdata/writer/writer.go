package writer

import (
	"github.com/rxtech-lab/argo-replay/internal/types"
)

// TableName is the table that holds downloaded bars. The price source reads it back
// through its stock_data view.
const TableName = "stock_data"

// MarketDataWriter defines the interface for writing daily bars to a destination.
type MarketDataWriter interface {
	// Initialize sets up the writer, creating the table if needed.
	Initialize() error
	// Write persists a single bar.
	Write(bar types.Bar) error
	// Finalize commits written bars and returns the output path.
	Finalize() (outputPath string, err error)
	// Close releases any resources held by the writer.
	Close() error
	// GetOutputPath returns the configured output file path.
	GetOutputPath() string
}
