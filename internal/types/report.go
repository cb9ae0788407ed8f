package types

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const reportSeparator = "-------------------------------------------------"

// HistoryEntry is one executed transaction in a portfolio's history.
type HistoryEntry struct {
	Action   Side            `yaml:"action" json:"action"`
	Price    decimal.Decimal `yaml:"price" json:"price"`
	Quantity int64           `yaml:"quantity" json:"quantity"`
}

// Report is the post-run summary of one strategy.
type Report struct {
	Label           string          `yaml:"label" json:"label"`
	Ticks           int             `yaml:"ticks" json:"ticks"`
	StartingBalance decimal.Decimal `yaml:"starting_balance" json:"starting_balance"`
	FinalBalance    decimal.Decimal `yaml:"final_balance" json:"final_balance"`
	TotalBuy        decimal.Decimal `yaml:"total_buy" json:"total_buy"`
	TotalSell       decimal.Decimal `yaml:"total_sell" json:"total_sell"`
	RealizedGain    decimal.Decimal `yaml:"realized_gain" json:"realized_gain"`
	Quantity        int64           `yaml:"quantity" json:"quantity"`
	// YearlyReturnPercent is nil when the elapsed time or the buy total is zero.
	YearlyReturnPercent *decimal.Decimal `yaml:"yearly_return_percent,omitempty" json:"yearly_return_percent,omitempty"`
	History             []HistoryEntry   `yaml:"history" json:"history"`
}

// YearlyReturn returns the yearly return percentage when it is computable.
func (r Report) YearlyReturn() optional.Option[decimal.Decimal] {
	if r.YearlyReturnPercent == nil {
		return optional.None[decimal.Decimal]()
	}

	return optional.Some(*r.YearlyReturnPercent)
}

// Render writes the textual report block. History lines are included when showHistory is set.
func (r Report) Render(w io.Writer, showHistory bool) error {
	var b strings.Builder

	b.WriteString(reportSeparator + "\n")
	fmt.Fprintf(&b, "%s's History:\n", r.Label)

	if showHistory {
		for _, entry := range r.History {
			fmt.Fprintf(&b, "%s: %s\n", entry.Action, entry.Price.StringFixed(2))
		}
	}

	if yearly, err := r.YearlyReturn().Take(); err == nil {
		fmt.Fprintf(&b, "Yearly Gain/Loss: %s%%\n", yearly.StringFixed(2))
	}

	b.WriteString(reportSeparator + "\n")

	_, err := io.WriteString(w, b.String())

	return err
}

// WriteReports writes all reports to path as YAML.
func WriteReports(path string, reports []Report) error {
	data, err := yaml.Marshal(reports)
	if err != nil {
		return fmt.Errorf("failed to marshal reports to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write reports to file: %w", err)
	}

	return nil
}

// ReadReports reads reports previously written by WriteReports.
func ReadReports(path string) ([]Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reports: %w", err)
	}

	var reports []Report
	if err := yaml.Unmarshal(data, &reports); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reports: %w", err)
	}

	return reports, nil
}
