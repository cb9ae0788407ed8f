package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-replay/internal/backtest"
	"github.com/rxtech-lab/argo-replay/internal/config"
	"github.com/rxtech-lab/argo-replay/internal/recorder"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/internal/version"
	"github.com/rxtech-lab/argo-replay/mocks"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 15, 13, 30, 0, 0, time.UTC)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolveConfig(t *testing.T) {
	tests := []struct {
		name   string
		opts   runOptions
		symbol string
		start  time.Time
		end    time.Time
		code   errors.ErrorCode
	}{
		{
			name:   "defaults",
			opts:   runOptions{},
			symbol: "AAPL",
			start:  date(2019, 6, 15),
			end:    date(2024, 6, 15),
		},
		{
			name:   "explicit range",
			opts:   runOptions{Symbol: "msft", Start: "2020-01-02", End: "2021-01-04"},
			symbol: "MSFT",
			start:  date(2020, 1, 2),
			end:    date(2021, 1, 4),
		},
		{
			name:   "history years back from end",
			opts:   runOptions{End: "2022-03-01", HistoryYears: 2},
			symbol: "AAPL",
			start:  date(2020, 3, 1),
			end:    date(2022, 3, 1),
		},
		{
			name: "malformed start",
			opts: runOptions{Start: "01/02/2020"},
			code: errors.ErrCodeInvalidDateFormat,
		},
		{
			name: "malformed end",
			opts: runOptions{End: "2020-1-2"},
			code: errors.ErrCodeInvalidDateFormat,
		},
		{
			name: "end before start",
			opts: runOptions{Start: "2021-01-01", End: "2020-01-01"},
			code: errors.ErrCodeInvalidDateRange,
		},
		{
			name: "negative history",
			opts: runOptions{HistoryYears: -1},
			code: errors.ErrCodeInvalidConfiguration,
		},
		{
			name: "missing config file",
			opts: runOptions{ConfigPath: "does-not-exist.yaml"},
			code: errors.ErrCodeInvalidConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := resolveConfig(tt.opts, testNow)
			if tt.code != 0 {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, tt.code), "got %v", err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.symbol, cfg.Symbol)
			assert.Equal(t, optional.Some(tt.start), cfg.StartDate)
			assert.Equal(t, optional.Some(tt.end), cfg.EndDate)
		})
	}
}

func TestResolveConfigOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`version: "1.0.0"
symbol: TSLA
data_path: prices.parquet
strategies:
  - kind: mean_reversion
    window: 20
`), 0644))

	cfg, err := resolveConfig(runOptions{ConfigPath: path, DataPath: "other.csv", ResultsFolder: "out", ShowHistory: true}, testNow)
	require.NoError(t, err)
	assert.Equal(t, "TSLA", cfg.Symbol)
	assert.Equal(t, "other.csv", cfg.DataPath)
	assert.Equal(t, "out", cfg.ResultsFolder)
	assert.True(t, cfg.ShowHistory)
	require.Len(t, cfg.Strategies, 1)
	assert.Equal(t, 20, cfg.Strategies[0].Window)
}

func TestSelectionRoundTrip(t *testing.T) {
	cfg := config.DefaultConfig(testNow)
	cfg.StartDate = optional.None[time.Time]()

	sel := selectionOf(cfg, testNow)
	assert.Equal(t, Selection{Symbol: "AAPL", Start: date(2019, 6, 15), End: date(2024, 6, 15)}, sel)

	changed := applySelection(cfg, Selection{Symbol: "nvda", Start: date(2021, 1, 4), End: date(2022, 1, 3)})
	assert.Equal(t, "NVDA", changed.Symbol)
	assert.Equal(t, optional.Some(date(2021, 1, 4)), changed.StartDate)
	assert.Equal(t, optional.Some(date(2022, 1, 3)), changed.EndDate)
}

func TestDownloadRange(t *testing.T) {
	start, end, err := downloadRange("", "", testNow)
	require.NoError(t, err)
	assert.Equal(t, date(2019, 6, 15), start)
	assert.Equal(t, date(2024, 6, 15), end)

	start, end, err = downloadRange("2020-01-01", "2020-12-31", testNow)
	require.NoError(t, err)
	assert.Equal(t, date(2020, 1, 1), start)
	assert.Equal(t, date(2020, 12, 31), end)

	_, _, err = downloadRange("2021-01-01", "2020-12-31", testNow)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidDateRange))
}

func TestPrintResult(t *testing.T) {
	yearly := decimal.RequireFromString("12.5")
	result := &backtest.Result{
		Reports: []types.Report{{
			Label:               "Moving Average",
			YearlyReturnPercent: &yearly,
			History: []types.HistoryEntry{
				{Action: types.SideBuy, Price: decimal.NewFromInt(100), Quantity: 1},
				{Action: types.SideSell, Price: decimal.NewFromInt(110), Quantity: 1},
			},
		}},
		Summaries:     []recorder.StrategySummary{{StrategyName: "Moving Average", Filled: 2, Refused: 1}},
		Ticks:         252,
		ResultsFolder: "results",
	}

	var buf bytes.Buffer
	require.NoError(t, printResult(&buf, result, true))

	out := buf.String()
	assert.Contains(t, out, "Moving Average's History:")
	assert.Contains(t, out, "Buy: 100.00")
	assert.Contains(t, out, "Sell: 110.00")
	assert.Contains(t, out, "Yearly Gain/Loss: 12.50%")
	assert.Contains(t, out, "Replayed 252 days")
	assert.Contains(t, out, "Moving Average: 2 filled, 1 refused")
	assert.Contains(t, out, "Results written to results")
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer

	app := newApp()
	app.Writer = &buf
	app.ErrWriter = io.Discard

	err := app.Run(context.Background(), append([]string{"argo-replay"}, args...))

	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := runApp(t, "version")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("argo-replay %s (config %s)\n", version.GetVersion(), version.ConfigVersion), out)
}

func TestSchemaCommand(t *testing.T) {
	out, err := runApp(t, "schema")
	require.NoError(t, err)
	assert.Contains(t, out, "strategies")
	assert.Contains(t, out, "start_date")
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prices.csv")

	var csv strings.Builder

	csv.WriteString("symbol,date,close\n")

	for _, p := range mocks.GenerateYears("TEST", 2) {
		fmt.Fprintf(&csv, "%s,%s,%s\n", p.Symbol, p.DateString(), p.Close.String())
	}

	require.NoError(t, os.WriteFile(path, []byte(csv.String()), 0644))

	results := filepath.Join(dir, "results")

	out, err := runApp(t, "run",
		"--data", path,
		"--symbol", "test",
		"--start", "2019-01-01",
		"--end", "2030-01-01",
		"--results", results,
		"--log-level", "error",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "Moving Average's History:")
	assert.Contains(t, out, "Mean Reversion's History:")
	assert.Contains(t, out, "Replayed 504 days")
	assert.FileExists(t, filepath.Join(results, backtest.ReportsFile))
	assert.FileExists(t, filepath.Join(results, recorder.ExecutionsFile))
}

func TestRunCommandRejectsBadDates(t *testing.T) {
	_, err := runApp(t, "run", "--start", "2020-13-45", "--log-level", "error")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidDateFormat))

	_, err = runApp(t, "run", "--start", "2021-01-01", "--end", "2020-01-01", "--log-level", "error")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidDateRange))
}

func TestRunCommandDownloadNeedsDuckDB(t *testing.T) {
	_, err := runApp(t, "run", "--data", "prices.csv", "--download", "--provider", "binance", "--log-level", "error")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}
