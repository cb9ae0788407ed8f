package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-replay/internal/backtest"
	"github.com/rxtech-lab/argo-replay/internal/config"
	"github.com/rxtech-lab/argo-replay/internal/datasource"
	"github.com/rxtech-lab/argo-replay/internal/logger"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/rxtech-lab/argo-replay/pkg/marketdata"
	"github.com/rxtech-lab/argo-replay/pkg/marketdata/provider"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
)

// runOptions are the command line overrides applied on top of the config.
type runOptions struct {
	ConfigPath    string
	Symbol        string
	Start         string
	End           string
	DataPath      string
	HistoryYears  int
	ResultsFolder string
	ShowHistory   bool
}

// resolveConfig loads the config file, or the defaults, and applies the overrides.
// Dates are checked before anything else starts.
func resolveConfig(opts runOptions, now time.Time) (config.SimulationConfig, error) {
	cfg := config.DefaultConfig(now)

	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath, now)
		if err != nil {
			return cfg, err
		}

		cfg = loaded
	}

	if opts.Symbol != "" {
		cfg.Symbol = strings.ToUpper(strings.TrimSpace(opts.Symbol))
	}

	if opts.End != "" {
		end, err := config.ParseDate(opts.End)
		if err != nil {
			return cfg, err
		}

		cfg.EndDate = optional.Some(end)
	}

	switch {
	case opts.Start != "":
		start, err := config.ParseDate(opts.Start)
		if err != nil {
			return cfg, err
		}

		cfg.StartDate = optional.Some(start)
	case opts.HistoryYears < 0:
		return cfg, errors.Newf(errors.ErrCodeInvalidConfiguration, "history must be positive, got %d", opts.HistoryYears)
	case opts.HistoryYears > 0:
		end := cfg.EndDate.TakeOr(config.Today(now))
		cfg.StartDate = optional.Some(end.AddDate(-opts.HistoryYears, 0, 0))
	}

	if opts.DataPath != "" {
		cfg.DataPath = opts.DataPath
	}

	if opts.ResultsFolder != "" {
		cfg.ResultsFolder = opts.ResultsFolder
	}

	if opts.ShowHistory {
		cfg.ShowHistory = true
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// applySelection replaces the symbol and dates with the ones confirmed in the prompt.
func applySelection(cfg config.SimulationConfig, sel Selection) config.SimulationConfig {
	cfg.Symbol = strings.ToUpper(sel.Symbol)
	cfg.StartDate = optional.Some(sel.Start)
	cfg.EndDate = optional.Some(sel.End)

	return cfg
}

func selectionOf(cfg config.SimulationConfig, now time.Time) Selection {
	end := cfg.EndDate.TakeOr(config.Today(now))

	return Selection{
		Symbol: cfg.Symbol,
		Start:  cfg.StartDate.TakeOr(end.AddDate(-config.DefaultHistoryYears, 0, 0)),
		End:    end,
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	now := time.Now()

	cfg, err := resolveConfig(runOptions{
		ConfigPath:    cmd.String("config"),
		Symbol:        cmd.String("symbol"),
		Start:         cmd.String("start"),
		End:           cmd.String("end"),
		DataPath:      cmd.String("data"),
		HistoryYears:  int(cmd.Int("history")),
		ResultsFolder: cmd.String("results"),
		ShowHistory:   cmd.Bool("show-history"),
	}, now)
	if err != nil {
		return err
	}

	if cmd.Bool("interactive") {
		sel, err := RunPrompt(selectionOf(cfg, now), os.Stdin, os.Stdout)
		if err != nil {
			return err
		}

		cfg = applySelection(cfg, sel)
	}

	log, err := logger.NewLoggerWithLevel(cmd.String("log-level"))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid log level", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cmd.Bool("download") {
		if err := downloadFor(ctx, cmd, cfg, now, log); err != nil {
			return err
		}
	}

	source, err := datasource.NewDuckDBPriceSource(cfg.Symbol, log.Named("datasource"))
	if err != nil {
		return err
	}
	defer source.Close()

	result, err := backtest.NewSimulation(cfg, source, log).Run(ctx, replayProgress(os.Stderr, cfg.Symbol))
	if err != nil {
		return err
	}

	return printResult(cmd.Root().Writer, result, cfg.ShowHistory)
}

// downloadFor fills the DuckDB store with the bars the run needs.
func downloadFor(ctx context.Context, cmd *cli.Command, cfg config.SimulationConfig, now time.Time, log *logger.Logger) error {
	switch strings.ToLower(filepath.Ext(cfg.DataPath)) {
	case ".db", ".duckdb":
	default:
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "--download needs a DuckDB data path, got %s", cfg.DataPath)
	}

	sel := selectionOf(cfg, now)

	client, err := marketdata.NewClient(marketdata.ClientConfig{
		ProviderType:  provider.ProviderType(cmd.String("provider")),
		DataPath:      cfg.DataPath,
		PolygonApiKey: cmd.String("polygon-api-key"),
	}, log.Named("marketdata"), marketdata.NewProgressBar(os.Stderr, "Downloading "+sel.Symbol))
	if err != nil {
		return err
	}

	_, err = client.Download(ctx, marketdata.DownloadParams{
		Ticker:    sel.Symbol,
		StartDate: sel.Start,
		EndDate:   sel.End,
		Force:     false,
	})

	return err
}

func replayProgress(w io.Writer, symbol string) backtest.LifecycleCallbacks {
	var bar *progressbar.ProgressBar

	onStart := backtest.OnReplayStartCallback(func(total int) error {
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription("Replaying "+symbol),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)

		return nil
	})
	onTick := backtest.OnTickCallback(func(_ int, _ int, _ types.PricePoint) error {
		if bar == nil {
			return nil
		}

		return bar.Add(1)
	})
	onEnd := backtest.OnReplayEndCallback(func(_ int, _ error) {
		if bar != nil {
			_ = bar.Finish()
		}
	})

	return backtest.LifecycleCallbacks{
		OnReplayStart:   &onStart,
		OnTick:          &onTick,
		OnStrategyError: nil,
		OnReplayEnd:     &onEnd,
	}
}

func printResult(w io.Writer, result *backtest.Result, showHistory bool) error {
	for _, report := range result.Reports {
		if err := report.Render(w, showHistory); err != nil {
			return err
		}
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render(fmt.Sprintf("Replayed %d days", result.Ticks)) + "\n")

	for _, summary := range result.Summaries {
		fmt.Fprintf(&b, "%s: %d filled, %d refused\n", summary.StrategyName, summary.Filled, summary.Refused)
	}

	if result.ResultsFolder != "" {
		b.WriteString(HelpStyle.Render("Results written to "+result.ResultsFolder) + "\n")
	}

	_, err := io.WriteString(w, b.String())

	return err
}
