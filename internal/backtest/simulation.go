package backtest

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rxtech-lab/argo-replay/internal/config"
	"github.com/rxtech-lab/argo-replay/internal/datasource"
	"github.com/rxtech-lab/argo-replay/internal/engine"
	"github.com/rxtech-lab/argo-replay/internal/logger"
	"github.com/rxtech-lab/argo-replay/internal/recorder"
	"github.com/rxtech-lab/argo-replay/internal/strategy"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"go.uber.org/zap"
)

// ReportsFile is the YAML file holding all strategy reports.
const ReportsFile = "reports.yaml"

// Result is the outcome of a completed simulation.
type Result struct {
	Reports    []types.Report
	Summaries  []recorder.StrategySummary
	Executions []types.Execution
	Ticks      int
	// ResultsFolder is empty when nothing was written.
	ResultsFolder string
}

// Simulation wires the price source, the execution engine, the strategies and the
// recorder together and runs them to completion.
type Simulation struct {
	config    config.SimulationConfig
	source    datasource.PriceSource
	logger    *logger.Logger
	listeners []engine.ExecutionListener
}

// NewSimulation creates a simulation. The source is initialized with cfg.DataPath on Run.
func NewSimulation(cfg config.SimulationConfig, source datasource.PriceSource, log *logger.Logger) *Simulation {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Simulation{
		config:    cfg,
		source:    source,
		logger:    log,
		listeners: nil,
	}
}

// AddListener registers a listener notified of every execution, after the recorder.
// It must be called before Run.
func (s *Simulation) AddListener(listener engine.ExecutionListener) {
	s.listeners = append(s.listeners, listener)
}

type registered struct {
	label    string
	id       types.StrategyID
	strategy strategy.Strategy
}

// Run validates the configuration, replays the series, liquidates every strategy at its
// last price, builds the reports and writes them when a results folder is configured.
// Any configuration, data or engine failure aborts the run without partial results.
func (s *Simulation) Run(ctx context.Context, callbacks LifecycleCallbacks) (*Result, error) {
	if err := s.config.Validate(); err != nil {
		return nil, err
	}

	if err := s.source.Initialize(s.config.DataPath); err != nil {
		return nil, err
	}

	rec, err := recorder.NewExecutionRecorder(s.logger.Named("recorder"))
	if err != nil {
		return nil, err
	}
	defer rec.Close()

	eng := engine.NewExecutionEngine(engine.Config{LiquidationTimeout: s.config.LiquidationTimeout}, s.logger)
	defer eng.Shutdown()

	eng.AddListener(rec.Listen)

	for _, listener := range s.listeners {
		eng.AddListener(listener)
	}

	replayer := NewMarketReplayer(s.source, s.config.StartDate, s.config.EndDate, s.logger)

	strategies := make([]registered, 0, len(s.config.Strategies))

	for _, sc := range s.config.Strategies {
		label := sc.Label()

		id, err := eng.Register(label, s.config.StartingBalance)
		if err != nil {
			return nil, err
		}

		strat, err := strategy.New(sc.Kind, label, id, eng, sc.Params())
		if err != nil {
			return nil, err
		}

		if err := replayer.AddStrategy(strat); err != nil {
			return nil, err
		}

		strategies = append(strategies, registered{label: label, id: id, strategy: strat})
	}

	s.logger.Info("Simulation started",
		zap.String("symbol", s.config.Symbol),
		zap.Int("strategies", len(strategies)),
		zap.String("starting_balance", s.config.StartingBalance.String()),
	)

	if err := replayer.Run(ctx, stopOnFatal(eng, callbacks)); err != nil {
		if fatal := eng.Err(); fatal != nil {
			return nil, fatal
		}

		return nil, err
	}

	if err := eng.Err(); err != nil {
		return nil, err
	}

	for _, r := range strategies {
		if r.strategy.Ticks() == 0 {
			continue
		}

		last := r.strategy.LastPrice()

		if err := eng.Liquidate(ctx, r.id, last); err != nil {
			return nil, err
		}

		if err := eng.MarkToMarket(r.id, last); err != nil {
			return nil, err
		}
	}

	if err := eng.Shutdown(); err != nil {
		return nil, err
	}

	result := &Result{
		Reports:       make([]types.Report, 0, len(strategies)),
		Summaries:     nil,
		Executions:    nil,
		Ticks:         replayer.Ticks(),
		ResultsFolder: "",
	}

	for _, r := range strategies {
		report, err := eng.Report(r.id, r.label, r.strategy.Ticks())
		if err != nil {
			return nil, err
		}

		result.Reports = append(result.Reports, report)
	}

	if result.Summaries, err = rec.Summary(); err != nil {
		return nil, err
	}

	if result.Executions, err = rec.GetAll(); err != nil {
		return nil, err
	}

	if s.config.ResultsFolder != "" {
		if err := s.write(rec, result.Reports); err != nil {
			return nil, err
		}

		result.ResultsFolder = s.config.ResultsFolder
	}

	s.logger.Info("Simulation finished", zap.Int("ticks", result.Ticks), zap.Int("executions", len(result.Executions)))

	return result, nil
}

// stopOnFatal wraps OnTick so the replay ends on the first tick after the engine died,
// even when no strategy submits again.
func stopOnFatal(eng *engine.ExecutionEngine, callbacks LifecycleCallbacks) LifecycleCallbacks {
	next := callbacks.OnTick

	var onTick OnTickCallback = func(current int, total int, point types.PricePoint) error {
		if err := eng.Err(); err != nil {
			return err
		}

		if next != nil {
			return (*next)(current, total, point)
		}

		return nil
	}

	callbacks.OnTick = &onTick

	return callbacks
}

func (s *Simulation) write(rec *recorder.ExecutionRecorder, reports []types.Report) error {
	folder := s.config.ResultsFolder

	if err := os.MkdirAll(folder, 0755); err != nil {
		return errors.Wrapf(errors.ErrCodeResultsWriteFailed, err, "failed to create results folder %s", folder)
	}

	if err := types.WriteReports(filepath.Join(folder, ReportsFile), reports); err != nil {
		return errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to write reports", err)
	}

	if err := rec.Write(folder); err != nil {
		return err
	}

	s.logger.Info("Results written", zap.String("folder", folder))

	return nil
}
