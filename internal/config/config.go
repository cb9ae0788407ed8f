// Package config loads and validates simulation configuration files.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-replay/internal/engine"
	"github.com/rxtech-lab/argo-replay/internal/strategy"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/internal/version"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSymbol       = "AAPL"
	DefaultHistoryYears = 5
	DefaultDataPath     = "stock_data.db"
)

// DefaultStartingBalance is the cash every strategy account starts with.
var DefaultStartingBalance = decimal.NewFromInt(1_000_000)


var validate = validator.New()

// StrategyConfig selects one built-in strategy and its windows.
type StrategyConfig struct {
	Kind        strategy.Kind `yaml:"kind" json:"kind" validate:"required,oneof=moving_average_crossover mean_reversion" jsonschema:"title=Kind,description=Built-in strategy kind,enum=moving_average_crossover,enum=mean_reversion"`
	Name        string        `yaml:"name,omitempty" json:"name,omitempty" jsonschema:"title=Name,description=Label used in reports; defaults to the kind's label"`
	ShortWindow int           `yaml:"short_window,omitempty" json:"short_window,omitempty" validate:"gte=0" jsonschema:"title=Short Window,description=Short moving average window for the crossover strategy,minimum=0,default=20"`
	LongWindow  int           `yaml:"long_window,omitempty" json:"long_window,omitempty" validate:"gte=0" jsonschema:"title=Long Window,description=Long moving average window for the crossover strategy,minimum=0,default=50"`
	Window      int           `yaml:"window,omitempty" json:"window,omitempty" validate:"gte=0" jsonschema:"title=Window,description=Moving average window for the mean reversion strategy,minimum=0,default=50"`
}

// Label returns the report label of the strategy.
func (s StrategyConfig) Label() string {
	if s.Name != "" {
		return s.Name
	}

	return s.Kind.DefaultName()
}

// Params converts the windows into strategy parameters.
func (s StrategyConfig) Params() strategy.Params {
	return strategy.Params{
		ShortWindow: s.ShortWindow,
		LongWindow:  s.LongWindow,
		Window:      s.Window,
	}
}

// SimulationConfig describes one replay run.
type SimulationConfig struct {
	Version            string                     `yaml:"version,omitempty" json:"version,omitempty" jsonschema:"title=Version,description=Config format version"`
	Symbol             string                     `yaml:"symbol" json:"symbol" validate:"required,max=16" jsonschema:"title=Symbol,description=Ticker to replay,default=AAPL"`
	StartDate          optional.Option[time.Time] `yaml:"start_date" json:"start_date" jsonschema:"title=Start Date,description=First date to replay (YYYY-MM-DD)"`
	EndDate            optional.Option[time.Time] `yaml:"end_date" json:"end_date" jsonschema:"title=End Date,description=Last date to replay (YYYY-MM-DD)"`
	StartingBalance    decimal.Decimal            `yaml:"starting_balance" json:"starting_balance" jsonschema:"title=Starting Balance,description=Cash each strategy starts with"`
	Strategies         []StrategyConfig           `yaml:"strategies" json:"strategies" validate:"required,min=1,dive" jsonschema:"title=Strategies,description=Strategies replayed side by side"`
	LiquidationTimeout time.Duration              `yaml:"liquidation_timeout" json:"liquidation_timeout" validate:"gte=0" jsonschema:"title=Liquidation Timeout,description=Bound on the end-of-run liquidation wait (e.g. 5s)"`
	DataPath           string                     `yaml:"data_path" json:"data_path" jsonschema:"title=Data Path,description=Price store: .parquet / .csv / DuckDB file with a stock_data table"`
	ResultsFolder      string                     `yaml:"results_folder,omitempty" json:"results_folder,omitempty" jsonschema:"title=Results Folder,description=Folder for reports.yaml and executions.parquet; empty disables writing"`
	ShowHistory        bool                       `yaml:"show_history" json:"show_history" jsonschema:"title=Show History,description=Print every transaction in the report"`
}

// DefaultConfig returns the configuration used when nothing is specified: AAPL over the
// five years before now, both strategies with their default windows.
func DefaultConfig(now time.Time) SimulationConfig {
	end := Today(now)

	return SimulationConfig{
		Version:         version.ConfigVersion,
		Symbol:          DefaultSymbol,
		StartDate:       optional.Some(end.AddDate(-DefaultHistoryYears, 0, 0)),
		EndDate:         optional.Some(end),
		StartingBalance: DefaultStartingBalance,
		Strategies: []StrategyConfig{
			{Kind: strategy.KindMovingAverageCrossover, Name: "", ShortWindow: strategy.DefaultShortWindow, LongWindow: strategy.DefaultLongWindow, Window: 0},
			{Kind: strategy.KindMeanReversion, Name: "", ShortWindow: 0, LongWindow: 0, Window: strategy.DefaultMeanReversionWindow},
		},
		LiquidationTimeout: engine.DefaultLiquidationTimeout,
		DataPath:           DefaultDataPath,
		ResultsFolder:      "",
		ShowHistory:        false,
	}
}

// Today truncates now to a UTC calendar date.
func Today(now time.Time) time.Time {
	y, m, d := now.Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if err := validate.Var(value, "required,datetime="+types.DateLayout); err != nil {
		return time.Time{}, errors.Wrapf(errors.ErrCodeInvalidDateFormat, err, "invalid date %q: expected YYYY-MM-DD", value)
	}

	date, err := time.Parse(types.DateLayout, value)
	if err != nil {
		return time.Time{}, errors.Wrapf(errors.ErrCodeInvalidDateFormat, err, "invalid date %q", value)
	}

	return date, nil
}

// ValidateDateRange rejects an end date before the start date.
func ValidateDateRange(start, end time.Time) error {
	if end.Before(start) {
		return errors.Newf(errors.ErrCodeInvalidDateRange, "end date %s is before start date %s",
			end.Format(types.DateLayout), start.Format(types.DateLayout))
	}

	return nil
}

// Validate checks the struct rules, the date range, the balance and strategy labels.
func (c *SimulationConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid simulation config", err)
	}

	if start, err := c.StartDate.Take(); err == nil {
		if end, err := c.EndDate.Take(); err == nil {
			if err := ValidateDateRange(start, end); err != nil {
				return err
			}
		}
	}

	if !c.StartingBalance.IsPositive() {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "starting balance must be positive, got %s", c.StartingBalance)
	}

	labels := make(map[string]struct{}, len(c.Strategies))
	for _, s := range c.Strategies {
		label := s.Label()
		if _, ok := labels[label]; ok {
			return errors.Newf(errors.ErrCodeStrategyConfigError, "duplicate strategy name %q", label)
		}

		labels[label] = struct{}{}
	}

	return nil
}

// rawConfig mirrors SimulationConfig with the YAML-friendly field types.
type rawConfig struct {
	Version            string           `yaml:"version"`
	Symbol             string           `yaml:"symbol"`
	StartDate          *string          `yaml:"start_date"`
	EndDate            *string          `yaml:"end_date"`
	StartingBalance    *string          `yaml:"starting_balance"`
	Strategies         []StrategyConfig `yaml:"strategies"`
	LiquidationTimeout *time.Duration   `yaml:"liquidation_timeout"`
	DataPath           string           `yaml:"data_path"`
	ResultsFolder      string           `yaml:"results_folder"`
	ShowHistory        bool             `yaml:"show_history"`
}

// UnmarshalYAML implements yaml.Unmarshaler. Missing fields keep the values already set
// on the receiver, so decoding into DefaultConfig overlays the file on the defaults.
func (c *SimulationConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw rawConfig
	if err := value.Decode(&raw); err != nil {
		return err
	}

	if raw.Version != "" {
		c.Version = raw.Version
	}

	if raw.Symbol != "" {
		c.Symbol = strings.ToUpper(strings.TrimSpace(raw.Symbol))
	}

	if raw.StartDate != nil {
		date, err := ParseDate(*raw.StartDate)
		if err != nil {
			return err
		}

		c.StartDate = optional.Some(date)
	}

	if raw.EndDate != nil {
		date, err := ParseDate(*raw.EndDate)
		if err != nil {
			return err
		}

		c.EndDate = optional.Some(date)
	}

	if raw.StartingBalance != nil {
		balance, err := decimal.NewFromString(strings.TrimSpace(*raw.StartingBalance))
		if err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid starting balance %q", *raw.StartingBalance)
		}

		c.StartingBalance = balance
	}

	if len(raw.Strategies) > 0 {
		c.Strategies = raw.Strategies
	}

	if raw.LiquidationTimeout != nil {
		c.LiquidationTimeout = *raw.LiquidationTimeout
	}

	if raw.DataPath != "" {
		c.DataPath = raw.DataPath
	}

	if raw.ResultsFolder != "" {
		c.ResultsFolder = raw.ResultsFolder
	}

	c.ShowHistory = c.ShowHistory || raw.ShowHistory

	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (c SimulationConfig) MarshalYAML() (any, error) {
	raw := rawConfig{
		Version:            c.Version,
		Symbol:             c.Symbol,
		StartDate:          nil,
		EndDate:            nil,
		StartingBalance:    nil,
		Strategies:         c.Strategies,
		LiquidationTimeout: &c.LiquidationTimeout,
		DataPath:           c.DataPath,
		ResultsFolder:      c.ResultsFolder,
		ShowHistory:        c.ShowHistory,
	}

	if start, err := c.StartDate.Take(); err == nil {
		s := start.Format(types.DateLayout)
		raw.StartDate = &s
	}

	if end, err := c.EndDate.Take(); err == nil {
		e := end.Format(types.DateLayout)
		raw.EndDate = &e
	}

	balance := c.StartingBalance.String()
	raw.StartingBalance = &balance

	return raw, nil
}

// Load reads a YAML config file on top of DefaultConfig(now), checks its version and validates it.
func Load(path string, now time.Time) (SimulationConfig, error) {
	cfg := DefaultConfig(now)

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", path)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		if errors.GetCode(err) != errors.ErrCodeUnknown {
			return cfg, err
		}

		return cfg, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to parse config %s", path)
	}

	if err := version.CheckConfigCompatibility(version.GetVersion(), cfg.Version); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Save writes the config as YAML.
func (c SimulationConfig) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
