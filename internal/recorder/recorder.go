// Package recorder keeps an audit log of every execution in DuckDB and exports it to parquet.
package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-replay/internal/logger"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ExecutionsFile is the parquet file written by Write.
const ExecutionsFile = "executions.parquet"

// StrategySummary counts the executions of one strategy by status.
type StrategySummary struct {
	StrategyName string `yaml:"strategy_name" json:"strategy_name"`
	Filled       int    `yaml:"filled" json:"filled"`
	Refused      int    `yaml:"refused" json:"refused"`
}

// ExecutionRecorder stores executions in an in-memory DuckDB table.
type ExecutionRecorder struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewExecutionRecorder opens the in-memory database and creates the executions table.
func NewExecutionRecorder(log *logger.Logger) (*ExecutionRecorder, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open recorder database", err)
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	r := &ExecutionRecorder{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := r.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return r, nil
}

func (r *ExecutionRecorder) initialize() error {
	// Prices are stored as text to keep them exact; Write casts them for export.
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS executions (
			record_id TEXT PRIMARY KEY,
			sequence UBIGINT,
			intent_id TEXT,
			strategy_id INTEGER,
			strategy_name TEXT,
			side TEXT,
			price TEXT,
			quantity BIGINT,
			status TEXT,
			reason TEXT,
			balance_after TEXT,
			quantity_after BIGINT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create executions table: %w", err)
	}

	return nil
}

// Record inserts one execution.
func (r *ExecutionRecorder) Record(execution types.Execution) error {
	_, err := r.sq.
		Insert("executions").
		Columns(
			"record_id", "sequence", "intent_id", "strategy_id", "strategy_name", "side",
			"price", "quantity", "status", "reason", "balance_after", "quantity_after",
		).
		Values(
			uuid.New().String(), execution.Sequence, execution.IntentID, int(execution.StrategyID),
			execution.StrategyName, string(execution.Side), execution.Price.String(), execution.Quantity,
			string(execution.Status), execution.Reason, execution.BalanceAfter.String(), execution.QuantityAfter,
		).
		RunWith(r.db).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to insert execution: %w", err)
	}

	return nil
}

// Listen records an execution and logs, rather than returns, a failure.
// Its signature matches the engine's execution listener.
func (r *ExecutionRecorder) Listen(execution types.Execution) {
	if err := r.Record(execution); err != nil {
		r.logger.Error("Failed to record execution",
			zap.Uint64("sequence", execution.Sequence),
			zap.String("strategy", execution.StrategyName),
			zap.Error(err),
		)
	}
}

// GetAll returns every recorded execution in application order.
func (r *ExecutionRecorder) GetAll() ([]types.Execution, error) {
	rows, err := r.sq.
		Select(
			"sequence", "intent_id", "strategy_id", "strategy_name", "side", "price",
			"quantity", "status", "reason", "balance_after", "quantity_after",
		).
		From("executions").
		OrderBy("sequence ASC").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query executions", err)
	}
	defer rows.Close()

	var executions []types.Execution

	for rows.Next() {
		var (
			execution    types.Execution
			strategyID   int
			side         string
			status       string
			price        string
			balanceAfter string
		)

		err := rows.Scan(
			&execution.Sequence, &execution.IntentID, &strategyID, &execution.StrategyName, &side, &price,
			&execution.Quantity, &status, &execution.Reason, &balanceAfter, &execution.QuantityAfter,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan execution", err)
		}

		execution.StrategyID = types.StrategyID(strategyID)
		execution.Side = types.Side(side)
		execution.Status = types.ExecutionStatus(status)

		if execution.Price, err = decimal.NewFromString(price); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "invalid recorded price %q", price)
		}

		if execution.BalanceAfter, err = decimal.NewFromString(balanceAfter); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "invalid recorded balance %q", balanceAfter)
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to iterate executions", err)
	}

	return executions, nil
}

// Summary counts filled and refused executions per strategy, ordered by name.
func (r *ExecutionRecorder) Summary() ([]StrategySummary, error) {
	rows, err := r.sq.
		Select(
			"strategy_name",
			"COUNT(*) FILTER (WHERE status = 'FILLED')",
			"COUNT(*) FILTER (WHERE status = 'REFUSED')",
		).
		From("executions").
		GroupBy("strategy_name").
		OrderBy("strategy_name ASC").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to summarize executions", err)
	}
	defer rows.Close()

	var summaries []StrategySummary

	for rows.Next() {
		var summary StrategySummary
		if err := rows.Scan(&summary.StrategyName, &summary.Filled, &summary.Refused); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan summary", err)
		}

		summaries = append(summaries, summary)
	}

	return summaries, rows.Err()
}

// Write exports the executions to executions.parquet inside dir.
func (r *ExecutionRecorder) Write(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(errors.ErrCodeResultsWriteFailed, err, "failed to create results folder %s", dir)
	}

	path := filepath.Join(dir, ExecutionsFile)

	// Using raw SQL as Squirrel doesn't support COPY
	query := fmt.Sprintf(`
		COPY (
			SELECT sequence, intent_id, strategy_id, strategy_name, side,
				CAST(price AS DECIMAL(18, 4)) AS price, quantity, status, reason,
				CAST(balance_after AS DECIMAL(18, 4)) AS balance_after, quantity_after
			FROM executions
			ORDER BY sequence
		) TO '%s' (FORMAT PARQUET)
	`, strings.ReplaceAll(path, "'", "''"))

	if _, err := r.db.Exec(query); err != nil {
		return errors.Wrapf(errors.ErrCodeResultsWriteFailed, err, "failed to write %s", path)
	}

	return nil
}

// Close releases the database.
func (r *ExecutionRecorder) Close() error {
	return r.db.Close()
}
