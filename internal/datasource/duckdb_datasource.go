package datasource

import (
	"database/sql"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-replay/internal/logger"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DuckDBPriceSource reads prices through an in-memory DuckDB instance that exposes the
// attached store as the stock_data view.
type DuckDBPriceSource struct {
	db        *sql.DB
	logger    *logger.Logger
	sq        squirrel.StatementBuilderType
	symbol    string
	hasSymbol bool
	attached  bool
}

// NewDuckDBPriceSource creates a price source. When symbol is set and the store has a
// symbol column, only that symbol's rows are read.
func NewDuckDBPriceSource(symbol string, log *logger.Logger) (*DuckDBPriceSource, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &DuckDBPriceSource{
		db:        db,
		logger:    log,
		sq:        squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		symbol:    strings.ToUpper(strings.TrimSpace(symbol)),
		hasSymbol: false,
		attached:  false,
	}, nil
}

// Initialize implements PriceSource.
func (d *DuckDBPriceSource) Initialize(path string) error {
	d.logger.Debug("Initializing DuckDB price source", zap.String("path", path), zap.String("symbol", d.symbol))

	if _, err := os.Stat(path); err != nil {
		return errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "price store %s is not readable", path)
	}

	if _, err := d.db.Exec(fmt.Sprintf(`DROP VIEW IF EXISTS %s;`, ViewName)); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to drop existing view", err)
	}

	if d.attached {
		if _, err := d.db.Exec(`DETACH store;`); err != nil {
			return errors.Wrap(errors.ErrCodeQueryFailed, "failed to detach previous store", err)
		}

		d.attached = false
	}

	// CREATE VIEW and ATTACH are not expressible with squirrel.
	quoted := quote(path)

	var source string

	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		source = fmt.Sprintf("read_parquet(%s)", quoted)
	case ".csv":
		source = fmt.Sprintf("read_csv_auto(%s, header = true)", quoted)
	case ".db", ".duckdb":
		if _, err := d.db.Exec(fmt.Sprintf(`ATTACH %s AS store (READ_ONLY);`, quoted)); err != nil {
			return errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to attach %s", path)
		}

		d.attached = true
		source = "store." + ViewName
	default:
		return errors.Newf(errors.ErrCodeDataSourceUnavailable, "unsupported price store %s: expected .parquet, .csv, .db or .duckdb", path)
	}

	query := fmt.Sprintf(`CREATE VIEW %s AS SELECT * FROM %s;`, ViewName, source)
	if _, err := d.db.Exec(query); err != nil {
		return errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to read price store %s", path)
	}

	hasSymbol, err := d.hasColumn("symbol")
	if err != nil {
		return err
	}

	d.hasSymbol = hasSymbol

	return nil
}

func (d *DuckDBPriceSource) hasColumn(name string) (bool, error) {
	query, args, err := d.sq.
		Select("COUNT(*)").
		From("information_schema.columns").
		Where(squirrel.Eq{"table_name": ViewName, "column_name": name}).
		ToSql()
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build column query", err)
	}

	var count int
	if err := d.db.QueryRow(query, args...).Scan(&count); err != nil {
		return false, errors.Wrap(errors.ErrCodeQueryFailed, "failed to inspect price store columns", err)
	}

	return count > 0, nil
}

func (d *DuckDBPriceSource) filter(builder squirrel.SelectBuilder, start, end optional.Option[time.Time]) squirrel.SelectBuilder {
	if d.hasSymbol && d.symbol != "" {
		builder = builder.Where(squirrel.Eq{"upper(symbol)": d.symbol})
	}

	if s, err := start.Take(); err == nil {
		builder = builder.Where(squirrel.GtOrEq{"CAST(date AS TIMESTAMP)": s})
	}

	if e, err := end.Take(); err == nil {
		builder = builder.Where(squirrel.LtOrEq{"CAST(date AS TIMESTAMP)": e})
	}

	return builder
}

// Count implements PriceSource.
func (d *DuckDBPriceSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	query, args, err := d.filter(d.sq.Select("COUNT(*)").From(ViewName), start, end).ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build count query", err)
	}

	var count int
	if err := d.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count prices", err)
	}

	return count, nil
}

// ReadAll implements PriceSource.
func (d *DuckDBPriceSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) iter.Seq2[types.PricePoint, error] {
	return func(yield func(types.PricePoint, error) bool) {
		d.logger.Debug("Reading prices from DuckDB")

		symbolColumn := "NULL"
		if d.hasSymbol {
			symbolColumn = "CAST(symbol AS VARCHAR)"
		}

		builder := d.sq.
			Select("CAST(date AS TIMESTAMP)", "CAST(close AS DOUBLE)", symbolColumn).
			From(ViewName).
			OrderBy("CAST(date AS TIMESTAMP) ASC")

		query, args, err := d.filter(builder, start, end).ToSql()
		if err != nil {
			yield(types.PricePoint{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build price query", err))

			return
		}

		rows, err := d.db.Query(query, args...)
		if err != nil {
			yield(types.PricePoint{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query prices", err))

			return
		}
		defer rows.Close()

		for rows.Next() {
			var (
				date   time.Time
				close  float64
				symbol sql.NullString
			)

			if err := rows.Scan(&date, &close, &symbol); err != nil {
				yield(types.PricePoint{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan price row", err))

				return
			}

			point := types.PricePoint{
				Symbol: d.symbol,
				Date:   date,
				Close:  decimal.NewFromFloat(close),
			}
			if symbol.Valid {
				point.Symbol = symbol.String
			}

			if !yield(point, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(types.PricePoint{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to iterate prices", err))
		}
	}
}

// Close implements PriceSource.
func (d *DuckDBPriceSource) Close() error {
	return d.db.Close()
}

func quote(path string) string {
	return "'" + strings.ReplaceAll(path, "'", "''") + "'"
}
