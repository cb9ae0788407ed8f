package recorder

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/rxtech-lab/argo-replay/internal/logger"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type RecorderTestSuite struct {
	suite.Suite
	recorder *ExecutionRecorder
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderTestSuite))
}

func (suite *RecorderTestSuite) SetupTest() {
	recorder, err := NewExecutionRecorder(logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.recorder = recorder
}

func (suite *RecorderTestSuite) TearDownTest() {
	suite.NoError(suite.recorder.Close())
}

func execution(seq uint64, name string, side types.Side, price string, status types.ExecutionStatus) types.Execution {
	return types.Execution{
		Sequence:      seq,
		IntentID:      "intent",
		StrategyID:    0,
		StrategyName:  name,
		Side:          side,
		Price:         decimal.RequireFromString(price),
		Quantity:      1,
		Status:        status,
		Reason:        types.ExecutionReasonStrategy,
		BalanceAfter:  decimal.RequireFromString("999.875"),
		QuantityAfter: 1,
	}
}

func (suite *RecorderTestSuite) TestRecordAndGetAllKeepOrderAndPrecision() {
	suite.recorder.Listen(execution(2, "Mean Reversion", types.SideSell, "101.125", types.ExecutionStatusRefused))
	suite.recorder.Listen(execution(1, "Moving Average", types.SideBuy, "100.0001", types.ExecutionStatusFilled))

	executions, err := suite.recorder.GetAll()
	suite.Require().NoError(err)
	suite.Require().Len(executions, 2)

	suite.Equal(uint64(1), executions[0].Sequence)
	suite.Equal("Moving Average", executions[0].StrategyName)
	suite.Equal(types.SideBuy, executions[0].Side)
	suite.True(decimal.RequireFromString("100.0001").Equal(executions[0].Price))
	suite.True(decimal.RequireFromString("999.875").Equal(executions[0].BalanceAfter))
	suite.Equal(types.ExecutionStatusRefused, executions[1].Status)
}

func (suite *RecorderTestSuite) TestSummary() {
	suite.Require().NoError(suite.recorder.Record(execution(1, "Moving Average", types.SideBuy, "10", types.ExecutionStatusFilled)))
	suite.Require().NoError(suite.recorder.Record(execution(2, "Moving Average", types.SideSell, "11", types.ExecutionStatusFilled)))
	suite.Require().NoError(suite.recorder.Record(execution(3, "Mean Reversion", types.SideSell, "11", types.ExecutionStatusRefused)))

	summaries, err := suite.recorder.Summary()
	suite.Require().NoError(err)
	suite.Equal([]StrategySummary{
		{StrategyName: "Mean Reversion", Filled: 0, Refused: 1},
		{StrategyName: "Moving Average", Filled: 2, Refused: 0},
	}, summaries)
}

func (suite *RecorderTestSuite) TestWriteParquet() {
	suite.Require().NoError(suite.recorder.Record(execution(1, "Moving Average", types.SideBuy, "10.5", types.ExecutionStatusFilled)))
	suite.Require().NoError(suite.recorder.Record(execution(2, "Moving Average", types.SideSell, "11.25", types.ExecutionStatusFilled)))

	dir := filepath.Join(suite.T().TempDir(), "results")
	suite.Require().NoError(suite.recorder.Write(dir))

	db, err := sql.Open("duckdb", "")
	suite.Require().NoError(err)
	defer db.Close()

	var (
		count int
		total float64
	)

	err = db.QueryRow(`SELECT COUNT(*), SUM(CAST(price AS DOUBLE)) FROM read_parquet('` + filepath.Join(dir, ExecutionsFile) + `')`).Scan(&count, &total)
	suite.Require().NoError(err)
	suite.Equal(2, count)
	suite.InDelta(21.75, total, 1e-9)
}
