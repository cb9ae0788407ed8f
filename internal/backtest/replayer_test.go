package backtest

import (
	"context"
	"fmt"
	"iter"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-replay/internal/datasource"
	"github.com/rxtech-lab/argo-replay/internal/logger"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/mocks"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

// recordingStrategy appends "<name>:<price>" to a shared log on every tick.
type recordingStrategy struct {
	name  string
	log   *[]string
	err   error
	ticks int
	last  decimal.Decimal
}

func (s *recordingStrategy) Name() string               { return s.name }
func (s *recordingStrategy) ID() types.StrategyID       { return 0 }
func (s *recordingStrategy) Ticks() int                 { return s.ticks }
func (s *recordingStrategy) LastPrice() decimal.Decimal { return s.last }

func (s *recordingStrategy) Notify(price decimal.Decimal) error {
	*s.log = append(*s.log, fmt.Sprintf("%s:%s", s.name, price))
	s.ticks++
	s.last = price

	return s.err
}

type ReplayerTestSuite struct {
	suite.Suite
	source *datasource.MemoryPriceSource
}

func TestReplayerSuite(t *testing.T) {
	suite.Run(t, new(ReplayerTestSuite))
}

func points(closes ...int64) []types.PricePoint {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]types.PricePoint, len(closes))

	for i, c := range closes {
		out[i] = types.PricePoint{Symbol: "AAPL", Date: start.AddDate(0, 0, i), Close: decimal.NewFromInt(c)}
	}

	return out
}

func (suite *ReplayerTestSuite) SetupTest() {
	suite.source = datasource.NewMemoryPriceSource(points(10, 11, 12))
}

func (suite *ReplayerTestSuite) newReplayer() *MarketReplayer {
	return NewMarketReplayer(suite.source, optional.None[time.Time](), optional.None[time.Time](), logger.NewNopLogger())
}

func (suite *ReplayerTestSuite) TestNotifiesStrategiesInRegistrationOrder() {
	var log []string

	replayer := suite.newReplayer()
	suite.Require().NoError(replayer.AddStrategy(&recordingStrategy{name: "a", log: &log}))
	suite.Require().NoError(replayer.AddStrategy(&recordingStrategy{name: "b", log: &log}))

	suite.Require().NoError(replayer.Run(context.Background(), LifecycleCallbacks{}))

	suite.Equal([]string{"a:10", "b:10", "a:11", "b:11", "a:12", "b:12"}, log)
	suite.Equal(3, replayer.Ticks())
	suite.Equal("12", replayer.LastPoint().Unwrap().Close.String())
}

func (suite *ReplayerTestSuite) TestCallbacks() {
	var (
		log      []string
		started  int
		ticks    []int
		ended    int
		endedErr error
	)

	onStart := OnReplayStartCallback(func(total int) error {
		started = total

		return nil
	})
	onTick := OnTickCallback(func(current, total int, _ types.PricePoint) error {
		ticks = append(ticks, current)
		suite.Equal(3, total)

		return nil
	})
	onEnd := OnReplayEndCallback(func(n int, err error) {
		ended = n
		endedErr = err
	})

	replayer := suite.newReplayer()
	suite.Require().NoError(replayer.AddStrategy(&recordingStrategy{name: "a", log: &log}))
	suite.Require().NoError(replayer.Run(context.Background(), LifecycleCallbacks{
		OnReplayStart:   &onStart,
		OnTick:          &onTick,
		OnStrategyError: nil,
		OnReplayEnd:     &onEnd,
	}))

	suite.Equal(3, started)
	suite.Equal([]int{1, 2, 3}, ticks)
	suite.Equal(3, ended)
	suite.NoError(endedErr)
}

func (suite *ReplayerTestSuite) TestTickCallbackErrorAborts() {
	var log []string

	stop := errors.New(errors.ErrCodeUnknown, "stop")
	onTick := OnTickCallback(func(current, _ int, _ types.PricePoint) error {
		if current == 2 {
			return stop
		}

		return nil
	})

	replayer := suite.newReplayer()
	suite.Require().NoError(replayer.AddStrategy(&recordingStrategy{name: "a", log: &log}))

	err := replayer.Run(context.Background(), LifecycleCallbacks{OnTick: &onTick})
	suite.ErrorIs(err, stop)
	suite.Len(log, 2)
}

func (suite *ReplayerTestSuite) TestStrategyErrorsDoNotAbort() {
	var (
		log    []string
		failed []string
	)

	onError := OnStrategyErrorCallback(func(name string, _ types.PricePoint, err error) {
		failed = append(failed, name)
		suite.True(errors.HasCode(err, errors.ErrCodeInvalidOrder))
	})

	replayer := suite.newReplayer()
	suite.Require().NoError(replayer.AddStrategy(&recordingStrategy{name: "broken", log: &log, err: errors.New(errors.ErrCodeInvalidOrder, "price must be positive")}))
	suite.Require().NoError(replayer.AddStrategy(&recordingStrategy{name: "ok", log: &log}))

	suite.Require().NoError(replayer.Run(context.Background(), LifecycleCallbacks{OnStrategyError: &onError}))
	suite.Len(log, 6)
	suite.Equal([]string{"broken", "broken", "broken"}, failed)
}

func (suite *ReplayerTestSuite) TestStoppedEngineAbortsReplay() {
	tests := []struct {
		name string
		err  error
		code errors.ErrorCode
	}{
		{
			name: "engine stopped by a fatal error",
			err: errors.Wrap(errors.ErrCodeEngineShutdown, "engine stopped",
				errors.New(errors.ErrCodeEngineInvariantViolation, "panic while applying intent")),
			code: errors.ErrCodeEngineShutdown,
		},
		{
			name: "engine shutting down",
			err:  errors.New(errors.ErrCodeEngineShutdown, "engine is shutting down"),
			code: errors.ErrCodeEngineShutdown,
		},
		{
			name: "invariant violation",
			err:  errors.New(errors.ErrCodeEngineInvariantViolation, "unknown strategy id 7"),
			code: errors.ErrCodeEngineInvariantViolation,
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			var (
				log    []string
				failed []string
			)

			onError := OnStrategyErrorCallback(func(name string, _ types.PricePoint, _ error) {
				failed = append(failed, name)
			})

			replayer := NewMarketReplayer(datasource.NewMemoryPriceSource(points(10, 11, 12)),
				optional.None[time.Time](), optional.None[time.Time](), logger.NewNopLogger())
			suite.Require().NoError(replayer.AddStrategy(&recordingStrategy{name: "broken", log: &log, err: tt.err}))
			suite.Require().NoError(replayer.AddStrategy(&recordingStrategy{name: "ok", log: &log}))

			err := replayer.Run(context.Background(), LifecycleCallbacks{OnStrategyError: &onError})
			suite.True(errors.HasCode(err, tt.code), "got %v", err)
			suite.Equal([]string{"broken:10"}, log)
			suite.Empty(failed)
			suite.Equal(0, replayer.Ticks())
		})
	}
}

func (suite *ReplayerTestSuite) TestAddStrategyAfterStartFails() {
	var log []string

	replayer := suite.newReplayer()
	suite.Require().NoError(replayer.AddStrategy(&recordingStrategy{name: "a", log: &log}))
	suite.Require().NoError(replayer.Run(context.Background(), LifecycleCallbacks{}))

	err := replayer.AddStrategy(&recordingStrategy{name: "late", log: &log})
	suite.True(errors.HasCode(err, errors.ErrCodeReplayAlreadyStarted))

	err = replayer.Run(context.Background(), LifecycleCallbacks{})
	suite.True(errors.HasCode(err, errors.ErrCodeReplayAlreadyStarted))
	suite.Len(log, 3)
}

func (suite *ReplayerTestSuite) TestRunWithoutStrategies() {
	err := suite.newReplayer().Run(context.Background(), LifecycleCallbacks{})
	suite.True(errors.HasCode(err, errors.ErrCodeReplayNoStrategies))
}

func (suite *ReplayerTestSuite) TestEmptyRange() {
	var log []string

	start := optional.Some(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	replayer := NewMarketReplayer(suite.source, start, optional.None[time.Time](), logger.NewNopLogger())
	suite.Require().NoError(replayer.AddStrategy(&recordingStrategy{name: "a", log: &log}))

	err := replayer.Run(context.Background(), LifecycleCallbacks{})
	suite.True(errors.HasCode(err, errors.ErrCodeNoDataFound))
	suite.Empty(log)
}

func (suite *ReplayerTestSuite) TestCancelledContextStopsBetweenTicks() {
	var log []string

	ctx, cancel := context.WithCancel(context.Background())
	onTick := OnTickCallback(func(current, _ int, _ types.PricePoint) error {
		if current == 1 {
			cancel()
		}

		return nil
	})

	replayer := suite.newReplayer()
	suite.Require().NoError(replayer.AddStrategy(&recordingStrategy{name: "a", log: &log}))

	err := replayer.Run(ctx, LifecycleCallbacks{OnTick: &onTick})
	suite.ErrorIs(err, context.Canceled)
	suite.Equal([]string{"a:10"}, log)
}

func (suite *ReplayerTestSuite) TestSourceErrorAborts() {
	ctrl := gomock.NewController(suite.T())
	source := mocks.NewMockPriceSource(ctrl)

	var seq iter.Seq2[types.PricePoint, error] = func(yield func(types.PricePoint, error) bool) {
		if !yield(points(10)[0], nil) {
			return
		}

		yield(types.PricePoint{}, fmt.Errorf("disk on fire"))
	}

	source.EXPECT().Count(gomock.Any(), gomock.Any()).Return(2, nil)
	source.EXPECT().ReadAll(gomock.Any(), gomock.Any()).Return(seq)

	var log []string

	replayer := NewMarketReplayer(source, optional.None[time.Time](), optional.None[time.Time](), logger.NewNopLogger())
	suite.Require().NoError(replayer.AddStrategy(&recordingStrategy{name: "a", log: &log}))

	err := replayer.Run(context.Background(), LifecycleCallbacks{})
	suite.True(errors.HasCode(err, errors.ErrCodeQueryFailed))
	suite.Len(log, 1)
}

func (suite *ReplayerTestSuite) TestCountErrorAborts() {
	ctrl := gomock.NewController(suite.T())
	source := mocks.NewMockPriceSource(ctrl)
	source.EXPECT().Count(gomock.Any(), gomock.Any()).Return(0, errors.New(errors.ErrCodeDataSourceUnavailable, "gone"))

	var log []string

	replayer := NewMarketReplayer(source, optional.None[time.Time](), optional.None[time.Time](), logger.NewNopLogger())
	suite.Require().NoError(replayer.AddStrategy(&recordingStrategy{name: "a", log: &log}))

	err := replayer.Run(context.Background(), LifecycleCallbacks{})
	suite.True(errors.HasCode(err, errors.ErrCodeDataSourceUnavailable))
}

func (suite *ReplayerTestSuite) TestInvalidPricesAreSkipped() {
	var log []string

	source := datasource.NewMemoryPriceSource(points(10, 0, 12))
	replayer := NewMarketReplayer(source, optional.None[time.Time](), optional.None[time.Time](), logger.NewNopLogger())
	suite.Require().NoError(replayer.AddStrategy(&recordingStrategy{name: "a", log: &log}))

	suite.Require().NoError(replayer.Run(context.Background(), LifecycleCallbacks{}))
	suite.Equal([]string{"a:10", "a:12"}, log)
}
