package strategy

import (
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
)

// Kind names a built-in strategy.
type Kind string

const (
	KindMovingAverageCrossover Kind = "moving_average_crossover"
	KindMeanReversion          Kind = "mean_reversion"
)

// Kinds lists every supported kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindMovingAverageCrossover, KindMeanReversion}
}

// DefaultName returns the report label of a kind.
func (k Kind) DefaultName() string {
	switch k {
	case KindMovingAverageCrossover:
		return "Moving Average"
	case KindMeanReversion:
		return "Mean Reversion"
	default:
		return string(k)
	}
}

// Params are the tunable windows. Zero values fall back to the defaults of the kind.
type Params struct {
	ShortWindow int
	LongWindow  int
	Window      int
}

// New builds a strategy of the given kind.
func New(kind Kind, name string, id types.StrategyID, submitter Submitter, params Params) (Strategy, error) {
	if name == "" {
		name = kind.DefaultName()
	}

	switch kind {
	case KindMovingAverageCrossover:
		s, err := NewMovingAverageCrossover(name, id, submitter,
			orDefault(params.ShortWindow, DefaultShortWindow),
			orDefault(params.LongWindow, DefaultLongWindow),
		)
		if err != nil {
			return nil, err
		}

		return s, nil
	case KindMeanReversion:
		s, err := NewMeanReversion(name, id, submitter, orDefault(params.Window, DefaultMeanReversionWindow))
		if err != nil {
			return nil, err
		}

		return s, nil
	default:
		return nil, errors.Newf(errors.ErrCodeUnsupportedStrategy, "unsupported strategy kind %q", kind)
	}
}

func orDefault(v, fallback int) int {
	if v == 0 {
		return fallback
	}

	return v
}
