package portfolio

import (
	"bytes"
	"testing"

	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type AccountTestSuite struct {
	suite.Suite
}

func TestAccountSuite(t *testing.T) {
	suite.Run(t, new(AccountTestSuite))
}

func (suite *AccountTestSuite) TestBalanceConservation() {
	account := NewAccount("ma", d(1000))

	suite.Require().NoError(account.Buy(d(100)))
	suite.Require().NoError(account.Buy(d(110)))
	suite.Require().NoError(account.Sell(d(120)))

	totalBuy := decimal.Zero
	totalSell := decimal.Zero

	for _, entry := range account.Portfolio().History() {
		if entry.Action == types.SideBuy {
			totalBuy = totalBuy.Add(entry.Price)
		} else {
			totalSell = totalSell.Add(entry.Price)
		}
	}

	expected := account.StartingBalance().Sub(totalBuy).Add(totalSell)
	suite.True(expected.Equal(account.Balance()), "balance %s, expected %s", account.Balance(), expected)
	suite.True(d(910).Equal(account.Balance()))
	suite.Equal(int64(1), account.Quantity())
}

func (suite *AccountTestSuite) TestSellWithNothingOwnedIsRefused() {
	account := NewAccount("mr", d(1000))

	err := account.Sell(d(50))
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInsufficientShares))
	suite.True(errors.IsRefusal(err))

	suite.True(d(1000).Equal(account.Balance()))
	suite.Empty(account.Portfolio().History())
}

func (suite *AccountTestSuite) TestBuyBeyondBalanceIsRefused() {
	account := NewAccount("ma", d(150))

	suite.Require().NoError(account.Buy(d(100)))

	err := account.Buy(d(100))
	suite.True(errors.HasCode(err, errors.ErrCodeInsufficientFunds))
	suite.True(d(50).Equal(account.Balance()))
	suite.Equal(int64(1), account.Quantity())
}

func (suite *AccountTestSuite) TestBuyOfExactBalanceIsAllowed() {
	account := NewAccount("ma", d(100))

	suite.NoError(account.Buy(d(100)))
	suite.True(account.Balance().IsZero())
}

func (suite *AccountTestSuite) TestReportTotalsMatchHistory() {
	account := NewAccount("Moving Average", d(1000))
	suite.Require().NoError(account.Buy(d(100)))
	suite.Require().NoError(account.Buy(d(100)))
	suite.Require().NoError(account.Sell(d(150)))
	suite.Require().NoError(account.Sell(d(150)))

	report := account.Report("Moving Average", 504)

	suite.Equal("Moving Average", report.Label)
	suite.True(d(200).Equal(report.TotalBuy))
	suite.True(d(300).Equal(report.TotalSell))
	suite.True(d(100).Equal(report.RealizedGain))
	suite.True(d(1100).Equal(report.FinalBalance))
	suite.Len(report.History, 4)

	// (300/200) / 2 years * 100
	yearly, err := report.YearlyReturn().Take()
	suite.Require().NoError(err)
	suite.True(decimal.RequireFromString("75").Equal(yearly), "yearly %s", yearly)
}

func (suite *AccountTestSuite) TestReportWithoutElapsedTimeOmitsYearly() {
	account := NewAccount("ma", d(1000))
	suite.Require().NoError(account.Buy(d(100)))

	report := account.Report("ma", 0)
	suite.True(report.YearlyReturn().IsNone())
}

func (suite *AccountTestSuite) TestReportWithoutBuysOmitsYearly() {
	account := NewAccount("mr", d(1000))

	report := account.Report("Mean Reversion", 300)
	suite.True(report.YearlyReturn().IsNone())

	var buf bytes.Buffer
	suite.Require().NoError(report.Render(&buf, true))
	suite.NotContains(buf.String(), "Yearly Gain/Loss")
	suite.Contains(buf.String(), "Mean Reversion's History:")
}
