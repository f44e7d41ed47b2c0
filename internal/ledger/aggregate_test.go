package ledger

import (
	"testing"
	"time"

	"github.com/finhold/holdings_engine/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawTx(seq int64, name string, d int, rawType, qty, netRate string) model.RawTransactionRecord {
	return model.RawTransactionRecord{
		SeqID:        seq,
		AccountID:    1,
		SecurityName: name,
		TradeDate:    day(d),
		RawType:      rawType,
		Quantity:     qty,
		NetRate:      netRate,
	}
}

func TestBuildGroupsByNormalizedName(t *testing.T) {
	agg := NewAggregator(nil)

	recs := []model.RawTransactionRecord{
		rawTx(1, "Infosys Limited", 1, "BUY", "100", "10"),
		rawTx(2, "Wipro Ltd", 1, "BUY", "10", "5"),
		rawTx(3, "INFOSYS LTD.", 2, "SELL", "40", "12"),
	}

	groups := agg.BuildGroups(recs, nil, time.Time{})
	require.Len(t, groups, 2)

	// different spellings of the same company fold into one group that
	// keeps the first-seen display name
	assert.Equal(t, "Infosys Limited", groups[0].SecurityName)
	assert.Len(t, groups[0].Events, 2)
	assert.Equal(t, "Wipro Ltd", groups[1].SecurityName)
}

func TestBuildGroupsExcludesPseudoSecurities(t *testing.T) {
	agg := NewAggregator(nil)

	recs := []model.RawTransactionRecord{
		rawTx(1, "Infosys Limited", 1, "BUY", "100", "10"),
		rawTx(2, "CASH", 1, "BUY", "5000", "1"),
		rawTx(3, "tds", 1, "SELL", "10", "1"),
		rawTx(4, "Tax Deducted At Source", 2, "SELL", "10", "1"),
	}

	groups := agg.BuildGroups(recs, nil, time.Time{})
	require.Len(t, groups, 1)
	assert.Equal(t, "Infosys Limited", groups[0].SecurityName)
}

func TestBuildGroupsConfiguredPseudoList(t *testing.T) {
	agg := NewAggregator([]string{"SUSPENSE"})

	assert.True(t, agg.IsPseudoSecurity("suspense"))
	// configured list replaces the default one
	assert.False(t, agg.IsPseudoSecurity("CASH"))
}

func TestBuildGroupsAsOfCutoffBeforeMerge(t *testing.T) {
	agg := NewAggregator(nil)

	exDate := day(5)
	recs := []model.RawTransactionRecord{
		rawTx(1, "Infosys Limited", 1, "BUY", "100", "10"),
		rawTx(2, "Infosys Limited", 10, "SELL", "100", "15"),
	}
	bonuses := []model.RawBonusRecord{
		{CompanyName: "INFOSYS LTD", ExDate: &exDate, Quantity: "20"},
	}

	groups := agg.BuildGroups(recs, bonuses, day(5))
	require.Len(t, groups, 1)
	// the future sell never reaches the ledger, the bonus on the cutoff
	// date (inclusive) does
	require.Len(t, groups[0].Events, 2)
	assert.Equal(t, model.CategoryBuy, groups[0].Events[0].Category)
	assert.Equal(t, model.CategoryBonus, groups[0].Events[1].Category)

	sum, oversold := agg.Summarize(1, groups[0])
	assert.True(t, sum.CurrentHolding.Equal(decimal.NewFromInt(120)))
	assert.True(t, oversold.IsZero())
}

func TestBuildGroupsBonusWithoutTradesIgnored(t *testing.T) {
	agg := NewAggregator(nil)

	exDate := day(1)
	bonuses := []model.RawBonusRecord{
		{CompanyName: "Unknown Co", ExDate: &exDate, Quantity: "10"},
	}

	groups := agg.BuildGroups(nil, bonuses, time.Time{})
	assert.Empty(t, groups)
}

func TestFindGroup(t *testing.T) {
	agg := NewAggregator(nil)
	groups := agg.BuildGroups([]model.RawTransactionRecord{
		rawTx(1, "Infosys Limited", 1, "BUY", "100", "10"),
	}, nil, time.Time{})

	g, ok := FindGroup(groups, "INFOSYS LTD")
	require.True(t, ok)
	assert.Equal(t, "Infosys Limited", g.SecurityName)

	_, ok = FindGroup(groups, "Wipro Ltd")
	assert.False(t, ok)
}

func TestSummaryMatchesLastStreamSnapshot(t *testing.T) {
	agg := NewAggregator(nil)

	exDate := day(2)
	recs := []model.RawTransactionRecord{
		rawTx(1, "Infosys Limited", 1, "BUY", "100", "10"),
		rawTx(2, "Infosys Limited", 3, "SELL", "50", "14"),
		rawTx(3, "Infosys Limited", 4, "BUY", "25", "11"),
	}
	bonuses := []model.RawBonusRecord{
		{CompanyName: "INFOSYS LTD", ExDate: &exDate, Quantity: "10"},
	}

	groups := agg.BuildGroups(recs, bonuses, time.Time{})
	require.Len(t, groups, 1)

	history := agg.History(groups[0])
	summary, _ := agg.Summarize(1, groups[0])

	require.NotEmpty(t, history)
	last := history[len(history)-1]
	assert.True(t, last.Holding.Equal(summary.CurrentHolding))
	assert.True(t, last.WeightedAvgPrice.Equal(summary.WeightedAvgBuyPrice))
}

func TestWeightedAvgCostRow(t *testing.T) {
	agg := NewAggregator(nil)

	groups := agg.BuildGroups([]model.RawTransactionRecord{
		rawTx(1, "Infosys Limited", 1, "BUY", "100", "10"),
		rawTx(2, "Infosys Limited", 2, "BUY", "100", "20"),
	}, nil, time.Time{})
	require.Len(t, groups, 1)

	row := agg.WeightedAvgCost(groups[0])
	assert.True(t, row.Holding.Equal(decimal.NewFromInt(200)))
	assert.True(t, row.WeightedAvgPrice.Equal(decimal.NewFromInt(15)))
	assert.True(t, row.CostBasis.Equal(decimal.NewFromInt(3000)))
}
