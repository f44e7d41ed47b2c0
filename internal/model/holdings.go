package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lot is a quantity of shares acquired at one unit cost, owned by a single
// security's FIFO queue. Bonus-derived lots carry UnitCost 0.
type Lot struct {
	Quantity decimal.Decimal
	UnitCost decimal.Decimal
}

// Snapshot is the point-in-time state emitted after each processed event.
// RealizedPL is set only on sell events that consumed quantity.
type Snapshot struct {
	Date              time.Time
	Type              string
	Category          Category
	Quantity          decimal.Decimal
	Price             decimal.Decimal
	TotalAmount       decimal.Decimal
	Holding           decimal.Decimal
	CostBasis         decimal.Decimal
	WeightedAvgPrice  decimal.Decimal
	AvgCostOfHoldings decimal.Decimal
	RealizedPL        *decimal.Decimal
}

// HoldingSummary is the per-security rollup of a full replay.
type HoldingSummary struct {
	AccountID           int64
	SecurityName        string
	SecurityCode        string
	CurrentHolding      decimal.Decimal
	TotalBuyQty         decimal.Decimal
	TotalSellQty        decimal.Decimal
	TotalBuyAmount      decimal.Decimal
	TotalSellAmount     decimal.Decimal
	WeightedAvgBuyPrice decimal.Decimal
	Profit              decimal.Decimal
}

// WeightedAvgCostRow backs the standalone weighted-average-cost report. It is
// derived from the same replay that produces HoldingSummary.
type WeightedAvgCostRow struct {
	SecurityName     string
	SecurityCode     string
	Holding          decimal.Decimal
	WeightedAvgPrice decimal.Decimal
	CostBasis        decimal.Decimal
}

// GroupFailure reports a fault while replaying one security's ledger. Other
// groups in the same request are unaffected.
type GroupFailure struct {
	SecurityName string
	Err          error
}

// SecurityHistory is one security's full snapshot stream, used by report
// generation.
type SecurityHistory struct {
	SecurityName string
	SecurityCode string
	Snapshots    []Snapshot
}

// HoldingsReport is the input of the XLSX report generator.
type HoldingsReport struct {
	AccountID   int64
	AsOf        time.Time
	GeneratedAt time.Time
	Summaries   []HoldingSummary
	Histories   []SecurityHistory
}
