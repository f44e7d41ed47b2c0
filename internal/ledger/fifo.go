package ledger

import (
	"github.com/finhold/holdings_engine/internal/model"
	"github.com/shopspring/decimal"
)

// Mode selects what a replay emits. The fold itself is identical in both
// modes, which is what keeps the history view, the portfolio summary and the
// weighted-average-cost report numerically in agreement.
type Mode int

const (
	EmitStream Mode = iota
	EmitSummaryOnly
)

// LedgerState is the open-lot queue of one (account, security) replay. It is
// the only mutable state in the engine and is discarded after use.
type LedgerState struct {
	lots     []model.Lot
	oversold decimal.Decimal
}

func NewLedgerState() *LedgerState {
	return &LedgerState{}
}

// HoldingQty is the sum of open lot quantities. Never negative.
func (s *LedgerState) HoldingQty() decimal.Decimal {
	qty := decimal.Zero
	for _, lot := range s.lots {
		qty = qty.Add(lot.Quantity)
	}
	return qty
}

// CostBasis is the sum of quantity times unit cost over open lots.
func (s *LedgerState) CostBasis() decimal.Decimal {
	basis := decimal.Zero
	for _, lot := range s.lots {
		basis = basis.Add(lot.Quantity.Mul(lot.UnitCost))
	}
	return basis
}

func (s *LedgerState) pushLot(qty, unitCost decimal.Decimal) {
	s.lots = append(s.lots, model.Lot{Quantity: qty, UnitCost: unitCost})
}

// consume takes qty from the front of the queue, oldest lot first, and
// returns the cost of what was actually consumed plus the unmatched excess.
// The excess is a sale against an untracked opening balance: it contributes
// zero cost and the holding floors at zero instead of going negative.
func (s *LedgerState) consume(qty decimal.Decimal) (costConsumed, excess decimal.Decimal) {
	costConsumed = decimal.Zero
	remaining := qty

	for remaining.IsPositive() && len(s.lots) > 0 {
		lot := &s.lots[0]
		take := decimal.Min(lot.Quantity, remaining)

		costConsumed = costConsumed.Add(take.Mul(lot.UnitCost))
		remaining = remaining.Sub(take)
		lot.Quantity = lot.Quantity.Sub(take)

		if !lot.Quantity.IsPositive() {
			s.lots = s.lots[1:]
		}
	}

	return costConsumed, remaining
}

// Apply processes one event and emits its snapshot. Buys and bonuses push a
// lot, sells consume oldest-first, dividend and other events leave the queue
// untouched. Zero-quantity events are inert but still produce a snapshot so
// they stay visible in the history stream.
func (s *LedgerState) Apply(ev model.LedgerEvent) model.Snapshot {
	snap := model.Snapshot{
		Date:        ev.Date,
		Type:        ev.RawType,
		Category:    ev.Category,
		Quantity:    ev.Quantity,
		Price:       ev.Price,
		TotalAmount: ev.GrossValue(),
	}

	if ev.Quantity.IsPositive() {
		switch ev.Category {
		case model.CategoryBuy:
			s.pushLot(ev.Quantity, ev.Price)
		case model.CategoryBonus:
			s.pushLot(ev.Quantity, decimal.Zero)
		case model.CategorySell:
			costConsumed, excess := s.consume(ev.Quantity)
			s.oversold = s.oversold.Add(excess)
			realized := ev.GrossValue().Sub(costConsumed)
			snap.RealizedPL = &realized
		}
	}

	snap.Holding = s.HoldingQty()
	snap.CostBasis = s.CostBasis()
	snap.WeightedAvgPrice = decimal.Zero
	if snap.Holding.IsPositive() {
		snap.WeightedAvgPrice = snap.CostBasis.Div(snap.Holding)
	}
	snap.AvgCostOfHoldings = snap.Holding.Mul(snap.WeightedAvgPrice)

	return snap
}

// ReplayResult carries the outputs of one replay. Snapshots is nil in
// EmitSummaryOnly mode; the summary is always populated. OversoldQty is the
// total sell quantity that found no open lot to match.
type ReplayResult struct {
	Snapshots   []model.Snapshot
	Summary     model.HoldingSummary
	OversoldQty decimal.Decimal
}

// Replay folds the merged sequence from an empty lot queue. Oversold excess
// is treated as a sale against an untracked opening balance: it contributes
// zero cost but is still counted in the sell totals.
func Replay(events []model.LedgerEvent, mode Mode) ReplayResult {
	state := NewLedgerState()

	var res ReplayResult
	if mode == EmitStream {
		res.Snapshots = make([]model.Snapshot, 0, len(events))
	}

	sum := &res.Summary
	sum.CurrentHolding = decimal.Zero
	sum.TotalBuyQty = decimal.Zero
	sum.TotalSellQty = decimal.Zero
	sum.TotalBuyAmount = decimal.Zero
	sum.TotalSellAmount = decimal.Zero
	sum.WeightedAvgBuyPrice = decimal.Zero
	sum.Profit = decimal.Zero

	for _, ev := range events {
		snap := state.Apply(ev)

		if ev.Quantity.IsPositive() {
			switch ev.Category {
			case model.CategoryBuy:
				sum.TotalBuyQty = sum.TotalBuyQty.Add(ev.Quantity)
				sum.TotalBuyAmount = sum.TotalBuyAmount.Add(ev.GrossValue())
			case model.CategorySell:
				sum.TotalSellQty = sum.TotalSellQty.Add(ev.Quantity)
				sum.TotalSellAmount = sum.TotalSellAmount.Add(ev.GrossValue())
				if snap.RealizedPL != nil {
					sum.Profit = sum.Profit.Add(*snap.RealizedPL)
				}
			}
		}

		if mode == EmitStream {
			res.Snapshots = append(res.Snapshots, snap)
		}
	}

	sum.CurrentHolding = state.HoldingQty()
	if sum.CurrentHolding.IsPositive() {
		sum.WeightedAvgBuyPrice = state.CostBasis().Div(sum.CurrentHolding)
	}
	res.OversoldQty = state.oversold

	return res
}
