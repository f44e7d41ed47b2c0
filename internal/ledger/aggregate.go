package ledger

import (
	"strings"
	"time"

	"github.com/finhold/holdings_engine/internal/model"
	"github.com/shopspring/decimal"
)

// Rows the importer books against pseudo accounts rather than real
// securities. Overridable through config.
var defaultPseudoSecurities = []string{"CASH", "TAX", "TDS", "TAX DEDUCTED AT SOURCE"}

// Aggregator groups raw records into per-security ledgers and runs replays
// against them. It holds only configuration, never replay state, so one
// instance serves concurrent requests.
type Aggregator struct {
	pseudo map[string]struct{}
}

func NewAggregator(pseudoSecurities []string) *Aggregator {
	names := pseudoSecurities
	if len(names) == 0 {
		names = defaultPseudoSecurities
	}

	pseudo := make(map[string]struct{}, len(names))
	for _, n := range names {
		pseudo[strings.ToUpper(strings.TrimSpace(n))] = struct{}{}
	}

	return &Aggregator{pseudo: pseudo}
}

// IsPseudoSecurity matches the exclusion list case-insensitively on the
// exact name.
func (a *Aggregator) IsPseudoSecurity(name string) bool {
	_, ok := a.pseudo[strings.ToUpper(strings.TrimSpace(name))]
	return ok
}

// SecurityGroup is one security's merged event sequence plus its display
// identity. Name and code are taken from the first transaction seen because
// the code column is unreliable on many rows.
type SecurityGroup struct {
	SecurityName string
	SecurityCode string
	Events       []model.LedgerEvent
}

type groupAcc struct {
	name    string
	code    string
	txs     []model.TransactionEvent
	bonuses []model.BonusEvent
}

// BuildGroups normalizes the raw rows, applies the as-of cutoff before
// merging, drops pseudo securities, groups by normalized security name and
// joins bonus records into their group by the same normalized name. Bonus
// records whose company matches no traded security are ignored. Group order
// follows first appearance in the transaction rows.
func (a *Aggregator) BuildGroups(recs []model.RawTransactionRecord, bonuses []model.RawBonusRecord, asOf time.Time) []SecurityGroup {
	byKey := make(map[string]*groupAcc)
	order := make([]string, 0)

	for _, rec := range recs {
		if a.IsPseudoSecurity(rec.SecurityName) {
			continue
		}
		if afterAsOf(rec.TradeDate, asOf) {
			continue
		}

		key := NormalizeCompanyName(rec.SecurityName)
		if key == "" {
			continue
		}

		acc, ok := byKey[key]
		if !ok {
			acc = &groupAcc{name: rec.SecurityName}
			byKey[key] = acc
			order = append(order, key)
		}
		if acc.code == "" {
			acc.code = rec.SecurityCode
		}
		acc.txs = append(acc.txs, NormalizeTransaction(rec))
	}

	for _, rec := range bonuses {
		acc, ok := byKey[NormalizeCompanyName(rec.CompanyName)]
		if !ok {
			continue
		}

		ev := NormalizeBonus(rec)
		if afterAsOf(ev.EffectiveDate, asOf) {
			continue
		}
		acc.bonuses = append(acc.bonuses, ev)
	}

	groups := make([]SecurityGroup, 0, len(order))
	for _, key := range order {
		acc := byKey[key]
		groups = append(groups, SecurityGroup{
			SecurityName: acc.name,
			SecurityCode: acc.code,
			Events:       MergeEvents(acc.txs, acc.bonuses),
		})
	}

	return groups
}

// FindGroup locates a security's group by normalized-name match.
func FindGroup(groups []SecurityGroup, securityName string) (SecurityGroup, bool) {
	key := NormalizeCompanyName(securityName)
	for _, g := range groups {
		if NormalizeCompanyName(g.SecurityName) == key {
			return g, true
		}
	}
	return SecurityGroup{}, false
}

// History replays a group in stream mode.
func (a *Aggregator) History(g SecurityGroup) []model.Snapshot {
	return Replay(g.Events, EmitStream).Snapshots
}

// Summarize replays a group in summary mode and stamps its identity. The
// second return is the oversold quantity so callers can report absorbed
// oversells.
func (a *Aggregator) Summarize(accountID int64, g SecurityGroup) (model.HoldingSummary, decimal.Decimal) {
	res := Replay(g.Events, EmitSummaryOnly)
	sum := res.Summary
	sum.AccountID = accountID
	sum.SecurityName = g.SecurityName
	sum.SecurityCode = g.SecurityCode
	return sum, res.OversoldQty
}

// WeightedAvgCost derives the report row from the same summary replay.
func (a *Aggregator) WeightedAvgCost(g SecurityGroup) model.WeightedAvgCostRow {
	sum := Replay(g.Events, EmitSummaryOnly).Summary
	return model.WeightedAvgCostRow{
		SecurityName:     g.SecurityName,
		SecurityCode:     g.SecurityCode,
		Holding:          sum.CurrentHolding,
		WeightedAvgPrice: sum.WeightedAvgBuyPrice,
		CostBasis:        sum.CurrentHolding.Mul(sum.WeightedAvgBuyPrice),
	}
}

func afterAsOf(date, asOf time.Time) bool {
	if asOf.IsZero() {
		return false
	}
	return dayOf(date).After(dayOf(asOf))
}
