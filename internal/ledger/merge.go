package ledger

import (
	"sort"
	"time"

	"github.com/finhold/holdings_engine/internal/model"
)

// sentinelBonusDate stands in for a missing bonus ex-date. It sorts before
// any plausible trade date, so such records apply at the start of their
// security's history.
var sentinelBonusDate = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// Same-date ordering: trades first, then bonus issues.
const (
	rankTransaction = 0
	rankBonus       = 1
)

// MergeEvents flattens normalized trade and bonus events into the single
// deterministically ordered sequence the fold consumes. The sort key is
// (effective date, kind rank, sequence id); bonus events tie-break on their
// own insertion order.
func MergeEvents(txs []model.TransactionEvent, bonuses []model.BonusEvent) []model.LedgerEvent {
	events := make([]model.LedgerEvent, 0, len(txs)+len(bonuses))

	for _, t := range txs {
		events = append(events, model.LedgerEvent{
			Date:        t.Date,
			SeqID:       t.SeqID,
			Category:    t.Category,
			RawType:     t.RawType,
			Quantity:    t.Quantity,
			Price:       t.Price,
			GrossAmount: t.GrossAmount,
		})
	}

	for i, b := range bonuses {
		events = append(events, model.LedgerEvent{
			Date:     b.EffectiveDate,
			SeqID:    int64(i),
			Category: model.CategoryBonus,
			RawType:  model.CategoryBonus.String(),
			Quantity: b.Quantity,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		di, dj := dayOf(events[i].Date), dayOf(events[j].Date)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		ri, rj := kindRank(events[i]), kindRank(events[j])
		if ri != rj {
			return ri < rj
		}
		return events[i].SeqID < events[j].SeqID
	})

	return events
}

func kindRank(e model.LedgerEvent) int {
	if e.Category == model.CategoryBonus {
		return rankBonus
	}
	return rankTransaction
}

// dayOf drops any time-of-day component so rows imported with timestamps
// still compare as calendar dates.
func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
