package ledger

import (
	"strings"

	"github.com/finhold/holdings_engine/internal/model"
	"github.com/shopspring/decimal"
)

// NormalizeTransaction converts one raw trade row into a classified event
// with a resolved price. Malformed numeric fields coerce to zero so a dirty
// import never aborts a replay.
func NormalizeTransaction(rec model.RawTransactionRecord) model.TransactionEvent {
	qty := coerceDecimal(rec.Quantity).Abs()
	gross := coerceDecimal(rec.NetAmount)

	return model.TransactionEvent{
		Date:        rec.TradeDate,
		SeqID:       rec.SeqID,
		Category:    Classify(rec.RawType),
		RawType:     rec.RawType,
		Quantity:    qty,
		Price:       ResolvePrice(coerceDecimal(rec.NetRate), coerceDecimal(rec.Rate), qty, gross),
		GrossAmount: gross,
	}
}

// NormalizeTransactions keeps the source order of the input rows.
func NormalizeTransactions(recs []model.RawTransactionRecord) []model.TransactionEvent {
	events := make([]model.TransactionEvent, 0, len(recs))
	for _, rec := range recs {
		events = append(events, NormalizeTransaction(rec))
	}
	return events
}

// NormalizeBonus converts one bonus-issue row. The price of a bonus event is
// always zero regardless of any input field. A record without an ex-date
// gets the sentinel date so it sorts before everything else.
func NormalizeBonus(rec model.RawBonusRecord) model.BonusEvent {
	ev := model.BonusEvent{
		EffectiveDate: sentinelBonusDate,
		Quantity:      coerceDecimal(rec.Quantity).Abs(),
	}
	if rec.ExDate != nil {
		ev.EffectiveDate = *rec.ExDate
		ev.HasExDate = true
	}
	return ev
}

// ResolvePrice walks the fallback chain: net rate if positive, then rate if
// positive, then |grossAmount| / quantity, else zero.
func ResolvePrice(netRate, rate, qty, gross decimal.Decimal) decimal.Decimal {
	if netRate.IsPositive() {
		return netRate
	}
	if rate.IsPositive() {
		return rate
	}
	if qty.IsPositive() && !gross.IsZero() {
		return gross.Abs().Div(qty)
	}
	return decimal.Zero
}

// coerceDecimal parses an imported numeric field. Thousands separators are
// dropped first; anything that still fails to parse counts as zero.
func coerceDecimal(s string) decimal.Decimal {
	cleaned := strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if cleaned == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}
