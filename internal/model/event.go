package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category int

const (
	CategoryOther Category = iota
	CategoryBuy
	CategorySell
	CategoryDividend
	CategoryBonus
)

func (c Category) String() string {
	switch c {
	case CategoryBuy:
		return "BUY"
	case CategorySell:
		return "SELL"
	case CategoryDividend:
		return "DIVIDEND"
	case CategoryBonus:
		return "BONUS"
	}
	return "OTHER"
}

// TransactionEvent is a normalized trade row. Immutable once produced.
type TransactionEvent struct {
	Date        time.Time
	SeqID       int64
	Category    Category
	RawType     string
	Quantity    decimal.Decimal
	Price       decimal.Decimal
	GrossAmount decimal.Decimal
}

// BonusEvent always carries price 0. HasExDate is false when the record had
// no ex-date and EffectiveDate holds the sentinel.
type BonusEvent struct {
	EffectiveDate time.Time
	HasExDate     bool
	Quantity      decimal.Decimal
}

// LedgerEvent is one element of the merged per-security sequence consumed by
// the FIFO fold. Bonus events appear with Category CategoryBonus and price 0.
type LedgerEvent struct {
	Date        time.Time
	SeqID       int64
	Category    Category
	RawType     string
	Quantity    decimal.Decimal
	Price       decimal.Decimal
	GrossAmount decimal.Decimal
}

// GrossValue is the monetary value of the event: the reported net amount when
// present, otherwise quantity times resolved price.
func (e LedgerEvent) GrossValue() decimal.Decimal {
	if !e.GrossAmount.IsZero() {
		return e.GrossAmount.Abs()
	}
	return e.Quantity.Mul(e.Price)
}
