package model

import "time"

// RawTransactionRecord is a trade row as it sits in the transaction store.
// Numeric fields stay as the imported text: coercion is the normalizer's job,
// not the database's.
type RawTransactionRecord struct {
	SeqID        int64
	AccountID    int64
	SecurityName string
	SecurityCode string
	TradeDate    time.Time
	RawType      string
	Quantity     string
	Rate         string
	NetRate      string
	NetAmount    string
}

// RawBonusRecord is a bonus-issue row from the corporate-actions store. There
// is no shared code column with the transaction store, the join happens on
// the normalized company name.
type RawBonusRecord struct {
	CompanyName string
	ExDate      *time.Time
	Quantity    string
	AccountID   *int64
	FeedRef     string
}
