package dbModel

import (
	"database/sql"
	"time"
)

type Transaction struct {
	SeqID        int64          `db:"seq_id"`
	AccountID    int64          `db:"account_id"`
	SecurityName string         `db:"security_name"`
	SecurityCode sql.NullString `db:"security_code"`
	TradeDate    time.Time      `db:"trade_date"`
	RawType      string         `db:"txn_type"`
	Quantity     sql.NullString `db:"quantity"`
	Rate         sql.NullString `db:"rate"`
	NetRate      sql.NullString `db:"net_rate"`
	NetAmount    sql.NullString `db:"net_amount"`
}

type BonusIssue struct {
	BonusID     int64          `db:"bonus_id"`
	CompanyName string         `db:"company_name"`
	ExDate      sql.NullTime   `db:"ex_date"`
	Quantity    sql.NullString `db:"quantity"`
	AccountID   sql.NullInt64  `db:"account_id"`
	FeedRef     sql.NullString `db:"feed_ref"`
}
