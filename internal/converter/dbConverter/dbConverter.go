package dbConverter

import (
	"github.com/finhold/holdings_engine/internal/model"
	"github.com/finhold/holdings_engine/internal/model/dbModel"
)

func ConvertTransaction(row dbModel.Transaction) model.RawTransactionRecord {
	return model.RawTransactionRecord{
		SeqID:        row.SeqID,
		AccountID:    row.AccountID,
		SecurityName: row.SecurityName,
		SecurityCode: row.SecurityCode.String,
		TradeDate:    row.TradeDate,
		RawType:      row.RawType,
		Quantity:     row.Quantity.String,
		Rate:         row.Rate.String,
		NetRate:      row.NetRate.String,
		NetAmount:    row.NetAmount.String,
	}
}

func ConvertBonusIssue(row dbModel.BonusIssue) model.RawBonusRecord {
	rec := model.RawBonusRecord{
		CompanyName: row.CompanyName,
		Quantity:    row.Quantity.String,
		FeedRef:     row.FeedRef.String,
	}
	if row.ExDate.Valid {
		exDate := row.ExDate.Time
		rec.ExDate = &exDate
	}
	if row.AccountID.Valid {
		accountID := row.AccountID.Int64
		rec.AccountID = &accountID
	}
	return rec
}
