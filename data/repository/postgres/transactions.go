package postgres

import (
	"context"
	"log/slog"

	"github.com/finhold/holdings_engine/internal/converter/dbConverter"
	"github.com/finhold/holdings_engine/internal/model"
	"github.com/finhold/holdings_engine/internal/model/dbModel"
	"github.com/finhold/holdings_engine/utils"
)

// GetTransactionsByAccount returns the account's complete trade history,
// fully materialized and ordered by source sequence id. The ledger replays
// only complete row sets, so there is no pagination here; per-security
// selection happens in the engine because the name column is free text.
func (r *Postgres) GetTransactionsByAccount(ctx context.Context, accountID int64) (recs []model.RawTransactionRecord, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetTransactionsByAccount"
	query := `
		SELECT seq_id, account_id, security_name, security_code, trade_date, txn_type, quantity, rate, net_rate, net_amount
		FROM transactions
		WHERE account_id = $1
		ORDER BY seq_id
		`

	slog.Debug("GetTransactionsByAccount start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Int64("accountID", accountID))
	defer func() {
		if err != nil {
			slog.Error("GetTransactionsByAccount failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetTransactionsByAccount completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var row dbModel.Transaction
		err = rows.StructScan(&row)
		if err != nil {
			return nil, err
		}
		recs = append(recs, dbConverter.ConvertTransaction(row))
	}

	return recs, nil
}
