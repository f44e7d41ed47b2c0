package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/finhold/holdings_engine/data/repository"
	"github.com/finhold/holdings_engine/utils"
)

// GetAccount verifies the account exists and returns repository.ErrNotFound
// when it does not.
func (r *Postgres) GetAccount(ctx context.Context, accountID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetAccount"
	query := `SELECT account_id FROM accounts WHERE account_id = $1`

	slog.Debug("GetAccount start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Int64("accountID", accountID))
	defer func() {
		if err != nil {
			slog.Error("GetAccount failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetAccount completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	var id int64
	err = r.txOrDb(ctx).GetContext(ctx, &id, query, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		return err
	}

	return nil
}

// GetAccountIDs lists every known account, used by the cache warm job.
func (r *Postgres) GetAccountIDs(ctx context.Context) (accountIDs []int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetAccountIDs"
	query := `SELECT account_id FROM accounts ORDER BY account_id`

	slog.Debug("GetAccountIDs start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetAccountIDs failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetAccountIDs completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).SelectContext(ctx, &accountIDs, query)
	if err != nil {
		return nil, err
	}

	return accountIDs, nil
}
