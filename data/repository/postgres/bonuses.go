package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/finhold/holdings_engine/internal/converter/dbConverter"
	"github.com/finhold/holdings_engine/internal/model"
	"github.com/finhold/holdings_engine/internal/model/dbModel"
	"github.com/finhold/holdings_engine/utils"
)

// GetBonusIssuesByAccount returns bonus-issue rows visible to the account:
// rows pinned to it plus account-less rows from the feed. The company-name
// join onto securities happens in the engine.
func (r *Postgres) GetBonusIssuesByAccount(ctx context.Context, accountID int64) (recs []model.RawBonusRecord, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetBonusIssuesByAccount"
	query := `
		SELECT bonus_id, company_name, ex_date, quantity, account_id, feed_ref
		FROM bonus_issues
		WHERE account_id = $1 OR account_id IS NULL
		ORDER BY bonus_id
		`

	slog.Debug("GetBonusIssuesByAccount start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Int64("accountID", accountID))
	defer func() {
		if err != nil {
			slog.Error("GetBonusIssuesByAccount failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetBonusIssuesByAccount completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var row dbModel.BonusIssue
		err = rows.StructScan(&row)
		if err != nil {
			return nil, err
		}
		recs = append(recs, dbConverter.ConvertBonusIssue(row))
	}

	return recs, nil
}

// UpsertBonusIssues stores a feed batch. feed_ref deduplicates records
// across sync runs; a NULL ex-date stays NULL rather than getting a made-up
// date (the engine applies its sentinel at replay time).
func (r *Postgres) UpsertBonusIssues(ctx context.Context, recs []model.RawBonusRecord) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpsertBonusIssues"
	query := `
		INSERT INTO bonus_issues(company_name, ex_date, quantity, account_id, feed_ref)
		SELECT
			u.company_name,
			u.ex_date,
			u.quantity,
			u.account_id,
			u.feed_ref
		FROM UNNEST(
			$1::text[],
			$2::date[],
			$3::text[],
			$4::bigint[],
			$5::text[]
		) AS u(company_name, ex_date, quantity, account_id, feed_ref)
		ON CONFLICT (feed_ref) DO UPDATE
		SET company_name = EXCLUDED.company_name,
			ex_date = EXCLUDED.ex_date,
			quantity = EXCLUDED.quantity,
			account_id = EXCLUDED.account_id
		`

	companyNames := make([]string, 0, len(recs))
	exDates := make([]*time.Time, 0, len(recs))
	quantities := make([]string, 0, len(recs))
	accountIDs := make([]*int64, 0, len(recs))
	feedRefs := make([]string, 0, len(recs))

	for _, rec := range recs {
		companyNames = append(companyNames, rec.CompanyName)
		exDates = append(exDates, rec.ExDate)
		quantities = append(quantities, rec.Quantity)
		accountIDs = append(accountIDs, rec.AccountID)
		feedRefs = append(feedRefs, rec.FeedRef)
	}

	slog.Debug("UpsertBonusIssues start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Int("records", len(recs)))
	defer func() {
		if err != nil {
			slog.Error("UpsertBonusIssues failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpsertBonusIssues completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, companyNames, exDates, quantities, accountIDs, feedRefs)
	if err != nil {
		return err
	}

	return nil
}
