package bonusFeedApi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/finhold/holdings_engine/config"
	"github.com/finhold/holdings_engine/internal/externalApi"
	"github.com/finhold/holdings_engine/internal/model"
	"github.com/finhold/holdings_engine/utils"
	"github.com/go-resty/resty/v2"
)

const exDateLayout = "2006-01-02"

type rawBonusFeed struct {
	Bonuses []rawBonus `json:"bonuses"`
}

type rawBonus struct {
	Ref       string `json:"ref"`
	Company   string `json:"company"`
	ExDate    string `json:"exDate"`
	Quantity  string `json:"quantity"`
	AccountID *int64 `json:"accountId"`
}

type BonusFeedApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *BonusFeedApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.BonusFeed.Url)
	return &BonusFeedApi{client: client}
}

// GetBonusIssues pulls the current bonus-issue records from the corporate
// actions feed. Records keep their raw quantity text; an unparseable or
// missing ex-date becomes nil and is resolved by the engine's sentinel rule.
func (a *BonusFeedApi) GetBonusIssues(ctx context.Context) ([]model.RawBonusRecord, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	url := "/corporate-actions/bonuses"

	slog.Debug("start BonusFeedApi.GetBonusIssues request", slog.String("rqID", rqID))

	resp, err := a.client.R().
		SetHeader("Accept", "application/json").
		Get(url)

	if err != nil {
		slog.Error("error while dialing bonus feed", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	if resp.StatusCode() == http.StatusNotFound {
		slog.Warn("bonus feed endpoint returned 404", slog.String("rqID", rqID))
		return nil, externalApi.ErrNotFound
	}

	feed := rawBonusFeed{}
	err = json.Unmarshal(resp.Body(), &feed)
	if err != nil {
		slog.Error("can't unmarshall response into rawBonusFeed", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	recs := make([]model.RawBonusRecord, 0, len(feed.Bonuses))
	for _, b := range feed.Bonuses {
		rec := model.RawBonusRecord{
			CompanyName: b.Company,
			Quantity:    b.Quantity,
			AccountID:   b.AccountID,
			FeedRef:     b.Ref,
		}

		if b.ExDate != "" {
			exDate, err := time.Parse(exDateLayout, b.ExDate)
			if err != nil {
				slog.Warn(
					"can't parse bonus ex-date, keeping record without it",
					slog.String("rqID", rqID),
					slog.String("ref", b.Ref),
					slog.String("exDate", b.ExDate),
				)
			} else {
				rec.ExDate = &exDate
			}
		} else {
			slog.Warn("bonus record without ex-date", slog.String("rqID", rqID), slog.String("ref", b.Ref))
		}

		recs = append(recs, rec)
	}

	slog.Debug("BonusFeedApi.GetBonusIssues request complete", slog.String("rqID", rqID), slog.Int("records", len(recs)))

	return recs, nil
}
