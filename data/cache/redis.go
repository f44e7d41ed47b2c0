package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/finhold/holdings_engine/config"
	"github.com/finhold/holdings_engine/internal/model"
	"github.com/finhold/holdings_engine/utils"
	"github.com/redis/go-redis/v9"
)

const summaryKeyPrefix = "holdings:summaries:"

type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

func summaryKey(accountID int64) string {
	return fmt.Sprintf("%s%d", summaryKeyPrefix, accountID)
}

// Only the "current" portfolio summaries (no as-of date) get cached; replays
// against a historical as-of date always recompute.

func (r *RedisCache) GetPortfolioSummaries(ctx context.Context, accountID int64) ([]model.HoldingSummary, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetPortfolioSummaries start", slog.String("rqID", rqID))

	res, err := r.redis.Get(ctx, summaryKey(accountID)).Result()
	if err != nil {
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", summaryKey(accountID)))
		return nil, err
	}

	var summaries []model.HoldingSummary
	err = json.Unmarshal([]byte(res), &summaries)
	if err != nil {
		slog.Error(
			"can't unmarshall summaries in GetPortfolioSummaries",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return nil, errors.New("can't unmarshall summaries")
	}

	slog.Debug("GetPortfolioSummaries finished", slog.String("rqID", rqID))

	return summaries, nil
}

func (r *RedisCache) SetPortfolioSummaries(ctx context.Context, accountID int64, summaries []model.HoldingSummary) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SetPortfolioSummaries start", slog.String("rqID", rqID))

	summariesJson, err := json.Marshal(summaries)
	if err != nil {
		slog.Error(
			"can't marshall summaries in SetPortfolioSummaries",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
		)
		return errors.New("can't marshall summaries")
	}

	_, err = r.redis.Set(ctx, summaryKey(accountID), summariesJson, r.cfg.Cache.SummaryExpiration).Result()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", summaryKey(accountID)))
		return err
	}

	slog.Debug("SetPortfolioSummaries completed", slog.String("rqID", rqID))

	return nil
}

// FlushAllSummaries drops every cached summary. Called after a bonus-feed
// sync because new bonus rows can shift any account's cost basis.
func (r *RedisCache) FlushAllSummaries(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("FlushAllSummaries start", slog.String("rqID", rqID))

	iter := r.redis.Scan(ctx, 0, summaryKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if _, err := r.redis.Del(ctx, iter.Val()).Result(); err != nil {
			slog.Error("failed on redis.Del", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", iter.Val()))
			return err
		}
	}
	if err := iter.Err(); err != nil {
		slog.Error("failed on redis.Scan", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("FlushAllSummaries completed", slog.String("rqID", rqID))

	return nil
}
