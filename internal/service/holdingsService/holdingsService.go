package holdingsService

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/finhold/holdings_engine/config"
	"github.com/finhold/holdings_engine/data/repository"
	"github.com/finhold/holdings_engine/internal/externalApi"
	"github.com/finhold/holdings_engine/internal/ledger"
	"github.com/finhold/holdings_engine/internal/model"
	"github.com/finhold/holdings_engine/internal/service"
	"github.com/finhold/holdings_engine/utils"
)

type Repository interface {
	GetAccount(ctx context.Context, accountID int64) error
	GetTransactionsByAccount(ctx context.Context, accountID int64) ([]model.RawTransactionRecord, error)
	GetBonusIssuesByAccount(ctx context.Context, accountID int64) ([]model.RawBonusRecord, error)
	GetAccountIDs(ctx context.Context) ([]int64, error)
	UpsertBonusIssues(ctx context.Context, recs []model.RawBonusRecord) error
}

type Cache interface {
	GetPortfolioSummaries(ctx context.Context, accountID int64) ([]model.HoldingSummary, error)
	SetPortfolioSummaries(ctx context.Context, accountID int64, summaries []model.HoldingSummary) error
	FlushAllSummaries(ctx context.Context) error
}

type BonusFeedApi interface {
	GetBonusIssues(ctx context.Context) ([]model.RawBonusRecord, error)
}

type ReportGenerator interface {
	Generate(ctx context.Context, report model.HoldingsReport) (fileBytes []byte, fileExtension string, err error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error)
}

type HoldingsService struct {
	repo         Repository
	cache        Cache
	bonusFeedApi BonusFeedApi
	reportGen    ReportGenerator
	cloudStorage CloudStorage
	agg          *ledger.Aggregator
	cfg          *config.Config
}

func New(
	repo Repository,
	cache Cache,
	bonusFeedApi BonusFeedApi,
	reportGen ReportGenerator,
	cloudStorage CloudStorage,
	cfg *config.Config,
) *HoldingsService {
	return &HoldingsService{
		repo:         repo,
		cache:        cache,
		bonusFeedApi: bonusFeedApi,
		reportGen:    reportGen,
		cloudStorage: cloudStorage,
		agg:          ledger.NewAggregator(cfg.Engine.PseudoSecurities),
		cfg:          cfg,
	}
}

// buildGroups fetches the account's raw rows and turns them into per-security
// event groups, with the as-of cutoff already applied.
func (s *HoldingsService) buildGroups(ctx context.Context, accountID int64, asOf time.Time) ([]ledger.SecurityGroup, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "HoldingsService.buildGroups"

	if err := s.repo.GetAccount(ctx, accountID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			slog.Warn("unknown account", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("accountID", accountID))
			return nil, service.ErrNotFound
		}
		slog.Error("got error from repo.GetAccount", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	recs, err := s.repo.GetTransactionsByAccount(ctx, accountID)
	if err != nil {
		slog.Error("got error from repo.GetTransactionsByAccount", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	if len(recs) == 0 {
		return nil, service.ErrNoTransactions
	}

	bonuses, err := s.repo.GetBonusIssuesByAccount(ctx, accountID)
	if err != nil {
		slog.Error("got error from repo.GetBonusIssuesByAccount", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return s.agg.BuildGroups(recs, bonuses, asOf), nil
}

// summarizeGroup runs one summary replay. Oversells are absorbed by the
// replay, so they only surface here as a log.
func (s *HoldingsService) summarizeGroup(ctx context.Context, accountID int64, g ledger.SecurityGroup) model.HoldingSummary {
	sum, oversold := s.agg.Summarize(accountID, g)

	if oversold.IsPositive() {
		slog.Warn(
			"sell quantity exceeded tracked holdings, excess treated as zero-cost",
			slog.String("rqID", utils.GetRequestIDFromCtx(ctx)),
			slog.Int64("accountID", accountID),
			slog.String("security", g.SecurityName),
			slog.String("oversoldQty", oversold.String()),
		)
	}

	return sum
}

// GetTransactionHistory returns one security's full snapshot stream: every
// event of that security in order, each with the running holding, cost basis
// and (for sells) realized P/L after it.
func (s *HoldingsService) GetTransactionHistory(ctx context.Context, accountID int64, securityName string, asOf time.Time) (snapshots []model.Snapshot, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "HoldingsService.GetTransactionHistory"

	slog.Debug("GetTransactionHistory start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("accountID", accountID), slog.String("securityName", securityName))
	defer func() {
		slog.Debug("GetTransactionHistory finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("accountID", accountID))
	}()

	groups, err := s.buildGroups(ctx, accountID, asOf)
	if err != nil {
		return nil, err
	}

	g, ok := ledger.FindGroup(groups, securityName)
	if !ok {
		slog.Warn("security not found among account trades", slog.String("rqID", rqID), slog.String("op", op), slog.String("securityName", securityName))
		return nil, service.ErrSecurityUnknown
	}

	return s.agg.History(g), nil
}

// GetHoldingSummary returns the rollup of one security's replay.
func (s *HoldingsService) GetHoldingSummary(ctx context.Context, accountID int64, securityName string, asOf time.Time) (summary model.HoldingSummary, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "HoldingsService.GetHoldingSummary"

	slog.Debug("GetHoldingSummary start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("accountID", accountID), slog.String("securityName", securityName))
	defer func() {
		slog.Debug("GetHoldingSummary finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("accountID", accountID))
	}()

	groups, err := s.buildGroups(ctx, accountID, asOf)
	if err != nil {
		return model.HoldingSummary{}, err
	}

	g, ok := ledger.FindGroup(groups, securityName)
	if !ok {
		slog.Warn("security not found among account trades", slog.String("rqID", rqID), slog.String("op", op), slog.String("securityName", securityName))
		return model.HoldingSummary{}, service.ErrSecurityUnknown
	}

	return s.summarizeGroup(ctx, accountID, g), nil
}

// replaySummaries runs the per-group summary replays concurrently. A panic in
// one group is converted to a GroupFailure and never takes down its siblings.
// Output order follows the group order, not goroutine completion order.
func (s *HoldingsService) replaySummaries(ctx context.Context, accountID int64, groups []ledger.SecurityGroup) ([]model.HoldingSummary, []model.GroupFailure) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "HoldingsService.replaySummaries"

	results := make([]*model.HoldingSummary, len(groups))
	failures := make([]model.GroupFailure, 0)

	var wg sync.WaitGroup
	var mu sync.Mutex

	for i, g := range groups {
		wg.Add(1)
		go func(i int, g ledger.SecurityGroup) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					slog.Error(
						"panic recovered during security replay",
						slog.String("rqID", rqID),
						slog.String("op", op),
						slog.String("security", g.SecurityName),
						slog.Any("panic", r),
					)
					mu.Lock()
					failures = append(failures, model.GroupFailure{
						SecurityName: g.SecurityName,
						Err:          fmt.Errorf("replay panic: %v", r),
					})
					mu.Unlock()
				}
			}()

			sum := s.summarizeGroup(ctx, accountID, g)
			results[i] = &sum
		}(i, g)
	}
	wg.Wait()

	summaries := make([]model.HoldingSummary, 0, len(groups))
	for _, r := range results {
		if r != nil {
			summaries = append(summaries, *r)
		}
	}

	sort.Slice(failures, func(i, j int) bool { return failures[i].SecurityName < failures[j].SecurityName })

	return summaries, failures
}

// GetPortfolioSummaries returns one summary per security the account ever
// traded. With activeOnly set, securities whose holding dropped to zero are
// filtered out. Current (no as-of) full summaries are served from cache when
// possible and cached after a recompute.
func (s *HoldingsService) GetPortfolioSummaries(ctx context.Context, accountID int64, asOf time.Time, activeOnly bool) (summaries []model.HoldingSummary, failures []model.GroupFailure, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "HoldingsService.GetPortfolioSummaries"

	slog.Debug("GetPortfolioSummaries start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("accountID", accountID), slog.Bool("activeOnly", activeOnly))
	defer func() {
		slog.Debug("GetPortfolioSummaries finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("accountID", accountID))
	}()

	cacheable := asOf.IsZero()

	if cacheable {
		cached, err := s.cache.GetPortfolioSummaries(ctx, accountID)
		if err == nil {
			return filterActive(cached, activeOnly), nil, nil
		}
		slog.Warn("can't get portfolio summaries from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	groups, err := s.buildGroups(ctx, accountID, asOf)
	if err != nil {
		return nil, nil, err
	}

	summaries, failures = s.replaySummaries(ctx, accountID, groups)

	if cacheable && len(failures) == 0 {
		go s.cache.SetPortfolioSummaries(context.WithoutCancel(ctx), accountID, summaries)
	}

	return filterActive(summaries, activeOnly), failures, nil
}

// GetWeightedAvgCostReport returns the holding quantity, weighted average buy
// price and remaining cost basis per security, from the same replay that
// backs the summaries.
func (s *HoldingsService) GetWeightedAvgCostReport(ctx context.Context, accountID int64, asOf time.Time) (rows []model.WeightedAvgCostRow, failures []model.GroupFailure, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "HoldingsService.GetWeightedAvgCostReport"

	slog.Debug("GetWeightedAvgCostReport start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("accountID", accountID))
	defer func() {
		slog.Debug("GetWeightedAvgCostReport finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("accountID", accountID))
	}()

	groups, err := s.buildGroups(ctx, accountID, asOf)
	if err != nil {
		return nil, nil, err
	}

	summaries, failures := s.replaySummaries(ctx, accountID, groups)

	rows = make([]model.WeightedAvgCostRow, 0, len(summaries))
	for _, sum := range summaries {
		rows = append(rows, model.WeightedAvgCostRow{
			SecurityName:     sum.SecurityName,
			SecurityCode:     sum.SecurityCode,
			Holding:          sum.CurrentHolding,
			WeightedAvgPrice: sum.WeightedAvgBuyPrice,
			CostBasis:        sum.CurrentHolding.Mul(sum.WeightedAvgBuyPrice),
		})
	}

	return rows, failures, nil
}

// ExportHoldingsReport builds the XLSX holdings report and uploads it to
// cloud storage, returning the download link.
func (s *HoldingsService) ExportHoldingsReport(ctx context.Context, accountID int64, asOf time.Time) (downloadLink string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "HoldingsService.ExportHoldingsReport"

	slog.Debug("ExportHoldingsReport start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("accountID", accountID))
	defer func() {
		slog.Debug("ExportHoldingsReport finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("accountID", accountID))
	}()

	groups, err := s.buildGroups(ctx, accountID, asOf)
	if err != nil {
		return "", err
	}

	summaries, failures := s.replaySummaries(ctx, accountID, groups)
	for _, f := range failures {
		slog.Error("security excluded from report", slog.String("rqID", rqID), slog.String("op", op), slog.String("security", f.SecurityName), slog.String("err", f.Err.Error()))
	}

	histories := make([]model.SecurityHistory, 0, len(groups))
	for _, g := range groups {
		histories = append(histories, model.SecurityHistory{
			SecurityName: g.SecurityName,
			SecurityCode: g.SecurityCode,
			Snapshots:    s.agg.History(g),
		})
	}

	report := model.HoldingsReport{
		AccountID:   accountID,
		AsOf:        asOf,
		GeneratedAt: time.Now(),
		Summaries:   summaries,
		Histories:   histories,
	}

	fileBytes, ext, err := s.reportGen.Generate(ctx, report)
	if err != nil {
		slog.Error("got error from reportGen.Generate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	filename := fmt.Sprintf("%s_%d_%s%s", s.cfg.Reports.FilenamePrefix, accountID, report.GeneratedAt.Format("2006-01-02_15-04-05"), ext)

	downloadLink, err = s.cloudStorage.UploadFile(ctx, bytes.NewReader(fileBytes), filename)
	if err != nil {
		slog.Error("got error from cloudStorage.UploadFile", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	return downloadLink, nil
}

// WarmSummaryCache recomputes and caches current summaries for every account.
// Used by the scheduler.
func (s *HoldingsService) WarmSummaryCache(ctx context.Context) error {
	ctx = utils.CreateCtxWithRqID(ctx)
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "HoldingsService.WarmSummaryCache"

	slog.Debug("WarmSummaryCache start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("WarmSummaryCache finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	accountIDs, err := s.repo.GetAccountIDs(ctx)
	if err != nil {
		slog.Error("got error from repo.GetAccountIDs", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	for _, accountID := range accountIDs {
		groups, err := s.buildGroups(ctx, accountID, time.Time{})
		if err != nil {
			if errors.Is(err, service.ErrNoTransactions) {
				continue
			}
			slog.Error("can't build groups for account", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("accountID", accountID), slog.String("err", err.Error()))
			continue
		}

		summaries, failures := s.replaySummaries(ctx, accountID, groups)
		if len(failures) > 0 {
			slog.Error("skipping cache for account with failed replays", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("accountID", accountID), slog.Int("failures", len(failures)))
			continue
		}

		if err := s.cache.SetPortfolioSummaries(ctx, accountID, summaries); err != nil {
			slog.Error("can't cache summaries for account", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("accountID", accountID), slog.String("err", err.Error()))
		}
	}

	return nil
}

// SyncBonusIssues pulls the bonus-issue feed, stores the batch and drops all
// cached summaries since new bonus rows can shift any account's cost basis.
// Used by the scheduler.
func (s *HoldingsService) SyncBonusIssues(ctx context.Context) error {
	ctx = utils.CreateCtxWithRqID(ctx)
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "HoldingsService.SyncBonusIssues"

	slog.Debug("SyncBonusIssues start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("SyncBonusIssues finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	recs, err := s.bonusFeedApi.GetBonusIssues(ctx)
	if err != nil {
		if errors.Is(err, externalApi.ErrNotFound) {
			slog.Warn("bonus feed has no data, skipping sync", slog.String("rqID", rqID), slog.String("op", op))
			return nil
		}
		slog.Error("got error from bonusFeedApi.GetBonusIssues", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	if len(recs) == 0 {
		slog.Info("bonus feed returned no records", slog.String("rqID", rqID), slog.String("op", op))
		return nil
	}

	if err := s.repo.UpsertBonusIssues(ctx, recs); err != nil {
		slog.Error("got error from repo.UpsertBonusIssues", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	if err := s.cache.FlushAllSummaries(ctx); err != nil {
		slog.Error("got error from cache.FlushAllSummaries", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	slog.Info("bonus issues synced", slog.String("rqID", rqID), slog.String("op", op), slog.Int("records", len(recs)))

	return nil
}

func filterActive(summaries []model.HoldingSummary, activeOnly bool) []model.HoldingSummary {
	if !activeOnly {
		return summaries
	}
	filtered := make([]model.HoldingSummary, 0, len(summaries))
	for _, sum := range summaries {
		if sum.CurrentHolding.IsPositive() {
			filtered = append(filtered, sum)
		}
	}
	return filtered
}
