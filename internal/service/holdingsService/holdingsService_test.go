package holdingsService

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/finhold/holdings_engine/config"
	"github.com/finhold/holdings_engine/data/repository"
	"github.com/finhold/holdings_engine/internal/model"
	"github.com/finhold/holdings_engine/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type stubRepo struct {
	transactions    map[int64][]model.RawTransactionRecord
	bonuses         map[int64][]model.RawBonusRecord
	accountIDs      []int64
	missingAccounts map[int64]bool

	mu       sync.Mutex
	upserted []model.RawBonusRecord
}

func (r *stubRepo) GetAccount(_ context.Context, accountID int64) error {
	if r.missingAccounts[accountID] {
		return repository.ErrNotFound
	}
	return nil
}

func (r *stubRepo) GetTransactionsByAccount(_ context.Context, accountID int64) ([]model.RawTransactionRecord, error) {
	return r.transactions[accountID], nil
}

func (r *stubRepo) GetBonusIssuesByAccount(_ context.Context, accountID int64) ([]model.RawBonusRecord, error) {
	return r.bonuses[accountID], nil
}

func (r *stubRepo) GetAccountIDs(_ context.Context) ([]int64, error) {
	return r.accountIDs, nil
}

func (r *stubRepo) UpsertBonusIssues(_ context.Context, recs []model.RawBonusRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserted = append(r.upserted, recs...)
	return nil
}

type stubCache struct {
	mu        sync.Mutex
	summaries map[int64][]model.HoldingSummary
	flushed   bool
}

func newStubCache() *stubCache {
	return &stubCache{summaries: make(map[int64][]model.HoldingSummary)}
}

func (c *stubCache) GetPortfolioSummaries(_ context.Context, accountID int64) ([]model.HoldingSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.summaries[accountID]; ok {
		return s, nil
	}
	return nil, errors.New("cache miss")
}

func (c *stubCache) SetPortfolioSummaries(_ context.Context, accountID int64, summaries []model.HoldingSummary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summaries[accountID] = summaries
	return nil
}

func (c *stubCache) FlushAllSummaries(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summaries = make(map[int64][]model.HoldingSummary)
	c.flushed = true
	return nil
}

type stubBonusFeed struct {
	recs []model.RawBonusRecord
	err  error
}

func (f *stubBonusFeed) GetBonusIssues(_ context.Context) ([]model.RawBonusRecord, error) {
	return f.recs, f.err
}

type stubReportGen struct {
	lastReport model.HoldingsReport
}

func (g *stubReportGen) Generate(_ context.Context, report model.HoldingsReport) ([]byte, string, error) {
	g.lastReport = report
	return []byte("workbook"), ".xlsx", nil
}

type stubCloudStorage struct {
	lastFilename string
}

func (s *stubCloudStorage) UploadFile(_ context.Context, _ io.Reader, filename string) (string, error) {
	s.lastFilename = filename
	return "https://example.com/" + filename, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Engine:  config.Engine{PseudoSecurities: nil},
		Reports: config.Reports{FilenamePrefix: "holdings"},
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fixtureRepo() *stubRepo {
	return &stubRepo{
		transactions: map[int64][]model.RawTransactionRecord{
			1: {
				{SeqID: 1, AccountID: 1, SecurityName: "Alpha Industries Limited", SecurityCode: "ALPHA", TradeDate: date(2023, 1, 10), RawType: "BUY", Quantity: "100", NetRate: "10"},
				{SeqID: 2, AccountID: 1, SecurityName: "Alpha Industries Ltd", TradeDate: date(2023, 2, 10), RawType: "BUY", Quantity: "50", NetRate: "12"},
				{SeqID: 3, AccountID: 1, SecurityName: "Alpha Industries Limited", TradeDate: date(2023, 3, 10), RawType: "SELL", Quantity: "120", NetRate: "15"},
				{SeqID: 4, AccountID: 1, SecurityName: "Beta Corp", SecurityCode: "BETA", TradeDate: date(2023, 1, 20), RawType: "BUY", Quantity: "10", NetRate: "200"},
				{SeqID: 5, AccountID: 1, SecurityName: "Beta Corp", TradeDate: date(2023, 4, 20), RawType: "SELL", Quantity: "10", NetRate: "250"},
				{SeqID: 6, AccountID: 1, SecurityName: "CASH", TradeDate: date(2023, 1, 1), RawType: "OTHER", Quantity: "1", NetRate: "1"},
			},
		},
		bonuses:    map[int64][]model.RawBonusRecord{},
		accountIDs: []int64{1},
	}
}

func newTestService(repo *stubRepo, cache *stubCache) (*HoldingsService, *stubReportGen, *stubCloudStorage) {
	gen := &stubReportGen{}
	storage := &stubCloudStorage{}
	svc := New(repo, cache, &stubBonusFeed{}, gen, storage, testConfig())
	return svc, gen, storage
}

func TestGetPortfolioSummaries(t *testing.T) {
	svc, _, _ := newTestService(fixtureRepo(), newStubCache())

	summaries, failures, err := svc.GetPortfolioSummaries(context.Background(), 1, time.Time{}, false)
	require.NoError(t, err)
	require.Empty(t, failures)
	require.Len(t, summaries, 2)

	alpha := summaries[0]
	assert.Equal(t, "Alpha Industries Limited", alpha.SecurityName)
	assert.Equal(t, "ALPHA", alpha.SecurityCode)
	assert.True(t, alpha.CurrentHolding.Equal(dec("30")), "holding: %s", alpha.CurrentHolding)
	assert.True(t, alpha.TotalBuyQty.Equal(dec("150")))
	assert.True(t, alpha.TotalSellQty.Equal(dec("120")))
	assert.True(t, alpha.Profit.Equal(dec("560")), "profit: %s", alpha.Profit)
	assert.True(t, alpha.WeightedAvgBuyPrice.Equal(dec("12")))

	beta := summaries[1]
	assert.Equal(t, "Beta Corp", beta.SecurityName)
	assert.True(t, beta.CurrentHolding.IsZero())
	assert.True(t, beta.Profit.Equal(dec("500")))
}

func TestGetPortfolioSummariesActiveOnly(t *testing.T) {
	svc, _, _ := newTestService(fixtureRepo(), newStubCache())

	summaries, failures, err := svc.GetPortfolioSummaries(context.Background(), 1, time.Time{}, true)
	require.NoError(t, err)
	require.Empty(t, failures)

	require.Len(t, summaries, 1)
	assert.Equal(t, "Alpha Industries Limited", summaries[0].SecurityName)
}

func TestGetPortfolioSummariesFromCache(t *testing.T) {
	cache := newStubCache()
	cached := []model.HoldingSummary{{AccountID: 1, SecurityName: "Cached Co", CurrentHolding: dec("5")}}
	cache.summaries[1] = cached

	repo := &stubRepo{transactions: map[int64][]model.RawTransactionRecord{}}
	svc, _, _ := newTestService(repo, cache)

	summaries, failures, err := svc.GetPortfolioSummaries(context.Background(), 1, time.Time{}, false)
	require.NoError(t, err)
	assert.Empty(t, failures)
	assert.Equal(t, cached, summaries)
}

func TestGetPortfolioSummariesAsOfBypassesCache(t *testing.T) {
	cache := newStubCache()
	cache.summaries[1] = []model.HoldingSummary{{SecurityName: "Stale Co"}}

	svc, _, _ := newTestService(fixtureRepo(), cache)

	// cutoff before the Alpha sell and the whole Beta history
	summaries, failures, err := svc.GetPortfolioSummaries(context.Background(), 1, date(2023, 2, 15), false)
	require.NoError(t, err)
	require.Empty(t, failures)

	require.Len(t, summaries, 2)
	alpha := summaries[0]
	assert.Equal(t, "Alpha Industries Limited", alpha.SecurityName)
	assert.True(t, alpha.CurrentHolding.Equal(dec("150")))
	assert.True(t, alpha.Profit.IsZero())

	beta := summaries[1]
	assert.True(t, beta.CurrentHolding.Equal(dec("10")))
}

func TestGetTransactionHistory(t *testing.T) {
	svc, _, _ := newTestService(fixtureRepo(), newStubCache())

	// fuzzy name matching reaches the same group
	snapshots, err := svc.GetTransactionHistory(context.Background(), 1, "ALPHA INDUSTRIES LTD.", time.Time{})
	require.NoError(t, err)
	require.Len(t, snapshots, 3)

	last := snapshots[2]
	assert.Equal(t, model.CategorySell, last.Category)
	require.NotNil(t, last.RealizedPL)
	assert.True(t, last.RealizedPL.Equal(dec("560")))
	assert.True(t, last.Holding.Equal(dec("30")))
}

func TestGetTransactionHistoryUnknownSecurity(t *testing.T) {
	svc, _, _ := newTestService(fixtureRepo(), newStubCache())

	_, err := svc.GetTransactionHistory(context.Background(), 1, "Gamma Unknown", time.Time{})
	assert.ErrorIs(t, err, service.ErrSecurityUnknown)
}

func TestGetHoldingSummaryMatchesHistory(t *testing.T) {
	svc, _, _ := newTestService(fixtureRepo(), newStubCache())

	summary, err := svc.GetHoldingSummary(context.Background(), 1, "Alpha Industries Limited", time.Time{})
	require.NoError(t, err)

	snapshots, err := svc.GetTransactionHistory(context.Background(), 1, "Alpha Industries Limited", time.Time{})
	require.NoError(t, err)
	require.NotEmpty(t, snapshots)

	last := snapshots[len(snapshots)-1]
	assert.True(t, summary.CurrentHolding.Equal(last.Holding))
	assert.True(t, summary.WeightedAvgBuyPrice.Equal(last.WeightedAvgPrice))
}

func TestGetHoldingSummaryUnknownAccount(t *testing.T) {
	repo := fixtureRepo()
	repo.missingAccounts = map[int64]bool{7: true}
	svc, _, _ := newTestService(repo, newStubCache())

	_, err := svc.GetHoldingSummary(context.Background(), 7, "Alpha", time.Time{})
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestGetHoldingSummaryNoTransactions(t *testing.T) {
	repo := &stubRepo{transactions: map[int64][]model.RawTransactionRecord{}}
	svc, _, _ := newTestService(repo, newStubCache())

	_, err := svc.GetHoldingSummary(context.Background(), 42, "Alpha", time.Time{})
	assert.ErrorIs(t, err, service.ErrNoTransactions)
}

func TestGetWeightedAvgCostReport(t *testing.T) {
	svc, _, _ := newTestService(fixtureRepo(), newStubCache())

	rows, failures, err := svc.GetWeightedAvgCostReport(context.Background(), 1, time.Time{})
	require.NoError(t, err)
	require.Empty(t, failures)
	require.Len(t, rows, 2)

	alpha := rows[0]
	assert.True(t, alpha.Holding.Equal(dec("30")))
	assert.True(t, alpha.WeightedAvgPrice.Equal(dec("12")))
	assert.True(t, alpha.CostBasis.Equal(dec("360")))
}

func TestExportHoldingsReport(t *testing.T) {
	svc, gen, storage := newTestService(fixtureRepo(), newStubCache())

	link, err := svc.ExportHoldingsReport(context.Background(), 1, time.Time{})
	require.NoError(t, err)
	assert.Contains(t, link, "https://example.com/holdings_1_")
	assert.Contains(t, storage.lastFilename, ".xlsx")

	assert.Equal(t, int64(1), gen.lastReport.AccountID)
	assert.Len(t, gen.lastReport.Summaries, 2)
	assert.Len(t, gen.lastReport.Histories, 2)
}

func TestWarmSummaryCache(t *testing.T) {
	cache := newStubCache()
	svc, _, _ := newTestService(fixtureRepo(), cache)

	err := svc.WarmSummaryCache(context.Background())
	require.NoError(t, err)

	cached, err := cache.GetPortfolioSummaries(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, cached, 2)
}

func TestSyncBonusIssues(t *testing.T) {
	repo := fixtureRepo()
	cache := newStubCache()
	cache.summaries[1] = []model.HoldingSummary{{SecurityName: "Stale Co"}}

	gen := &stubReportGen{}
	storage := &stubCloudStorage{}
	exDate := date(2023, 6, 1)
	feed := &stubBonusFeed{recs: []model.RawBonusRecord{
		{CompanyName: "Alpha Industries Ltd", ExDate: &exDate, Quantity: "20", FeedRef: "B-1"},
	}}
	svc := New(repo, cache, feed, gen, storage, testConfig())

	err := svc.SyncBonusIssues(context.Background())
	require.NoError(t, err)

	require.Len(t, repo.upserted, 1)
	assert.Equal(t, "B-1", repo.upserted[0].FeedRef)
	assert.True(t, cache.flushed)
	assert.Empty(t, cache.summaries)
}

func TestSyncBonusIssuesFeedError(t *testing.T) {
	repo := fixtureRepo()
	cache := newStubCache()
	feed := &stubBonusFeed{err: errors.New("feed down")}
	svc := New(repo, cache, feed, &stubReportGen{}, &stubCloudStorage{}, testConfig())

	err := svc.SyncBonusIssues(context.Background())
	assert.Error(t, err)
	assert.Empty(t, repo.upserted)
	assert.False(t, cache.flushed)
}
