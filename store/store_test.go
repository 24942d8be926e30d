package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"portfolio-tracker/models"
	"portfolio-tracker/portfolio"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Lot{}, &models.Transaction{}, &models.StockPrice{}))
	return New(db)
}

func seedLot(t *testing.T, s *Store, symbol string, shares int, price float64, date time.Time) uint {
	t.Helper()
	lot := &models.Lot{Symbol: symbol, Shares: shares, PurchasePrice: price, PurchaseDate: date}
	require.NoError(t, s.Insert(context.Background(), lot))
	return lot.ID
}

func TestBySymbolLiquidationOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	// Inserted out of date order on purpose.
	seedLot(t, s, "AAPL", 3, 110.0, base.Add(2*time.Hour))
	seedLot(t, s, "AAPL", 1, 100.0, base)
	seedLot(t, s, "AAPL", 2, 105.0, base.Add(time.Hour))
	seedLot(t, s, "MSFT", 9, 300.0, base)

	lots, err := s.BySymbol(ctx, "AAPL")
	require.NoError(t, err)
	require.Len(t, lots, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{lots[0].Shares, lots[1].Shares, lots[2].Shares})
}

func TestBySymbolDateTieBrokenByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	date := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	first := seedLot(t, s, "AAPL", 1, 100.0, date)
	second := seedLot(t, s, "AAPL", 2, 101.0, date)

	lots, err := s.BySymbol(ctx, "AAPL")
	require.NoError(t, err)
	require.Len(t, lots, 2)
	assert.Equal(t, first, lots[0].ID)
	assert.Equal(t, second, lots[1].ID)
}

func TestTotalShares(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	total, err := s.TotalShares(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 0, total, "no lots sums to zero, not an error")

	seedLot(t, s, "AAPL", 10, 100.0, now)
	id := seedLot(t, s, "AAPL", 5, 210.0, now)
	seedLot(t, s, "MSFT", 7, 300.0, now)

	total, err = s.TotalShares(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 15, total)

	// Deleted lots no longer count.
	require.NoError(t, s.Delete(ctx, id))
	total, err = s.TotalShares(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 10, total)
}

func TestAveragePurchasePriceIsUnweighted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	seedLot(t, s, "AAPL", 10, 100.0, now)
	seedLot(t, s, "AAPL", 30, 200.0, now)

	avg, err := s.AveragePurchasePrice(ctx, "AAPL")
	require.NoError(t, err)
	assert.InDelta(t, 150.0, avg, 1e-9)
}

func TestSymbolsExcludesLiquidated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	seedLot(t, s, "MSFT", 5, 300.0, now)
	seedLot(t, s, "AAPL", 10, 100.0, now)
	gone := seedLot(t, s, "TSLA", 2, 250.0, now)
	require.NoError(t, s.Delete(ctx, gone))

	symbols, err := s.Symbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, symbols)
}

func TestUpdateShares(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id := seedLot(t, s, "AAPL", 10, 100.0, time.Now())
	require.NoError(t, s.UpdateShares(ctx, id, 3))

	lots, err := s.BySymbol(ctx, "AAPL")
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, 3, lots[0].Shares)
	assert.Equal(t, 100.0, lots[0].PurchasePrice, "price must not change")
}

func TestTransactRollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id := seedLot(t, s, "AAPL", 10, 100.0, time.Now())

	err := s.Transact(ctx, func(tx portfolio.LotStore) error {
		if err := tx.Delete(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("boom")
	})
	require.Error(t, err)

	total, err := s.TotalShares(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 10, total, "delete inside a failed transaction must roll back")
}

func TestEngineAgainstSQLStore(t *testing.T) {
	// The FIFO walk end to end against real SQL, not the in-memory fake.
	s := newTestStore(t)
	ctx := context.Background()
	oracle := pricesOracle{"AAPL": 100.0}
	engine := portfolio.NewEngine(s, oracle)

	_, err := engine.Buy(ctx, "AAPL", 10)
	require.NoError(t, err)
	oracle["AAPL"] = 120.0
	_, err = engine.Buy(ctx, "AAPL", 5)
	require.NoError(t, err)

	sale, err := engine.Sell(ctx, "AAPL", 12)
	require.NoError(t, err)
	assert.Equal(t, 1440.0, sale.TotalValue)

	lots, err := s.BySymbol(ctx, "AAPL")
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, 3, lots[0].Shares)
	assert.Equal(t, 120.0, lots[0].PurchasePrice)
}

type pricesOracle map[string]float64

func (o pricesOracle) CurrentPrice(_ context.Context, symbol string) (float64, error) {
	price, ok := o[symbol]
	if !ok {
		return 0, fmt.Errorf("could not fetch data for symbol %s", symbol)
	}
	return price, nil
}

func TestRecordTransaction(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordTransaction(ctx, "buy", "AAPL", 10, 100.0))
	require.NoError(t, s.RecordTransaction(ctx, "sell", "AAPL", 4, 110.0))

	var rows []models.Transaction
	require.NoError(t, s.db.Order("id").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, "buy", rows[0].Type)
	assert.Equal(t, "sell", rows[1].Type)
	assert.Equal(t, 4, rows[1].Shares)
}

func TestSaveHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveHistory(ctx, nil))

	prices := []models.StockPrice{
		{Symbol: "AAPL", Price: 100.0, Timestamp: time.Now().AddDate(0, 0, -1)},
		{Symbol: "AAPL", Price: 101.5, Timestamp: time.Now()},
	}
	require.NoError(t, s.SaveHistory(ctx, prices))

	var count int64
	require.NoError(t, s.db.Model(&models.StockPrice{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestCheckTables(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.CheckTables("lots", "transactions", "stock_prices"))
	assert.Error(t, s.CheckTables("nope"))
	assert.NoError(t, s.Ping(context.Background()))
}
