// Package store persists lots, the transaction ledger and fetched prices in
// PostgreSQL through gorm. It implements portfolio.LotStore.
package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"portfolio-tracker/models"
	"portfolio-tracker/portfolio"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Insert(ctx context.Context, lot *models.Lot) error {
	return s.db.WithContext(ctx).Create(lot).Error
}

// BySymbol returns the live lots for symbol in liquidation order: ascending
// purchase date, ties broken by id.
func (s *Store) BySymbol(ctx context.Context, symbol string) ([]models.Lot, error) {
	var lots []models.Lot
	err := s.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("purchase_date, id").
		Find(&lots).Error
	return lots, err
}

func (s *Store) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&models.Lot{}, id).Error
}

func (s *Store) UpdateShares(ctx context.Context, id uint, shares int) error {
	return s.db.WithContext(ctx).
		Model(&models.Lot{}).
		Where("id = ?", id).
		Update("shares", shares).Error
}

func (s *Store) TotalShares(ctx context.Context, symbol string) (int, error) {
	var total int64
	err := s.db.WithContext(ctx).
		Model(&models.Lot{}).
		Where("symbol = ?", symbol).
		Select("COALESCE(SUM(shares), 0)").
		Scan(&total).Error
	return int(total), err
}

func (s *Store) AveragePurchasePrice(ctx context.Context, symbol string) (float64, error) {
	var avg float64
	err := s.db.WithContext(ctx).
		Model(&models.Lot{}).
		Where("symbol = ?", symbol).
		Select("COALESCE(AVG(purchase_price), 0)").
		Scan(&avg).Error
	return avg, err
}

// Symbols lists the distinct symbols whose live lots sum to a positive share
// count, ordered alphabetically.
func (s *Store) Symbols(ctx context.Context) ([]string, error) {
	var symbols []string
	err := s.db.WithContext(ctx).
		Model(&models.Lot{}).
		Group("symbol").
		Having("SUM(shares) > 0").
		Order("symbol").
		Pluck("symbol", &symbols).Error
	return symbols, err
}

// Transact runs fn against a store bound to a single database transaction.
// fn returning an error rolls everything back.
func (s *Store) Transact(ctx context.Context, fn func(portfolio.LotStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// RecordTransaction appends a buy/sell row to the audit ledger.
func (s *Store) RecordTransaction(ctx context.Context, typ, symbol string, shares int, price float64) error {
	t := models.Transaction{
		Type:      typ,
		Symbol:    symbol,
		Shares:    shares,
		Price:     price,
		Timestamp: time.Now(),
	}
	return s.db.WithContext(ctx).Create(&t).Error
}

// SaveQuote records a fetched quote for later history queries.
func (s *Store) SaveQuote(ctx context.Context, price models.StockPrice) error {
	return s.db.WithContext(ctx).Create(&price).Error
}

// SaveHistory batch-inserts historical prices.
func (s *Store) SaveHistory(ctx context.Context, prices []models.StockPrice) error {
	if len(prices) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(prices, 100).Error
}

// Ping verifies the underlying database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// CheckTables verifies that the named tables exist.
func (s *Store) CheckTables(tables ...string) error {
	for _, table := range tables {
		if !s.db.Migrator().HasTable(table) {
			return fmt.Errorf("table %s does not exist", table)
		}
	}
	return nil
}
