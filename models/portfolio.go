package models

import (
	"time"

	"gorm.io/gorm"
)

// Lot is a single purchase event. Selling never splits a lot: liquidation
// either deletes it or decrements Shares in place.
type Lot struct {
	gorm.Model
	Symbol        string    `gorm:"index" json:"symbol"`
	Shares        int       `json:"shares"`
	PurchasePrice float64   `json:"purchase_price"`
	PurchaseDate  time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"purchase_date"`
}

// Transaction is the audit ledger: one row per executed buy or sell.
type Transaction struct {
	gorm.Model
	Type      string    `json:"type"` // buy/sell
	Symbol    string    `json:"symbol"`
	Shares    int       `json:"shares"`
	Price     float64   `json:"price"`
	Timestamp time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"timestamp"`
}
