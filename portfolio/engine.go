// Package portfolio implements lot-based portfolio accounting: buys recorded
// as discrete lots, FIFO liquidation on sale, and per-symbol and
// whole-portfolio valuation against current market prices.
package portfolio

import (
	"context"
	"time"

	"portfolio-tracker/models"
)

// PriceOracle returns the current market price for a symbol.
type PriceOracle interface {
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// LotStore is a durable, insertion-ordered collection of purchase lots.
// BySymbol returns lots ascending by purchase date, ties broken by id, which
// is the liquidation order.
type LotStore interface {
	Insert(ctx context.Context, lot *models.Lot) error
	BySymbol(ctx context.Context, symbol string) ([]models.Lot, error)
	Delete(ctx context.Context, id uint) error
	UpdateShares(ctx context.Context, id uint, shares int) error
	TotalShares(ctx context.Context, symbol string) (int, error)
	AveragePurchasePrice(ctx context.Context, symbol string) (float64, error)
	Symbols(ctx context.Context) ([]string, error)

	// Transact runs fn against a transactional view of the store; all
	// mutations commit together or not at all.
	Transact(ctx context.Context, fn func(LotStore) error) error
}

type Purchase struct {
	Symbol        string  `json:"symbol"`
	Shares        int     `json:"shares"`
	PricePerShare float64 `json:"price_per_share"`
	TotalCost     float64 `json:"total_cost"`
}

type Sale struct {
	Symbol        string  `json:"symbol"`
	SharesSold    int     `json:"shares_sold"`
	PricePerShare float64 `json:"price_per_share"`
	TotalValue    float64 `json:"total_value"`
}

// Holding is one symbol's derived portfolio snapshot entry.
type Holding struct {
	Symbol           string  `json:"symbol"`
	Shares           int     `json:"shares"`
	CurrentPrice     float64 `json:"current_price"`
	CurrentValue     float64 `json:"current_value"`
	AvgPurchasePrice float64 `json:"avg_purchase_price"`
	TotalGainLoss    float64 `json:"total_gain_loss"`
}

type Valuation struct {
	TotalValue           float64 `json:"total_value"`
	TotalCost            float64 `json:"total_cost"`
	TotalGainLoss        float64 `json:"total_gain_loss"`
	TotalGainLossPercent float64 `json:"total_gain_loss_percent"`
}

// Engine owns the buy/sell/valuation logic. Both collaborators are injected;
// the engine keeps no state of its own.
type Engine struct {
	store  LotStore
	oracle PriceOracle
}

func NewEngine(store LotStore, oracle PriceOracle) *Engine {
	return &Engine{store: store, oracle: oracle}
}

func validateTrade(symbol string, shares int) error {
	if symbol == "" {
		return &ValidationError{Reason: "invalid symbol provided"}
	}
	if shares <= 0 {
		return &ValidationError{Reason: "shares must be a positive integer"}
	}
	return nil
}

// Buy purchases shares of symbol at the oracle's current price and records
// them as a new lot. No existing lot is touched.
func (e *Engine) Buy(ctx context.Context, symbol string, shares int) (*Purchase, error) {
	if err := validateTrade(symbol, shares); err != nil {
		return nil, err
	}

	price, err := e.oracle.CurrentPrice(ctx, symbol)
	if err != nil {
		return nil, &PriceUnavailableError{Symbol: symbol, Err: err}
	}

	lot := &models.Lot{
		Symbol:        symbol,
		Shares:        shares,
		PurchasePrice: price,
		PurchaseDate:  time.Now(),
	}
	if err := e.store.Insert(ctx, lot); err != nil {
		return nil, &StoreError{Op: "insert lot", Err: err}
	}

	return &Purchase{
		Symbol:        symbol,
		Shares:        shares,
		PricePerShare: price,
		TotalCost:     price * float64(shares),
	}, nil
}

// Sell liquidates shares of symbol oldest-lot-first at the oracle's current
// price. Ownership is checked before the oracle is consulted, so an oversized
// sale reports the shares owned rather than a price failure.
//
// The walk runs inside one store transaction, but nothing locks across
// concurrent sells of the same symbol; two racing callers can interleave
// reads and over-liquidate. Known gap, accepted for the single-tenant model.
func (e *Engine) Sell(ctx context.Context, symbol string, shares int) (*Sale, error) {
	if err := validateTrade(symbol, shares); err != nil {
		return nil, err
	}

	owned, err := e.store.TotalShares(ctx, symbol)
	if err != nil {
		return nil, &StoreError{Op: "sum shares", Err: err}
	}
	if owned < shares {
		return nil, &InsufficientSharesError{Symbol: symbol, Requested: shares, Owned: owned}
	}

	price, err := e.oracle.CurrentPrice(ctx, symbol)
	if err != nil {
		return nil, &PriceUnavailableError{Symbol: symbol, Err: err}
	}

	err = e.store.Transact(ctx, func(tx LotStore) error {
		lots, err := tx.BySymbol(ctx, symbol)
		if err != nil {
			return err
		}

		remaining := shares
		for _, lot := range lots {
			if remaining <= 0 {
				break
			}
			if lot.Shares <= remaining {
				// Consume the whole lot.
				if err := tx.Delete(ctx, lot.ID); err != nil {
					return err
				}
				remaining -= lot.Shares
			} else {
				if err := tx.UpdateShares(ctx, lot.ID, lot.Shares-remaining); err != nil {
					return err
				}
				remaining = 0
			}
		}
		return nil
	})
	if err != nil {
		return nil, &StoreError{Op: "liquidate lots", Err: err}
	}

	return &Sale{
		Symbol:        symbol,
		SharesSold:    shares,
		PricePerShare: price,
		TotalValue:    price * float64(shares),
	}, nil
}

// GetPortfolio returns one entry per symbol with live shares, valued at
// current prices. The average purchase price is the unweighted mean across
// that symbol's live lots. A price failure for any symbol aborts the whole
// call; there are no partial results.
func (e *Engine) GetPortfolio(ctx context.Context) ([]Holding, error) {
	symbols, err := e.store.Symbols(ctx)
	if err != nil {
		return nil, &StoreError{Op: "list symbols", Err: err}
	}

	holdings := make([]Holding, 0, len(symbols))
	for _, symbol := range symbols {
		shares, err := e.store.TotalShares(ctx, symbol)
		if err != nil {
			return nil, &StoreError{Op: "sum shares", Err: err}
		}

		price, err := e.oracle.CurrentPrice(ctx, symbol)
		if err != nil {
			return nil, &PriceUnavailableError{Symbol: symbol, Err: err}
		}

		avg, err := e.store.AveragePurchasePrice(ctx, symbol)
		if err != nil {
			return nil, &StoreError{Op: "average purchase price", Err: err}
		}

		holdings = append(holdings, Holding{
			Symbol:           symbol,
			Shares:           shares,
			CurrentPrice:     price,
			CurrentValue:     price * float64(shares),
			AvgPurchasePrice: avg,
			TotalGainLoss:    (price - avg) * float64(shares),
		})
	}
	return holdings, nil
}

// GetPortfolioValue aggregates the portfolio into total value, cost basis and
// gain/loss. An empty portfolio is all zeros, including the percentage.
func (e *Engine) GetPortfolioValue(ctx context.Context) (*Valuation, error) {
	holdings, err := e.GetPortfolio(ctx)
	if err != nil {
		return nil, err
	}

	v := &Valuation{}
	if len(holdings) == 0 {
		return v, nil
	}

	for _, h := range holdings {
		v.TotalValue += h.CurrentValue
		v.TotalCost += h.AvgPurchasePrice * float64(h.Shares)
		v.TotalGainLoss += h.TotalGainLoss
	}
	if v.TotalCost > 0 {
		v.TotalGainLossPercent = v.TotalGainLoss / v.TotalCost * 100
	}
	return v, nil
}
