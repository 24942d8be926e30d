// Package market fetches market data from Alpha Vantage, with a Redis
// read-through cache and persistence of fetched prices. It implements
// portfolio.PriceOracle.
package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"portfolio-tracker/models"
)

const (
	defaultBaseURL  = "https://www.alphavantage.co/query"
	quoteCacheTTL   = 5 * time.Minute
	historyCacheTTL = 24 * time.Hour
)

// ErrSymbolNotFound means the upstream API has no data for the symbol.
var ErrSymbolNotFound = errors.New("symbol not found")

// Recorder persists fetched prices. Implemented by store.Store.
type Recorder interface {
	SaveQuote(ctx context.Context, price models.StockPrice) error
	SaveHistory(ctx context.Context, prices []models.StockPrice) error
}

type Client struct {
	httpc   *http.Client
	cache   *redis.Client // optional
	rec     Recorder      // optional
	apiKey  string
	baseURL string
}

func New(cache *redis.Client, rec Recorder, apiKey string) *Client {
	return &Client{
		httpc:   http.DefaultClient,
		cache:   cache,
		rec:     rec,
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
	}
}

type alphaVantageResponse struct {
	GlobalQuote struct {
		Symbol           string `json:"01. symbol"`
		Price            string `json:"05. price"`
		Volume           string `json:"06. volume"`
		LatestTradingDay string `json:"07. latest trading day"`
		PreviousClose    string `json:"08. previous close"`
		Change           string `json:"09. change"`
		ChangePercent    string `json:"10. change percent"`
	} `json:"Global Quote"`
	TimeSeriesDaily map[string]struct {
		Open   string `json:"1. open"`
		High   string `json:"2. high"`
		Low    string `json:"3. low"`
		Close  string `json:"4. close"`
		Volume string `json:"5. volume"`
	} `json:"Time Series (Daily)"`
}

type Quote struct {
	Symbol           string  `json:"symbol"`
	Price            float64 `json:"price"`
	Volume           int64   `json:"volume"`
	LatestTradingDay string  `json:"latest_trading_day"`
	PreviousClose    float64 `json:"previous_close"`
	Change           float64 `json:"change"`
	ChangePercent    string  `json:"change_percent"`
}

type Company struct {
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Exchange    string `json:"exchange"`
	Sector      string `json:"sector"`
	Industry    string `json:"industry"`
}

func (c *Client) get(ctx context.Context, function, symbol string, out interface{}) error {
	url := fmt.Sprintf("%s?function=%s&symbol=%s&apikey=%s", c.baseURL, function, symbol, c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch stock data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch stock data: upstream returned %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse stock data: %w", err)
	}
	return nil
}

// Quote returns the full current quote for symbol and records the price.
func (c *Client) Quote(ctx context.Context, symbol string) (*Quote, error) {
	var result alphaVantageResponse
	if err := c.get(ctx, "GLOBAL_QUOTE", symbol, &result); err != nil {
		return nil, err
	}

	raw := result.GlobalQuote
	if raw.Price == "" {
		return nil, ErrSymbolNotFound
	}
	price, err := strconv.ParseFloat(raw.Price, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stock data: %w", err)
	}

	q := &Quote{
		Symbol:           symbol,
		Price:            price,
		LatestTradingDay: raw.LatestTradingDay,
		ChangePercent:    raw.ChangePercent,
	}
	if raw.Symbol != "" {
		q.Symbol = raw.Symbol
	}
	q.Volume, _ = strconv.ParseInt(raw.Volume, 10, 64)
	q.PreviousClose, _ = strconv.ParseFloat(raw.PreviousClose, 64)
	q.Change, _ = strconv.ParseFloat(raw.Change, 64)

	if c.rec != nil {
		entry := models.StockPrice{Symbol: symbol, Price: price, Timestamp: time.Now()}
		if err := c.rec.SaveQuote(ctx, entry); err != nil {
			log.Println("failed to record quote:", err)
		}
	}
	return q, nil
}

// CurrentPrice returns the cached or freshly fetched price for symbol.
func (c *Client) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	if c.cache != nil {
		cached, err := c.cache.Get(ctx, priceKey(symbol)).Result()
		if err == nil {
			if price, err := strconv.ParseFloat(cached, 64); err == nil {
				return price, nil
			}
		}
	}

	q, err := c.Quote(ctx, symbol)
	if err != nil {
		return 0, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, priceKey(symbol), strconv.FormatFloat(q.Price, 'f', -1, 64), quoteCacheTTL).Err(); err != nil {
			log.Println("failed to cache price:", err)
		}
	}
	return q.Price, nil
}

// History returns the daily closing prices for symbol, newest last.
func (c *Client) History(ctx context.Context, symbol string) ([]models.StockPrice, error) {
	if c.cache != nil {
		cached, err := c.cache.Get(ctx, historyKey(symbol)).Result()
		if err == nil {
			var history []models.StockPrice
			if err := json.Unmarshal([]byte(cached), &history); err == nil {
				return history, nil
			}
		}
	}

	var result alphaVantageResponse
	if err := c.get(ctx, "TIME_SERIES_DAILY", symbol, &result); err != nil {
		return nil, err
	}
	if len(result.TimeSeriesDaily) == 0 {
		return nil, ErrSymbolNotFound
	}

	history := make([]models.StockPrice, 0, len(result.TimeSeriesDaily))
	for date, day := range result.TimeSeriesDaily {
		closePrice, err := strconv.ParseFloat(day.Close, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse historical data: %w", err)
		}
		timestamp, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, fmt.Errorf("failed to parse historical data: %w", err)
		}
		history = append(history, models.StockPrice{
			Symbol:    symbol,
			Price:     closePrice,
			Timestamp: timestamp,
		})
	}
	sortByTimestamp(history)

	if c.rec != nil {
		if err := c.rec.SaveHistory(ctx, history); err != nil {
			log.Println("failed to record history:", err)
		}
	}
	if c.cache != nil {
		if data, err := json.Marshal(history); err == nil {
			c.cache.Set(ctx, historyKey(symbol), data, historyCacheTTL)
		}
	}
	return history, nil
}

// Company returns company fundamentals for symbol.
func (c *Client) Company(ctx context.Context, symbol string) (*Company, error) {
	var result struct {
		Symbol      string `json:"Symbol"`
		Name        string `json:"Name"`
		Description string `json:"Description"`
		Exchange    string `json:"Exchange"`
		Sector      string `json:"Sector"`
		Industry    string `json:"Industry"`
	}
	if err := c.get(ctx, "OVERVIEW", symbol, &result); err != nil {
		return nil, err
	}
	if result.Name == "" {
		return nil, ErrSymbolNotFound
	}
	return &Company{
		Symbol:      result.Symbol,
		Name:        result.Name,
		Description: result.Description,
		Exchange:    result.Exchange,
		Sector:      result.Sector,
		Industry:    result.Industry,
	}, nil
}

func priceKey(symbol string) string   { return fmt.Sprintf("stock:%s:price", symbol) }
func historyKey(symbol string) string { return fmt.Sprintf("stock:%s:history", symbol) }

func sortByTimestamp(prices []models.StockPrice) {
	sort.Slice(prices, func(i, j int) bool {
		return prices[i].Timestamp.Before(prices[j].Timestamp)
	})
}
