package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio-tracker/portfolio"
	"portfolio-tracker/store"
)

type PortfolioHandler struct {
	engine *portfolio.Engine
	ledger *store.Store
}

func NewPortfolioHandler(engine *portfolio.Engine, ledger *store.Store) *PortfolioHandler {
	return &PortfolioHandler{engine: engine, ledger: ledger}
}

type TradeInput struct {
	Symbol string `json:"symbol" binding:"required"`
	Shares int    `json:"shares" binding:"required"`
}

func (h *PortfolioHandler) Buy(c *gin.Context) {
	var input TradeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	purchase, err := h.engine.Buy(c.Request.Context(), input.Symbol, input.Shares)
	if err != nil {
		tradeError(c, err)
		return
	}

	// The trade itself is committed; a ledger failure only loses audit data.
	if err := h.ledger.RecordTransaction(c.Request.Context(), "buy", purchase.Symbol, purchase.Shares, purchase.PricePerShare); err != nil {
		log.Println("Failed to record buy transaction:", err)
	}

	c.JSON(http.StatusCreated, purchase)
}

func (h *PortfolioHandler) Sell(c *gin.Context) {
	var input TradeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sale, err := h.engine.Sell(c.Request.Context(), input.Symbol, input.Shares)
	if err != nil {
		tradeError(c, err)
		return
	}

	if err := h.ledger.RecordTransaction(c.Request.Context(), "sell", sale.Symbol, sale.SharesSold, sale.PricePerShare); err != nil {
		log.Println("Failed to record sell transaction:", err)
	}

	c.JSON(http.StatusOK, sale)
}

func (h *PortfolioHandler) GetPortfolio(c *gin.Context) {
	holdings, err := h.engine.GetPortfolio(c.Request.Context())
	if err != nil {
		tradeError(c, err)
		return
	}
	c.JSON(http.StatusOK, holdings)
}

func (h *PortfolioHandler) GetPortfolioValue(c *gin.Context) {
	valuation, err := h.engine.GetPortfolioValue(c.Request.Context())
	if err != nil {
		tradeError(c, err)
		return
	}
	c.JSON(http.StatusOK, valuation)
}

// tradeError maps engine error kinds onto HTTP statuses: bad input is the
// caller's fault, a price failure is an upstream problem, everything else is
// a backend failure.
func tradeError(c *gin.Context, err error) {
	var (
		vErr     *portfolio.ValidationError
		insErr   *portfolio.InsufficientSharesError
		priceErr *portfolio.PriceUnavailableError
	)
	switch {
	case errors.As(err, &vErr), errors.As(err, &insErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &priceErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
