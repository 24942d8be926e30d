package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio-tracker/market"
)

type MarketHandler struct {
	market *market.Client
}

func NewMarketHandler(client *market.Client) *MarketHandler {
	return &MarketHandler{market: client}
}

func (h *MarketHandler) GetQuote(c *gin.Context) {
	symbol := c.Param("symbol")

	quote, err := h.market.Quote(c.Request.Context(), symbol)
	if err != nil {
		marketError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (h *MarketHandler) GetHistory(c *gin.Context) {
	symbol := c.Param("symbol")

	history, err := h.market.History(c.Request.Context(), symbol)
	if err != nil {
		marketError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *MarketHandler) GetCompany(c *gin.Context) {
	symbol := c.Param("symbol")

	company, err := h.market.Company(c.Request.Context(), symbol)
	if err != nil {
		marketError(c, err)
		return
	}
	c.JSON(http.StatusOK, company)
}

func marketError(c *gin.Context, err error) {
	if errors.Is(err, market.ErrSymbolNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Stock not found"})
		return
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to fetch stock data"})
}
