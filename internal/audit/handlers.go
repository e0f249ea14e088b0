package audit

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ksred/summit-api/internal/auth"
	"github.com/ksred/summit-api/pkg/response"
)

// GinHandlers contains HTTP handlers for portfolio and history endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for audit endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// limitQuery reads the optional ?limit= parameter. Absent means the service default.
func limitQuery(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		response.BadRequest(c, "Invalid limit")
		return 0, false
	}
	return limit, true
}

// PortfolioHandler returns the caller's positions valued at current prices
func (h *GinHandlers) PortfolioHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := h.service.Portfolio(c.Request.Context(), auth.GetIdentity(c))
		response.Handle(c, entries, err)
	}
}

// TransactionHistoryHandler returns the caller's recent deposits and transfers
// Query parameter: limit (optional)
func (h *GinHandlers) TransactionHistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, ok := limitQuery(c)
		if !ok {
			return
		}
		txns, err := h.service.TransactionHistory(c.Request.Context(), auth.GetIdentity(c), limit)
		response.Handle(c, txns, err)
	}
}

// TransactionHandler returns one of the caller's transactions
// URL parameter: reference
func (h *GinHandlers) TransactionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		txn, err := h.service.FindTransactionByReference(c.Request.Context(), c.Param("reference"), auth.GetIdentity(c))
		response.Handle(c, txn, err)
	}
}

// TradeHistoryHandler returns the caller's recent buys and sells
// Query parameter: limit (optional)
func (h *GinHandlers) TradeHistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, ok := limitQuery(c)
		if !ok {
			return
		}
		trades, err := h.service.TradeHistory(c.Request.Context(), auth.GetIdentity(c), limit)
		response.Handle(c, trades, err)
	}
}

// TradeHandler returns one of the caller's trades
// URL parameter: reference
func (h *GinHandlers) TradeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		trade, err := h.service.FindTradeByReference(c.Request.Context(), c.Param("reference"), auth.GetIdentity(c))
		response.Handle(c, trade, err)
	}
}

// AllTransactionsHandler returns recent transactions across all accounts (admin only)
func (h *GinHandlers) AllTransactionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, ok := limitQuery(c)
		if !ok {
			return
		}
		txns, err := h.service.AllRecentTransactions(c.Request.Context(), limit)
		response.Handle(c, txns, err)
	}
}

// LookupTransactionHandler returns any transaction by reference (admin only)
func (h *GinHandlers) LookupTransactionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		txn, err := h.service.LookupTransaction(c.Request.Context(), c.Param("reference"))
		response.Handle(c, txn, err)
	}
}

// AllTradesHandler returns recent trades across all accounts (admin only)
func (h *GinHandlers) AllTradesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, ok := limitQuery(c)
		if !ok {
			return
		}
		trades, err := h.service.AllRecentTrades(c.Request.Context(), limit)
		response.Handle(c, trades, err)
	}
}

// LookupTradeHandler returns any trade by reference (admin only)
func (h *GinHandlers) LookupTradeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		trade, err := h.service.LookupTrade(c.Request.Context(), c.Param("reference"))
		response.Handle(c, trade, err)
	}
}
