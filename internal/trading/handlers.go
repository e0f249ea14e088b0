package trading

import (
	"github.com/gin-gonic/gin"

	"github.com/ksred/summit-api/internal/auth"
	"github.com/ksred/summit-api/pkg/response"
)

// GinHandlers contains HTTP handlers for trading endpoints.
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for trading endpoints.
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// ListStocksHandler returns stocks that still have shares available.
func (h *GinHandlers) ListStocksHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		stocks, err := h.service.AvailableStocks(c.Request.Context())
		response.Handle(c, stocks, err)
	}
}

// BuyHandler handles POST requests to buy shares.
// URL parameter: symbol. Optional Idempotency-Key header.
func (h *GinHandlers) BuyHandler() gin.HandlerFunc {
	return h.tradeHandler(h.service.Buy)
}

// SellHandler handles POST requests to sell shares.
// URL parameter: symbol. Optional Idempotency-Key header.
func (h *GinHandlers) SellHandler() gin.HandlerFunc {
	return h.tradeHandler(h.service.Sell)
}

func (h *GinHandlers) tradeHandler(execute tradeFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TradeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		req.Symbol = c.Param("symbol")
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")

		trade, err := execute(c.Request.Context(), req, auth.GetIdentity(c))
		response.Handle(c, trade, err)
	}
}

// ListStockHandler creates or updates an instrument (admin only).
func (h *GinHandlers) ListStockHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ListStockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		req.Symbol = c.Param("symbol")

		stock, err := h.service.ListStock(c.Request.Context(), req)
		response.Handle(c, stock, err)
	}
}
