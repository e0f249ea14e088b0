package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ksred/summit-api/internal/audit"
	"github.com/ksred/summit-api/internal/auth"
	"github.com/ksred/summit-api/internal/ledger"
	"github.com/ksred/summit-api/internal/trading"
	"github.com/ksred/summit-api/pkg/middleware"
)

type routerDeps struct {
	auth     *auth.Service
	ledger   *ledger.Service
	trading  *trading.Service
	audit    *audit.Service
	limiter  *middleware.RateLimiter
	registry *prometheus.Registry
}

// newRouter configures all API endpoints and their handlers
// Route groups:
//   - /api/v1/auth: public, rate limited by client IP
//   - /api/v1/...: JWT protected, rate limited by identity
//   - /api/v1/admin: JWT protected and restricted to the admin role
func newRouter(deps routerDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.registry, promhttp.HandlerOpts{})))

	authHandlers := auth.NewGinHandlers(deps.auth)
	ledgerHandlers := ledger.NewGinHandlers(deps.ledger)
	tradingHandlers := trading.NewGinHandlers(deps.trading)
	auditHandlers := audit.NewGinHandlers(deps.audit)

	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		authGroup.Use(deps.limiter.Middleware())
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(deps.auth), deps.limiter.Middleware())
		{
			protected.GET("/accounts", ledgerHandlers.ListAccountsHandler())
			protected.GET("/accounts/:account_id", ledgerHandlers.GetAccountHandler())
			protected.POST("/accounts/:account_id/deposit", ledgerHandlers.DepositHandler())
			protected.POST("/transfers", ledgerHandlers.TransferHandler())

			protected.GET("/transactions/recent", auditHandlers.TransactionHistoryHandler())
			protected.GET("/transactions/:reference", auditHandlers.TransactionHandler())

			protected.GET("/stocks", tradingHandlers.ListStocksHandler())
			protected.POST("/stocks/:symbol/buy", tradingHandlers.BuyHandler())
			protected.POST("/stocks/:symbol/sell", tradingHandlers.SellHandler())

			protected.GET("/portfolio", auditHandlers.PortfolioHandler())
			protected.GET("/trades/recent", auditHandlers.TradeHistoryHandler())
			protected.GET("/trades/:reference", auditHandlers.TradeHandler())

			admin := protected.Group("/admin")
			admin.Use(middleware.RequireAdmin())
			{
				admin.POST("/accounts", ledgerHandlers.OpenAccountHandler())
				admin.PUT("/accounts/:account_id/frozen", ledgerHandlers.SetFrozenHandler())
				admin.PUT("/stocks/:symbol", tradingHandlers.ListStockHandler())
				admin.GET("/transactions", auditHandlers.AllTransactionsHandler())
				admin.GET("/transactions/:reference", auditHandlers.LookupTransactionHandler())
				admin.GET("/trades", auditHandlers.AllTradesHandler())
				admin.GET("/trades/:reference", auditHandlers.LookupTradeHandler())
			}
		}
	}

	return router
}
