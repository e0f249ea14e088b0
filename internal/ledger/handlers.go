package ledger

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ksred/summit-api/internal/auth"
	"github.com/ksred/summit-api/pkg/response"
)

// GinHandlers contains HTTP handlers for account and transfer endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for ledger endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

func accountIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("account_id"), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "Invalid account ID")
		return 0, false
	}
	return uint(id), true
}

// ListAccountsHandler returns the caller's accounts
func (h *GinHandlers) ListAccountsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		accounts, err := h.service.GetAccountsForIdentity(c.Request.Context(), auth.GetIdentity(c))
		response.Handle(c, accounts, err)
	}
}

// GetAccountHandler returns one of the caller's accounts
// URL parameter: account_id
func (h *GinHandlers) GetAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountIDParam(c)
		if !ok {
			return
		}

		account, err := h.service.GetOwnedAccount(c.Request.Context(), id, auth.GetIdentity(c))
		response.Handle(c, account, err)
	}
}

// DepositHandler handles POST requests crediting an owned account
// Optional Idempotency-Key header makes retries safe
func (h *GinHandlers) DepositHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountIDParam(c)
		if !ok {
			return
		}

		var req DepositRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		req.AccountID = id
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")

		txn, err := h.service.Deposit(c.Request.Context(), req, auth.GetIdentity(c))
		response.Handle(c, txn, err)
	}
}

// TransferHandler handles POST requests moving cash between accounts
// Optional Idempotency-Key header makes retries safe
func (h *GinHandlers) TransferHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TransferRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")

		txn, err := h.service.Transfer(c.Request.Context(), req, auth.GetIdentity(c))
		response.Handle(c, txn, err)
	}
}

// OpenAccountHandler creates an account for any owner (admin only)
func (h *GinHandlers) OpenAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req OpenAccountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		account, err := h.service.OpenAccount(c.Request.Context(), req)
		response.Handle(c, account, err)
	}
}

// SetFrozenHandler freezes or unfreezes an account (admin only)
func (h *GinHandlers) SetFrozenHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountIDParam(c)
		if !ok {
			return
		}

		var req FreezeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		account, err := h.service.SetFrozen(c.Request.Context(), id, req.Frozen)
		response.Handle(c, account, err)
	}
}
