package audit_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksred/summit-api/internal/audit"
	"github.com/ksred/summit-api/internal/auth"
	"github.com/ksred/summit-api/internal/testutil"
	"github.com/ksred/summit-api/internal/types"
	"github.com/ksred/summit-api/pkg/response"
)

func newRouter(svc *audit.Service, identity string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := audit.NewGinHandlers(svc)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(auth.IdentityKey, identity)
		c.Next()
	})
	r.GET("/portfolio", h.PortfolioHandler())
	r.GET("/transactions/recent", h.TransactionHistoryHandler())
	r.GET("/transactions/:reference", h.TransactionHandler())
	r.GET("/trades/recent", h.TradeHistoryHandler())
	r.GET("/trades/:reference", h.TradeHandler())
	r.GET("/admin/transactions", h.AllTransactionsHandler())
	r.GET("/admin/transactions/:reference", h.LookupTransactionHandler())
	r.GET("/admin/trades", h.AllTradesHandler())
	r.GET("/admin/trades/:reference", h.LookupTradeHandler())
	return r
}

func get(r *gin.Engine, path string) (*httptest.ResponseRecorder, response.Response) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

	var resp response.Response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestHistoryHandlers(t *testing.T) {
	f := newFixture(t, audit.Options{})
	a := testutil.CreateAccount(t, f.st, alice, types.Checking, "1000")
	testutil.CreateStock(t, f.st, "AAPL", "Apple Inc.", "100", 10)
	txn := f.deposit(t, a.ID, "5", alice)
	trade := f.buy(t, a.ID, "AAPL", 1, alice)

	r := newRouter(f.audit, alice)

	w, resp := get(r, "/transactions/recent?limit=5")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, resp.Data, 1)

	w, _ = get(r, "/transactions/recent?limit=abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = get(r, "/transactions/"+txn.Reference)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, txn.Reference, resp.Data.(map[string]interface{})["transaction_reference"])

	w, resp = get(r, "/trades/"+trade.Reference)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Apple Inc.", resp.Data.(map[string]interface{})["company_name"])

	w, resp = get(r, "/portfolio")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resp.Data, 1)

	w, resp = get(r, "/trades/STK-20240601-MISSING")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", resp.Error.Kind)

	stranger := newRouter(f.audit, bob)
	w, _ = get(stranger, "/trades/"+trade.Reference)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp = get(stranger, "/portfolio")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{}, resp.Data)

	w, _ = get(stranger, "/admin/trades/"+trade.Reference)
	assert.Equal(t, http.StatusOK, w.Code)
	w, resp = get(stranger, "/admin/transactions")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resp.Data, 1)
}
