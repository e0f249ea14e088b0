package trading_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksred/summit-api/internal/auth"
	"github.com/ksred/summit-api/internal/testutil"
	"github.com/ksred/summit-api/internal/trading"
	"github.com/ksred/summit-api/internal/types"
	"github.com/ksred/summit-api/pkg/response"
)

func newRouter(svc *trading.Service, identity string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := trading.NewGinHandlers(svc)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(auth.IdentityKey, identity)
		c.Next()
	})
	r.GET("/stocks", h.ListStocksHandler())
	r.POST("/stocks/:symbol/buy", h.BuyHandler())
	r.POST("/stocks/:symbol/sell", h.SellHandler())
	r.PUT("/admin/stocks/:symbol", h.ListStockHandler())
	return r
}

func send(r *gin.Engine, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, response.Response) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)

	var resp response.Response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestTradeHandlers(t *testing.T) {
	svc, st := newService(t)
	a := testutil.CreateAccount(t, st, alice, types.Checking, "1000.00")
	testutil.CreateStock(t, st, "AAPL", "Apple Inc.", "150.00", 100)
	r := newRouter(svc, alice)

	body := fmt.Sprintf(`{"account_id":%d,"quantity":4}`, a.ID)
	w, resp := send(r, http.MethodPost, "/stocks/aapl/buy", body, map[string]string{"Idempotency-Key": "b-1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "BUY", data["type"])
	assert.Equal(t, "600.00", data["total_amount"])
	assert.NotContains(t, data, "profit_loss")

	w, replay := send(r, http.MethodPost, "/stocks/aapl/buy", body, map[string]string{"Idempotency-Key": "b-1"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, data["transaction_reference"], replay.Data.(map[string]interface{})["transaction_reference"])

	w, resp = send(r, http.MethodPost, "/stocks/AAPL/buy", fmt.Sprintf(`{"account_id":%d,"quantity":50}`, a.ID), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "insufficient_funds", resp.Error.Kind)

	w, resp = send(r, http.MethodPost, "/stocks/AAPL/sell", fmt.Sprintf(`{"account_id":%d,"quantity":4}`, a.ID), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "0.00", resp.Data.(map[string]interface{})["profit_loss"])

	w, resp = send(r, http.MethodPost, "/stocks/AAPL/sell", fmt.Sprintf(`{"account_id":%d,"quantity":1}`, a.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", resp.Error.Kind)

	w, resp = send(r, http.MethodPost, "/stocks/AAPL/buy", fmt.Sprintf(`{"account_id":%d,"quantity":0}`, a.ID), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_amount", resp.Error.Kind)

	w, _ = send(r, http.MethodPost, "/stocks/AAPL/buy", `{"quantity":`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStockHandlers(t *testing.T) {
	svc, _ := newService(t)
	r := newRouter(svc, "admin@example.com")

	w, _ := send(r, http.MethodPut, "/admin/stocks/nvda", `{"company_name":"NVIDIA","current_price":"120.50","available_shares":25}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, resp := send(r, http.MethodGet, "/stocks", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stocks := resp.Data.([]interface{})
	require.Len(t, stocks, 1)
	assert.Equal(t, "NVDA", stocks[0].(map[string]interface{})["symbol"])

	w, resp = send(r, http.MethodPut, "/admin/stocks/nvda", `{"company_name":"NVIDIA","current_price":"0","available_shares":25}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_amount", resp.Error.Kind)
}
