package holdings

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkarczewski/foliotrack/internal/holdings/models"
	"github.com/pkarczewski/foliotrack/internal/holdings/reconcile"
)

func newHandlerFixture(t *testing.T) (*fixture, *HoldingsHandler) {
	t.Helper()
	f := newFixture(t)
	reconcileService := reconcile.NewService(f.holdingsService, f.transactionService, f.repo)
	handler := NewHoldingsHandler(f.holdingsService, f.transactionService, reconcileService, respondJSON, respondError)
	return f, handler
}

func decodeBody(t *testing.T, res *http.Response) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	return body
}

func TestListHoldingsEnvelope(t *testing.T) {
	f, handler := newHandlerFixture(t)
	f.record(t, models.KindBuy, "2330", "100", "580", 1)

	req := httptest.NewRequest(http.MethodGet, "/api/holdings", nil)
	w := httptest.NewRecorder()
	handler.ListHoldings(w, req)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
	body := decodeBody(t, res)
	assert.Equal(t, "success", body["status"])
	data, ok := body["data"].([]interface{})
	require.True(t, ok)
	assert.Len(t, data, 1)
	warnings, ok := body["warnings"].([]interface{})
	require.True(t, ok)
	assert.Empty(t, warnings)
}

func TestListHoldingsEmptyPortfolioIsNotNull(t *testing.T) {
	_, handler := newHandlerFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/holdings", nil)
	w := httptest.NewRecorder()
	handler.ListHoldings(w, req)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
	body := decodeBody(t, res)
	_, ok := body["data"].([]interface{})
	assert.True(t, ok)
	_, ok = body["warnings"].([]interface{})
	assert.True(t, ok)
}

func TestListHoldingsRejectsUnknownAssetClass(t *testing.T) {
	_, handler := newHandlerFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/holdings?asset_class=bonds", nil)
	w := httptest.NewRecorder()
	handler.ListHoldings(w, req)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	body := decodeBody(t, res)
	assert.Equal(t, "Invalid asset class", body["message"])
}

func TestListHoldingsWithWarning(t *testing.T) {
	f, handler := newHandlerFixture(t)
	f.record(t, models.KindBuy, "2330", "100", "580", 1)
	f.record(t, models.KindSell, "2330", "150", "650", 2)

	req := httptest.NewRequest(http.MethodGet, "/api/holdings", nil)
	w := httptest.NewRecorder()
	handler.ListHoldings(w, req)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
	body := decodeBody(t, res)
	warnings, ok := body["warnings"].([]interface{})
	require.True(t, ok)
	require.Len(t, warnings, 1)
	warning := warnings[0].(map[string]interface{})
	assert.Equal(t, "2330", warning["symbol"])
	assert.Equal(t, "150", warning["required"])
	assert.Equal(t, "100", warning["available"])
	assert.Equal(t, "50", warning["missing"])
}

func TestGetHoldingNotFound(t *testing.T) {
	_, handler := newHandlerFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/holdings/0050", nil)
	req.SetPathValue("symbol", "0050")
	w := httptest.NewRecorder()
	handler.GetHolding(w, req)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestCreateTransactionReturnsCreated(t *testing.T) {
	_, handler := newHandlerFixture(t)

	payload := `{"symbol":"2330","asset_class":"equity_tw","kind":"buy","quantity":"100","price":"580","currency":"TWD","date":"2024-03-01"}`
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(payload))
	w := httptest.NewRecorder()
	handler.CreateTransaction(w, req)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusCreated, res.StatusCode)
	body := decodeBody(t, res)
	data := body["data"].(map[string]interface{})
	assert.NotEmpty(t, data["id"])
	assert.Equal(t, "manual", data["source"])
}

func TestCreateTransactionRejectsBadDate(t *testing.T) {
	_, handler := newHandlerFixture(t)

	payload := `{"symbol":"2330","asset_class":"equity_tw","kind":"buy","quantity":"100","price":"580","currency":"TWD","date":"01/03/2024"}`
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(payload))
	w := httptest.NewRecorder()
	handler.CreateTransaction(w, req)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestCreateTransactionRejectsInvalidKind(t *testing.T) {
	_, handler := newHandlerFixture(t)

	payload := `{"symbol":"2330","asset_class":"equity_tw","kind":"transfer","quantity":"100","price":"580","currency":"TWD","date":"2024-03-01"}`
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(payload))
	w := httptest.NewRecorder()
	handler.CreateTransaction(w, req)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	body := decodeBody(t, res)
	assert.Equal(t, "Invalid transaction kind", body["message"])
}

func TestBatchReportsIndexedValidationErrors(t *testing.T) {
	_, handler := newHandlerFixture(t)

	payload := `{"transactions":[
		{"symbol":"2330","asset_class":"equity_tw","kind":"buy","quantity":"100","price":"580","currency":"TWD","date":"2024-03-01"},
		{"symbol":"2330","asset_class":"equity_tw","kind":"buy","quantity":"-5","price":"580","currency":"TWD","date":"2024-03-01"}
	]}`
	req := httptest.NewRequest(http.MethodPost, "/api/transactions/batch", strings.NewReader(payload))
	w := httptest.NewRecorder()
	handler.CreateTransactionsBatch(w, req)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	body := decodeBody(t, res)
	assert.Equal(t, "Validation errors occurred", body["message"])
	errs, ok := body["errors"].([]interface{})
	require.True(t, ok)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].(string), "transaction 2")
}

func TestBatchPartialFailureStillSucceeds(t *testing.T) {
	f, handler := newHandlerFixture(t)
	f.repo.FailSymbols = map[string]bool{"AAPL": true}

	payload := `{"transactions":[
		{"symbol":"2330","asset_class":"equity_tw","kind":"buy","quantity":"100","price":"580","currency":"TWD","date":"2024-03-01"},
		{"symbol":"AAPL","asset_class":"equity_us","kind":"buy","quantity":"10","price":"150","currency":"USD","date":"2024-03-01"}
	]}`
	req := httptest.NewRequest(http.MethodPost, "/api/transactions/batch", strings.NewReader(payload))
	w := httptest.NewRecorder()
	handler.CreateTransactionsBatch(w, req)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusCreated, res.StatusCode)
	body := decodeBody(t, res)
	data := body["data"].(map[string]interface{})
	created := data["created"].([]interface{})
	assert.Len(t, created, 1)
	failed := data["failed"].(map[string]interface{})
	assert.Contains(t, failed, "AAPL")
}

func TestBatchRejectsEmptyList(t *testing.T) {
	_, handler := newHandlerFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/transactions/batch", strings.NewReader(`{"transactions":[]}`))
	w := httptest.NewRecorder()
	handler.CreateTransactionsBatch(w, req)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestReconcileHoldingCreatesSyntheticBuy(t *testing.T) {
	f, handler := newHandlerFixture(t)
	f.record(t, models.KindBuy, "2330", "100", "580", 10)
	f.record(t, models.KindSell, "2330", "150", "650", 11)

	payload := `{"actual_quantity":"150","estimated_unit_cost":"500"}`
	req := httptest.NewRequest(http.MethodPost, "/api/holdings/2330/reconcile", strings.NewReader(payload))
	req.SetPathValue("symbol", "2330")
	w := httptest.NewRecorder()
	handler.ReconcileHolding(w, req)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusCreated, res.StatusCode)
	body := decodeBody(t, res)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "reconciliation", data["source"])
	assert.Equal(t, "50", data["quantity"])
	assert.Equal(t, "500", data["price"])
}

func TestReconcileConsistentSymbolIsRejected(t *testing.T) {
	f, handler := newHandlerFixture(t)
	f.record(t, models.KindBuy, "2330", "100", "580", 10)

	req := httptest.NewRequest(http.MethodPost, "/api/holdings/2330/reconcile", strings.NewReader(`{"actual_quantity":"150"}`))
	req.SetPathValue("symbol", "2330")
	w := httptest.NewRecorder()
	handler.ReconcileHolding(w, req)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestGetAssetClasses(t *testing.T) {
	_, handler := newHandlerFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/asset_classes", nil)
	w := httptest.NewRecorder()
	handler.GetAssetClasses(w, req)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
	body := decodeBody(t, res)
	data := body["data"].([]interface{})
	assert.ElementsMatch(t, []interface{}{"equity_tw", "equity_us", "crypto", "cash"}, data)
}

func TestListTransactionsRejectsBadPaging(t *testing.T) {
	_, handler := newHandlerFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/transactions?limit=0", nil)
	w := httptest.NewRecorder()
	handler.ListTransactions(w, req)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	body := decodeBody(t, res)
	assert.Equal(t, "Invalid limit value", body["message"])
}

func TestUpdateTransactionUnknownIDIsNotFound(t *testing.T) {
	_, handler := newHandlerFixture(t)

	payload := `{"symbol":"2330","asset_class":"equity_tw","kind":"buy","quantity":"100","price":"580","currency":"TWD","date":"2024-03-01"}`
	req := httptest.NewRequest(http.MethodPut, "/api/transactions/11111111-1111-1111-1111-111111111111", strings.NewReader(payload))
	req.SetPathValue("transactionID", "11111111-1111-1111-1111-111111111111")
	w := httptest.NewRecorder()
	handler.UpdateTransaction(w, req)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestDeleteTransaction(t *testing.T) {
	f, handler := newHandlerFixture(t)
	f.record(t, models.KindBuy, "2330", "100", "580", 1)
	id := f.repo.Transactions[0].ID

	req := httptest.NewRequest(http.MethodDelete, "/api/transactions/"+id, nil)
	req.SetPathValue("transactionID", id)
	w := httptest.NewRecorder()
	handler.DeleteTransaction(w, req)

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Empty(t, f.repo.Transactions)
}
