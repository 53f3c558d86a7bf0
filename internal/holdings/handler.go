package holdings

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	holdingErrors "github.com/pkarczewski/foliotrack/internal/holdings/errors"
	"github.com/pkarczewski/foliotrack/internal/holdings/models"
	"github.com/pkarczewski/foliotrack/internal/holdings/reconcile"
	transactions "github.com/pkarczewski/foliotrack/internal/holdings/transaction"
)

type HoldingsHandler struct {
	holdingsService    Service
	transactionService transactions.Service
	reconcileService   *reconcile.Service
	respondJSON        func(w http.ResponseWriter, status int, payload interface{})
	respondError       func(w http.ResponseWriter, status int, message string, errors ...[]string)
}

func NewHoldingsHandler(
	holdingsService Service,
	transactionService transactions.Service,
	reconcileService *reconcile.Service,
	respondJSON func(w http.ResponseWriter, status int, payload interface{}),
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string),
) *HoldingsHandler {
	if holdingsService == nil || transactionService == nil || reconcileService == nil {
		log.Fatal("Services must not be nil")
		return nil
	}
	if respondJSON == nil || respondError == nil {
		log.Fatal("Responder functions must not be nil")
		return nil
	}
	return &HoldingsHandler{
		holdingsService:    holdingsService,
		transactionService: transactionService,
		reconcileService:   reconcileService,
		respondJSON:        respondJSON,
		respondError:       respondError,
	}
}

type transactionRequest struct {
	Symbol     string                 `json:"symbol"`
	AssetClass models.AssetClass      `json:"asset_class"`
	Kind       models.TransactionKind `json:"kind"`
	Quantity   decimal.Decimal        `json:"quantity"`
	Price      decimal.Decimal        `json:"price"`
	Amount     decimal.Decimal        `json:"amount"`
	Fee        decimal.Decimal        `json:"fee"`
	Tax        decimal.Decimal        `json:"tax"`
	Currency   string                 `json:"currency"`
	Date       string                 `json:"date"`
	Note       string                 `json:"note"`
}

func parseTransactionDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

func (req *transactionRequest) toModel() (*models.Transaction, error) {
	date, err := parseTransactionDate(req.Date)
	if err != nil {
		return nil, holdingErrors.NewValidationError("Invalid date format, expected YYYY-MM-DD or RFC3339")
	}
	return &models.Transaction{
		Symbol:     req.Symbol,
		AssetClass: req.AssetClass,
		Kind:       req.Kind,
		Quantity:   req.Quantity,
		Price:      req.Price,
		Amount:     req.Amount,
		Fee:        req.Fee,
		Tax:        req.Tax,
		Currency:   req.Currency,
		Date:       date,
		Note:       req.Note,
	}, nil
}

func (h *HoldingsHandler) respondServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case holdingErrors.IsValidationErrors(err):
		var validationErrors *holdingErrors.ValidationErrors
		errors.As(err, &validationErrors)
		messages := make([]string, len(validationErrors.Errors))
		for i, vErr := range validationErrors.Errors {
			messages[i] = vErr.Error()
		}
		h.respondError(w, http.StatusBadRequest, "Validation errors occurred", messages)
	case holdingErrors.IsValidationError(err):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case holdingErrors.IsNotFoundError(err):
		h.respondError(w, http.StatusNotFound, err.Error())
	default:
		log.Printf("%s: %v", fallback, err)
		h.respondError(w, http.StatusInternalServerError, fallback)
	}
}

// ListHoldings returns every holding that could be computed plus a
// parallel warnings array for symbols with inconsistent histories. Partial
// success is the normal response shape, never an error.
func (h *HoldingsHandler) ListHoldings(w http.ResponseWriter, r *http.Request) {
	filter := Filter{
		Symbol: r.URL.Query().Get("symbol"),
	}
	if rawClass := r.URL.Query().Get("asset_class"); rawClass != "" {
		class := models.AssetClass(rawClass)
		if !models.IsValidAssetClass(class) {
			h.respondError(w, http.StatusBadRequest, "Invalid asset class")
			return
		}
		filter.AssetClass = class
	}

	holdings, warnings, err := h.holdingsService.ListHoldings(r.Context(), filter)
	if err != nil {
		h.respondServiceError(w, err, "Failed to retrieve holdings")
		return
	}
	if holdings == nil {
		holdings = []models.Holding{}
	}
	if warnings == nil {
		warnings = []models.ReconciliationWarning{}
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "success",
		"message":  "Holdings retrieved successfully.",
		"data":     holdings,
		"warnings": warnings,
	})
}

func (h *HoldingsHandler) GetHolding(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	holding, err := h.holdingsService.GetHolding(r.Context(), symbol)
	if err != nil {
		h.respondServiceError(w, err, "Failed to retrieve holding")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Holding retrieved successfully.",
		"data":    holding,
	})
}

func (h *HoldingsHandler) GetRealizedGains(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	gains, err := h.holdingsService.RealizedGains(r.Context(), symbol)
	if err != nil {
		h.respondServiceError(w, err, "Failed to retrieve realized gains")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Realized gains retrieved successfully.",
		"data":    gains,
	})
}

type reconcileRequest struct {
	ActualQuantity    decimal.Decimal  `json:"actual_quantity"`
	EstimatedUnitCost *decimal.Decimal `json:"estimated_unit_cost,omitempty"`
}

func (h *HoldingsHandler) ReconcileHolding(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")

	var req reconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !req.ActualQuantity.IsPositive() {
		h.respondError(w, http.StatusBadRequest, "Actual quantity must be greater than zero")
		return
	}

	synthetic, err := h.reconcileService.Repair(r.Context(), symbol, req.ActualQuantity, req.EstimatedUnitCost)
	if err != nil {
		h.respondServiceError(w, err, "Failed to reconcile holding")
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"status":  "success",
		"message": "Holding reconciled successfully.",
		"data":    synthetic,
	})
}

func (h *HoldingsHandler) GetAssetClasses(w http.ResponseWriter, _ *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Asset classes retrieved successfully.",
		"data":    models.AssetClasses(),
	})
}

func (h *HoldingsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	filter := transactions.Filter{
		Symbol: r.URL.Query().Get("symbol"),
		Limit:  20,
		Page:   1,
	}

	if rawKind := r.URL.Query().Get("kind"); rawKind != "" {
		kind := models.TransactionKind(rawKind)
		if !models.IsValidTransactionKind(kind) {
			h.respondError(w, http.StatusBadRequest, "Invalid transaction kind")
			return
		}
		filter.Kind = kind
	}

	var err error
	if rawFrom := r.URL.Query().Get("start_date"); rawFrom != "" {
		filter.From, err = time.Parse("2006-01-02", rawFrom)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "Invalid start date format")
			return
		}
	}
	if rawTo := r.URL.Query().Get("end_date"); rawTo != "" {
		filter.To, err = time.Parse("2006-01-02", rawTo)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "Invalid end date format")
			return
		}
	}
	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		filter.Limit, err = strconv.Atoi(rawLimit)
		if err != nil || filter.Limit <= 0 {
			h.respondError(w, http.StatusBadRequest, "Invalid limit value")
			return
		}
	}
	if rawPage := r.URL.Query().Get("page"); rawPage != "" {
		filter.Page, err = strconv.Atoi(rawPage)
		if err != nil || filter.Page <= 0 {
			h.respondError(w, http.StatusBadRequest, "Invalid page value")
			return
		}
	}

	list, err := h.transactionService.ListTransactions(r.Context(), filter)
	if err != nil {
		h.respondServiceError(w, err, "Failed to retrieve transactions")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Transactions retrieved successfully.",
		"data":    list,
	})
}

func (h *HoldingsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	transaction, err := req.toModel()
	if err != nil {
		h.respondServiceError(w, err, "Failed to create transaction")
		return
	}

	if err := h.transactionService.CreateTransaction(r.Context(), transaction); err != nil {
		h.respondServiceError(w, err, "Failed to create transaction")
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"status":  "success",
		"message": "Transaction successfully created.",
		"data":    transaction,
	})
}

func (h *HoldingsHandler) CreateTransactionsBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Transactions []transactionRequest `json:"transactions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Transactions) == 0 {
		h.respondError(w, http.StatusBadRequest, "Invalid request body - no transactions provided")
		return
	}

	batch := make([]*models.Transaction, 0, len(req.Transactions))
	var validationErrors = &holdingErrors.ValidationErrors{}
	for i, row := range req.Transactions {
		transaction, err := row.toModel()
		if err != nil {
			validationErrors.Add(holdingErrors.NewIndexedValidationError(i+1, err.Error()))
			continue
		}
		batch = append(batch, transaction)
	}
	if len(validationErrors.Errors) > 0 {
		h.respondServiceError(w, validationErrors, "Failed to create transactions")
		return
	}

	result, err := h.transactionService.CreateTransactionsBatch(r.Context(), batch)
	if err != nil {
		h.respondServiceError(w, err, "Failed to create transactions")
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"status":  "success",
		"message": "Transactions successfully created.",
		"data":    result,
	})
}

func (h *HoldingsHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("transactionID")

	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	transaction, err := req.toModel()
	if err != nil {
		h.respondServiceError(w, err, "Failed to update transaction")
		return
	}
	transaction.ID = id

	if err := h.transactionService.UpdateTransaction(r.Context(), transaction); err != nil {
		h.respondServiceError(w, err, "Failed to update transaction")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Transaction successfully updated.",
		"data":    transaction,
	})
}

func (h *HoldingsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("transactionID")

	if err := h.transactionService.DeleteTransaction(r.Context(), id); err != nil {
		h.respondServiceError(w, err, "Failed to delete transaction")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Transaction successfully deleted.",
	})
}
