package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	database "github.com/pkarczewski/foliotrack/internal/db"
	"github.com/pkarczewski/foliotrack/internal/holdings"
	"github.com/pkarczewski/foliotrack/internal/holdings/marketdata"
	"github.com/pkarczewski/foliotrack/internal/holdings/reconcile"
	transactions "github.com/pkarczewski/foliotrack/internal/holdings/transaction"
	"github.com/pkarczewski/foliotrack/internal/holdings/valuation"
)

type Response struct {
	Message string `json:"message"`
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("Started %s %s", r.Method, r.URL.Path)

		next.ServeHTTP(w, r)

		log.Printf("Completed %s in %v", r.URL.Path, time.Since(start))
	})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string, errs ...[]string) {
	payload := map[string]interface{}{
		"status":  "error",
		"message": message,
		"code":    status,
	}
	if len(errs) > 0 && len(errs[0]) > 0 {
		payload["errors"] = errs[0]
	}
	respondJSON(w, status, payload)
}

type Server struct {
	router          *http.ServeMux
	holdingsHandler *holdings.HoldingsHandler
	dbService       *database.DBService
}

func NewServer(holdingsHandler *holdings.HoldingsHandler, dbService *database.DBService) *Server {
	return &Server{
		holdingsHandler: holdingsHandler,
		dbService:       dbService,
		router:          http.NewServeMux(),
	}
}

func notFoundHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(Response{Message: "Path not found"})
}

func checkConfiguration() error {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, continuing with system environment variables")
	}

	if os.Getenv("DB_CONNECTION_STRING") == "" {
		return errors.New("no DB_CONNECTION_STRING provided")
	}
	if os.Getenv("MARKET_DATA_API_KEY") == "" {
		return errors.New("no MARKET_DATA_API_KEY provided")
	}
	return nil
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	health := s.dbService.Health()
	status := http.StatusOK
	if health["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, map[string]interface{}{
		"status": "ready",
		"db":     health,
	})
}

func (s *Server) RegisterRoutes() {
	apiRoutes := http.NewServeMux()
	apiRoutes.Handle("GET /api/ready", http.HandlerFunc(s.handleReady))

	// HOLDINGS API
	apiRoutes.Handle("GET /api/holdings", http.HandlerFunc(s.holdingsHandler.ListHoldings))

	apiRoutes.Handle("GET /api/holdings/{symbol}",
		s.holdingsHandler.ValidateHoldingsPathParamsMiddleware(http.HandlerFunc(s.holdingsHandler.GetHolding), "symbol"))

	apiRoutes.Handle("GET /api/holdings/{symbol}/gains",
		s.holdingsHandler.ValidateHoldingsPathParamsMiddleware(http.HandlerFunc(s.holdingsHandler.GetRealizedGains), "symbol"))

	apiRoutes.Handle("POST /api/holdings/{symbol}/reconcile",
		s.holdingsHandler.ValidateHoldingsPathParamsMiddleware(http.HandlerFunc(s.holdingsHandler.ReconcileHolding), "symbol"))

	apiRoutes.Handle("GET /api/asset_classes", http.HandlerFunc(s.holdingsHandler.GetAssetClasses))

	// TRANSACTION API
	apiRoutes.Handle("GET /api/transactions", http.HandlerFunc(s.holdingsHandler.ListTransactions))
	apiRoutes.Handle("POST /api/transactions", http.HandlerFunc(s.holdingsHandler.CreateTransaction))
	apiRoutes.Handle("POST /api/transactions/batch", http.HandlerFunc(s.holdingsHandler.CreateTransactionsBatch))

	apiRoutes.Handle("PUT /api/transactions/{transactionID}",
		s.holdingsHandler.ValidateHoldingsPathParamsMiddleware(http.HandlerFunc(s.holdingsHandler.UpdateTransaction), "transactionID"))

	apiRoutes.Handle("DELETE /api/transactions/{transactionID}",
		s.holdingsHandler.ValidateHoldingsPathParamsMiddleware(http.HandlerFunc(s.holdingsHandler.DeleteTransaction), "transactionID"))

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/api/", apiRoutes)
	mainRouter.Handle("/", http.HandlerFunc(notFoundHandler))

	s.router = mainRouter
}

func main() {
	if err := checkConfiguration(); err != nil {
		log.Fatalf("Missing configuration, update to start server: %v", err)
	}

	dbService, err := database.NewDBService(os.Getenv("DB_CONNECTION_STRING"))
	if err != nil {
		log.Fatalf("Could not initialize database: %v", err)
	}
	defer dbService.Close()

	apiKey := os.Getenv("MARKET_DATA_API_KEY")
	marketDataClient := marketdata.NewFMPClient(apiKey)

	reportingCurrency := os.Getenv("REPORTING_CURRENCY")
	if reportingCurrency == "" {
		reportingCurrency = "TWD"
	}

	transactionRepo := transactions.NewTransactionRepository(dbService.DB)
	transactionService := transactions.NewTransactionService(transactionRepo)

	valuationService := valuation.NewService(marketDataClient, marketDataClient, reportingCurrency)
	holdingsService := holdings.NewHoldingsService(transactionRepo, valuationService)

	transactionService.SetHoldingsInvalidator(holdingsService)

	reconcileService := reconcile.NewService(holdingsService, transactionService, transactionRepo)

	holdingsHandler := holdings.NewHoldingsHandler(holdingsService, transactionService, reconcileService, respondJSON, respondError)
	server := NewServer(holdingsHandler, dbService)
	server.RegisterRoutes()

	if err := StartQuoteWarmupScheduler(holdingsService); err != nil {
		log.Fatalf("Scheduler didn't start, stopping the app ...")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	handler := loggingMiddleware(http.HandlerFunc(server.router.ServeHTTP))
	log.Printf("Server starting on port %s...", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

func StartQuoteWarmupScheduler(holdingsService holdings.Service) error {
	c := cron.New()
	// Schedule the job to run every 5 minutes so valuation reads stay on
	// a warm quote cache.
	_, err := c.AddFunc("@every 5m", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		holdingsService.WarmQuotes(ctx)
		log.Println("Quote cache warmed successfully.")
	})
	if err != nil {
		return err
	}
	c.Start()
	return nil
}
