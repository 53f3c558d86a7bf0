package transactions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	holdingErrors "github.com/pkarczewski/foliotrack/internal/holdings/errors"
	"github.com/pkarczewski/foliotrack/internal/holdings/models"
)

// HoldingsInvalidator bumps the per-symbol version counter so the next
// holdings read replays the symbol instead of serving stale derived state.
type HoldingsInvalidator interface {
	Invalidate(symbol string)
}

// BatchResult reports a batch create per symbol: rows of a failed symbol
// never roll back another symbol's inserts.
type BatchResult struct {
	Created []models.Transaction `json:"created"`
	Failed  map[string]string    `json:"failed,omitempty"`
}

type Service interface {
	SetHoldingsInvalidator(invalidator HoldingsInvalidator)
	CreateTransaction(ctx context.Context, transaction *models.Transaction) error
	CreateTransactionsBatch(ctx context.Context, transactions []*models.Transaction) (*BatchResult, error)
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, filter Filter) ([]models.Transaction, error)
	UpdateTransaction(ctx context.Context, transaction *models.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
}

type service struct {
	repo        Repository
	invalidator HoldingsInvalidator
}

func NewTransactionService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) SetHoldingsInvalidator(invalidator HoldingsInvalidator) {
	s.invalidator = invalidator
}

func (s *service) invalidate(symbol string) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(symbol)
	}
}

func (s *service) CreateTransaction(ctx context.Context, transaction *models.Transaction) error {
	now := time.Now().UTC()
	transaction.ID = uuid.NewString()
	transaction.CreatedAt = now
	transaction.UpdatedAt = now
	if transaction.Source == "" {
		transaction.Source = models.SourceManual
	}
	if err := transaction.Validate(); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, transaction); err != nil {
		return err
	}
	s.invalidate(transaction.Symbol)
	return nil
}

// CreateTransactionsBatch validates every row up front and rejects the
// whole call on malformed input, so nothing invalid ever reaches the
// matcher. Valid batches are inserted per symbol in independent database
// transactions.
func (s *service) CreateTransactionsBatch(ctx context.Context, transactions []*models.Transaction) (*BatchResult, error) {
	now := time.Now().UTC()
	var validationErrors = &holdingErrors.ValidationErrors{}
	for i, transaction := range transactions {
		transaction.ID = uuid.NewString()
		transaction.CreatedAt = now
		transaction.UpdatedAt = now
		if transaction.Source == "" {
			transaction.Source = models.SourceImport
		}
		if err := transaction.Validate(); err != nil {
			validationErrors.Add(holdingErrors.NewIndexedValidationError(i+1, err.Error()))
		}
	}
	if len(validationErrors.Errors) > 0 {
		return nil, validationErrors
	}

	bySymbol := make(map[string][]*models.Transaction)
	var symbolOrder []string
	for _, transaction := range transactions {
		if _, seen := bySymbol[transaction.Symbol]; !seen {
			symbolOrder = append(symbolOrder, transaction.Symbol)
		}
		bySymbol[transaction.Symbol] = append(bySymbol[transaction.Symbol], transaction)
	}

	result := &BatchResult{}
	for _, symbol := range symbolOrder {
		if err := s.repo.CreateBatch(ctx, bySymbol[symbol]); err != nil {
			log.Printf("Batch insert failed for symbol %s: %v", symbol, err)
			if result.Failed == nil {
				result.Failed = make(map[string]string)
			}
			result.Failed[symbol] = fmt.Sprintf("inserts for %s failed: %v", symbol, err)
			continue
		}
		for _, transaction := range bySymbol[symbol] {
			result.Created = append(result.Created, *transaction)
		}
		s.invalidate(symbol)
	}
	return result, nil
}

func (s *service) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	transaction, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, holdingErrors.NewNotFoundError("transaction", id)
		}
		return nil, err
	}
	return transaction, nil
}

func (s *service) ListTransactions(ctx context.Context, filter Filter) ([]models.Transaction, error) {
	transactions, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if transactions == nil {
		return []models.Transaction{}, nil
	}
	return transactions, nil
}

func (s *service) UpdateTransaction(ctx context.Context, transaction *models.Transaction) error {
	existing, err := s.repo.GetByID(ctx, transaction.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return holdingErrors.NewNotFoundError("transaction", transaction.ID)
		}
		return err
	}

	transaction.Seq = existing.Seq
	transaction.Source = existing.Source
	transaction.EstimatedCost = existing.EstimatedCost
	transaction.CreatedAt = existing.CreatedAt
	transaction.UpdatedAt = time.Now().UTC()
	if err := transaction.Validate(); err != nil {
		return err
	}

	if err := s.repo.Update(ctx, transaction); err != nil {
		return err
	}

	// An edit that moves the record to another symbol invalidates both
	// ledgers.
	s.invalidate(existing.Symbol)
	if transaction.Symbol != existing.Symbol {
		s.invalidate(transaction.Symbol)
	}
	return nil
}

func (s *service) DeleteTransaction(ctx context.Context, id string) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return holdingErrors.NewNotFoundError("transaction", id)
		}
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return holdingErrors.NewNotFoundError("transaction", id)
		}
		return err
	}
	s.invalidate(existing.Symbol)
	return nil
}
