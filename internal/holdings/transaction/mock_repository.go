package transactions

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"

	"github.com/pkarczewski/foliotrack/internal/holdings/models"
)

// MockRepository is an in-memory Repository used by service and handler
// tests. FailSymbols lets a test force per-symbol batch insert failures.
type MockRepository struct {
	mu           sync.Mutex
	seq          int64
	Transactions []models.Transaction
	FailSymbols  map[string]bool

	// ListBySymbolCalls counts ledger reads, letting cache tests assert
	// that unchanged symbols are not replayed.
	ListBySymbolCalls int

	// FailListBySymbol, when set, makes every ledger read fail with it.
	FailListBySymbol error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{}
}

func (m *MockRepository) Create(ctx context.Context, transaction *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	transaction.Seq = m.seq
	m.Transactions = append(m.Transactions, *transaction)
	return nil
}

func (m *MockRepository) CreateBatch(ctx context.Context, transactions []*models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, transaction := range transactions {
		if m.FailSymbols[transaction.Symbol] {
			return errors.New("forced batch failure")
		}
	}
	for _, transaction := range transactions {
		m.seq++
		transaction.Seq = m.seq
		m.Transactions = append(m.Transactions, *transaction)
	}
	return nil
}

func (m *MockRepository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Transactions {
		if m.Transactions[i].ID == id {
			transaction := m.Transactions[i]
			return &transaction, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *MockRepository) Update(ctx context.Context, transaction *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Transactions {
		if m.Transactions[i].ID == transaction.ID {
			m.Transactions[i] = *transaction
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *MockRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Transactions {
		if m.Transactions[i].ID == id {
			m.Transactions = append(m.Transactions[:i], m.Transactions[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *MockRepository) List(ctx context.Context, filter Filter) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var filtered []models.Transaction
	for _, transaction := range m.Transactions {
		if filter.Symbol != "" && transaction.Symbol != filter.Symbol {
			continue
		}
		if filter.Kind != "" && transaction.Kind != filter.Kind {
			continue
		}
		if !filter.From.IsZero() && transaction.Date.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && transaction.Date.After(filter.To) {
			continue
		}
		filtered = append(filtered, transaction)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		if !filtered[i].Date.Equal(filtered[j].Date) {
			return filtered[i].Date.After(filtered[j].Date)
		}
		return filtered[i].Seq > filtered[j].Seq
	})
	return filtered, nil
}

func (m *MockRepository) ListBySymbol(ctx context.Context, symbol string) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListBySymbolCalls++
	if m.FailListBySymbol != nil {
		return nil, m.FailListBySymbol
	}
	var filtered []models.Transaction
	for _, transaction := range m.Transactions {
		if transaction.Symbol == symbol {
			filtered = append(filtered, transaction)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		if !filtered[i].Date.Equal(filtered[j].Date) {
			return filtered[i].Date.Before(filtered[j].Date)
		}
		return filtered[i].Seq < filtered[j].Seq
	})
	return filtered, nil
}

func (m *MockRepository) EarliestForSymbol(ctx context.Context, symbol string) (*models.Transaction, error) {
	transactions, err := m.ListBySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if len(transactions) == 0 {
		return nil, sql.ErrNoRows
	}
	earliest := transactions[0]
	return &earliest, nil
}

func (m *MockRepository) ListSymbols(ctx context.Context) ([]SymbolInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	var symbols []SymbolInfo
	for _, transaction := range m.Transactions {
		if seen[transaction.Symbol] {
			continue
		}
		seen[transaction.Symbol] = true
		symbols = append(symbols, SymbolInfo{Symbol: transaction.Symbol, AssetClass: transaction.AssetClass})
	}
	sort.Slice(symbols, func(i, j int) bool { return symbols[i].Symbol < symbols[j].Symbol })
	return symbols, nil
}
