package transactions

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/pkarczewski/foliotrack/internal/holdings/models"
)

// SymbolInfo is one distinct symbol present in the ledger.
type SymbolInfo struct {
	Symbol     string            `json:"symbol"`
	AssetClass models.AssetClass `json:"asset_class"`
}

type Filter struct {
	Symbol string
	Kind   models.TransactionKind
	From   time.Time
	To     time.Time
	Limit  int
	Page   int
}

type Repository interface {
	Create(ctx context.Context, transaction *models.Transaction) error
	CreateBatch(ctx context.Context, transactions []*models.Transaction) error
	GetByID(ctx context.Context, id string) (*models.Transaction, error)
	Update(ctx context.Context, transaction *models.Transaction) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter Filter) ([]models.Transaction, error)
	ListBySymbol(ctx context.Context, symbol string) ([]models.Transaction, error)
	EarliestForSymbol(ctx context.Context, symbol string) (*models.Transaction, error)
	ListSymbols(ctx context.Context) ([]SymbolInfo, error)
}

type transactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) Repository {
	return &transactionRepository{db: db}
}

const transactionColumns = `id, seq, symbol, asset_class, kind, quantity, price, amount, fee, tax, currency, transaction_date, note, source, estimated_cost, created_at, updated_at`

func scanTransaction(row interface{ Scan(...any) error }, t *models.Transaction) error {
	var note sql.NullString
	err := row.Scan(&t.ID, &t.Seq, &t.Symbol, &t.AssetClass, &t.Kind, &t.Quantity, &t.Price,
		&t.Amount, &t.Fee, &t.Tax, &t.Currency, &t.Date, &note, &t.Source, &t.EstimatedCost,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return err
	}
	t.Note = note.String
	return nil
}

func (r *transactionRepository) Create(ctx context.Context, transaction *models.Transaction) error {
	query := `
        INSERT INTO transactions (id, symbol, asset_class, kind, quantity, price, amount, fee, tax, currency, transaction_date, note, source, estimated_cost, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
        RETURNING seq
    `
	return r.db.QueryRowContext(ctx, query, transaction.ID, transaction.Symbol, transaction.AssetClass,
		transaction.Kind, transaction.Quantity, transaction.Price, transaction.Amount, transaction.Fee,
		transaction.Tax, transaction.Currency, transaction.Date, transaction.Note, transaction.Source,
		transaction.EstimatedCost, transaction.CreatedAt, transaction.UpdatedAt).Scan(&transaction.Seq)
}

// CreateBatch inserts all rows inside one database transaction. Callers
// group rows per symbol, so a failed symbol never rolls back another one.
func (r *transactionRepository) CreateBatch(ctx context.Context, transactions []*models.Transaction) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			safeRollback(tx)
			panic(p)
		} else if err != nil {
			safeRollback(tx)
		} else {
			err = tx.Commit()
		}
	}()

	query := `
        INSERT INTO transactions (id, symbol, asset_class, kind, quantity, price, amount, fee, tax, currency, transaction_date, note, source, estimated_cost, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
        RETURNING seq
    `
	for _, transaction := range transactions {
		if err = tx.QueryRowContext(ctx, query, transaction.ID, transaction.Symbol, transaction.AssetClass,
			transaction.Kind, transaction.Quantity, transaction.Price, transaction.Amount, transaction.Fee,
			transaction.Tax, transaction.Currency, transaction.Date, transaction.Note, transaction.Source,
			transaction.EstimatedCost, transaction.CreatedAt, transaction.UpdatedAt).Scan(&transaction.Seq); err != nil {
			return err
		}
	}
	return nil
}

func safeRollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil {
		log.Printf("Error during transaction rollback: %v", err)
	}
}

func (r *transactionRepository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE id = $1`, transactionColumns)
	var t models.Transaction
	if err := scanTransaction(r.db.QueryRowContext(ctx, query, id), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *transactionRepository) Update(ctx context.Context, transaction *models.Transaction) error {
	query := `
        UPDATE transactions
        SET symbol = $2, asset_class = $3, kind = $4, quantity = $5, price = $6, amount = $7,
            fee = $8, tax = $9, currency = $10, transaction_date = $11, note = $12, updated_at = $13
        WHERE id = $1
    `
	result, err := r.db.ExecContext(ctx, query, transaction.ID, transaction.Symbol, transaction.AssetClass,
		transaction.Kind, transaction.Quantity, transaction.Price, transaction.Amount, transaction.Fee,
		transaction.Tax, transaction.Currency, transaction.Date, transaction.Note, transaction.UpdatedAt)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *transactionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *transactionRepository) List(ctx context.Context, filter Filter) ([]models.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE 1=1`, transactionColumns)
	args := []any{}

	if filter.Symbol != "" {
		args = append(args, filter.Symbol)
		query += fmt.Sprintf(" AND symbol = $%d", len(args))
	}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		query += fmt.Sprintf(" AND kind = $%d", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += fmt.Sprintf(" AND transaction_date >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += fmt.Sprintf(" AND transaction_date <= $%d", len(args))
	}

	query += " ORDER BY transaction_date DESC, seq DESC"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		if filter.Page > 1 {
			args = append(args, (filter.Page-1)*filter.Limit)
			query += fmt.Sprintf(" OFFSET $%d", len(args))
		}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func (r *transactionRepository) ListBySymbol(ctx context.Context, symbol string) ([]models.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE symbol = $1 ORDER BY transaction_date ASC, seq ASC`, transactionColumns)
	rows, err := r.db.QueryContext(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func (r *transactionRepository) EarliestForSymbol(ctx context.Context, symbol string) (*models.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE symbol = $1 ORDER BY transaction_date ASC, seq ASC LIMIT 1`, transactionColumns)
	var t models.Transaction
	if err := scanTransaction(r.db.QueryRowContext(ctx, query, symbol), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *transactionRepository) ListSymbols(ctx context.Context) ([]SymbolInfo, error) {
	query := `SELECT DISTINCT symbol, asset_class FROM transactions ORDER BY symbol`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []SymbolInfo
	for rows.Next() {
		var info SymbolInfo
		if err := rows.Scan(&info.Symbol, &info.AssetClass); err != nil {
			return nil, err
		}
		symbols = append(symbols, info)
	}
	return symbols, rows.Err()
}

func collectTransactions(rows *sql.Rows) ([]models.Transaction, error) {
	var transactions []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := scanTransaction(rows, &t); err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}
