package reconcile

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pkarczewski/foliotrack/internal/holdings/errors"
	"github.com/pkarczewski/foliotrack/internal/holdings/models"
)

// WarningSource reports the current reconciliation state of a symbol: a
// nil warning means the symbol replays cleanly.
type WarningSource interface {
	WarningForSymbol(ctx context.Context, symbol string) (*models.ReconciliationWarning, error)
}

// LedgerService appends the synthetic opening transaction and invalidates
// the symbol's derived state.
type LedgerService interface {
	CreateTransaction(ctx context.Context, transaction *models.Transaction) error
}

// LedgerReader finds the earliest recorded transaction of a symbol, which
// anchors the backdating of the synthetic opening buy.
type LedgerReader interface {
	EarliestForSymbol(ctx context.Context, symbol string) (*models.Transaction, error)
}

// Service repairs a symbol whose recorded sells exceed its recorded buys.
// Per symbol the states are Consistent -> Warned -> Consistent: a repair
// synthesizes an opening buy dated strictly before the earliest existing
// transaction, sized to the missing quantity, and re-replays. It never
// imputes a cost basis: an omitted estimate is recorded as an explicit
// zero and flagged.
type Service struct {
	warnings WarningSource
	ledger   LedgerService
	reader   LedgerReader
}

func NewService(warnings WarningSource, ledger LedgerService, reader LedgerReader) *Service {
	return &Service{warnings: warnings, ledger: ledger, reader: reader}
}

// Repair clears a Warned symbol given the user's actual current quantity
// and an optional estimated unit cost. The synthetic quantity is the gap
// between what the user actually holds and what the ledger could account
// for at the failing sell.
func (s *Service) Repair(ctx context.Context, symbol string, actualQuantity decimal.Decimal, estimatedUnitCost *decimal.Decimal) (*models.Transaction, error) {
	warning, err := s.warnings.WarningForSymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if warning == nil {
		return nil, errors.NewValidationError(fmt.Sprintf("Symbol %s is consistent, there is nothing to repair", symbol))
	}

	missing := actualQuantity.Sub(warning.Available)
	if !missing.IsPositive() {
		return nil, errors.NewValidationError(fmt.Sprintf("Actual quantity %s does not exceed the %s already accounted for", actualQuantity.String(), warning.Available.String()))
	}

	earliest, err := s.reader.EarliestForSymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}

	unitCost := decimal.Zero
	estimated := true
	if estimatedUnitCost != nil {
		if estimatedUnitCost.IsNegative() {
			return nil, errors.NewValidationError("Estimated unit cost must not be negative")
		}
		unitCost = *estimatedUnitCost
		estimated = false
	}

	synthetic := &models.Transaction{
		Symbol:        symbol,
		AssetClass:    earliest.AssetClass,
		Kind:          models.KindBuy,
		Quantity:      missing,
		Price:         unitCost,
		Amount:        unitCost.Mul(missing),
		Fee:           decimal.Zero,
		Tax:           decimal.Zero,
		Currency:      earliest.Currency,
		Date:          earliest.Date.Add(-24 * time.Hour),
		Note:          "Opening balance created by reconciliation",
		Source:        models.SourceReconciliation,
		EstimatedCost: estimated,
	}

	if err := s.ledger.CreateTransaction(ctx, synthetic); err != nil {
		return nil, err
	}

	log.Printf("Reconciled %s: synthetic opening buy of %s @ %s dated %s", symbol, missing.String(), unitCost.String(), synthetic.Date.Format("2006-01-02"))
	return synthetic, nil
}
