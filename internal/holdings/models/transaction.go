package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pkarczewski/foliotrack/internal/holdings/errors"
)

type TransactionKind string

const (
	KindBuy      TransactionKind = "buy"
	KindSell     TransactionKind = "sell"
	KindDividend TransactionKind = "dividend"
	KindFee      TransactionKind = "fee"
)

func IsValidTransactionKind(kind TransactionKind) bool {
	switch kind {
	case KindBuy, KindSell, KindDividend, KindFee:
		return true
	}
	return false
}

type AssetClass string

const (
	AssetEquityTW AssetClass = "equity_tw"
	AssetEquityUS AssetClass = "equity_us"
	AssetCrypto   AssetClass = "crypto"
	AssetCash     AssetClass = "cash"
)

func AssetClasses() []AssetClass {
	return []AssetClass{AssetEquityTW, AssetEquityUS, AssetCrypto, AssetCash}
}

func IsValidAssetClass(class AssetClass) bool {
	switch class {
	case AssetEquityTW, AssetEquityUS, AssetCrypto, AssetCash:
		return true
	}
	return false
}

// CostPrecision is the number of decimal places a unit cost is carried at
// for the asset class, i.e. the smallest cost increment of its minimum
// tradable unit.
func (c AssetClass) CostPrecision() int32 {
	switch c {
	case AssetEquityTW, AssetEquityUS:
		return 4
	case AssetCrypto:
		return 8
	case AssetCash:
		return 2
	}
	return 2
}

type TransactionSource string

const (
	SourceManual         TransactionSource = "manual"
	SourceImport         TransactionSource = "import"
	SourceReconciliation TransactionSource = "reconciliation"
)

// Transaction is a single immutable-until-edited ledger record. Seq is the
// creation sequence assigned by the database and breaks ordering ties
// between transactions sharing a timestamp.
type Transaction struct {
	ID            string            `json:"id"`
	Seq           int64             `json:"seq"`
	Symbol        string            `json:"symbol"`
	AssetClass    AssetClass        `json:"asset_class"`
	Kind          TransactionKind   `json:"kind"`
	Quantity      decimal.Decimal   `json:"quantity"`
	Price         decimal.Decimal   `json:"price"`
	Amount        decimal.Decimal   `json:"amount"`
	Fee           decimal.Decimal   `json:"fee"`
	Tax           decimal.Decimal   `json:"tax"`
	Currency      string            `json:"currency"`
	Date          time.Time         `json:"date"`
	Note          string            `json:"note,omitempty"`
	Source        TransactionSource `json:"source"`
	EstimatedCost bool              `json:"estimated_cost,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func (t *Transaction) Validate() error {
	if t.Symbol == "" {
		return errors.NewValidationError("Symbol is required")
	}
	if !IsValidAssetClass(t.AssetClass) {
		return errors.ErrInvalidAssetClass
	}
	if !IsValidTransactionKind(t.Kind) {
		return errors.ErrInvalidTransactionKind
	}
	if t.Quantity.IsNegative() {
		return errors.NewValidationError("Quantity must not be negative")
	}
	if t.Price.IsNegative() {
		return errors.NewValidationError("Price must not be negative")
	}
	if t.Fee.IsNegative() || t.Tax.IsNegative() {
		return errors.NewValidationError("Fee and tax must not be negative")
	}
	if (t.Kind == KindBuy || t.Kind == KindSell) && t.Quantity.IsZero() {
		return errors.NewValidationError("Quantity must be greater than zero for buy and sell transactions")
	}
	if t.Currency == "" {
		return errors.NewValidationError("Currency is required")
	}
	if t.Date.IsZero() {
		return errors.NewValidationError("Date is required")
	}
	if len(t.Note) > 200 {
		return errors.NewValidationError("Note must be of length less than 200")
	}
	return nil
}
