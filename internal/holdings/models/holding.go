package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lot is derived state: a buy transaction that still has unsold quantity.
// Identity is (Symbol, OpenTransactionID). Remaining only ever shrinks and
// the lot is discarded once it reaches exactly zero.
type Lot struct {
	Symbol            string          `json:"symbol"`
	OpenTransactionID string          `json:"open_transaction_id"`
	OpenDate          time.Time       `json:"open_date"`
	OriginalQuantity  decimal.Decimal `json:"original_quantity"`
	Remaining         decimal.Decimal `json:"remaining"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	Currency          string          `json:"currency"`
}

// RealizedGain is the append-only output of matching one sell slice
// against one lot.
type RealizedGain struct {
	SellTransactionID string          `json:"sell_transaction_id"`
	LotTransactionID  string          `json:"lot_transaction_id"`
	Symbol            string          `json:"symbol"`
	Quantity          decimal.Decimal `json:"quantity"`
	CostBasis         decimal.Decimal `json:"cost_basis"`
	Proceeds          decimal.Decimal `json:"proceeds"`
	Gain              decimal.Decimal `json:"gain"`
	Currency          string          `json:"currency"`
	RealizedAt        time.Time       `json:"realized_at"`
}

// Holding is the per-symbol fold of all remaining lots. Valuation fields
// are pointers: nil means the price or FX rate was unavailable, which is
// not the same thing as a zero-value asset.
type Holding struct {
	Symbol              string           `json:"symbol"`
	AssetClass          AssetClass       `json:"asset_class"`
	Quantity            decimal.Decimal  `json:"quantity"`
	AverageCost         decimal.Decimal  `json:"average_cost"`
	CostBasis           decimal.Decimal  `json:"cost_basis"`
	Currency            string           `json:"currency"`
	CurrentPrice        *decimal.Decimal `json:"current_price,omitempty"`
	MarketValue         *decimal.Decimal `json:"market_value,omitempty"`
	ReportingCurrency   string           `json:"reporting_currency,omitempty"`
	MarketValueReported *decimal.Decimal `json:"market_value_reporting,omitempty"`
	UnrealizedGain      *decimal.Decimal `json:"unrealized_gain,omitempty"`
	UnrealizedGainPct   *decimal.Decimal `json:"unrealized_gain_pct,omitempty"`
	Lots                []Lot            `json:"lots,omitempty"`
}

// ReconciliationWarning flags a symbol whose recorded sells exceed its
// recorded buys. Missing is always Required - Available and positive.
type ReconciliationWarning struct {
	Symbol    string          `json:"symbol"`
	Message   string          `json:"message"`
	Required  decimal.Decimal `json:"required"`
	Available decimal.Decimal `json:"available"`
	Missing   decimal.Decimal `json:"missing"`
}
