package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/pkarczewski/foliotrack/internal/holdings/errors"
)

func validTransaction() Transaction {
	return Transaction{
		Symbol:     "2330",
		AssetClass: AssetEquityTW,
		Kind:       KindBuy,
		Quantity:   decimal.RequireFromString("100"),
		Price:      decimal.RequireFromString("580"),
		Amount:     decimal.RequireFromString("58000"),
		Currency:   "TWD",
		Date:       time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestValidateAcceptsWellFormedTransaction(t *testing.T) {
	transaction := validTransaction()
	assert.NoError(t, transaction.Validate())
}

func TestValidateRejectsMalformedTransactions(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Transaction)
	}{
		{"missing symbol", func(tx *Transaction) { tx.Symbol = "" }},
		{"unknown asset class", func(tx *Transaction) { tx.AssetClass = "bond" }},
		{"unknown kind", func(tx *Transaction) { tx.Kind = "transfer" }},
		{"negative quantity", func(tx *Transaction) { tx.Quantity = decimal.RequireFromString("-1") }},
		{"negative price", func(tx *Transaction) { tx.Price = decimal.RequireFromString("-0.01") }},
		{"negative fee", func(tx *Transaction) { tx.Fee = decimal.RequireFromString("-5") }},
		{"zero quantity buy", func(tx *Transaction) { tx.Quantity = decimal.Zero }},
		{"missing currency", func(tx *Transaction) { tx.Currency = "" }},
		{"missing date", func(tx *Transaction) { tx.Date = time.Time{} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			transaction := validTransaction()
			tc.mutate(&transaction)
			err := transaction.Validate()
			assert.Error(t, err)
			assert.True(t, errors.IsValidationError(err))
		})
	}
}

func TestValidateAllowsZeroQuantityDividend(t *testing.T) {
	transaction := validTransaction()
	transaction.Kind = KindDividend
	transaction.Quantity = decimal.Zero
	transaction.Amount = decimal.RequireFromString("1200")
	assert.NoError(t, transaction.Validate())
}

func TestAssetClassCostPrecision(t *testing.T) {
	assert.Equal(t, int32(4), AssetEquityTW.CostPrecision())
	assert.Equal(t, int32(4), AssetEquityUS.CostPrecision())
	assert.Equal(t, int32(8), AssetCrypto.CostPrecision())
	assert.Equal(t, int32(2), AssetCash.CostPrecision())
}

func TestAssetClassesEnumeration(t *testing.T) {
	classes := AssetClasses()
	assert.Len(t, classes, 4)
	for _, class := range classes {
		assert.True(t, IsValidAssetClass(class))
	}
	assert.False(t, IsValidAssetClass("real_estate"))
}
