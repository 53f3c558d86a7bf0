package engine

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	holdingErrors "github.com/pkarczewski/foliotrack/internal/holdings/errors"
	"github.com/pkarczewski/foliotrack/internal/holdings/models"
)

// ReplayResult is the full derived state of one symbol after a
// chronological FIFO replay of its ledger.
type ReplayResult struct {
	Symbol string
	Lots   []models.Lot
	Gains  []models.RealizedGain
	// Warning is non-nil when a sell exceeded the open lots. Replay stops
	// at the failing sell, so Lots and Gains reflect the state just before
	// it.
	Warning *models.ReconciliationWarning

	DividendIncome decimal.Decimal
	FeesPaid       decimal.Decimal
}

// Replay folds a symbol's transactions through the lot ledger in
// (date, creation-sequence) order. Buys open lots, sells drain the oldest
// lots first, dividends and fees are recorded for reporting only. Each lot
// is visited at most twice, once opened and once drained to zero.
func Replay(symbol string, transactions []models.Transaction) ReplayResult {
	ordered := make([]models.Transaction, len(transactions))
	copy(ordered, transactions)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].Date.Equal(ordered[j].Date) {
			return ordered[i].Date.Before(ordered[j].Date)
		}
		return ordered[i].Seq < ordered[j].Seq
	})

	ledger := NewLotLedger()
	result := ReplayResult{
		Symbol:         symbol,
		DividendIncome: decimal.Zero,
		FeesPaid:       decimal.Zero,
	}

	for i := range ordered {
		tx := &ordered[i]
		switch tx.Kind {
		case models.KindBuy:
			ledger.Open(openLot(tx))

		case models.KindSell:
			slices, err := drainSell(ledger, tx)
			if err != nil {
				result.Warning = shortfallWarning(err, tx.Date)
				result.Lots = ledger.Remaining()
				return result
			}
			for _, slice := range slices {
				result.Gains = append(result.Gains, realize(tx, slice))
			}

		case models.KindDividend:
			result.DividendIncome = result.DividendIncome.Add(tx.Amount)

		case models.KindFee:
			result.FeesPaid = result.FeesPaid.Add(tx.Amount)
		}
	}

	result.Lots = ledger.Remaining()
	return result
}

// drainSell consumes the sell's quantity oldest lot first. It refuses to
// overdraw: when the open lots cannot cover the sell it reports an
// InsufficientLotError and leaves the ledger untouched.
func drainSell(ledger *LotLedger, sell *models.Transaction) ([]Slice, error) {
	available := ledger.TotalRemaining()
	if available.LessThan(sell.Quantity) {
		return nil, &holdingErrors.InsufficientLotError{
			Symbol:    sell.Symbol,
			Required:  sell.Quantity,
			Available: available,
		}
	}
	slices, _ := ledger.Drain(sell.Quantity)
	return slices, nil
}

// shortfallWarning converts the matcher's InsufficientLotError into the
// warning value the read API surfaces.
func shortfallWarning(err error, failedAt time.Time) *models.ReconciliationWarning {
	if !holdingErrors.IsInsufficientLotError(err) {
		return nil
	}
	var shortfall *holdingErrors.InsufficientLotError
	errors.As(err, &shortfall)
	return &models.ReconciliationWarning{
		Symbol:    shortfall.Symbol,
		Message:   fmt.Sprintf("Recorded sells exceed recorded buys for %s: history is missing %s units before %s", shortfall.Symbol, shortfall.Missing().String(), failedAt.Format("2006-01-02")),
		Required:  shortfall.Required,
		Available: shortfall.Available,
		Missing:   shortfall.Missing(),
	}
}

// openLot turns a buy into an open lot. Unit cost folds the fee into the
// purchase price and is rounded half-even to the asset class's cost
// precision.
func openLot(tx *models.Transaction) *models.Lot {
	unitCost := tx.Price.Mul(tx.Quantity).Add(tx.Fee).Div(tx.Quantity).RoundBank(tx.AssetClass.CostPrecision())
	return &models.Lot{
		Symbol:            tx.Symbol,
		OpenTransactionID: tx.ID,
		OpenDate:          tx.Date,
		OriginalQuantity:  tx.Quantity,
		Remaining:         tx.Quantity,
		UnitCost:          unitCost,
		Currency:          tx.Currency,
	}
}

// realize prices one consumed slice. Sell fee and tax are pro-rated by the
// share of the sell quantity the slice covers.
func realize(sell *models.Transaction, slice Slice) models.RealizedGain {
	costBasis := slice.Quantity.Mul(slice.UnitCost)
	charges := sell.Fee.Add(sell.Tax).Mul(slice.Quantity).Div(sell.Quantity)
	proceeds := slice.Quantity.Mul(sell.Price).Sub(charges)

	return models.RealizedGain{
		SellTransactionID: sell.ID,
		LotTransactionID:  slice.Lot.OpenTransactionID,
		Symbol:            sell.Symbol,
		Quantity:          slice.Quantity,
		CostBasis:         costBasis,
		Proceeds:          proceeds,
		Gain:              proceeds.Sub(costBasis),
		Currency:          sell.Currency,
		RealizedAt:        sell.Date,
	}
}
