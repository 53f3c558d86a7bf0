package engine

import (
	"github.com/shopspring/decimal"

	"github.com/pkarczewski/foliotrack/internal/holdings/models"
)

// Aggregate folds a symbol's remaining lots into one Holding. It is pure:
// the same lot state always produces the same Holding. A zero total
// quantity means the holding is absent, not zero-valued, so nil is
// returned and average cost is never computed.
func Aggregate(symbol string, assetClass models.AssetClass, lots []models.Lot) *models.Holding {
	quantity := decimal.Zero
	costBasis := decimal.Zero
	currency := ""

	for _, lot := range lots {
		quantity = quantity.Add(lot.Remaining)
		costBasis = costBasis.Add(lot.Remaining.Mul(lot.UnitCost))
		currency = lot.Currency
	}

	if quantity.IsZero() {
		return nil
	}

	return &models.Holding{
		Symbol:      symbol,
		AssetClass:  assetClass,
		Quantity:    quantity,
		AverageCost: costBasis.Div(quantity).RoundBank(assetClass.CostPrecision()),
		CostBasis:   costBasis,
		Currency:    currency,
		Lots:        lots,
	}
}
