package engine

import (
	"github.com/shopspring/decimal"

	"github.com/pkarczewski/foliotrack/internal/holdings/models"
)

// LotLedger holds a symbol's open buy lots in date-ascending order. The
// matcher replays transactions chronologically, so Open only ever appends
// to the tail and Drain only ever consumes from the front.
type LotLedger struct {
	lots []*models.Lot
}

func NewLotLedger() *LotLedger {
	return &LotLedger{}
}

// Slice is one (lot, quantity taken) pair consumed by a drain.
type Slice struct {
	Lot      *models.Lot
	Quantity decimal.Decimal
	UnitCost decimal.Decimal
}

func (l *LotLedger) Open(lot *models.Lot) {
	l.lots = append(l.lots, lot)
}

// Drain removes up to quantity units from the front of the queue, oldest
// lot first, partially consuming a lot when its remaining quantity exceeds
// what is still requested. It never goes negative: when the queue holds
// less than requested it consumes everything and returns the shortfall.
// Fully drained lots are removed; a partially drained lot keeps its
// identity with a reduced remaining quantity.
func (l *LotLedger) Drain(quantity decimal.Decimal) ([]Slice, decimal.Decimal) {
	var slices []Slice
	remaining := quantity

	for remaining.IsPositive() && len(l.lots) > 0 {
		lot := l.lots[0]
		taken := decimal.Min(remaining, lot.Remaining)

		slices = append(slices, Slice{
			Lot:      lot,
			Quantity: taken,
			UnitCost: lot.UnitCost,
		})

		remaining = remaining.Sub(taken)
		lot.Remaining = lot.Remaining.Sub(taken)

		if lot.Remaining.IsZero() {
			l.lots = l.lots[1:]
		}
	}

	return slices, remaining
}

// Remaining returns a copy of the open lots still holding quantity.
func (l *LotLedger) Remaining() []models.Lot {
	lots := make([]models.Lot, 0, len(l.lots))
	for _, lot := range l.lots {
		lots = append(lots, *lot)
	}
	return lots
}

func (l *LotLedger) TotalRemaining() decimal.Decimal {
	total := decimal.Zero
	for _, lot := range l.lots {
		total = total.Add(lot.Remaining)
	}
	return total
}
