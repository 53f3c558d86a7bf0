package valuation

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pkarczewski/foliotrack/internal/holdings/errors"
	"github.com/pkarczewski/foliotrack/internal/holdings/models"
)

type PriceProvider interface {
	CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

type RateProvider interface {
	Rate(ctx context.Context, from, to string, on time.Time) (decimal.Decimal, error)
}

// Service prices holdings. Price and FX lookups are network-bound and
// fallible: each one is bounded by a timeout and a missing result leaves
// the valuation fields unset instead of defaulting them to zero.
type Service struct {
	prices            PriceProvider
	rates             RateProvider
	reportingCurrency string
	lookupTimeout     time.Duration
}

func NewService(prices PriceProvider, rates RateProvider, reportingCurrency string) *Service {
	return &Service{
		prices:            prices,
		rates:             rates,
		reportingCurrency: reportingCurrency,
		lookupTimeout:     5 * time.Second,
	}
}

func (s *Service) ReportingCurrency() string {
	return s.reportingCurrency
}

// Value fills the market-value and unrealized P&L fields of a holding in
// place. Quantity and cost basis are never touched; currency conversion
// happens here and only here. The returned error is always a
// ConversionUnavailableError and the holding stays valid without it.
func (s *Service) Value(ctx context.Context, holding *models.Holding) error {
	ctx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()

	price, err := s.prices.CurrentPrice(ctx, holding.Symbol)
	if err != nil {
		return errors.NewConversionUnavailableError(holding.Symbol, "no current price: "+err.Error())
	}

	marketValue := holding.Quantity.Mul(price)
	holding.CurrentPrice = &price
	holding.MarketValue = &marketValue

	unrealized := marketValue.Sub(holding.CostBasis)
	holding.UnrealizedGain = &unrealized
	if holding.CostBasis.IsPositive() {
		pct := unrealized.Div(holding.CostBasis).Mul(decimal.NewFromInt(100)).RoundBank(2)
		holding.UnrealizedGainPct = &pct
	}

	if holding.Currency == s.reportingCurrency {
		holding.ReportingCurrency = s.reportingCurrency
		holding.MarketValueReported = &marketValue
		return nil
	}

	rate, err := s.rates.Rate(ctx, holding.Currency, s.reportingCurrency, time.Now())
	if err != nil {
		log.Printf("No %s/%s rate for %s: %v", holding.Currency, s.reportingCurrency, holding.Symbol, err)
		return errors.NewConversionUnavailableError(holding.Symbol, "no FX rate: "+err.Error())
	}

	reported := marketValue.Mul(rate)
	holding.ReportingCurrency = s.reportingCurrency
	holding.MarketValueReported = &reported
	return nil
}

// Prefetch asks the provider for every symbol once, which fills any cache
// the provider keeps. Misses are logged and skipped.
func (s *Service) Prefetch(ctx context.Context, symbols []string) {
	for _, symbol := range symbols {
		lookupCtx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
		if _, err := s.prices.CurrentPrice(lookupCtx, symbol); err != nil {
			log.Printf("Quote warmup miss for %s: %v", symbol, err)
		}
		cancel()
	}
}
