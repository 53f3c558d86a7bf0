package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const quoteTTL = 5 * time.Minute

type cachedQuote struct {
	price     decimal.Decimal
	fetchedAt time.Time
}

// FinancialModelingPrepClient serves current prices and daily FX rates
// from the FMP REST API. Quotes are cached for a short TTL so the cron
// warmup keeps read-path lookups off the network.
type FinancialModelingPrepClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	mu     sync.RWMutex
	quotes map[string]cachedQuote
}

func NewFMPClient(apiKey string) *FinancialModelingPrepClient {
	return &FinancialModelingPrepClient{
		apiKey:     apiKey,
		baseURL:    "https://financialmodelingprep.com/api/v3",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		quotes:     make(map[string]cachedQuote),
	}
}

func (c *FinancialModelingPrepClient) cached(symbol string) (decimal.Decimal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	quote, ok := c.quotes[symbol]
	if !ok || time.Since(quote.fetchedAt) > quoteTTL {
		return decimal.Zero, false
	}
	return quote.price, true
}

func (c *FinancialModelingPrepClient) store(symbol string, price decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quotes[symbol] = cachedQuote{price: price, fetchedAt: time.Now()}
}

func (c *FinancialModelingPrepClient) fetchQuote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if price, ok := c.cached(symbol); ok {
		return price, nil
	}

	fullURL := fmt.Sprintf("%s/quote-short/%s?apikey=%s", c.baseURL, url.PathEscape(symbol), c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return decimal.Zero, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("error querying API: %s", resp.Status)
	}

	var results []struct {
		Symbol string          `json:"symbol"`
		Price  decimal.Decimal `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return decimal.Zero, err
	}
	if len(results) == 0 {
		return decimal.Zero, fmt.Errorf("no quote for %s", symbol)
	}

	c.store(symbol, results[0].Price)
	return results[0].Price, nil
}

// CurrentPrice implements valuation.PriceProvider.
func (c *FinancialModelingPrepClient) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return c.fetchQuote(ctx, symbol)
}

// Rate implements valuation.RateProvider. FMP quotes currency pairs as a
// combined symbol, e.g. USDTWD.
func (c *FinancialModelingPrepClient) Rate(ctx context.Context, from, to string, on time.Time) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	return c.fetchQuote(ctx, from+to)
}
