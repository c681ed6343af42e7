// Package rates looks up live KRW exchange rates for foreign-currency
// notification amounts.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// Fallback rates (KRW per unit) used when the live lookup is unavailable.
// Conversion accuracy matters less than never dropping a transaction.
var fallbackRates = map[string]float64{
	"USD": 1350,
	"JPY": 9,
	"EUR": 1450,
	"CNY": 190,
	"GBP": 1700,
}

// Client fetches exchange rates from a quote service. Lookups run behind a
// circuit breaker so a flapping provider cannot stall notification handling.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	baseURL    string
}

// NewClient creates a rate client for the given quote endpoint.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 3 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "exchange-rates",
			MaxRequests: 3,
			Interval:    30 * time.Second,
			Timeout:     10 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 5 && failureRatio >= 0.6
			},
		}),
	}
}

type quoteResponse struct {
	Currency string  `json:"currency"`
	Rate     float64 `json:"rate"`
}

// Rate returns the KRW rate for one unit of the given currency. On any
// failure it falls back to a fixed rate rather than failing the caller; an
// unknown currency with no fallback is the only error case.
func (c *Client) Rate(ctx context.Context, currency string) (float64, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		return c.fetch(ctx, currency)
	})
	if err == nil {
		return result.(float64), nil
	}

	fallback, ok := fallbackRates[currency]
	if !ok {
		return 0, fmt.Errorf("no rate for currency %q: %w", currency, err)
	}

	slog.Warn("exchange rate lookup failed, using fallback",
		"currency", currency,
		"fallback", fallback,
		"error", err)
	return fallback, nil
}

func (c *Client) fetch(ctx context.Context, currency string) (float64, error) {
	url := fmt.Sprintf("%s/quote?currency=%s", c.baseURL, currency)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build rate request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("rate request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rate service returned status %d", resp.StatusCode)
	}

	var quote quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return 0, fmt.Errorf("failed to decode rate response: %w", err)
	}
	if quote.Rate <= 0 {
		return 0, fmt.Errorf("rate service returned non-positive rate %f", quote.Rate)
	}

	return quote.Rate, nil
}

// FallbackRate exposes the fixed fallback for a currency, if one exists.
func FallbackRate(currency string) (float64, bool) {
	rate, ok := fallbackRates[currency]
	return rate, ok
}
