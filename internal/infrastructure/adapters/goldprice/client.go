// Package goldprice fetches spot gold quotes from an external market
// data provider. Calls go through a circuit breaker so a degraded
// provider cannot stall wallet operations.
package goldprice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aurum-service/aurum_service/pkg/circuitbreaker"
)

// Grams per troy ounce, for providers that quote per ounce.
var gramsPerTroyOunce = decimal.NewFromFloat(31.1034768)

var ErrProviderUnavailable = errors.New("gold price provider unavailable")

// Config holds provider settings
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client is the market data HTTP client
type Client struct {
	config     Config
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	logger     *zap.Logger
}

// quoteResponse is the provider's payload. Some plans return only the
// per-ounce price; per-gram wins when both are present.
type quoteResponse struct {
	Metal        string          `json:"metal"`
	Currency     string          `json:"currency"`
	Price        decimal.Decimal `json:"price"`
	PriceGram24K decimal.Decimal `json:"price_gram_24k"`
	Timestamp    int64           `json:"timestamp"`
}

func NewClient(config Config, logger *zap.Logger) *Client {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	breaker := circuitbreaker.New(circuitbreaker.Config{
		MaxRequests:      3,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		OnStateChange: func(from, to circuitbreaker.State) {
			logger.Warn("gold price breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		breaker:    breaker,
		logger:     logger,
	}
}

// FetchPricePerGram returns the current spot price of one gram of
// gold in USD
func (c *Client) FetchPricePerGram(ctx context.Context) (decimal.Decimal, error) {
	var quote quoteResponse

	err := c.breaker.Execute(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/api/XAU/USD", nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("x-access-token", c.config.APIKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("quote request failed: %w", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(body))
		}

		if err := json.Unmarshal(body, &quote); err != nil {
			return fmt.Errorf("failed to decode quote: %w", err)
		}
		return nil
	})
	if err != nil {
		c.logger.Error("failed to fetch gold quote", zap.Error(err))
		return decimal.Zero, fmt.Errorf("%w: %s", ErrProviderUnavailable, err.Error())
	}

	price := quote.PriceGram24K
	if price.IsZero() && !quote.Price.IsZero() {
		price = quote.Price.Div(gramsPerTroyOunce)
	}
	if price.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: provider returned non-positive price", ErrProviderUnavailable)
	}

	return price.Round(4), nil
}
