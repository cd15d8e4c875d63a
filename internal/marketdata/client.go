package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradewind/papertrader/internal/domain"
)

const maxRetries = 3

// Client is an HTTP price feed client implementing Oracle
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new price feed client
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
		log: log.With().Str("client", "pricefeed").Logger(),
	}
}

// priceResponse is the feed's quote payload
type priceResponse struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// GetCurrentPrice fetches the current price with retry logic.
// Transient failures and zero prices are retried with exponential
// backoff; exhausted retries surface as ErrNoPriceAvailable.
func (c *Client) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			waitTime := time.Duration(1<<uint(attempt-1)) * time.Second // exponential backoff
			c.log.Debug().
				Str("symbol", symbol).
				Int("attempt", attempt+1).
				Dur("wait", waitTime).
				Msg("Retrying price fetch")

			select {
			case <-ctx.Done():
				return 0, fmt.Errorf("price fetch cancelled: %w", ctx.Err())
			case <-time.After(waitTime):
			}
		}

		price, err := c.fetchPrice(ctx, symbol)
		if err != nil {
			lastErr = err
			continue
		}
		if price <= 0 {
			lastErr = fmt.Errorf("feed returned non-positive price %f", price)
			continue
		}

		return price, nil
	}

	c.log.Warn().Err(lastErr).Str("symbol", symbol).Msg("Price feed exhausted retries")
	return 0, fmt.Errorf("price for %s after %d attempts (%v): %w",
		symbol, maxRetries, lastErr, domain.ErrNoPriceAvailable)
}

func (c *Client) fetchPrice(ctx context.Context, symbol string) (float64, error) {
	reqURL := fmt.Sprintf("%s/api/v1/price?symbol=%s", c.baseURL, url.QueryEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build price request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("price feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("price feed returned %d: %s", resp.StatusCode, string(body))
	}

	var quote priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return 0, fmt.Errorf("failed to decode price response: %w", err)
	}

	return quote.Price, nil
}
