package rates

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/nevy-wallets/satoshi/internal/apperr"
)

// DefaultFeedURL is the public CoinGecko simple price endpoint.
const DefaultFeedURL = "https://api.coingecko.com/api/v3/simple/price"

const maxQuoteBody = 64 << 10

// HTTPOracle reads a live quote from a CoinGecko-compatible simple/price
// endpoint, e.g. {"bitcoin":{"usd":50000}}.
type HTTPOracle struct {
	client  *http.Client
	baseURL string
	assetID string
	fiat    string
}

// NewHTTPOracle builds an oracle for assetID quoted in fiat.
func NewHTTPOracle(client *http.Client, baseURL, assetID, fiat string) (*HTTPOracle, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultFeedURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse rate feed url: %w", err)
	}
	assetID = strings.ToLower(strings.TrimSpace(assetID))
	fiat = strings.ToLower(strings.TrimSpace(fiat))
	if assetID == "" || fiat == "" {
		return nil, fmt.Errorf("asset id and fiat currency are required")
	}
	return &HTTPOracle{client: client, baseURL: baseURL, assetID: assetID, fiat: fiat}, nil
}

// Price fetches the current quote.
func (o *HTTPOracle) Price(ctx context.Context) (decimal.Decimal, error) {
	endpoint, _ := url.Parse(o.baseURL)
	q := endpoint.Query()
	q.Set("ids", o.assetID)
	q.Set("vs_currencies", o.fiat)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return decimal.Zero, unavailable(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return decimal.Zero, unavailable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decimal.Zero, unavailable(fmt.Errorf("rate feed returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxQuoteBody))
	if err != nil {
		return decimal.Zero, unavailable(err)
	}
	if !gjson.ValidBytes(body) {
		return decimal.Zero, unavailable(fmt.Errorf("rate feed returned malformed json"))
	}

	result := gjson.GetBytes(body, o.assetID+"."+o.fiat)
	if !result.Exists() || result.Type != gjson.Number {
		return decimal.Zero, unavailable(fmt.Errorf("quote %s/%s missing from response", o.assetID, o.fiat))
	}
	price, err := decimal.NewFromString(result.Raw)
	if err != nil {
		return decimal.Zero, unavailable(err)
	}
	if !price.IsPositive() {
		return decimal.Zero, unavailable(fmt.Errorf("non-positive quote %s", price))
	}
	return price, nil
}

func unavailable(cause error) error {
	return apperr.Wrap(apperr.KindRateUnavailable, "exchange rate unavailable", cause)
}
