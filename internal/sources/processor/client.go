// Package processor reads settled sales from the payments processor's
// balance transaction API.
package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/bizledger/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultBaseURL is the production API host.
const DefaultBaseURL = "https://api.stripe.com"

const (
	balanceTransactionsPath = "/v1/balance_transactions"
	pageSize                = 100
	availableStatus         = "available"
	maxErrorBody            = 64 * 1024
)

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("payments API error: status=%d: %s", e.StatusCode, e.Body)
}

// Config configures the client.
type Config struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// SecretKey is SENSITIVE: never logged.
	SecretKey string

	// HTTPClient is optional; tests inject the httptest client here.
	HTTPClient *http.Client

	Logger zerolog.Logger
}

// Client sums net sales over a date range.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient builds a client. A missing key is not an error here; it surfaces
// on the first NetSales call so the rest of the app can start unconfigured.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		secretKey:  cfg.SecretKey,
		httpClient: httpClient,
		log:        cfg.Logger,
	}
}

type balanceTransaction struct {
	ID      string `json:"id"`
	Amount  int64  `json:"amount"`
	Net     int64  `json:"net"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Status  string `json:"status"`
}

type balanceTransactionPage struct {
	Data    []balanceTransaction `json:"data"`
	HasMore bool                 `json:"has_more"`
}

// NetSales returns the sum of net charge amounts, in major units, for charges
// created between start and end (inclusive, second precision) that have
// settled to "available". Pending charges are excluded.
func (c *Client) NetSales(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	if c.secretKey == "" {
		return decimal.Zero, &domain.ConfigError{Setting: "STRIPE_SECRET_KEY", Message: "Stripe secret key is not configured"}
	}

	totalCents := decimal.Zero
	var startingAfter string
	pages := 0

	for {
		page, err := c.fetchPage(ctx, start, end, startingAfter)
		if err != nil {
			return decimal.Zero, fmt.Errorf("NetSales: %w", err)
		}
		pages++

		for _, bt := range page.Data {
			if bt.Status == availableStatus {
				totalCents = totalCents.Add(decimal.NewFromInt(bt.Net))
			}
		}

		if !page.HasMore || len(page.Data) == 0 {
			break
		}
		startingAfter = page.Data[len(page.Data)-1].ID
	}

	total := totalCents.Shift(-2)
	c.log.Debug().
		Int("pages", pages).
		Str("net_sales", total.StringFixed(2)).
		Msg("fetched net sales")
	return total, nil
}

func (c *Client) fetchPage(ctx context.Context, start, end time.Time, startingAfter string) (*balanceTransactionPage, error) {
	params := url.Values{
		"type":         {"charge"},
		"created[gte]": {strconv.FormatInt(start.Unix(), 10)},
		"created[lte]": {strconv.FormatInt(end.Unix(), 10)},
		"limit":        {strconv.Itoa(pageSize)},
	}
	if startingAfter != "" {
		params.Set("starting_after", startingAfter)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+balanceTransactionsPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("fetchPage: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetchPage: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var page balanceTransactionPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("fetchPage: decode response: %w", err)
	}
	return &page, nil
}
