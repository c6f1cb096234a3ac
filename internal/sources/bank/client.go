// Package bank imports qualifying expenses from the bank's account feeds.
package bank

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/dvloznov/bizledger/internal/domain"
	"github.com/dvloznov/bizledger/internal/eligibility"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the production API host.
const DefaultBaseURL = "https://api.mercury.com"

const maxErrorBody = 64 * 1024

// Account is one banking login: a display name, its API key and the
// sub-accounts to read.
type Account struct {
	Name string
	// APIKey is SENSITIVE: never logged.
	APIKey     string
	AccountIDs []string
}

// AccountError is returned when reading any sub-account of Account fails.
// The whole import is aborted.
type AccountError struct {
	Account string
	Cause   error
}

func (e *AccountError) Error() string {
	return fmt.Sprintf("Failed to fetch transactions for %s: %v", e.Account, e.Cause)
}

func (e *AccountError) Unwrap() error {
	return e.Cause
}

// StatusError is the cause of an AccountError on a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bank API error: status=%d: %s", e.StatusCode, e.Body)
}

// Config configures the client.
type Config struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL    string
	Accounts   []Account
	Filter     *eligibility.Filter
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client fetches, filters and normalizes bank transactions.
type Client struct {
	baseURL    string
	accounts   []Account
	filter     *eligibility.Filter
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient builds a client. A nil filter applies the default allow-list
// against the wall clock.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	filter := cfg.Filter
	if filter == nil {
		filter = eligibility.NewFilter(nil, nil)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		accounts:   cfg.Accounts,
		filter:     filter,
		httpClient: httpClient,
		log:        cfg.Logger,
	}
}

type transactionsResponse struct {
	Transactions []eligibility.RawTransaction `json:"transactions"`
}

// FetchTransactions reads every configured sub-account in order and returns
// the eligible records as ledger entries, newest first. The first failure
// aborts the import and nothing partial is returned.
func (c *Client) FetchTransactions(ctx context.Context) ([]domain.Transaction, error) {
	if err := c.checkConfig(); err != nil {
		return nil, err
	}

	var out []domain.Transaction
	for _, acct := range c.accounts {
		txs, err := c.fetchAccount(ctx, acct)
		if err != nil {
			return nil, &AccountError{Account: acct.Name, Cause: err}
		}
		out = append(out, txs...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out, nil
}

func (c *Client) checkConfig() error {
	if len(c.accounts) == 0 {
		return &domain.ConfigError{Setting: "MERCURY_ACCOUNTS", Message: "no Mercury accounts are configured"}
	}
	for _, acct := range c.accounts {
		if acct.APIKey == "" {
			return &domain.ConfigError{
				Setting: "MERCURY_" + strings.ToUpper(acct.Name) + "_API_KEY",
				Message: fmt.Sprintf("Mercury API key for %s is not configured", acct.Name),
			}
		}
		if len(acct.AccountIDs) == 0 {
			return &domain.ConfigError{
				Setting: "MERCURY_" + strings.ToUpper(acct.Name) + "_ACCOUNT_IDS",
				Message: fmt.Sprintf("Mercury account IDs for %s are not configured", acct.Name),
			}
		}
	}
	return nil
}

func (c *Client) fetchAccount(ctx context.Context, acct Account) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for _, accountID := range acct.AccountIDs {
		raw, err := c.fetchRaw(ctx, acct.APIKey, accountID)
		if err != nil {
			return nil, fmt.Errorf("fetchAccount: %s: %w", accountID, err)
		}

		eligible := c.filter.Apply(raw)
		for _, rec := range eligible {
			tx, err := toTransaction(rec, acct.Name)
			if err != nil {
				// unreachable: the filter already rejected unparseable records
				c.log.Warn().Err(err).Str("transaction_id", rec.ID).Msg("skipping unparseable record")
				continue
			}
			out = append(out, tx)
		}

		c.log.Debug().
			Str("account", acct.Name).
			Int("fetched", len(raw)).
			Int("eligible", len(eligible)).
			Msg("fetched bank transactions")
	}
	return out, nil
}

func (c *Client) fetchRaw(ctx context.Context, apiKey, accountID string) ([]eligibility.RawTransaction, error) {
	endpoint := c.baseURL + "/api/v1/account/" + url.PathEscape(accountID) + "/transactions"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("fetchRaw: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetchRaw: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var payload transactionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("fetchRaw: decode response: %w", err)
	}
	return payload.Transactions, nil
}

func toTransaction(rec eligibility.RawTransaction, accountName string) (domain.Transaction, error) {
	amount, err := rec.SignedAmount()
	if err != nil {
		return domain.Transaction{}, err
	}
	date, err := rec.EffectiveDate()
	if err != nil {
		return domain.Transaction{}, err
	}
	return domain.Transaction{
		ID:            rec.ID,
		Date:          date,
		Amount:        amount.Abs(),
		Description:   rec.Description(),
		Category:      domain.CategoryTools,
		Source:        domain.SourceBank,
		Status:        domain.StatusCompleted,
		PaymentOrigin: "Mercury " + accountName,
	}, nil
}
