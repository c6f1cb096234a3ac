package processor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dvloznov/bizledger/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	rangeStart = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd   = time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC)
)

func newTestClient(t *testing.T, handler http.HandlerFunc, key string) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{
		BaseURL:    server.URL,
		SecretKey:  key,
		HTTPClient: server.Client(),
		Logger:     zerolog.Nop(),
	})
}

func TestNetSales_FollowsPagination(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/v1/balance_transactions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test" {
			t.Errorf("Authorization = %q", got)
		}
		q := r.URL.Query()
		if q.Get("type") != "charge" || q.Get("limit") != "100" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		if q.Get("created[gte]") != fmt.Sprint(rangeStart.Unix()) || q.Get("created[lte]") != fmt.Sprint(rangeEnd.Unix()) {
			t.Errorf("created bounds = %s..%s", q.Get("created[gte]"), q.Get("created[lte]"))
		}

		w.Header().Set("Content-Type", "application/json")
		switch q.Get("starting_after") {
		case "":
			fmt.Fprint(w, `{"data":[
				{"id":"txn_1","net":500000,"status":"available"},
				{"id":"txn_2","net":1999,"status":"pending"}
			],"has_more":true}`)
		case "txn_2":
			fmt.Fprint(w, `{"data":[{"id":"txn_3","net":500001,"status":"available"}],"has_more":false}`)
		default:
			t.Errorf("unexpected starting_after %q", q.Get("starting_after"))
		}
	}, "sk_test")

	got, err := client.NetSales(context.Background(), rangeStart, rangeEnd)
	if err != nil {
		t.Fatalf("NetSales failed: %v", err)
	}
	if want := decimal.RequireFromString("10000.01"); !got.Equal(want) {
		t.Errorf("NetSales = %s, want %s", got, want)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestNetSales_EmptyRange(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[],"has_more":false}`)
	}, "sk_test")

	got, err := client.NetSales(context.Background(), rangeStart, rangeEnd)
	if err != nil {
		t.Fatalf("NetSales failed: %v", err)
	}
	if !got.IsZero() {
		t.Errorf("NetSales = %s, want 0", got)
	}
}

func TestNetSales_MissingKey(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected without a key")
	}, "")

	_, err := client.NetSales(context.Background(), rangeStart, rangeEnd)
	if !domain.IsConfig(err) {
		t.Fatalf("error = %v, want ConfigError", err)
	}
	if err.Error() != "Stripe secret key is not configured" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestNetSales_Non2xx(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Invalid API Key provided"}}`)
	}, "sk_bad")

	_, err := client.NetSales(context.Background(), rangeStart, rangeEnd)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d", apiErr.StatusCode)
	}
}

func TestNetSales_MalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":`)
	}, "sk_test")

	if _, err := client.NetSales(context.Background(), rangeStart, rangeEnd); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestNetSales_ContextCanceled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[],"has_more":false}`)
	}, "sk_test")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.NetSales(ctx, rangeStart, rangeEnd)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
