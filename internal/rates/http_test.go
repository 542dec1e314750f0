package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nevy-wallets/satoshi/internal/apperr"
)

func TestHTTPOracle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ids") != "bitcoin" || r.URL.Query().Get("vs_currencies") != "usd" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"bitcoin":{"usd":50000.25}}`))
	}))
	defer server.Close()

	oracle, err := NewHTTPOracle(server.Client(), server.URL, "Bitcoin", "USD")
	if err != nil {
		t.Fatalf("new oracle: %v", err)
	}

	price, err := oracle.Price(context.Background())
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("50000.25")) {
		t.Fatalf("unexpected price %s", price)
	}
}

func TestHTTPOracleFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"malformed json": func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"bitcoin":`))
		},
		"missing quote": func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"ethereum":{"usd":3000}}`))
		},
		"string quote": func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"bitcoin":{"usd":"lots"}}`))
		},
		"zero quote": func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"bitcoin":{"usd":0}}`))
		},
	}

	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(handler)
			defer server.Close()

			oracle, err := NewHTTPOracle(server.Client(), server.URL, "bitcoin", "usd")
			if err != nil {
				t.Fatalf("new oracle: %v", err)
			}
			if _, err := oracle.Price(context.Background()); !apperr.IsKind(err, apperr.KindRateUnavailable) {
				t.Fatalf("expected rate_unavailable, got %v", err)
			}
		})
	}
}

func TestHTTPOracleHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	oracle, _ := NewHTTPOracle(server.Client(), server.URL, "bitcoin", "usd")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := oracle.Price(ctx); !apperr.IsKind(err, apperr.KindRateUnavailable) {
		t.Fatalf("expected timeout to surface as rate_unavailable, got %v", err)
	}
}

func TestStaticOracle(t *testing.T) {
	if _, err := (StaticOracle{}).Price(context.Background()); !apperr.IsKind(err, apperr.KindRateUnavailable) {
		t.Fatalf("expected unset static price to be unavailable, got %v", err)
	}
	p, err := StaticOracle{UnitPrice: decimal.NewFromInt(50_000)}.Price(context.Background())
	if err != nil || !p.Equal(decimal.NewFromInt(50_000)) {
		t.Fatalf("unexpected static price %s, %v", p, err)
	}
}
