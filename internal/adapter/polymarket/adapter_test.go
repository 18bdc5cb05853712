package polymarket

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"ForecastDebate/internal/config"
	"ForecastDebate/internal/interfaces"

	"github.com/sirupsen/logrus"
)

const multiEvent = `{
  "id": "12345",
  "slug": "fed-decision",
  "title": "Fed decision in December?",
  "description": "Resolves on the FOMC statement.",
  "active": true,
  "closed": false,
  "volume": "10500.5",
  "markets": [
    {"id": "1", "question": "Will the Fed cut 25bps?", "groupItemTitle": "25 bps cut",
     "outcomes": "[\"Yes\", \"No\"]", "outcomePrices": "[\"0.62\", \"0.38\"]",
     "volume": "8000", "volumeNum": 8000, "liquidityNum": 1200.5, "oneDayPriceChange": 0.03},
    {"id": "2", "question": "Will the Fed hold?", "groupItemTitle": "",
     "outcomes": "[\"Yes\", \"No\"]", "outcomePrices": "[\"0.35\", \"0.65\"]",
     "volume": "2500"},
    {"id": "3", "question": "Other", "groupItemTitle": "Other",
     "outcomes": "[\"Yes\", \"No\"]", "outcomePrices": null}
  ]
}`

const binaryEvent = `{
  "id": "777",
  "title": "Will it rain tomorrow?",
  "markets": [
    {"id": "9", "question": "Will it rain tomorrow?",
     "outcomes": ["Yes", "No"], "outcomePrices": ["0.7", "0.3"], "volume": 42}
  ]
}`

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewPolymarketAdapter(config.ProviderConfig{BaseURL: srv.URL, Timeout: 5}, logger).(*Adapter)
}

func TestFetchMarket_MultiOutcomeEvent(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events/12345" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, multiEvent)
	})

	m, err := a.FetchMarket(context.Background(), "12345")
	if err != nil {
		t.Fatalf("FetchMarket: %v", err)
	}
	if m.Question != "Fed decision in December?" || m.Description == "" {
		t.Errorf("market = %+v", m)
	}
	if m.Volume == nil || *m.Volume != 10500.5 {
		t.Errorf("volume = %v, want 10500.5", m.Volume)
	}
	if len(m.Outcomes) != 3 {
		t.Fatalf("outcomes = %d, want 3", len(m.Outcomes))
	}

	first := m.Outcomes[0]
	if first.Name != "25 bps cut" || first.Price != 0.62 {
		t.Errorf("first = %+v", first)
	}
	if first.Shares == nil || *first.Shares != 8000 {
		t.Errorf("shares = %v, want 8000", first.Shares)
	}
	if first.Liquidity == nil || *first.Liquidity != 1200.5 || first.PriceChange24h == nil || *first.PriceChange24h != 0.03 {
		t.Errorf("liquidity/change = %v/%v", first.Liquidity, first.PriceChange24h)
	}

	if m.Outcomes[1].Name != "Will the Fed hold?" {
		t.Errorf("fallback name = %q, want the question", m.Outcomes[1].Name)
	}
	if m.Outcomes[1].Volume != nil {
		t.Errorf("missing volumeNum should stay nil, got %v", *m.Outcomes[1].Volume)
	}
	if other := m.Outcomes[2]; other.Price != defaultPrice || other.Shares != nil {
		t.Errorf("other = %+v, want default price and no shares", other)
	}
}

func TestFetchMarket_SingleBinaryMarket(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, binaryEvent)
	})

	m, err := a.FetchMarket(context.Background(), "777")
	if err != nil {
		t.Fatalf("FetchMarket: %v", err)
	}
	if len(m.Outcomes) != 2 {
		t.Fatalf("outcomes = %+v", m.Outcomes)
	}
	if m.Outcomes[0].Name != "Yes" || m.Outcomes[0].Price != 0.7 || m.Outcomes[1].Name != "No" || m.Outcomes[1].Price != 0.3 {
		t.Errorf("outcomes = %+v", m.Outcomes)
	}
	if m.Outcomes[0].Shares == nil || *m.Outcomes[0].Shares != 42 {
		t.Errorf("shares = %v", m.Outcomes[0].Shares)
	}
}

func TestFetchMarket_NotFound(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := a.FetchMarket(context.Background(), "missing")
	if !errors.Is(err, interfaces.ErrMarketNotFound) {
		t.Errorf("err = %v, want ErrMarketNotFound", err)
	}
}

func TestFetchMarket_ServerError(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	_, err := a.FetchMarket(context.Background(), "1")
	if err == nil || errors.Is(err, interfaces.ErrMarketNotFound) {
		t.Errorf("err = %v, want a generic API error", err)
	}
}
