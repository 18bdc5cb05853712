package adapter

import (
	"context"
	"io"
	"testing"

	"ForecastDebate/internal/config"
	"ForecastDebate/internal/interfaces"
	"ForecastDebate/internal/model"

	"github.com/sirupsen/logrus"
)

type stubProvider struct{ baseURL string }

func (s *stubProvider) GetName() string { return "Stub" }

func (s *stubProvider) FetchMarket(ctx context.Context, marketID string) (*model.Market, error) {
	return &model.Market{ID: marketID}, nil
}

func TestProviderRegistry(t *testing.T) {
	Register("stub", func(cfg config.ProviderConfig, logger *logrus.Logger) interfaces.MarketProvider {
		return &stubProvider{baseURL: cfg.BaseURL}
	})
	Register("unconfigured", func(cfg config.ProviderConfig, logger *logrus.Logger) interfaces.MarketProvider {
		return &stubProvider{}
	})

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := &config.Config{Providers: map[string]config.ProviderConfig{
		"stub": {BaseURL: "http://stub.local"},
	}}
	r := NewProviderRegistry(cfg, logger)

	got, err := r.Get("stub")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.(*stubProvider).baseURL != "http://stub.local" {
		t.Errorf("provider built with wrong config: %+v", got)
	}
	if _, err := r.Get("unconfigured"); err == nil {
		t.Error("unconfigured provider should not be instantiated")
	}
	if names := r.Names(); len(names) != 1 || names[0] != "stub" {
		t.Errorf("Names = %v", names)
	}
}

func TestRegister_NilFactoryPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Register(nil) should panic")
		}
	}()
	Register("nil", nil)
}
