package wechat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/domain"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/ports"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/pipeline"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/pkg/config"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Providers: map[string]map[string]config.ProviderConfig{
			Driver: {
				"default": {MchID: "mch1", MchSecretKey: "secret", MPAppID: "wx1", MiniAppID: "wxmini", BaseURL: baseURL},
				"shop2":   {MchID: "mch2", MchSecretKey: "secret2", MPAppID: "wx2"},
			},
		},
	}
}

func TestCancelPlugin_BuildsReversal(t *testing.T) {
	rocket := domain.NewRocket(Driver, OpPosCancel).SetParams(map[string]any{"out_trade_no": "T123"})

	result, err := pipeline.Execute(context.Background(), []ports.Plugin{NewCancelPlugin(testConfig(""))}, rocket)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := result.Payload().ToJSON(); got != `{"appid":"wx1","mchid":"mch1"}` {
		t.Errorf("payload = %s", got)
	}
	dest := result.Destination()
	if dest == nil {
		t.Fatal("expected destination")
	}
	if dest.Method != "POST" || !strings.Contains(dest.URL, "T123") || !strings.HasSuffix(dest.URL, "/T123/reverse") {
		t.Errorf("unexpected destination %+v", dest)
	}
	if dest.URL != DefaultBaseURL+"v3/pay/transactions/out-trade-no/T123/reverse" {
		t.Errorf("URL = %s", dest.URL)
	}
}

func TestCancelPlugin_MissingOrderNumber(t *testing.T) {
	rocket := domain.NewRocket(Driver, OpPosCancel).SetParams(map[string]any{})

	_, err := pipeline.Execute(context.Background(), []ports.Plugin{NewCancelPlugin(testConfig(""))}, rocket)
	if err == nil {
		t.Fatal("expected error")
	}
	if !domain.IsInvalidParams(err) {
		t.Fatalf("expected invalid params error, got %v", err)
	}

	var domainErr *domain.Error
	if !errors.As(err, &domainErr) || domainErr.Field != "out_trade_no" {
		t.Errorf("expected field out_trade_no, got %v", err)
	}
	if rocket.Destination() != nil {
		t.Errorf("expected no destination, got %+v", rocket.Destination())
	}
	if pipeline.FailedPlugin(err) != "wechat.pos.cancel" {
		t.Errorf("FailedPlugin() = %q", pipeline.FailedPlugin(err))
	}
}

func TestCancelPlugin_MerchantSelection(t *testing.T) {
	tests := []struct {
		name      string
		params    map[string]any
		wantAppID string
		wantMchID string
		wantErr   bool
	}{
		{name: "default tenant", params: map[string]any{"out_trade_no": "T1"}, wantAppID: "wx1", wantMchID: "mch1"},
		{name: "mini program", params: map[string]any{"out_trade_no": "T1", "_type": "mini"}, wantAppID: "wxmini", wantMchID: "mch1"},
		{name: "named tenant", params: map[string]any{"out_trade_no": "T1", "_config": "shop2"}, wantAppID: "wx2", wantMchID: "mch2"},
		{name: "unknown tenant", params: map[string]any{"out_trade_no": "T1", "_config": "shop9"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rocket := domain.NewRocket(Driver, OpPosCancel).SetParams(tt.params)
			result, err := NewCancelPlugin(testConfig("")).Assemble(context.Background(), rocket, identity)
			if tt.wantErr {
				if !domain.IsType(err, domain.ErrorTypeConfig) {
					t.Errorf("expected config error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Payload().String("appid") != tt.wantAppID || result.Payload().String("mchid") != tt.wantMchID {
				t.Errorf("payload = %s", result.Payload().ToJSON())
			}
		})
	}
}

func TestQueryPlugin(t *testing.T) {
	rocket := domain.NewRocket(Driver, OpPosQuery).
		SetParams(map[string]any{"out_trade_no": "T 1"}).
		MergePayload(map[string]any{"out_trade_no": "T 1"})

	result, err := NewQueryPlugin(testConfig("https://sandbox.example.test")).Assemble(context.Background(), rocket, identity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "https://sandbox.example.test/v3/pay/transactions/out-trade-no/T%201?mchid=mch1"
	if result.Endpoint() != want || result.Destination().Method != "GET" {
		t.Errorf("destination = %+v, want GET %s", result.Destination(), want)
	}

	if _, err := NewQueryPlugin(testConfig("")).Assemble(context.Background(), domain.NewRocket(Driver, OpPosQuery), identity); !domain.IsInvalidParams(err) {
		t.Errorf("expected invalid params error, got %v", err)
	}
}

func identity(ctx context.Context, r *domain.Rocket) (*domain.Rocket, error) {
	return r, nil
}
