package plugin

import (
	"context"
	"errors"
	"testing"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/domain"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/ports"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/pkg/config"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/pkg/sign"
)

// recordingDispatcher captures dispatched events in order.
type recordingDispatcher struct {
	events []domain.Event
	err    error
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, ev domain.Event) error {
	d.events = append(d.events, ev)
	return d.err
}

func (d *recordingDispatcher) kinds() []domain.EventKind {
	out := make([]domain.EventKind, len(d.events))
	for i, ev := range d.events {
		out[i] = ev.Kind()
	}
	return out
}

// identity is the continuation used when a plugin is tested on its own.
func identity(ctx context.Context, r *domain.Rocket) (*domain.Rocket, error) {
	return r, nil
}

// nextCounter returns a continuation that counts its calls.
func nextCounter(calls *int) ports.Next {
	return func(ctx context.Context, r *domain.Rocket) (*domain.Rocket, error) {
		*calls++
		return r, nil
	}
}

func TestStartPlugin(t *testing.T) {
	cfg := &config.Config{
		Payload: map[string]map[string]any{
			"wechat": {
				"scene_info": map[string]any{"device_id": "pos-01"},
				"currency":   "CNY",
			},
		},
	}
	p := NewStartPlugin(cfg, "wechat")

	rocket := domain.NewRocket("wechat", "pos.query").SetParams(map[string]any{
		"out_trade_no": "T123",
		"currency":     "USD",
		"_config":      "shop2",
		"scene_info":   map[string]any{"store_id": "s1"},
	})

	result, err := p.Assemble(context.Background(), rocket, identity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payload := result.Payload()
	if payload.String("out_trade_no") != "T123" {
		t.Errorf("expected params in payload, got %v", payload)
	}
	if payload.String("currency") != "USD" {
		t.Errorf("expected params to override defaults, got %q", payload.String("currency"))
	}
	if payload.Has("_config") {
		t.Error("control params must not reach the payload")
	}

	// Params replace nested defaults; defaults stay untouched for the next run.
	if payload.String("scene_info.store_id") != "s1" {
		t.Errorf("unexpected scene_info: %v", payload["scene_info"])
	}
	if cfg.Payload["wechat"]["scene_info"].(map[string]any)["store_id"] != nil {
		t.Error("shared payload defaults were mutated")
	}
}

func TestStartPlugin_NilConfig(t *testing.T) {
	rocket := domain.NewRocket("alipay", "trade.query").SetParams(map[string]any{"out_trade_no": "T1"})

	result, err := NewStartPlugin(nil, "alipay").Assemble(context.Background(), rocket, identity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Payload().ToJSON() != `{"out_trade_no":"T1"}` {
		t.Errorf("payload = %s", result.Payload().ToJSON())
	}
}

func TestAddPayloadBodyPlugin(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		payload  map[string]any
		wantBody string
	}{
		{name: "post encodes payload", method: "POST", payload: map[string]any{"appid": "wx1"}, wantBody: `{"appid":"wx1"}`},
		{name: "get has no body", method: "GET", payload: map[string]any{"mchid": "mch1"}, wantBody: ""},
		{name: "empty payload has no body", method: "POST", payload: nil, wantBody: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rocket := domain.NewRocket("wechat", "x").
				SetDestination(tt.method, "https://example.test").
				MergePayload(tt.payload)

			result, err := AddPayloadBodyPlugin{}.Assemble(context.Background(), rocket, identity)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Body != tt.wantBody {
				t.Errorf("Body = %q, want %q", result.Body, tt.wantBody)
			}
		})
	}
}

func TestAddRadarPlugin(t *testing.T) {
	events := &recordingDispatcher{}
	rocket := domain.NewRocket("wechat", "pos.cancel").
		SetDestination("POST", "https://api.mch.weixin.qq.com/v3/pay/transactions/out-trade-no/T123/reverse").
		MergePayload(map[string]any{"appid": "wx1"})

	calls := 0
	if _, err := NewAddRadarPlugin(events).Assemble(context.Background(), rocket, nextCounter(&calls)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected next once, got %d", calls)
	}

	if len(events.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events.events))
	}
	ev, ok := events.events[0].(domain.PayStarted)
	if !ok {
		t.Fatalf("expected PayStarted, got %T", events.events[0])
	}
	if ev.Gateway != "pos.cancel" || ev.Endpoint != rocket.Endpoint() || ev.Payload.String("appid") != "wx1" {
		t.Errorf("unexpected event: %+v", ev)
	}
	if ev.RunID() != rocket.ID {
		t.Errorf("RunID() = %q, want %q", ev.RunID(), rocket.ID)
	}
}

func TestAddRadarPlugin_MissingDestination(t *testing.T) {
	events := &recordingDispatcher{}
	calls := 0

	_, err := NewAddRadarPlugin(events).Assemble(context.Background(), domain.NewRocket("wechat", "pos.cancel"), nextCounter(&calls))
	if !domain.IsInvalidParams(err) {
		t.Fatalf("expected invalid params error, got %v", err)
	}
	if calls != 0 || len(events.events) != 0 {
		t.Error("expected no continuation and no event")
	}

	// Local responses need no destination.
	rocket := domain.NewRocket("alipay", "fund.trans.page.pay").SetDirection(domain.DirectionNoRequest)
	if _, err := NewAddRadarPlugin(nil).Assemble(context.Background(), rocket, identity); err != nil {
		t.Errorf("unexpected error for no_request rocket: %v", err)
	}
}

func TestVerifyPlugin(t *testing.T) {
	signer, err := sign.NewHMAC("secret", "mch_secret_key")
	if err != nil {
		t.Fatal(err)
	}
	good, _ := signer.Sign([]byte("hello"))

	tests := []struct {
		name       string
		message    string
		signature  string
		skip       bool
		wantCode   domain.ErrorCode
		wantErr    bool
		wantEvents int
	}{
		{name: "valid signature", message: "hello", signature: good},
		{name: "nothing to verify", skip: true},
		{name: "mismatch", message: "tampered", signature: good, wantErr: true, wantCode: domain.ErrorCodeSignatureMismatch, wantEvents: 1},
		{name: "missing", message: "hello", signature: "", wantErr: true, wantCode: domain.ErrorCodeSignatureMissing, wantEvents: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := &recordingDispatcher{}
			extract := func(r *domain.Rocket) ([]byte, string, bool) {
				return []byte(tt.message), tt.signature, !tt.skip
			}
			p := NewVerifyPlugin("verify_response", signer, events, extract)

			calls := 0
			_, err := p.Assemble(context.Background(), domain.NewRocket("wechat", "pos.query"), nextCounter(&calls))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Assemble() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(events.events) != tt.wantEvents {
				t.Errorf("expected %d events, got %d", tt.wantEvents, len(events.events))
			}
			if !tt.wantErr {
				if calls != 1 {
					t.Errorf("expected next once, got %d", calls)
				}
				return
			}

			if calls != 0 {
				t.Error("expected chain to stop on verification failure")
			}
			var domainErr *domain.Error
			if !errors.As(err, &domainErr) {
				t.Fatalf("expected *domain.Error, got %T", err)
			}
			if domainErr.Type != domain.ErrorTypeVerification || domainErr.Code != tt.wantCode {
				t.Errorf("unexpected error %v", err)
			}
			if domainErr.Stage != "verify_response" {
				t.Errorf("Stage = %q", domainErr.Stage)
			}
			if events.events[0].Kind() != domain.EventSignFailed {
				t.Errorf("expected sign.failed, got %s", events.events[0].Kind())
			}
		})
	}
}

func TestCallbackPlugin(t *testing.T) {
	events := &recordingDispatcher{}
	rocket := domain.NewRocket("wechat", "callback").SetParams(map[string]any{
		"event_type": "TRANSACTION.SUCCESS",
		"_body":      "{}",
	})

	result, err := NewCallbackPlugin(events).Assemble(context.Background(), rocket, identity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Direction() != domain.DirectionNoRequest {
		t.Errorf("Direction() = %s", result.Direction())
	}
	if result.Payload().String("event_type") != "TRANSACTION.SUCCESS" || result.Payload().Has("_body") {
		t.Errorf("unexpected payload %v", result.Payload())
	}
	if kinds := events.kinds(); len(kinds) != 1 || kinds[0] != domain.EventRequestReceived {
		t.Errorf("unexpected events %v", kinds)
	}
}

func TestCallbackPlugin_DispatchFailure(t *testing.T) {
	events := &recordingDispatcher{err: errors.New("audit unavailable")}
	calls := 0

	_, err := NewCallbackPlugin(events).Assemble(context.Background(), domain.NewRocket("wechat", "callback"), nextCounter(&calls))
	if err == nil || calls != 0 {
		t.Errorf("expected propagated dispatch failure to stop the chain, err=%v calls=%d", err, calls)
	}
}
