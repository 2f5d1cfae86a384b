package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/auth"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/domain"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/ports"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/pipeline"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/pkg/config"
)

type fakeGateway struct {
	runResult any
	runErr    error
	gotDriver string
	gotOp     string
	gotParams map[string]any

	callbackErr error
	records     []*domain.AuditRecord
	gotOpts     ports.AuditListOptions
}

func (g *fakeGateway) Run(ctx context.Context, driver, operation string, params map[string]any) (any, error) {
	g.gotDriver, g.gotOp, g.gotParams = driver, operation, params
	return g.runResult, g.runErr
}

func (g *fakeGateway) Callback(ctx context.Context, driver string, r *http.Request) (any, error) {
	g.gotDriver = driver
	return domain.Collection{}, g.callbackErr
}

func (g *fakeGateway) Events(ctx context.Context, opts ports.AuditListOptions) ([]*domain.AuditRecord, error) {
	g.gotOpts = opts
	return g.records, nil
}

func newTestServer(gw Gateway) *Server {
	return New(config.ServerConfig{Port: 0}, slog.New(slog.NewTextHandler(io.Discard, nil)), gw)
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := serve(newTestServer(&fakeGateway{}), httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestRun_JSONParams(t *testing.T) {
	gw := &fakeGateway{runResult: domain.Collection{"trade_state": "SUCCESS"}}
	s := newTestServer(gw)

	req := httptest.NewRequest("POST", "/v1/wechat/pos.query", strings.NewReader(`{"out_trade_no":"T123","_config":"shop2"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(s, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if gw.gotDriver != "wechat" || gw.gotOp != "pos.query" {
		t.Errorf("routed to %s/%s", gw.gotDriver, gw.gotOp)
	}
	if gw.gotParams["out_trade_no"] != "T123" || gw.gotParams["_config"] != "shop2" {
		t.Errorf("unexpected params %v", gw.gotParams)
	}

	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["trade_state"] != "SUCCESS" {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestRun_FormParams(t *testing.T) {
	gw := &fakeGateway{runResult: domain.Collection{}}
	s := newTestServer(gw)

	req := httptest.NewRequest("POST", "/v1/alipay/trade.query", strings.NewReader("out_trade_no=A1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	serve(s, req)

	if gw.gotParams["out_trade_no"] != "A1" {
		t.Errorf("unexpected params %v", gw.gotParams)
	}
}

func TestRun_MalformedBody(t *testing.T) {
	rec := serve(newTestServer(&fakeGateway{}), httptest.NewRequest("POST", "/v1/wechat/pos.query", strings.NewReader(`[1,2]`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRun_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantStage  string
	}{
		{
			name:       "invalid params from a stage",
			err:        &pipeline.StageError{Plugin: "wechat.pos.cancel", Err: domain.ErrInvalidParams("out_trade_no", "out_trade_no is required")},
			wantStatus: http.StatusBadRequest,
			wantType:   "invalid_params",
			wantStage:  "wechat.pos.cancel",
		},
		{
			name:       "unknown operation",
			err:        domain.ErrUnknownOperation("wechat", "pos.refund"),
			wantStatus: http.StatusNotFound,
			wantType:   "unknown_operation",
		},
		{
			name:       "gateway rejected",
			err:        domain.ErrTransport("gateway answered 500").WithStatusCode(500),
			wantStatus: http.StatusBadGateway,
			wantType:   "transport",
		},
		{
			name:       "untyped",
			err:        errors.New("boom with secret detail"),
			wantStatus: http.StatusInternalServerError,
			wantType:   "internal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&fakeGateway{runErr: tt.err})
			rec := serve(s, httptest.NewRequest("POST", "/v1/wechat/pos.cancel", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body struct {
				Error struct {
					Type    string `json:"type"`
					Message string `json:"message"`
					Stage   string `json:"stage"`
				} `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body.Error.Type != tt.wantType {
				t.Errorf("type = %q, want %q", body.Error.Type, tt.wantType)
			}
			if body.Error.Stage != tt.wantStage {
				t.Errorf("stage = %q, want %q", body.Error.Stage, tt.wantStage)
			}
			if strings.Contains(body.Error.Message, "secret") {
				t.Errorf("internal error message leaked: %q", body.Error.Message)
			}
		})
	}
}

func TestRun_RawResponse(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"text/html; charset=utf-8"}},
		Body:       io.NopCloser(strings.NewReader("<form id='alipaysubmit'></form>")),
	}
	s := newTestServer(&fakeGateway{runResult: resp})

	rec := serve(s, httptest.NewRequest("POST", "/v1/alipay/fund.trans.page.pay", nil))

	if rec.Header().Get("Content-Type") != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "alipaysubmit") {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestRun_OriginRocket(t *testing.T) {
	rocket := domain.NewRocket("wechat", "pos.cancel").
		SetPayload(map[string]any{"mchid": "mch1"}).
		SetDestination(http.MethodPost, "https://api.mch.weixin.qq.com/v3/x")
	s := newTestServer(&fakeGateway{runResult: rocket})

	rec := serve(s, httptest.NewRequest("POST", "/v1/wechat/pos.cancel", nil))

	var view rocketView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.ID != rocket.ID || view.Destination == nil || view.Payload["mchid"] != "mch1" {
		t.Errorf("unexpected view %+v", view)
	}
}

func TestNotify(t *testing.T) {
	gw := &fakeGateway{}
	rec := serve(newTestServer(gw), httptest.NewRequest("POST", "/notify/wechat", strings.NewReader(`{}`)))

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "SUCCESS") {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	if gw.gotDriver != "wechat" {
		t.Errorf("driver = %q", gw.gotDriver)
	}
}

func TestNotify_VerificationFailure(t *testing.T) {
	gw := &fakeGateway{callbackErr: &pipeline.StageError{
		Plugin: "wechat.verify_callback",
		Err:    domain.ErrVerification("signature mismatch"),
	}}
	rec := serve(newTestServer(gw), httptest.NewRequest("POST", "/notify/wechat", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestEvents(t *testing.T) {
	gw := &fakeGateway{records: []*domain.AuditRecord{{RocketID: "r-1", Kind: domain.EventPayStarted}}}
	s := newTestServer(gw)

	rec := serve(s, httptest.NewRequest("GET", "/v1/rockets/r-1/events?kind=pay.started&limit=5", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gw.gotOpts.RocketID != "r-1" || gw.gotOpts.Kind != domain.EventPayStarted || gw.gotOpts.Limit != 5 {
		t.Errorf("unexpected list options %+v", gw.gotOpts)
	}
	if !strings.Contains(rec.Body.String(), `"pay.started"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}

	bad := serve(s, httptest.NewRequest("GET", "/v1/rockets/r-1/events?limit=x", nil))
	if bad.Code != http.StatusBadRequest {
		t.Errorf("status for bad limit = %d", bad.Code)
	}
}

func TestNotify_BypassesAuth(t *testing.T) {
	cfg := config.ServerConfig{APIKeys: []config.APIKeyConfig{{Name: "ops", KeyHash: auth.HashAPIKey("k")}}}
	s := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), &fakeGateway{runResult: domain.Collection{}})

	if rec := serve(s, httptest.NewRequest("POST", "/notify/wechat", nil)); rec.Code != http.StatusOK {
		t.Errorf("notify status = %d, want 200", rec.Code)
	}
	if rec := serve(s, httptest.NewRequest("POST", "/v1/wechat/pos.query", nil)); rec.Code != http.StatusUnauthorized {
		t.Errorf("run without key status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest("POST", "/v1/wechat/pos.query", nil)
	req.Header.Set("Authorization", "Bearer k")
	if rec := serve(s, req); rec.Code != http.StatusOK {
		t.Errorf("run with key status = %d, want 200", rec.Code)
	}
}
