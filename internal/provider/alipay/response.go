package alipay

import (
	"bytes"
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/domain"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/ports"
)

var formTemplate = template.Must(template.New("alipaysubmit").Parse(
	`<form id="alipaysubmit" name="alipaysubmit" action="{{.Action}}" method="POST">` +
		`{{range .Fields}}<input type="hidden" name="{{.Name}}" value="{{.Value}}"/>{{end}}` +
		`<input type="submit" value="ok" style="display:none;"></form>` +
		`<script>document.forms['alipaysubmit'].submit();</script>`))

type formField struct {
	Name  string
	Value string
}

// HTMLResponsePlugin renders rockets with a response direction as an auto-submitting
// form aimed at the gateway.
type HTMLResponsePlugin struct{}

func (HTMLResponsePlugin) Name() string { return "alipay.html_response" }

func (HTMLResponsePlugin) Assemble(ctx context.Context, rocket *domain.Rocket, next ports.Next) (*domain.Rocket, error) {
	if rocket.Direction() != domain.DirectionResponse {
		return next(ctx, rocket)
	}

	form, err := url.ParseQuery(rocket.Body)
	if err != nil {
		return nil, domain.ErrInvalidParams("_body", "signed form is malformed").WithCause(err)
	}

	names := make([]string, 0, len(form))
	for k := range form {
		names = append(names, k)
	}
	sort.Strings(names)

	fields := make([]formField, len(names))
	for i, k := range names {
		fields[i] = formField{Name: k, Value: form.Get(k)}
	}

	var buf bytes.Buffer
	err = formTemplate.Execute(&buf, struct {
		Action string
		Fields []formField
	}{
		Action: rocket.Endpoint() + "?charset=utf-8",
		Fields: fields,
	})
	if err != nil {
		return nil, domain.ErrDecode("render payment form").WithCause(err)
	}

	rocket.Response = &domain.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"text/html; charset=utf-8"}},
		Body:       buf.Bytes(),
	}

	return next(ctx, rocket)
}

// ResponseKey returns the JSON member that wraps the result of an API method.
func ResponseKey(method string) string {
	return strings.ReplaceAll(method, ".", "_") + "_response"
}

// responseSignature verifies the method's response member against the top-level sign.
// Locally rendered forms carry nothing to verify.
func responseSignature(rocket *domain.Rocket) ([]byte, string, bool) {
	if rocket.Response == nil || rocket.Direction() == domain.DirectionResponse {
		return nil, "", false
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(rocket.Response.Body, &body); err != nil {
		return rocket.Response.Body, "", true
	}

	var signature string
	_ = json.Unmarshal(body["sign"], &signature)

	return ResponseContent(body[ResponseKey(rocket.Payload().String("method"))]), signature, true
}

// ResponseContent is the canonical form of a response member: its JSON with sorted keys.
func ResponseContent(raw json.RawMessage) []byte {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return raw
	}
	b, _ := json.Marshal(v)
	return b
}

// callbackSignature verifies an asynchronous notification's form fields.
func callbackSignature(rocket *domain.Rocket) ([]byte, string, bool) {
	form := url.Values{}
	for k := range rocket.Params() {
		if strings.HasPrefix(k, "_") || k == "sign_type" {
			continue
		}
		form.Set(k, rocket.Params().String(k))
	}
	return SigningContent(form), form.Get("sign"), true
}
