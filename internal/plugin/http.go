package plugin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/domain"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/ports"
)

// maxResponseBytes caps how much of a gateway response is read into memory.
const maxResponseBytes = 4 << 20

// HTTPPlugin performs the outbound call for rockets whose direction requires one and
// records the answer on rocket.Response. Rockets with a no_request or response direction
// pass straight through.
type HTTPPlugin struct {
	client ports.HTTPDoer
	events ports.EventDispatcher
}

// NewHTTPPlugin creates the terminal transport plugin. events may be nil.
func NewHTTPPlugin(client ports.HTTPDoer, events ports.EventDispatcher) *HTTPPlugin {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPPlugin{client: client, events: events}
}

func (p *HTTPPlugin) Name() string { return "http" }

func (p *HTTPPlugin) Assemble(ctx context.Context, rocket *domain.Rocket, next ports.Next) (*domain.Rocket, error) {
	if !rocket.Direction().RequiresRequest() {
		return next(ctx, rocket)
	}

	dest := rocket.Destination()
	if dest == nil {
		return nil, domain.ErrInvalidParams("_url", "no destination was assembled for "+rocket.Operation).
			WithStage(p.Name())
	}

	if err := p.dispatch(ctx, domain.APIRequesting{
		Rocket:   rocket.ID,
		Driver:   rocket.Driver,
		Endpoint: dest.URL,
		Payload:  rocket.Payload().DeepClone(),
	}); err != nil {
		return nil, err
	}

	var body io.Reader
	if rocket.Body != "" {
		body = strings.NewReader(rocket.Body)
	}
	req, err := http.NewRequestWithContext(ctx, dest.Method, dest.URL, body)
	if err != nil {
		return nil, domain.ErrTransport("build request").WithStage(p.Name()).WithCause(err)
	}
	for k, vs := range rocket.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, domain.ErrTransport(fmt.Sprintf("%s %s failed", dest.Method, dest.URL)).
			WithStage(p.Name()).
			WithCause(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, domain.ErrTransport("read response body").WithStage(p.Name()).WithCause(err)
	}

	rocket.Response = &domain.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       raw,
	}

	if err := p.dispatch(ctx, domain.APIRequested{
		Rocket: rocket.ID,
		Driver: rocket.Driver,
		Result: rocket.Response.Clone(),
	}); err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, domain.ErrTransport(fmt.Sprintf("gateway answered %d: %s", resp.StatusCode, truncate(raw, 256))).
			WithCode(domain.ErrorCodeResponseStatus).
			WithStatusCode(resp.StatusCode).
			WithStage(p.Name())
	}

	return next(ctx, rocket)
}

func (p *HTTPPlugin) dispatch(ctx context.Context, ev domain.Event) error {
	if p.events == nil {
		return nil
	}
	return p.events.Dispatch(ctx, ev)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

var _ ports.Plugin = (*HTTPPlugin)(nil)
