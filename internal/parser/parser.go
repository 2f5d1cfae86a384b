// Package parser turns a finished rocket into the value returned to the caller,
// chosen by the rocket's direction.
package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/domain"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/ports"
)

// Func adapts a function to the ports.Parser interface.
type Func func(ctx context.Context, rocket *domain.Rocket) (any, error)

// Parse calls f.
func (f Func) Parse(ctx context.Context, rocket *domain.Rocket) (any, error) {
	return f(ctx, rocket)
}

// Registry maps directions to parsers.
type Registry struct {
	mu      sync.RWMutex
	parsers map[domain.Direction]ports.Parser
}

// NewRegistry returns a registry holding the built-in parser for every direction.
func NewRegistry() *Registry {
	r := &Registry{parsers: make(map[domain.Direction]ports.Parser)}
	r.Register(domain.DirectionCollection, Func(Collection))
	r.Register(domain.DirectionArray, Func(Array))
	r.Register(domain.DirectionNoRequest, Func(NoRequest))
	r.Register(domain.DirectionResponse, Func(Response))
	r.Register(domain.DirectionOrigin, Func(Origin))
	return r
}

// Register installs p for direction d, replacing any existing parser.
func (r *Registry) Register(d domain.Direction, p ports.Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers[d] = p
}

// Get returns the parser for d.
func (r *Registry) Get(d domain.Direction) (ports.Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parsers[d]
	return p, ok
}

// Parse dispatches rocket to the parser registered for its direction.
func (r *Registry) Parse(ctx context.Context, rocket *domain.Rocket) (any, error) {
	p, ok := r.Get(rocket.Direction())
	if !ok {
		return nil, domain.ErrDecode(fmt.Sprintf("no parser for direction %q", rocket.Direction())).
			WithCode(domain.ErrorCodeUnknownDirection)
	}
	return p.Parse(ctx, rocket)
}

// Collection decodes the gateway's JSON body into a domain.Collection.
// An empty body (204 No Content) yields an empty collection.
func Collection(ctx context.Context, rocket *domain.Rocket) (any, error) {
	m, err := decodeBody(rocket)
	if err != nil {
		return nil, err
	}
	return domain.NewCollection(m), nil
}

// Array decodes the gateway's JSON body into a plain map.
func Array(ctx context.Context, rocket *domain.Rocket) (any, error) {
	return decodeBody(rocket)
}

// NoRequest returns a copy of the assembled payload.
func NoRequest(ctx context.Context, rocket *domain.Rocket) (any, error) {
	return rocket.Payload().DeepClone(), nil
}

// Response returns the prepared or received response as an *http.Response.
func Response(ctx context.Context, rocket *domain.Rocket) (any, error) {
	if rocket.Response == nil {
		return nil, domain.ErrDecode("rocket carries no response").
			WithCode(domain.ErrorCodeResponseEmpty)
	}

	header := rocket.Response.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode:    rocket.Response.StatusCode,
		Status:        fmt.Sprintf("%d %s", rocket.Response.StatusCode, http.StatusText(rocket.Response.StatusCode)),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(rocket.Response.Body)),
		ContentLength: int64(len(rocket.Response.Body)),
	}, nil
}

// Origin returns the rocket itself.
func Origin(ctx context.Context, rocket *domain.Rocket) (any, error) {
	return rocket, nil
}

func decodeBody(rocket *domain.Rocket) (map[string]any, error) {
	if rocket.Response == nil {
		return nil, domain.ErrDecode("rocket carries no response").
			WithCode(domain.ErrorCodeResponseEmpty)
	}
	if len(bytes.TrimSpace(rocket.Response.Body)) == 0 {
		return map[string]any{}, nil
	}

	var m map[string]any
	if err := json.Unmarshal(rocket.Response.Body, &m); err != nil {
		return nil, domain.ErrDecode("response body is not a JSON object").WithCause(err)
	}
	return m, nil
}
