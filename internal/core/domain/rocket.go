package domain

import (
	"net/http"

	"github.com/google/uuid"
)

// Direction tells the caller which parser consumes the final rocket.
type Direction string

const (
	// DirectionCollection decodes the gateway's JSON response into a Collection. Default.
	DirectionCollection Direction = "collection"
	// DirectionArray decodes the gateway's JSON response into a plain map.
	DirectionArray Direction = "array"
	// DirectionNoRequest skips the outbound call and returns the assembled payload.
	DirectionNoRequest Direction = "no_request"
	// DirectionResponse skips the outbound call and returns the rocket's prepared
	// *http.Response (page-pay forms, redirects).
	DirectionResponse Direction = "response"
	// DirectionOrigin returns the rocket itself.
	DirectionOrigin Direction = "origin"
)

// RequiresRequest reports whether the terminal HTTP plugin must perform a network call
// for rockets carrying this direction.
func (d Direction) RequiresRequest() bool {
	switch d {
	case DirectionNoRequest, DirectionResponse:
		return false
	default:
		return true
	}
}

// Destination is the outbound target of a rocket.
type Destination struct {
	Method string `json:"method"`
	URL    string `json:"url"`
}

// Response is the raw gateway response captured by the terminal HTTP plugin,
// or the response prepared locally for DirectionResponse.
type Response struct {
	StatusCode int         `json:"status_code"`
	Header     http.Header `json:"header,omitempty"`
	Body       []byte      `json:"body,omitempty"`
}

// Clone returns a copy with its own header map and body.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	return &Response{
		StatusCode: r.StatusCode,
		Header:     r.Header.Clone(),
		Body:       append([]byte(nil), r.Body...),
	}
}

// Rocket carries one in-flight request through the plugin chain.
//
// A rocket is owned by a single pipeline run. Plugins mutate it in place and must not
// keep a reference past their own Assemble call.
type Rocket struct {
	// ID correlates every event emitted for this run.
	ID string
	// Driver is the provider name (wechat, alipay).
	Driver string
	// Operation is the provider operation being assembled (pos.cancel).
	Operation string

	params      Collection
	payload     Collection
	destination *Destination
	direction   Direction

	// Headers are extra outbound headers, typically set by signing plugins.
	Headers http.Header
	// Body is the encoded outbound body.
	Body string
	// Response is set once the gateway has answered (or a local response was prepared).
	Response *Response
}

// NewRocket creates an empty rocket for one run.
func NewRocket(driver, operation string) *Rocket {
	return &Rocket{
		ID:        uuid.New().String(),
		Driver:    driver,
		Operation: operation,
		params:    Collection{},
		payload:   Collection{},
		direction: DirectionCollection,
		Headers:   http.Header{},
	}
}

// SetParams replaces the request-time arguments. Call it before the run starts.
func (r *Rocket) SetParams(params map[string]any) *Rocket {
	r.params = NewCollection(params)
	return r
}

// Params returns the request-time arguments. Plugins treat them as read-only.
func (r *Rocket) Params() Collection {
	return r.params
}

// MergePayload merges fields into the payload, keeping unrelated existing fields.
func (r *Rocket) MergePayload(fields map[string]any) *Rocket {
	if r.payload == nil {
		r.payload = Collection{}
	}
	r.payload.Merge(fields)
	return r
}

// SetPayload replaces the payload wholesale. Only the plugin that shapes the outbound
// call may use it; everything else merges.
func (r *Rocket) SetPayload(payload map[string]any) *Rocket {
	r.payload = NewCollection(payload)
	return r
}

// Payload returns the payload under construction.
func (r *Rocket) Payload() Collection {
	return r.payload
}

// SetDestination sets the outbound method and URL.
func (r *Rocket) SetDestination(method, url string) *Rocket {
	r.destination = &Destination{Method: method, URL: url}
	return r
}

// Destination returns the outbound target, or nil when no plugin has set one.
func (r *Rocket) Destination() *Destination {
	return r.destination
}

// SetDirection tags the rocket with the parser that should consume it.
func (r *Rocket) SetDirection(d Direction) *Rocket {
	r.direction = d
	return r
}

// Direction returns the parser tag.
func (r *Rocket) Direction() Direction {
	return r.direction
}

// Endpoint returns the destination URL or "" when unset.
func (r *Rocket) Endpoint() string {
	if r.destination == nil {
		return ""
	}
	return r.destination.URL
}
