package domain

// EventKind identifies the type of a pipeline lifecycle event.
type EventKind string

const (
	EventPayStarting      EventKind = "pay.starting"
	EventPayStarted       EventKind = "pay.started"
	EventPluginAssembling EventKind = "plugin.assembling"
	EventAPIRequesting    EventKind = "api.requesting"
	EventAPIRequested     EventKind = "api.requested"
	EventSignFailed       EventKind = "sign.failed"
	EventRequestReceived  EventKind = "request.received"
	EventMethodCalled     EventKind = "method.called"
)

// EventKinds lists every kind a subscriber may register for.
var EventKinds = []EventKind{
	EventPayStarting,
	EventPayStarted,
	EventPluginAssembling,
	EventAPIRequesting,
	EventAPIRequested,
	EventSignFailed,
	EventRequestReceived,
	EventMethodCalled,
}

// Event is a lifecycle notification. Events are values: subscribers observe them and
// cannot change the pipeline outcome through them.
type Event interface {
	Kind() EventKind
	// RunID is the ID of the rocket the event belongs to, or "" outside a run.
	RunID() string
}

// PayStarting is emitted before the plugin list for an operation is resolved.
type PayStarting struct {
	Rocket  string     `json:"rocket_id"`
	Driver  string     `json:"driver"`
	Gateway string     `json:"gateway"`
	Params  Collection `json:"params"`
}

func (e PayStarting) Kind() EventKind { return EventPayStarting }
func (e PayStarting) RunID() string   { return e.Rocket }

// PayStarted is emitted once the outbound request is fully assembled.
type PayStarted struct {
	Rocket   string     `json:"rocket_id"`
	Driver   string     `json:"driver"`
	Gateway  string     `json:"gateway"`
	Endpoint string     `json:"endpoint"`
	Payload  Collection `json:"payload"`
}

func (e PayStarted) Kind() EventKind { return EventPayStarted }
func (e PayStarted) RunID() string   { return e.Rocket }

// PluginAssembling is emitted by the executor right before a plugin runs.
type PluginAssembling struct {
	Rocket  string `json:"rocket_id"`
	Driver  string `json:"driver"`
	Gateway string `json:"gateway"`
	Plugin  string `json:"plugin"`
}

func (e PluginAssembling) Kind() EventKind { return EventPluginAssembling }
func (e PluginAssembling) RunID() string   { return e.Rocket }

// APIRequesting is emitted right before the outbound HTTP call.
type APIRequesting struct {
	Rocket   string     `json:"rocket_id"`
	Driver   string     `json:"driver"`
	Endpoint string     `json:"endpoint"`
	Payload  Collection `json:"payload"`
}

func (e APIRequesting) Kind() EventKind { return EventAPIRequesting }
func (e APIRequesting) RunID() string   { return e.Rocket }

// APIRequested is emitted after the gateway answered.
type APIRequested struct {
	Rocket string    `json:"rocket_id"`
	Driver string    `json:"driver"`
	Result *Response `json:"result"`
}

func (e APIRequested) Kind() EventKind { return EventAPIRequested }
func (e APIRequested) RunID() string   { return e.Rocket }

// SignFailed is emitted before a verification error propagates.
type SignFailed struct {
	Rocket string         `json:"rocket_id"`
	Driver string         `json:"driver"`
	Data   map[string]any `json:"data"`
}

func (e SignFailed) Kind() EventKind { return EventSignFailed }
func (e SignFailed) RunID() string   { return e.Rocket }

// RequestReceived is emitted when a gateway notification arrives.
type RequestReceived struct {
	Rocket string         `json:"rocket_id"`
	Driver string         `json:"driver"`
	Data   map[string]any `json:"data"`
}

func (e RequestReceived) Kind() EventKind { return EventRequestReceived }
func (e RequestReceived) RunID() string   { return e.Rocket }

// MethodCalled is emitted after an operation completed successfully.
type MethodCalled struct {
	Rocket   string     `json:"rocket_id"`
	Driver   string     `json:"driver"`
	Gateway  string     `json:"gateway"`
	Endpoint string     `json:"endpoint"`
	Payload  Collection `json:"payload"`
}

func (e MethodCalled) Kind() EventKind { return EventMethodCalled }
func (e MethodCalled) RunID() string   { return e.Rocket }
