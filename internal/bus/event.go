// Package bus implements the application's single-consumer event queue:
// producers hold a cloned Sender, the application loop is the only
// consumer, and a background sweeper periodically drains queued async
// tasks onto the runtime.
package bus

import (
	"github.com/dbshell/dbshell/internal/connector"
	"github.com/dbshell/dbshell/internal/value"
)

// Severity classifies an OnMessage event for status-line rendering.
type Severity int

const (
	Info Severity = iota
	Warn
	ErrorSeverity
)

// WindowCommand requests a focus change from a component.
type WindowCommand struct {
	SetFocusedWindow    *int
	SetFocusedComponent *int
}

// ConnectionCommand is the payload of an OnConnection event.
type ConnectionCommand struct {
	Connect         *string
	SwitchConnection *connector.Info
	SwitchDatabase   *string
}

// ResourceCommand is the payload of an OnResource event.
type ResourceCommand struct {
	Add    Resource
	Update Resource
}

// Resource is anything the registry keeps alive and forwards events
// to.
type Resource interface {
	Handle(e Event)
}

// Event is the bus's sum type. Exactly one field is meaningful per
// Kind; the rest are zero.
type Event struct {
	Kind Kind

	// OnInput
	Key string

	// OnMessage
	Severity Severity
	Text     string

	// OnQuery
	QueryText  string
	Pagination connector.Pagination
	Epoch      uint64

	// DatabaseData
	FetchStartMillis int64
	Rows             []value.Object
	EmitTookMessage  bool

	// OnConnection
	Connection ConnectionCommand

	// OnWindowCommand
	Window WindowCommand

	// OnResource
	ResourceCmd ResourceCommand

	// OnAsync
	Task TaskHandle
}

// Kind identifies the Event variant.
type Kind int

const (
	OnInput Kind = iota
	OnMessage
	OnQuery
	DatabaseData
	OnConnection
	OnWindowCommand
	OnResource
	OnAsync
	OnQuit
)

func (k Kind) String() string {
	switch k {
	case OnInput:
		return "OnInput"
	case OnMessage:
		return "OnMessage"
	case OnQuery:
		return "OnQuery"
	case DatabaseData:
		return "DatabaseData"
	case OnConnection:
		return "OnConnection"
	case OnWindowCommand:
		return "OnWindowCommand"
	case OnResource:
		return "OnResource"
	case OnAsync:
		return "OnAsync"
	case OnQuit:
		return "OnQuit"
	default:
		return "Unknown"
	}
}
