// Package execution is the execution layer: it owns the active
// Connector, turns OnQuery/OnConnection events into async tasks, and
// feeds the results back onto the bus as DatabaseData / OnMessage /
// OnResource events.
package execution

import (
	"context"
	"time"

	"github.com/dbshell/dbshell/internal/bus"
	"github.com/dbshell/dbshell/internal/connector"
	"github.com/dbshell/dbshell/internal/connector/docstore"
	"github.com/dbshell/dbshell/internal/connector/relational"
)

// Dialer opens a Connector for uri. Swappable in tests.
type Dialer func(ctx context.Context, uri string) (connector.Connector, error)

// Dial picks the docstore or relational driver based on the URI shape
// (connector.DetectKind) and opens a connection.
func Dial(ctx context.Context, uri string) (connector.Connector, error) {
	switch connector.DetectKind(uri) {
	case connector.DocumentStore:
		return docstore.Connect(ctx, uri)
	default:
		return relational.Connect(ctx, uri)
	}
}

// Resource is the registry-held, connector-owning resource (C7's
// "primarily the active connector"). It implements bus.Resource.
type Resource struct {
	enqueue func(bus.Task) bus.TaskHandle
	sender  bus.Sender
	dial    Dialer
	conn    connector.Connector
	epoch   uint64
}

// NewResource wraps conn (possibly nil, if startup hasn't connected
// yet) as a bus.Resource bound to enqueue for scheduling async work.
func NewResource(conn connector.Connector, enqueue func(bus.Task) bus.TaskHandle, sender bus.Sender, dial Dialer) *Resource {
	if dial == nil {
		dial = Dial
	}
	return &Resource{conn: conn, enqueue: enqueue, sender: sender, dial: dial}
}

// Connector returns the currently active connector, or nil before the
// first successful connection.
func (r *Resource) Connector() connector.Connector { return r.conn }

// Handle implements bus.Resource. It reacts to OnQuery and OnConnection
// events; every other event is ignored (the resource has no other
// observable state).
func (r *Resource) Handle(e bus.Event) {
	switch e.Kind {
	case bus.OnQuery:
		r.handleQuery(e)
	case bus.OnConnection:
		r.handleConnection(e)
	}
}

func (r *Resource) handleQuery(e bus.Event) {
	if r.conn == nil {
		r.sender.Send(bus.Event{Kind: bus.OnMessage, Severity: bus.ErrorSeverity, Text: "not connected to a database"})
		return
	}

	conn := r.conn
	epoch := e.Epoch
	queryText := e.QueryText
	page := e.Pagination
	fetchStart := time.Now()

	r.enqueue(func(ctx context.Context) bus.Event {
		rows, err := conn.GetData(ctx, queryText, page)
		if err != nil {
			return bus.Event{Kind: bus.OnMessage, Severity: bus.ErrorSeverity, Text: err.Error()}
		}
		return bus.Event{
			Kind:             bus.DatabaseData,
			Epoch:            epoch,
			FetchStartMillis: fetchStart.UnixMilli(),
			Rows:             rows,
			EmitTookMessage:  true,
		}
	})
}

func (r *Resource) handleConnection(e bus.Event) {
	cmd := e.Connection
	switch {
	case cmd.Connect != nil:
		uri := *cmd.Connect
		if r.conn == nil {
			dial := r.dial
			enqueue := r.enqueue
			sender := r.sender
			r.enqueue(func(ctx context.Context) bus.Event {
				conn, err := dial(ctx, uri)
				if err != nil {
					return bus.Event{Kind: bus.OnMessage, Severity: bus.ErrorSeverity, Text: err.Error()}
				}
				// A fresh Resource is built rather than mutating r.conn in
				// place: this closure runs on a worker goroutine, and r.conn
				// is read concurrently by the main loop whenever an OnQuery
				// arrives. Swapping the registry's held resource for a new
				// value (constructed before it is ever shared) keeps that
				// read from racing this write.
				next := &Resource{conn: conn, enqueue: enqueue, sender: sender, dial: dial}
				return bus.Event{
					Kind: bus.OnResource,
					ResourceCmd: bus.ResourceCommand{
						Update: next,
					},
				}
			})
			return
		}
		// Already connected: reuse the live connector's own SetConnection
		// capability instead of dialing a brand new one, and report back
		// as SwitchConnection so the registry's held resource refreshes.
		conn := r.conn
		r.enqueue(func(ctx context.Context) bus.Event {
			info, err := conn.SetConnection(ctx, uri)
			if err != nil {
				return bus.Event{Kind: bus.OnMessage, Severity: bus.ErrorSeverity, Text: err.Error()}
			}
			return bus.Event{Kind: bus.OnConnection, Connection: bus.ConnectionCommand{SwitchConnection: &info}}
		})
	case cmd.SwitchDatabase != nil:
		if r.conn == nil {
			r.sender.Send(bus.Event{Kind: bus.OnMessage, Severity: bus.ErrorSeverity, Text: "not connected to a database"})
			return
		}
		conn := r.conn
		name := *cmd.SwitchDatabase
		r.enqueue(func(ctx context.Context) bus.Event {
			if err := conn.SetDatabase(ctx, name); err != nil {
				return bus.Event{Kind: bus.OnMessage, Severity: bus.ErrorSeverity, Text: err.Error()}
			}
			return bus.Event{Kind: bus.OnResource, ResourceCmd: bus.ResourceCommand{Update: r}}
		})
	case cmd.SwitchConnection != nil:
		// Emitted by the reuse branch of Connect above once SetConnection
		// completes: notify observers that the active connector's info
		// changed, the same way a fresh Connect does.
		r.sender.Send(bus.Event{Kind: bus.OnResource, ResourceCmd: bus.ResourceCommand{Update: r}})
	}
}

// NextEpoch returns a fresh monotonic epoch for tagging a new OnQuery,
// so stale DatabaseData results (from a superseded query) can be
// recognized and ignored by the table component.
func (r *Resource) NextEpoch() uint64 {
	r.epoch++
	return r.epoch
}
