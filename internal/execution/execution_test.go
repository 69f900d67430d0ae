package execution

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dbshell/dbshell/internal/bus"
	"github.com/dbshell/dbshell/internal/connector"
	"github.com/dbshell/dbshell/internal/value"
)

type fakeConnector struct {
	info      connector.Info
	rows      []value.Object
	getErr    error
	lastQuery string
}

func (f *fakeConnector) Info() connector.Info { return f.info }
func (f *fakeConnector) GetData(ctx context.Context, queryText string, page connector.Pagination) ([]value.Object, error) {
	f.lastQuery = queryText
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.rows, nil
}
func (f *fakeConnector) SetDatabase(ctx context.Context, name string) error {
	f.info.Database = name
	return nil
}
func (f *fakeConnector) SetConnection(ctx context.Context, uri string) (connector.Info, error) {
	f.info.URI = uri
	return f.info, nil
}

func TestHandleQueryWithoutConnectorEmitsError(t *testing.T) {
	b := New(t)
	r := NewResource(nil, b.syncEnqueue, b.bus.Sender(), nil)
	r.Handle(bus.Event{Kind: bus.OnQuery, QueryText: "db.a.find()"})

	got := b.bus.Drain()
	require.Len(t, got, 1)
	require.Equal(t, bus.ErrorSeverity, got[0].Severity)
}

func TestHandleQuerySendsDatabaseData(t *testing.T) {
	b := New(t)
	fc := &fakeConnector{rows: []value.Object{value.NewObject().Set("a", value.Int64(1)).Build()}}
	r := NewResource(fc, b.syncEnqueue, b.bus.Sender(), nil)

	r.Handle(bus.Event{Kind: bus.OnQuery, QueryText: "db.a.find()", Epoch: 7})

	got := b.bus.Drain()
	require.Len(t, got, 1)
	require.Equal(t, bus.DatabaseData, got[0].Kind)
	require.Equal(t, uint64(7), got[0].Epoch)
	require.Len(t, got[0].Rows, 1)
	require.Equal(t, "db.a.find()", fc.lastQuery)
}

func TestHandleConnectionSwitchDatabase(t *testing.T) {
	b := New(t)
	fc := &fakeConnector{}
	r := NewResource(fc, b.syncEnqueue, b.bus.Sender(), nil)

	name := "orders"
	r.Handle(bus.Event{Kind: bus.OnConnection, Connection: bus.ConnectionCommand{SwitchDatabase: &name}})

	got := b.bus.Drain()
	require.Len(t, got, 1)
	require.Equal(t, bus.OnResource, got[0].Kind)
	require.Same(t, r, got[0].ResourceCmd.Update)
	require.Equal(t, "orders", fc.info.Database)
}

func TestHandleConnectionReconnectReusesConnectorAndRefreshesResource(t *testing.T) {
	b := New(t)
	fc := &fakeConnector{info: connector.Info{Host: "old-host"}}
	r := NewResource(fc, b.syncEnqueue, b.bus.Sender(), nil)

	uri := "mongodb://new-host/db"
	r.Handle(bus.Event{Kind: bus.OnConnection, Connection: bus.ConnectionCommand{Connect: &uri}})

	got := b.bus.Drain()
	require.Len(t, got, 1)
	require.Equal(t, bus.OnConnection, got[0].Kind)
	require.NotNil(t, got[0].Connection.SwitchConnection)
	require.Equal(t, uri, fc.info.URI)

	// The main loop would rebroadcast the SwitchConnection event back to
	// the same resource; simulate that round trip.
	r.Handle(got[0])

	got = b.bus.Drain()
	require.Len(t, got, 1)
	require.Equal(t, bus.OnResource, got[0].Kind)
	require.Same(t, r, got[0].ResourceCmd.Update)
	require.Same(t, fc, r.Connector())
}

// testBus wraps a real bus.Bus with a synchronous enqueue helper so
// tests don't need the sweeper goroutine running.
type testBus struct {
	bus *bus.Bus
}

func New(t *testing.T) *testBus {
	t.Helper()
	return &testBus{bus: bus.New()}
}

func (b *testBus) syncEnqueue(fn bus.Task) bus.TaskHandle {
	e := fn(context.Background())
	b.bus.Sender().Send(e)
	return bus.TaskHandle{}
}
