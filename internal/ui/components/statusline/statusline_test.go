package statusline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dbshell/dbshell/internal/bus"
	"github.com/dbshell/dbshell/internal/connector"
	"github.com/dbshell/dbshell/internal/value"
)

type fakeConnector struct{ info connector.Info }

func (f fakeConnector) Info() connector.Info { return f.info }
func (f fakeConnector) GetData(ctx context.Context, queryText string, page connector.Pagination) ([]value.Object, error) {
	return nil, nil
}
func (f fakeConnector) SetDatabase(ctx context.Context, name string) error { return nil }
func (f fakeConnector) SetConnection(ctx context.Context, uri string) (connector.Info, error) {
	return f.info, nil
}

type fakeProvider struct{ conn connector.Connector }

func (f fakeProvider) Connector() connector.Connector { return f.conn }
func (f fakeProvider) Handle(e bus.Event)             {}

func TestViewShowsNotConnectedInitially(t *testing.T) {
	m := New()
	require.Contains(t, m.View(), "not connected")
}

func TestHandleMessageUpdatesText(t *testing.T) {
	m := New()
	m.Handle(bus.Event{Kind: bus.OnMessage, Text: "hello", Severity: bus.Info})
	require.Contains(t, m.View(), "not connected")
	require.Contains(t, m.View(), "hello")
}

func TestHandleResourceAddAppliesConnectorInfo(t *testing.T) {
	m := New()
	provider := fakeProvider{conn: fakeConnector{info: connector.Info{Host: "localhost:27017", Database: "orders", Kind: connector.DocumentStore}}}
	m.Handle(bus.Event{Kind: bus.OnResource, ResourceCmd: bus.ResourceCommand{Add: provider}})

	view := m.View()
	require.Contains(t, view, "localhost:27017")
	require.Contains(t, view, "orders")
}
