package cmdline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dbshell/dbshell/internal/bus"
)

func newTestModel() (*Model, *bus.Bus) {
	b := bus.New()
	return New(b.Sender(), nil, false), b
}

func TestSubmitUseEmitsSwitchDatabase(t *testing.T) {
	m, b := newTestModel()
	for _, r := range "use orders" {
		m.Type(r)
	}
	m.Submit()

	got := b.Drain()
	require.Len(t, got, 1)
	require.Equal(t, bus.OnConnection, got[0].Kind)
	require.NotNil(t, got[0].Connection.SwitchDatabase)
	require.Equal(t, "orders", *got[0].Connection.SwitchDatabase)
	require.Empty(t, m.Buffer())
}

func TestSubmitConnectEmitsConnect(t *testing.T) {
	m, b := newTestModel()
	for _, r := range "connect mongodb://localhost:27017/orders" {
		m.Type(r)
	}
	m.Submit()

	got := b.Drain()
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Connection.Connect)
	require.Equal(t, "mongodb://localhost:27017/orders", *got[0].Connection.Connect)
}

func TestSubmitQuitEmitsOnQuit(t *testing.T) {
	m, b := newTestModel()
	for _, r := range "quit" {
		m.Type(r)
	}
	m.Submit()

	got := b.Drain()
	require.Len(t, got, 1)
	require.Equal(t, bus.OnQuit, got[0].Kind)
}

func TestSubmitUnknownCommandSetsStatusText(t *testing.T) {
	m, b := newTestModel()
	for _, r := range "bogus thing" {
		m.Type(r)
	}
	m.Submit()

	require.Empty(t, b.Drain())
	require.Contains(t, m.StatusText(), "unknown command")
}

func TestBackspaceRemovesLastRune(t *testing.T) {
	m, _ := newTestModel()
	m.Type('a')
	m.Type('b')
	m.Backspace()
	require.Equal(t, "a", m.Buffer())
}

func TestShadowSuggestionCompletesCommandKind(t *testing.T) {
	m, _ := newTestModel()
	m.Type('c')
	m.Type('o')
	require.Equal(t, "nnect", m.ShadowSuggestion())
}

func TestAcceptShadowAppliesSuggestion(t *testing.T) {
	m, _ := newTestModel()
	m.Type('q')
	m.AcceptShadow()
	require.Equal(t, "q", m.Buffer())
}

func TestNavigateHistoryFuzzyFiltersByCurrentBuffer(t *testing.T) {
	b := bus.New()
	m := New(b.Sender(), nil, false)
	m.entries = []string{"use orders", "connect mongodb://localhost/orders", "quit"}

	for _, r := range "use" {
		m.Type(r)
	}
	m.NavigateHistory(1)
	require.Equal(t, "use orders", m.Buffer())
}
