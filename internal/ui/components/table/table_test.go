package table

import (
	"testing"

	"github.com/charmbracelet/bubbles/table"
	"github.com/stretchr/testify/require"

	"github.com/dbshell/dbshell/internal/bus"
	"github.com/dbshell/dbshell/internal/value"
)

func rowsOf(n int) []value.Object {
	out := make([]value.Object, n)
	for i := range out {
		out[i] = value.NewObject().Set("n", value.Int64(int64(i))).Build()
	}
	return out
}

func TestRunQueryResetsPagingAndEmitsOnQuery(t *testing.T) {
	b := bus.New()
	m := New(b.Sender())

	m.RunQuery("db.orders.find()", 1)

	events := b.Drain()
	require.Len(t, events, 1)
	require.Equal(t, bus.OnQuery, events[0].Kind)
	require.Equal(t, uint64(0), events[0].Pagination.Start)
	require.Equal(t, uint32(Page), events[0].Pagination.Limit)
}

func TestMoveDownAdvancesPageAtBoundary(t *testing.T) {
	b := bus.New()
	m := New(b.Sender())
	m.RunQuery("db.orders.find()", 1)
	b.Drain()

	m.Handle(bus.Event{Kind: bus.DatabaseData, Epoch: 1, Rows: rowsOf(Page)})
	require.Equal(t, 1, m.vSelect)

	for i := 0; i < Page-1; i++ {
		m.HandleKey("j")
	}

	require.Equal(t, uint64(Page-1), m.pagination.Start)
	require.Equal(t, 1, m.vSelect)
	require.Equal(t, 0, m.vOffset)

	events := b.Drain()
	require.Len(t, events, 1)
	require.Equal(t, bus.OnQuery, events[0].Kind)
	require.Equal(t, uint64(Page-1), events[0].Pagination.Start)
}

func TestMoveUpRewindsPageAtTop(t *testing.T) {
	b := bus.New()
	m := New(b.Sender())
	m.pagination.Start = Page - 1
	m.vSelect = 1

	m.HandleKey("k")

	require.Equal(t, uint64(0), m.pagination.Start)
	require.Equal(t, Page, m.vSelect)
}

func TestMoveUpNoopBeforeFirstPage(t *testing.T) {
	b := bus.New()
	m := New(b.Sender())

	m.HandleKey("k")

	require.Equal(t, uint64(0), m.pagination.Start)
	require.Empty(t, b.Drain())
}

func TestHorizontalScrollClampsToHeaderBounds(t *testing.T) {
	b := bus.New()
	m := New(b.Sender())
	m.header = []string{"a", "b", "c"}

	m.HandleKey("h")
	require.Equal(t, 0, m.hOffset)

	m.HandleKey("l")
	m.HandleKey("l")
	m.HandleKey("l")
	require.Equal(t, len(m.header)-1, m.hOffset)
}

func TestStaleDatabaseDataIsIgnored(t *testing.T) {
	b := bus.New()
	m := New(b.Sender())
	m.SetEpoch(5)

	cmd := m.Handle(bus.Event{Kind: bus.DatabaseData, Epoch: 1, Rows: rowsOf(3)})
	require.Nil(t, cmd)
	require.Empty(t, m.data)
}

func TestColumnWidthPrefersHeaderWhenWider(t *testing.T) {
	rows := []table.Row{{"a"}, {"bb"}}
	w := columnWidth("short", rows, 0)
	require.Equal(t, len("short"), w)
}

func TestColumnWidthPrefersAverageWhenWider(t *testing.T) {
	rows := []table.Row{{"aaaaaaaaaa"}, {"bbbbbbbbbb"}}
	w := columnWidth("h", rows, 0)
	require.Equal(t, 10, w)
}
