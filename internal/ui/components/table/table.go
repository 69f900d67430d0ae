// Package table implements the scrollable table component (inside C8):
// the paging cursor state machine from the window/component spec, with
// bubbles/table handling layout and rendering.
package table

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dbshell/dbshell/internal/bus"
	"github.com/dbshell/dbshell/internal/connector"
	"github.com/dbshell/dbshell/internal/editor"
	"github.com/dbshell/dbshell/internal/value"
)

// Page is the fetch page size and also the vSelect upper bound.
const Page = 100

// maxAverageWidth caps which cells count toward a column's average
// width, per the column-width heuristic.
const maxAverageWidth = 100

// maxHeaderWidth caps how much a non-last column's header width counts
// toward that column's width; a wider cell average still wins.
const maxHeaderWidth = 30

// Model is the scrollable table component.
type Model struct {
	sender bus.Sender

	data       []value.Object
	header     []string
	inner      table.Model
	pagination connector.Pagination
	epoch      uint64

	vSelect int
	vOffset int
	hOffset int

	connectorInfo *connector.Info
	fetching      bool
	throbberStart int64
	lastQuery     string

	width, height int
}

// New returns an empty table bound to sender for emitting re-query and
// status events.
func New(sender bus.Sender) *Model {
	inner := table.New(table.WithFocused(true))
	return &Model{sender: sender, inner: inner, pagination: connector.Pagination{Limit: Page}, vSelect: 1}
}

// SetSize updates the component's draw area.
func (m *Model) SetSize(width, height int) {
	m.width, m.height = width, height
	m.inner.SetWidth(width)
	m.inner.SetHeight(height)
}

// SetEpoch tags subsequent OnQuery events this table issues, so stale
// DatabaseData results can be dropped.
func (m *Model) SetEpoch(epoch uint64) { m.epoch = epoch }

// Handle implements bus.Resource-shaped event handling for the events
// this component cares about: DatabaseData and OnResource (connector
// info). Key input arrives separately through HandleKey.
func (m *Model) Handle(e bus.Event) tea.Cmd {
	switch e.Kind {
	case bus.DatabaseData:
		return m.handleDatabaseData(e)
	case bus.OnResource:
		if e.ResourceCmd.Add != nil {
			m.observeConnectorInfo(e.ResourceCmd.Add)
		}
		if e.ResourceCmd.Update != nil {
			m.observeConnectorInfo(e.ResourceCmd.Update)
		}
	}
	return nil
}

// connectorInfoProvider is satisfied by execution.Resource without an
// import cycle.
type connectorInfoProvider interface {
	Connector() connector.Connector
}

func (m *Model) observeConnectorInfo(res any) {
	p, ok := res.(connectorInfoProvider)
	if !ok || p.Connector() == nil {
		return
	}
	info := p.Connector().Info()
	m.connectorInfo = &info
}

func (m *Model) handleDatabaseData(e bus.Event) tea.Cmd {
	if e.Epoch != m.epoch {
		return nil
	}
	m.fetching = false
	m.data = e.Rows
	m.renderRows()

	if !e.EmitTookMessage {
		return nil
	}
	deltaMs := nowMillis() - e.FetchStartMillis
	return func() tea.Msg {
		return statusMsg{text: fmt.Sprintf("Query took %d ms", deltaMs)}
	}
}

// statusMsg is emitted back to the owning application as a tea.Cmd
// result, which forwards it onto the bus as OnMessage(Info, ...).
type statusMsg struct{ text string }

func (m statusMsg) ToEvent() bus.Event {
	return bus.Event{Kind: bus.OnMessage, Severity: bus.Info, Text: m.text}
}

// RunQuery issues a fresh OnQuery for queryText, resetting paging.
func (m *Model) RunQuery(queryText string, epoch uint64) {
	m.lastQuery = queryText
	m.epoch = epoch
	m.pagination = connector.Pagination{Start: 0, Limit: Page}
	m.vSelect, m.vOffset, m.hOffset = 1, 0, 0
	m.fetching = true
	m.sender.Send(bus.Event{Kind: bus.OnQuery, QueryText: queryText, Pagination: m.pagination, Epoch: epoch})
}

// Reissue re-runs the last query without resetting paging (the `r` key).
func (m *Model) Reissue() {
	if m.lastQuery == "" {
		return
	}
	m.fetching = true
	m.sender.Send(bus.Event{Kind: bus.OnQuery, QueryText: m.lastQuery, Pagination: m.pagination, Epoch: m.epoch})
}

// HandleKey applies the paging state machine for a single key press.
func (m *Model) HandleKey(key string) {
	switch key {
	case "j", "down":
		m.moveDown()
	case "k", "up":
		m.moveUp()
	case "h", "left":
		if m.hOffset > 0 {
			m.hOffset--
		}
	case "l", "right":
		if len(m.header) > 0 && m.hOffset < len(m.header)-1 {
			m.hOffset++
		}
	case "i":
		m.editQuery()
	case "r":
		m.Reissue()
	case "enter":
		m.inspectSelectedRow()
	}
}

func (m *Model) moveDown() {
	if m.vSelect < len(m.data) {
		m.vSelect++
	}
	if m.vOffset+m.vSelect == Page {
		m.pagination.Start += Page - 1
		m.vOffset, m.vSelect = 0, 1
		m.fetching = true
		m.sender.Send(bus.Event{Kind: bus.OnQuery, QueryText: m.lastQuery, Pagination: m.pagination, Epoch: m.epoch})
	}
}

func (m *Model) moveUp() {
	if m.vSelect > 1 {
		m.vSelect--
		return
	}
	if m.pagination.Start == 0 {
		return
	}
	if m.pagination.Start%(Page-1) != 0 {
		return
	}
	m.pagination.Start -= Page - 1
	m.vOffset, m.vSelect = 0, Page
	m.fetching = true
	m.sender.Send(bus.Event{Kind: bus.OnQuery, QueryText: m.lastQuery, Pagination: m.pagination, Epoch: m.epoch})
}

func (m *Model) editQuery() {
	if m.connectorInfo == nil {
		m.sender.Send(bus.Event{Kind: bus.OnMessage, Severity: bus.ErrorSeverity, Text: "not connected to a database"})
		return
	}
	text, err := editor.EditQueryFile(*m.connectorInfo, m.lastQuery)
	if err != nil {
		m.sender.Send(bus.Event{Kind: bus.OnMessage, Severity: bus.ErrorSeverity, Text: err.Error()})
		return
	}
	m.RunQuery(text, m.epoch+1)
}

func (m *Model) inspectSelectedRow() {
	idx := m.vOffset + m.vSelect - 1
	if idx < 0 || idx >= len(m.data) {
		return
	}
	pretty, err := json.MarshalIndent(m.data[idx], "", "  ")
	if err != nil {
		m.sender.Send(bus.Event{Kind: bus.OnMessage, Severity: bus.ErrorSeverity, Text: err.Error()})
		return
	}
	if err := editor.ViewReadOnly(string(pretty)); err != nil {
		m.sender.Send(bus.Event{Kind: bus.OnMessage, Severity: bus.ErrorSeverity, Text: err.Error()})
	}
}

// renderRows rebuilds the bubbles/table columns and rows from m.data,
// applying the column-width heuristic.
func (m *Model) renderRows() {
	if len(m.data) == 0 {
		m.header = nil
		m.inner.SetColumns(nil)
		m.inner.SetRows(nil)
		return
	}

	m.header = m.data[0].SortedKeys()
	cols := make([]table.Column, len(m.header))
	rows := make([]table.Row, len(m.data))

	for r, obj := range m.data {
		row := make(table.Row, len(m.header))
		for c, key := range m.header {
			v, _ := obj.Field(key)
			row[c] = cellString(v)
		}
		rows[r] = row
	}

	for c, key := range m.header {
		if c == len(m.header)-1 {
			cols[c] = table.Column{Title: key, Width: remainderWidth(m.width, cols[:c])}
			continue
		}
		cols[c] = table.Column{Title: key, Width: columnWidth(key, rows, c)}
	}

	m.inner.SetColumns(cols)
	m.inner.SetRows(rows)
	m.inner.SetCursor(m.vOffset + m.vSelect - 1)
}

func columnWidth(header string, rows []table.Row, col int) int {
	var total, n int
	for _, row := range rows {
		w := len(row[col])
		if w > maxAverageWidth {
			continue
		}
		total += w
		n++
	}
	avg := 0
	if n > 0 {
		avg = total / n
	}
	headerWidth := len(header)
	if headerWidth > maxHeaderWidth {
		headerWidth = maxHeaderWidth
	}
	if avg > headerWidth {
		return avg
	}
	return headerWidth
}

func remainderWidth(total int, cols []table.Column) int {
	used := 0
	for _, c := range cols {
		used += c.Width
	}
	remainder := total - used
	if remainder < 10 {
		remainder = 10
	}
	return remainder
}

func cellString(v value.Value) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	s := strings.Trim(string(raw), `"`)
	return s
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// View renders the table, or a faint "fetching…" line while a fetch is
// in flight and no rows are held yet.
func (m *Model) View() string {
	if m.fetching && len(m.data) == 0 {
		return lipgloss.NewStyle().Faint(true).Render("fetching…")
	}
	return m.inner.View()
}
