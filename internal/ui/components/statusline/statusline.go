// Package statusline implements the status line component (inside
// C8): a single-line readout of the active connection.
package statusline

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/dbshell/dbshell/internal/bus"
	"github.com/dbshell/dbshell/internal/connector"
)

var style = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("15")).
	Background(lipgloss.Color("4")).
	Padding(0, 1)

// Model is the status line component's view-state: {host, database, kind}.
type Model struct {
	host     string
	database string
	kind     connector.Kind
	message  string
	severity bus.Severity
}

// New returns an empty status line (before any connection exists).
func New() *Model {
	return &Model{}
}

// Handle updates the status line in response to OnResource (connector
// info changes, observed via the same connectorInfoProvider duck type
// the table component uses) and OnMessage events.
func (m *Model) Handle(e bus.Event) {
	switch e.Kind {
	case bus.OnMessage:
		m.message = e.Text
		m.severity = e.Severity
	case bus.OnResource:
		if info, ok := resolveInfo(e.ResourceCmd.Add); ok {
			m.apply(info)
		}
		if info, ok := resolveInfo(e.ResourceCmd.Update); ok {
			m.apply(info)
		}
	}
}

func (m *Model) apply(info connector.Info) {
	m.host = info.Host
	m.database = info.Database
	m.kind = info.Kind
}

type connectorInfoProvider interface {
	Connector() connector.Connector
}

func resolveInfo(res any) (connector.Info, bool) {
	p, ok := res.(connectorInfoProvider)
	if !ok || p.Connector() == nil {
		return connector.Info{}, false
	}
	return p.Connector().Info(), true
}

// View renders the status line.
func (m *Model) View() string {
	text := "not connected"
	if m.host != "" {
		text = fmt.Sprintf("%s  %s/%s", m.kind, m.host, m.database)
	}
	if m.message != "" {
		text += "  " + m.message
	}
	return style.Render(text)
}
