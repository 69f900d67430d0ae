// Package app implements the application loop and window manager: a
// bubbletea program that ticks the terminal, drains the event bus
// through the resource registry and the three window components, and
// renders them in a vertical layout.
package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/dbshell/dbshell/internal/bus"
	"github.com/dbshell/dbshell/internal/connector"
	"github.com/dbshell/dbshell/internal/execution"
	"github.com/dbshell/dbshell/internal/history"
	"github.com/dbshell/dbshell/internal/resource"
	"github.com/dbshell/dbshell/internal/ui/components/cmdline"
	"github.com/dbshell/dbshell/internal/ui/components/statusline"
	"github.com/dbshell/dbshell/internal/ui/components/table"
	"github.com/dbshell/dbshell/internal/ui/throbber"
)

// Options configures a Run invocation; every field is read once at
// startup and passed in, per the "global singletons -> passed
// configuration" design note.
type Options struct {
	ConnectURI      string
	HistoryStore    *history.Store
	AppendToHistory bool
}

// Run wires the bus, resource registry, and window components together
// and drives the bubbletea program to completion. It returns when the
// user quits or the program errors.
func Run(ctx context.Context, opts Options) error {
	b := bus.New()
	sender := b.Sender()
	reg := resource.New()

	execRes := execution.NewResource(nil, b.Enqueue, sender, nil)
	reg.HandleResourceEvent(bus.Event{Kind: bus.OnResource, ResourceCmd: bus.ResourceCommand{Add: execRes}})

	m := newModel(b, sender, reg, opts)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
		_, err := p.Run()
		return err
	})

	g.Go(func() error {
		return b.RunSweeper(ctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// busEventMsg carries a drained bus.Event into the bubbletea Update
// loop as an ordinary tea.Msg.
type busEventMsg bus.Event

// eventer is satisfied by component-internal messages (e.g. the table
// component's status message) that want to be re-posted onto the bus
// once the bubbletea runtime has produced them as a tea.Msg.
type eventer interface {
	ToEvent() bus.Event
}

// connectorInfoProvider duck-types execution.Resource, matching the
// table/statusline components' own copies.
type connectorInfoProvider interface {
	Connector() connector.Connector
}

// model is the application's root bubbletea model: the window manager
// owning the table, status line, and command line components plus the
// bus/registry plumbing that ties them to the execution layer.
type model struct {
	bus    *bus.Bus
	sender bus.Sender
	reg    *resource.Registry

	table   *table.Model
	status  *statusline.Model
	cmdline *cmdline.Model

	connectorReady bool
	quitting       bool
	startedAt      time.Time
	initialURI     string

	width, height int
}

func newModel(b *bus.Bus, sender bus.Sender, reg *resource.Registry, opts Options) model {
	return model{
		bus:        b,
		sender:     sender,
		reg:        reg,
		table:      table.New(sender),
		status:     statusline.New(),
		cmdline:    cmdline.New(sender, opts.HistoryStore, opts.AppendToHistory),
		startedAt:  time.Now(),
		initialURI: opts.ConnectURI,
	}
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.listen(), throbberTick()}
	if m.initialURI != "" {
		uri := m.initialURI
		cmds = append(cmds, func() tea.Msg {
			return busEventMsg(bus.Event{Kind: bus.OnConnection, Connection: bus.ConnectionCommand{Connect: &uri}})
		})
	}
	return tea.Batch(cmds...)
}

// listen blocks for the next bus event and delivers it as a tea.Msg;
// the caller re-issues it after every delivery to keep draining.
func (m model) listen() tea.Cmd {
	return func() tea.Msg {
		e, ok := m.bus.Next(context.Background())
		if !ok {
			return nil
		}
		return busEventMsg(e)
	}
}

type throbberTickMsg time.Time

func throbberTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return throbberTickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case throbberTickMsg:
		if m.connectorReady {
			return m, nil
		}
		return m, throbberTick()
	case tea.KeyMsg:
		return m.handleKey(msg)
	case busEventMsg:
		cmd := m.dispatch(bus.Event(msg))
		if m.quitting {
			return m, tea.Quit
		}
		return m, tea.Batch(cmd, m.listen())
	}

	if ev, ok := msg.(eventer); ok {
		m.sender.Send(ev.ToEvent())
		return m, nil
	}
	return m, nil
}

func (m *model) resize(width, height int) {
	m.width, m.height = width, height
	tableHeight := height - 2
	if tableHeight < 1 {
		tableHeight = 1
	}
	m.table.SetSize(width, tableHeight)
}

// dispatch routes a drained bus event through the resource registry
// and the window components: OnResource is absorbed by the registry
// before component dispatch (and observed by components too, so
// table/status pick up new connector info); every other event is
// broadcast to resources after component dispatch, so the
// connector-holding resource stays current regardless of focus.
func (m *model) dispatch(e bus.Event) tea.Cmd {
	if e.Kind == bus.OnResource {
		m.reg.HandleResourceEvent(e)
	}

	var cmds []tea.Cmd
	if cmd := m.table.Handle(e); cmd != nil {
		cmds = append(cmds, cmd)
	}
	m.status.Handle(e)

	if _, ok := observeReady(e); ok {
		m.connectorReady = true
	}

	if e.Kind == bus.OnQuit {
		m.quitting = true
	}

	if e.Kind != bus.OnResource {
		m.reg.Broadcast(e)
	}

	return tea.Batch(cmds...)
}

func observeReady(e bus.Event) (connector.Info, bool) {
	if e.Kind != bus.OnResource {
		return connector.Info{}, false
	}
	if p, ok := e.ResourceCmd.Add.(connectorInfoProvider); ok && p.Connector() != nil {
		return p.Connector().Info(), true
	}
	if p, ok := e.ResourceCmd.Update.(connectorInfoProvider); ok && p.Connector() != nil {
		return p.Connector().Info(), true
	}
	return connector.Info{}, false
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !m.connectorReady {
		if msg.String() == "q" {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	if m.cmdline.Focused() {
		return m.handleCommandLineKey(msg)
	}

	switch msg.String() {
	case ":":
		m.cmdline.SetFocused(true)
	case "q":
		m.quitting = true
		return m, tea.Quit
	default:
		m.table.HandleKey(msg.String())
	}
	return m, nil
}

func (m model) handleCommandLineKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.cmdline.SetFocused(false)
	case tea.KeyEnter:
		m.cmdline.Submit()
		m.cmdline.SetFocused(false)
	case tea.KeyBackspace:
		m.cmdline.Backspace()
	case tea.KeyTab:
		m.cmdline.AcceptShadow()
	case tea.KeyUp:
		m.cmdline.NavigateHistory(-1)
	case tea.KeyDown:
		m.cmdline.NavigateHistory(1)
	case tea.KeySpace:
		m.cmdline.Type(' ')
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			m.cmdline.Type(r)
		}
	}
	return m, nil
}

func (m model) View() string {
	if !m.connectorReady {
		return throbber.Render(timeSince(m.startedAt))
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.status.View(),
		m.table.View(),
		":"+m.cmdline.View(),
	)
}

func timeSince(t time.Time) time.Duration { return time.Since(t) }
