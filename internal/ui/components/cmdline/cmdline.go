// Package cmdline implements the command line component (inside C8):
// the repository's miniature command parser, with fuzzy history
// navigation and shadow completion.
package cmdline

import (
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/charmbracelet/lipgloss"

	"github.com/dbshell/dbshell/internal/bus"
	"github.com/dbshell/dbshell/internal/editor"
	"github.com/dbshell/dbshell/internal/history"
)

// kinds are the recognized command kinds, also the shadow-completion
// candidate set.
var kinds = []string{"use", "connect", "quit", "q"}

var shellSubstitution = regexp.MustCompile(`^!\((.*)\)$`)

// Model is the command line component.
type Model struct {
	sender       bus.Sender
	store        *history.Store
	appendToHist bool

	buffer        string
	entries       []string
	filtered      []string
	historyCursor int
	focused       bool
	severity      bus.Severity
	statusText    string
}

// New returns a command line bound to sender, loading history from
// store (nil disables both loading and appending).
func New(sender bus.Sender, store *history.Store, appendToHistory bool) *Model {
	m := &Model{sender: sender, store: store, appendToHist: appendToHistory, historyCursor: -1}
	if store != nil {
		if entries, err := store.All(); err == nil {
			m.entries = entries
		}
	}
	return m
}

// Buffer returns the current input text.
func (m *Model) Buffer() string { return m.buffer }

// Focused reports whether the command line currently owns key input.
func (m *Model) Focused() bool { return m.focused }

// SetFocused updates focus, matching OnWindowCommand's contract.
func (m *Model) SetFocused(f bool) { m.focused = f }

// Type appends r to the buffer and resets the fuzzy history cursor,
// per "while the buffer is being edited the cursor resets".
func (m *Model) Type(r rune) {
	m.buffer += string(r)
	m.historyCursor = -1
	m.filtered = nil
}

// Backspace removes the last rune of the buffer.
func (m *Model) Backspace() {
	if len(m.buffer) == 0 {
		return
	}
	runes := []rune(m.buffer)
	m.buffer = string(runes[:len(runes)-1])
	m.historyCursor = -1
	m.filtered = nil
}

// ShadowSuggestion returns the dim completion suffix shown for the
// first fuzzy match against the command-kind set, or "" if none.
func (m *Model) ShadowSuggestion() string {
	if m.buffer == "" {
		return ""
	}
	best := fuzzyBest(m.buffer, kinds)
	if best == "" || !strings.HasPrefix(best, m.buffer) {
		return ""
	}
	return best[len(m.buffer):]
}

// AcceptShadow accepts the current shadow suggestion (Tab).
func (m *Model) AcceptShadow() {
	if s := m.ShadowSuggestion(); s != "" {
		m.buffer += s
	}
}

// NavigateHistory moves the fuzzy-filtered history cursor by delta
// (+1 for Down, -1 for Up) and loads the selected entry into the
// buffer.
func (m *Model) NavigateHistory(delta int) {
	if m.filtered == nil {
		m.filtered = fuzzyFilter(m.buffer, m.entries)
	}
	if len(m.filtered) == 0 {
		return
	}
	next := m.historyCursor + delta
	if next < 0 {
		next = 0
	}
	if next >= len(m.filtered) {
		next = len(m.filtered) - 1
	}
	m.historyCursor = next
	m.buffer = m.filtered[len(m.filtered)-1-next]
}

// Submit parses and dispatches the current buffer, clearing it
// afterward. Parse or substitution errors are recorded as the command
// line's status text (see StatusText) rather than sent as a bus event;
// View does not render that text.
func (m *Model) Submit() {
	text := strings.TrimSpace(m.buffer)
	m.buffer = ""
	m.historyCursor = -1
	m.filtered = nil
	if text == "" {
		return
	}

	if m.appendToHist && m.store != nil {
		_ = m.store.Append(text)
		m.entries = append(m.entries, text)
	}

	kind, arg, ok := splitCommand(text)
	if !ok {
		m.setError("invalid command")
		return
	}

	resolvedArg, err := resolveSubstitution(arg)
	if err != nil {
		m.setError(err.Error())
		return
	}

	switch kind {
	case "use":
		if resolvedArg == "" {
			m.setError("use requires a database name")
			return
		}
		name := resolvedArg
		m.sender.Send(bus.Event{Kind: bus.OnConnection, Connection: bus.ConnectionCommand{SwitchDatabase: &name}})
	case "connect":
		if resolvedArg == "" {
			m.setError("connect requires a URI")
			return
		}
		uri := resolvedArg
		m.sender.Send(bus.Event{Kind: bus.OnConnection, Connection: bus.ConnectionCommand{Connect: &uri}})
	case "quit", "q":
		m.sender.Send(bus.Event{Kind: bus.OnQuit})
	default:
		m.setError("unknown command " + kind)
	}
}

func (m *Model) setError(msg string) {
	m.severity = bus.ErrorSeverity
	m.statusText = msg
}

// StatusText returns the most recent in-line error, if any.
func (m *Model) StatusText() string { return m.statusText }

func splitCommand(text string) (kind, arg string, ok bool) {
	fields := strings.SplitN(text, " ", 2)
	if len(fields) == 0 || fields[0] == "" {
		return "", "", false
	}
	if len(fields) == 1 {
		return fields[0], "", true
	}
	return fields[0], strings.TrimSpace(fields[1]), true
}

func resolveSubstitution(arg string) (string, error) {
	m := shellSubstitution.FindStringSubmatch(arg)
	if m == nil {
		return arg, nil
	}
	return editor.RunShellCapture(m[1])
}

// fuzzyBest returns the candidate in candidates with the smallest
// levenshtein distance to prefix, restricted to candidates that are at
// least as long as prefix.
func fuzzyBest(prefix string, candidates []string) string {
	best := ""
	bestDist := -1
	for _, c := range candidates {
		if len(c) < len(prefix) {
			continue
		}
		d := levenshtein.ComputeDistance(prefix, c[:len(prefix)])
		if bestDist == -1 || d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}

// fuzzyFilter ranks entries by levenshtein distance to query,
// ascending (closest match first), excluding entries farther than half
// their own length.
func fuzzyFilter(query string, entries []string) []string {
	if query == "" {
		return append([]string{}, entries...)
	}
	type scored struct {
		text string
		dist int
	}
	var candidates []scored
	for _, e := range entries {
		d := levenshtein.ComputeDistance(query, e)
		if d < (len(e)/2)+1 {
			candidates = append(candidates, scored{e, d})
		}
	}
	out := make([]string, len(candidates))
	for i := range candidates {
		minIdx := i
		for j := i + 1; j < len(candidates); j++ {
			if candidates[j].dist < candidates[minIdx].dist {
				minIdx = j
			}
		}
		candidates[i], candidates[minIdx] = candidates[minIdx], candidates[i]
		out[i] = candidates[i].text
	}
	return out
}

// View renders the command line, including the shadow suggestion.
func (m *Model) View() string {
	shadow := m.ShadowSuggestion()
	if shadow == "" {
		return m.buffer
	}
	return m.buffer + lipgloss.NewStyle().Faint(true).Render(shadow)
}
