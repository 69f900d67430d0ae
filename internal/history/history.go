// Package history is the command-line component's persistent history
// store: a UTF-8, newline-separated text file (`.command_history.txt`),
// appended as new commands are issued and de-duplicated by position
// when loaded, per the external filesystem contract.
package history

import (
	"bufio"
	"os"

	"github.com/cockroachdb/errors"
)

// Store is an on-disk, append-only log of previously issued commands.
type Store struct {
	path string
	f    *os.File
}

// Open opens (creating if necessary) the history file at path for
// appending.
func Open(path string) (*Store, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open history file at %s", path)
	}
	return &Store{path: path, f: f}, nil
}

// Close releases the store's file handle.
func (s *Store) Close() error {
	return s.f.Close()
}

// Append records cmd as the newest history entry. Best-effort: callers
// that disabled history (--disable-command-history) simply never call
// this.
func (s *Store) Append(cmd string) error {
	if _, err := s.f.WriteString(cmd + "\n"); err != nil {
		return errors.Wrapf(err, "failed to append history entry")
	}
	return nil
}

// All loads every stored command, oldest first, de-duplicated: a
// command re-issued later is moved to its most recent position rather
// than kept twice.
func (s *Store) All() ([]string, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read history file at %s", s.path)
	}
	defer f.Close()

	var ordered []string
	seen := map[string]int{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		cmd := scanner.Text()
		if cmd == "" {
			continue
		}
		if idx, ok := seen[cmd]; ok {
			ordered = append(ordered[:idx], ordered[idx+1:]...)
			for k, v := range seen {
				if v > idx {
					seen[k] = v - 1
				}
			}
		}
		seen[cmd] = len(ordered)
		ordered = append(ordered, cmd)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to read history file at %s", s.path)
	}
	return ordered, nil
}
