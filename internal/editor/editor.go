// Package editor spawns the user's $EDITOR for query composition and
// read-only row inspection, per the external-editor workflow of the
// scrollable table component.
package editor

import (
	"crypto/sha1"
	"encoding/hex"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/dbshell/dbshell/internal/config"
	"github.com/dbshell/dbshell/internal/connector"
)

// queryFileFor returns a stable per-connection scratch file path, so
// repeated edits against the same connection reuse (and thus
// accumulate history in) the same file.
func queryFileFor(info connector.Info) (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	scratchDir := filepath.Join(dir, "queries")
	if err := os.MkdirAll(scratchDir, 0o700); err != nil {
		return "", errors.Wrapf(err, "failed to create query scratch directory")
	}
	sum := sha1.Sum([]byte(info.URI + "/" + info.Database))
	return filepath.Join(scratchDir, hex.EncodeToString(sum[:])+".js"), nil
}

func editorCommand() string {
	if e := os.Getenv("EDITOR"); e != "" {
		return e
	}
	return "vi"
}

// EditQueryFile opens the per-connection scratch file (seeded with
// seed if it doesn't already contain something) in $EDITOR, waits for
// it to exit, and returns the file's resulting contents.
func EditQueryFile(info connector.Info, seed string) (string, error) {
	path, err := queryFileFor(info)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(path, []byte(seed), 0o600); err != nil {
			return "", errors.Wrapf(err, "failed to seed query file")
		}
	}

	if err := runEditor(path); err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read query file")
	}
	return string(data), nil
}

// ViewReadOnly writes content to a throwaway temp file and opens it in
// $EDITOR; the caller is responsible for the editor being configured
// read-only (most terminal editors open in a writable buffer regardless,
// but edits are discarded once the temp file is removed).
func ViewReadOnly(content string) error {
	f, err := os.CreateTemp("", "dbshell-row-*.json")
	if err != nil {
		return errors.Wrapf(err, "failed to create temp file")
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "failed to write temp file")
	}
	if err := f.Close(); err != nil {
		return err
	}

	return runEditor(path)
}

func runEditor(path string) error {
	cmd := exec.Command(editorCommand(), path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "editor exited with an error")
	}
	return nil
}

// RunShellCapture spawns the user's shell to evaluate cmd (the
// argument-substitution form `!(<shell cmd>)` in the command line) and
// returns its trimmed stdout.
func RunShellCapture(cmdText string) (string, error) {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	out, err := exec.Command(shell, "-ci", cmdText).Output()
	if err != nil {
		return "", errors.Wrapf(err, "shell command failed: %s", cmdText)
	}
	return trimNewline(string(out)), nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
