package clilog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/orchestraio/cli/cmd/orchestra/cli/paths"
)

// MaxLogSize is the rotation threshold for the JSONL log (5 MiB).
const MaxLogSize = 5 * 1024 * 1024

// Log is the append-only JSONL file of tool invocations.
// A single generation of backup is kept across rotations.
type Log struct {
	path       string
	backupPath string
	maxSize    int64
}

// NewLog returns the log rooted at the layout's log directory.
func NewLog(layout paths.Layout) *Log {
	return &Log{
		path:       layout.CLIToolsLog(),
		backupPath: layout.CLIToolsLogRotated(),
		maxSize:    MaxLogSize,
	}
}

// Path returns the location of the current log file.
func (l *Log) Path() string {
	return l.path
}

// Append writes one entry as a JSON line, creating the log directory as
// needed and rotating first when the file has reached the size threshold.
// Entries are never mutated after being written.
func (l *Log) Append(entry Entry) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o750); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}

	if err := l.rotateIfNeeded(); err != nil {
		return err
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) //nolint:gosec // path derived from layout
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer f.Close() //nolint:errcheck // best-effort close after explicit flush below

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(entry); err != nil {
		return fmt.Errorf("encoding log entry: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing log entry: %w", err)
	}
	return nil
}

// rotateIfNeeded moves the current file aside once it meets the size
// threshold. The previous backup, if any, is dropped: exactly one prior
// generation survives. Concurrent rotations can race; the worst case is
// one rotation's backup being overwritten, which is accepted.
func (l *Log) rotateIfNeeded() error {
	info, err := os.Stat(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return nil // unreadable stat: skip rotation, append anyway
	}
	if info.Size() < l.maxSize {
		return nil
	}

	if err := os.Remove(l.backupPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing old log backup: %w", err)
	}
	if err := os.Rename(l.path, l.backupPath); err != nil {
		return fmt.Errorf("rotating log file: %w", err)
	}
	return nil
}
