package watch

import (
	"errors"
	"strings"
)

// ErrUnsupported is returned by New on platforms without inotify.
var ErrUnsupported = errors.New("file watching is not supported on this platform")

// Op describes what happened to a watched file.
type Op uint32

const (
	// OpWrite means a file opened for writing was closed.
	OpWrite Op = 1 << iota
	// OpMove means a file was moved or renamed onto the watched path.
	OpMove
)

func (o Op) String() string {
	var parts []string
	if o&OpWrite != 0 {
		parts = append(parts, "write")
	}
	if o&OpMove != 0 {
		parts = append(parts, "move")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Event is a change to a watched file.
type Event struct {
	Path string
	Op   Op
}
