//go:build !linux

package watch

// Watcher is unavailable on this platform.
type Watcher struct{}

// New always fails with ErrUnsupported.
func New() (*Watcher, error) { return nil, ErrUnsupported }

func (w *Watcher) Events() <-chan Event { return nil }
func (w *Watcher) Errors() <-chan error { return nil }
func (w *Watcher) Add(string) error     { return ErrUnsupported }
func (w *Watcher) Set([]string) error   { return ErrUnsupported }
func (w *Watcher) Close() error         { return nil }
