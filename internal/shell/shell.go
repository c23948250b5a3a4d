package shell

import "context"

// Handle is a running shell.
type Handle interface {
	// Done is closed once the shell has exited.
	Done() <-chan struct{}
	// Terminate stops the shell and returns after it has exited.
	Terminate() error
}

// Spawner starts interactive shells.
type Spawner interface {
	Spawn(ctx context.Context, prompt string, lines []string) (Handle, error)
}
