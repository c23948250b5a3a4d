// Package shell spawns the interactive shell that carries an activated
// environment. The shell reads a generated rc file which sources the user's
// own rc file, re-exports the environment on top of it and prefixes the
// prompt with the stage emoji and the full env name.
package shell
