// Package env defines the in-memory model of an activatable environment: named
// variable groups with a static declaration list, and the EnvNode that adds a
// stage, an emoji, a root directory and an optional parent.
//
// A tree is built fresh for every activation cycle and is never mutated after
// the loader hands it over. Validate checks that the assigned variables match
// the declarations before anything touches the process environment.
package env
