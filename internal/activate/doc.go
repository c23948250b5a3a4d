// Package activate turns a validated env.Node tree into the flat environment
// map and applies it to the process environment.
//
// The process environment is the one shared mutable resource of envo. An
// Activator snapshots it once when created (the baseline) and restores that
// snapshot before every activation, so variables dropped from a descriptor do
// not survive a reload. All writes go through the Activator's mutex.
//
// Key naming:
//
//	group "sandbox", field "stage"            -> SANDBOX_STAGE
//	group "python" in "sandbox", "version"    -> SANDBOXPYTHON_VERSION
//	raw field "not_nested" at any depth       -> NOT_NESTED (or NOTNESTED when
//	                                             StripRawUnderscores is set)
package activate
