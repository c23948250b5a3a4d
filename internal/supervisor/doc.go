// Package supervisor runs the hot-reload loop: it keeps one interactive shell
// alive with the activated environment and replaces it whenever a descriptor
// file changes.
//
// Reloads are serialized by one mutex, which the shell exit check also
// takes. A shell that exits because a reload terminated it is never
// mistaken for the user quitting.
package supervisor
