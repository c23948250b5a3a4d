// Package watch reports writes to a set of files. On Linux it uses inotify
// on the files' parent directories, so files replaced by a rename (the way
// most editors save) keep being watched.
package watch
