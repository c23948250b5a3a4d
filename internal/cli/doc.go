// Package cli handles command-line argument parsing for envo. It translates
// flags and the optional stage argument into an app.Config and reports usage
// errors as an ExitError carrying exit code 2.
package cli
