// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the execution modes (scaffold, dry run,
// dotenv dump and the supervised shell), decoupled from the CLI entrypoint.
package app
