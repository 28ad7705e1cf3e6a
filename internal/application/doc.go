// Package application provides application initialization and dependency wiring.
// It creates the snapshot storage, configuration builder, handlers, router
// and HTTP server, performs the initial declaration load and drives reloads
// from the file watcher, keeping the main package focused on CLI parsing and
// orchestration.
package application
