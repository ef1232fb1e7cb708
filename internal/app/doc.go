// Package app provides application initialization and lifecycle
// management. It wires configuration, logging, observability, the user
// store, the credential verifier, the license validator, and the
// request gate together at startup using dependency injection.
//
// # Initialization Flow
//
// The typical initialization sequence:
//
//	1. Load configuration from environment and files
//	2. Initialize logging and observability
//	3. Create the user store
//	4. Build the license validator and request gate
//	5. Set up HTTP handlers and middleware
//	6. Configure the HTTP server
//
// # Graceful Shutdown
//
// Run handles SIGINT and SIGTERM so that active requests are drained
// within the configured shutdown timeout and the database pool and
// log file are closed afterwards.
//
// All initialization errors are returned to the caller; the package
// never calls os.Exit() directly.
package app
