// Package cmd implements the rms command line interface. It provides a
// hierarchical command structure for talking to an rmemstore server and for
// running a local development server.
//
// The package is organized into several subpackages:
//
//   - kv: Client commands (put, get, bench)
//   - serve: Starts the in-memory development server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every flag can also be set through an environment variable with the RMS_
// prefix (e.g. RMS_TIMEOUT=5), the endpoint additionally through HOST. The
// files .env and .env.local are loaded on start.
//
// See rms --help for a list of all commands.
package cmd
