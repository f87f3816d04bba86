// Package cmd implements the command-line interface of dRec. It provides
// commands for running the record server and for talking to it as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Starts and configures the dRec server
//   - student: Client commands for record operations (insert, find, list, ...)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every flag can also be set with an environment variable of the form DREC_<flag>
// (e.g. DREC_IDLE_TIMEOUT=30s). Variables are also read from .env and .env.local.
//
// See drec -help for a list of all commands.
package cmd
