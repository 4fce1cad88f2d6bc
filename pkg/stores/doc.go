// Package stores provides persistent storage for matrix run history.
//
// The SQLite-backed store records every matrix run and the per-configuration
// results, so interrupted runs can be inspected and past failures queried
// from the CLI.
package stores
