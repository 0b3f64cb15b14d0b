// Package database provides SQLite-based scan history for gfontscan.
//
// This package implements the HistoryDB, which stores:
//   - Every resolution result as JSON, with its verdict and hit counts
//   - The digest of every Google Fonts stylesheet fetched per run
//
// Comparing the two most recent results of a destination shows when a site
// started (or stopped) loading fonts from Google servers.
//
// Design decision: We use SQLite (via modernc.org/sqlite) because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. WAL mode lets `gfontscan history` read while a scan writes
package database
