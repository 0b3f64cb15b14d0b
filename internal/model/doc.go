// Package model defines the core data structures used throughout gfontscan.
//
// This package contains the following main types:
//   - Origin: scheme and host of the scanned page, derived once per run
//   - Scan: the mutable state of one resolution run (queue, visited set, hits)
//   - HitSet: a deduplicated set of discovered URLs
//   - RunResult: the final, serializable outcome of a run
//   - ResultDiff: the difference between two stored runs
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The pipeline, report and database packages all need these
// types, so centralizing them prevents import cycles.
package model
