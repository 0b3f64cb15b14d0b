// Package pipeline resolves a target page into a RunResult.
//
// A resolution run is a pipeline of five steps over one model.Scan:
//
//  1. PageStep fetches and decodes the target page
//  2. SeedStep fills the work queue from links, imports and references
//  3. StylesheetStep follows @import chains level by level up to a depth bound
//  4. ScriptStep rescans the page together with its external scripts
//  5. VerdictStep classifies the run as YES or NO
//
// If the page cannot be fetched the pipeline stops after step 1 and the
// verdict stays UNKNOWN.
//
// Design decision: We use a pipeline pattern instead of one recursive
// function because:
// 1. Each stage can be tested on its own with a fake fetcher
// 2. Logging, cancellation and error handling live in one place
// 3. The per-run state is an explicit object, never package state
//
// BatchProcessor runs many resolutions concurrently using errgroup, each
// with a fresh pipeline and Scan.
package pipeline
