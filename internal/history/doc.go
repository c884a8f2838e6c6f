// Package history keeps a SQLite ledger of build runs and their per-ABI
// outcomes.
//
// The schema is applied from embedded, ordered migrations on Open. Writes
// are issued as the pipeline progresses so an interrupted run still shows up
// as running with the targets it finished.
package history
