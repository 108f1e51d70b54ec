// Package ui implements a terminal progress monitor using bubbletea's Elm architecture.
//
// The [Model] renders a live view of a sync run: a spinner while fetching,
// a progress bar through the search phase, and a scrolling log of per-track
// events (matches, misses, duplicates). It consumes [tasks.ProgressUpdate]
// values from the channel the sync engine writes to, so the engine never
// blocks on a slow terminal.
//
// The monitor is read-only; q or ctrl+c detaches it without cancelling the
// underlying sync.
package ui
