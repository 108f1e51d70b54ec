// Package models defines domain entities shared across the tidesync packages.
//
// The types fall into two categories:
//
// 1. Per-run track records, fetched at the start of a sync and discarded after:
//   - [SourceTrack] : Spotify track with the metadata the matcher consumes
//   - [CatalogTrack] : Tidal track or search candidate
//   - [CatalogAlbum] : Tidal album candidate from album-scoped search
//
// 2. Collection descriptors:
//   - [Playlist] : playlist metadata on either catalog
//   - [SyncTarget] : the destination of a run (playlist or favorites)
//
// Confirmed matches and exhausted searches persist across runs through the
// repositories package, keyed by [SourceTrack] ID.
package models
