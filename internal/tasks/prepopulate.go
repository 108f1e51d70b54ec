package tasks

import (
	"github.com/lunamare/tidesync/internal/match"
	"github.com/lunamare/tidesync/internal/models"
)

// Prepopulate reconciles the fetched source and target track lists before
// any network search, recording a match for every overlapping pair.
//
// Two greedy passes, both "first encountered in catalog order wins":
//
//  1. Catalog-first: for each target track in order, claim the first
//     eligible source track the matcher confirms. Only the source side is
//     consumed, so a later pass may map further source tracks onto the same
//     catalog entry.
//  2. Source-first: for each source track still unclaimed, scan the target
//     entries not consumed within this pass and record the first match.
//
// Source tracks without an id or with an existing cached match are skipped,
// as are target entries the catalog marks unavailable.
// Returns the number of matches recorded.
func (e *Engine) Prepopulate(source []models.SourceTrack, target []models.CatalogTrack) (int, error) {
	var eligible []int
	for i, track := range source {
		if track.ID == "" {
			continue
		}
		_, cached, err := e.cache.Match(track.ID)
		if err != nil {
			return 0, err
		}
		if cached {
			continue
		}
		eligible = append(eligible, i)
	}

	recorded := 0
	consumedSource := make(map[int]struct{})

	for _, candidate := range target {
		if !candidate.Available {
			continue
		}
		for _, i := range eligible {
			if _, ok := consumedSource[i]; ok {
				continue
			}
			if !match.Track(source[i], candidate) {
				continue
			}
			if err := e.cache.Confirm(source[i].ID, candidate.ID); err != nil {
				return recorded, err
			}
			consumedSource[i] = struct{}{}
			recorded++
			break
		}
	}

	consumedTarget := make(map[int]struct{})
	for _, i := range eligible {
		if _, ok := consumedSource[i]; ok {
			continue
		}
		for j, candidate := range target {
			if _, ok := consumedTarget[j]; ok {
				continue
			}
			if !candidate.Available {
				continue
			}
			if !match.Track(source[i], candidate) {
				continue
			}
			if err := e.cache.Confirm(source[i].ID, candidate.ID); err != nil {
				return recorded, err
			}
			consumedSource[i] = struct{}{}
			consumedTarget[j] = struct{}{}
			recorded++
			break
		}
	}

	return recorded, nil
}

// unresolvedTracks filters the source list down to tracks that still need a
// catalog search: identified, no cached match, no cached failure.
func (e *Engine) unresolvedTracks(source []models.SourceTrack) ([]models.SourceTrack, error) {
	var unresolved []models.SourceTrack
	for _, track := range source {
		if track.ID == "" {
			continue
		}

		_, matched, err := e.cache.Match(track.ID)
		if err != nil {
			return nil, err
		}
		if matched {
			continue
		}

		failed, err := e.cache.HasFailure(track.ID)
		if err != nil {
			return nil, err
		}
		if failed {
			continue
		}

		unresolved = append(unresolved, track)
	}
	return unresolved, nil
}
