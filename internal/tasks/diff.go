package tasks

import (
	"context"
	"slices"

	"github.com/lunamare/tidesync/internal/models"
)

// UpdateKind selects the mutation applied to the target.
type UpdateKind int

const (
	UpdateNone UpdateKind = iota
	UpdateAppend
	UpdateReplace
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateNone:
		return "none"
	case UpdateAppend:
		return "append"
	case UpdateReplace:
		return "replace"
	default:
		return ""
	}
}

// UpdatePlan is the minimal mutation that brings the target in line with the
// desired order. Tracks holds the appended suffix for UpdateAppend and the
// full desired list for UpdateReplace.
type UpdatePlan struct {
	Kind   UpdateKind
	Tracks []string
}

// DesiredTrackIDs resolves the source order through the match cache into the
// desired target id sequence.
//
// Walks the source tracks in order, emits each cached catalog id once, and
// returns the source tracks whose resolved id was already emitted earlier in
// the pass. Unmatched tracks are silently excluded.
func (e *Engine) DesiredTrackIDs(source []models.SourceTrack) (ids []string, duplicates []models.SourceTrack, err error) {
	seen := make(map[string]struct{})

	for _, track := range source {
		if track.ID == "" {
			continue
		}

		catalogID, ok, err := e.cache.Match(track.ID)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			continue
		}

		if _, dup := seen[catalogID]; dup {
			duplicates = append(duplicates, track)
			e.logger.Info("skipping duplicate", "track", track.Name, "artists", track.Artists)
			continue
		}
		seen[catalogID] = struct{}{}
		ids = append(ids, catalogID)
	}

	return ids, duplicates, nil
}

// PlanUpdate computes the minimal mutation turning oldIDs into newIDs.
//
// Equal sequences need nothing; when the current order is a prefix of the
// desired order only the suffix is appended; anything else is a full
// replace.
func PlanUpdate(oldIDs, newIDs []string) UpdatePlan {
	if slices.Equal(oldIDs, newIDs) {
		return UpdatePlan{Kind: UpdateNone}
	}

	if len(oldIDs) < len(newIDs) && slices.Equal(oldIDs, newIDs[:len(oldIDs)]) {
		return UpdatePlan{Kind: UpdateAppend, Tracks: newIDs[len(oldIDs):]}
	}

	return UpdatePlan{Kind: UpdateReplace, Tracks: newIDs}
}

// applyPlan executes an update plan against a playlist or the favorites list.
func (e *Engine) applyPlan(ctx context.Context, target models.SyncTarget, plan UpdatePlan) error {
	switch plan.Kind {
	case UpdateNone:
		return nil
	case UpdateAppend:
		if target.Favorites {
			return e.catalog.AddFavorites(ctx, plan.Tracks)
		}
		return e.catalog.AddPlaylistTracks(ctx, target.PlaylistID, plan.Tracks)
	case UpdateReplace:
		if target.Favorites {
			return e.catalog.SetFavorites(ctx, plan.Tracks)
		}
		return e.catalog.SetPlaylistTracks(ctx, target.PlaylistID, plan.Tracks)
	}
	return nil
}
