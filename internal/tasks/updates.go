package tasks

import (
	"fmt"

	"github.com/lunamare/tidesync/internal/models"
)

// ProgressUpdate represents a progress event during a sync run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchSource Phase = iota
	FetchTarget
	Prepopulate
	SearchTracks
	UpdateTarget
	SyncComplete
)

func (p Phase) String() string {
	switch p {
	case FetchSource:
		return "fetch_source"
	case FetchTarget:
		return "fetch_target"
	case Prepopulate:
		return "prepopulate"
	case SearchTracks:
		return "search_tracks"
	case UpdateTarget:
		return "update_target"
	case SyncComplete:
		return "sync_complete"
	default:
		return ""
	}
}

func fetchSourceUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    1,
		Total:   2,
		Message: fmt.Sprintf("Fetching %s...", name),
	}
}

func fetchTargetUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTarget,
		Step:    2,
		Total:   2,
		Message: fmt.Sprintf("Fetching %s...", name),
	}
}

func prepopulateUpdate(recorded, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Prepopulate,
		Step:    recorded,
		Total:   total,
		Message: fmt.Sprintf("Paired %d of %d tracks from existing contents", recorded, total),
	}
}

func searchStartUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SearchTracks,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Searching Tidal for %d tracks...", total),
	}
}

func trackMatchedUpdate(step, total int, track models.SourceTrack) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SearchTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s - %s", step, total, firstArtist(track), track.Name),
	}
}

func trackFailedUpdate(step, total int, track models.SourceTrack) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SearchTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ no match for %s - %s", step, total, firstArtist(track), track.Name),
	}
}

func updateTargetUpdate(plan UpdatePlan) ProgressUpdate {
	var msg string
	switch plan.Kind {
	case UpdateNone:
		msg = "Target already up to date"
	case UpdateAppend:
		msg = fmt.Sprintf("Appending %d tracks", len(plan.Tracks))
	case UpdateReplace:
		msg = fmt.Sprintf("Rewriting target with %d tracks", len(plan.Tracks))
	}
	return ProgressUpdate{
		Phase:   UpdateTarget,
		Step:    1,
		Total:   1,
		Message: msg,
		Data:    plan,
	}
}

func syncCompleteUpdate(result *SyncResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SyncComplete,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Synced %s: %d matched, %d unmatched", result.Name, result.Matched, result.Failed),
		Data:    result,
	}
}

func firstArtist(track models.SourceTrack) string {
	if len(track.Artists) == 0 {
		return "Unknown"
	}
	return track.Artists[0]
}
