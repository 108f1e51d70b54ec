// Package match implements the heuristic track-identity matcher.
//
// Two tracks are "the same song" when their ISRC codes agree, or when
// duration, title and artists all agree under a set of normalization and
// exclusion rules. The heuristics prefer false negatives over false
// positives: a missed match is retried on the next run, a wrong match
// would silently corrupt the target playlist.
package match

import (
	"math"
	"strings"

	"github.com/lunamare/tidesync/internal/models"
)

// DurationTolerance is the maximum allowed difference in seconds between
// two durations for them to be considered the same recording.
const DurationTolerance = 2.0

// AlbumSimilarityThreshold is the minimum edit-distance ratio between two
// simplified album titles for an album-scoped search hit.
const AlbumSimilarityThreshold = 0.6

// exclusionTokens are qualifiers that must appear on both sides or
// neither: a vocal cut must not match its instrumental, and so on.
var exclusionTokens = []string{"instrumental", "acapella", "remix"}

// Track reports whether a source track and a catalog candidate represent
// the same song.
//
// An ISRC match is sufficient on its own. Otherwise duration, name and
// artist must all agree. A source track without an identifier never
// matches.
func Track(source models.SourceTrack, candidate models.CatalogTrack) bool {
	if source.ID == "" {
		return false
	}
	return isrcMatch(source, candidate) ||
		(durationMatch(source, candidate) && nameMatch(source, candidate) && artistMatch(source.Artists, candidate.Artists))
}

// AlbumSimilar reports whether a catalog album plausibly is the album a
// source track came from: similar simplified title and at least one
// shared artist.
func AlbumSimilar(albumName string, albumArtists []string, candidate models.CatalogAlbum) bool {
	return similarity(Simplify(albumName), Simplify(candidate.Name)) >= AlbumSimilarityThreshold &&
		artistMatch(albumArtists, candidate.Artists)
}

func isrcMatch(source models.SourceTrack, candidate models.CatalogTrack) bool {
	if source.ISRC == "" {
		return false
	}
	return candidate.ISRC == source.ISRC
}

func durationMatch(source models.SourceTrack, candidate models.CatalogTrack) bool {
	return math.Abs(float64(candidate.Duration)-source.Duration()) < DurationTolerance
}

func nameMatch(source models.SourceTrack, candidate models.CatalogTrack) bool {
	for _, token := range exclusionTokens {
		if excluded(token, source, candidate) {
			return false
		}
	}

	// The simplified source title must be a substring of the candidate
	// title, raw first, then ASCII-folded.
	simplified := strings.TrimSpace(strings.SplitN(Simplify(strings.ToLower(source.Name)), "feat.", 2)[0])
	candidateName := strings.ToLower(candidate.Name)
	return strings.Contains(candidateName, simplified) ||
		strings.Contains(Fold(candidateName), Fold(simplified))
}

// excluded reports whether a qualifier token appears on exactly one side.
// The candidate side counts both its title and its version field.
func excluded(token string, source models.SourceTrack, candidate models.CatalogTrack) bool {
	inSource := strings.Contains(strings.ToLower(source.Name), token)
	inCandidate := strings.Contains(strings.ToLower(candidate.Name), token) ||
		strings.Contains(strings.ToLower(candidate.Version), token)
	return inSource != inCandidate
}

// artistMatch reports whether the two artist lists share at least one
// name, comparing unfolded sets first and ASCII-folded sets second.
func artistMatch(sourceArtists, candidateArtists []string) bool {
	if setsIntersect(artistSet(candidateArtists, false), artistSet(sourceArtists, false)) {
		return true
	}
	return setsIntersect(artistSet(candidateArtists, true), artistSet(sourceArtists, true))
}
