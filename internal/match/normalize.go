package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// asciiFolder decomposes to NFD, drops combining marks, then drops anything
// still outside ASCII. "Beyoncé" and "Beyonce" fold to the same string.
var asciiFolder = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
)

// Fold returns the ASCII-folded form of s.
func Fold(s string) string {
	folded, _, err := transform.String(asciiFolder, s)
	if err != nil {
		return s
	}
	return folded
}

// Simplify takes only the first part of a title before any hyphen or
// bracket, which tend to introduce version qualifiers ("- Remastered",
// "(feat. ...)", "[Live]").
func Simplify(s string) string {
	s = strings.TrimSpace(strings.SplitN(s, "-", 2)[0])
	s = strings.TrimSpace(strings.SplitN(s, "(", 2)[0])
	return strings.TrimSpace(strings.SplitN(s, "[", 2)[0])
}

// splitArtistName breaks a combined artist credit into individual names.
// "&" takes precedence over commas when both appear.
func splitArtistName(artist string) []string {
	switch {
	case strings.Contains(artist, "&"):
		return strings.Split(artist, "&")
	case strings.Contains(artist, ","):
		return strings.Split(artist, ",")
	default:
		return []string{artist}
	}
}

// artistSet builds the set of simplified, lower-cased artist names,
// optionally ASCII-folded.
func artistSet(artists []string, fold bool) map[string]struct{} {
	set := make(map[string]struct{}, len(artists))
	for _, artist := range artists {
		if fold {
			artist = Fold(artist)
		}
		for _, name := range splitArtistName(artist) {
			set[Simplify(strings.ToLower(strings.TrimSpace(name)))] = struct{}{}
		}
	}
	return set
}

func setsIntersect(a, b map[string]struct{}) bool {
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}

// similarity returns a 0..1 edit-distance ratio between two strings.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshteinDistance(a, b))/float64(maxLen)
}

func levenshteinDistance(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 0
			if ra[i-1] != rb[j-1] {
				cost = 1
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		copy(prev, curr)
	}

	return prev[len(rb)]
}
