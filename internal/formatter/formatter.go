// Package formatter renders sync run results as JSON, CSV, or plain text
// reports for logging and post-run inspection.
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lunamare/tidesync/internal/shared"
	"github.com/lunamare/tidesync/internal/tasks"
)

// Format identifies a report output format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatText Format = "text"
)

// ErrUnknownFormat is returned when a format string doesn't name a
// supported report format.
var ErrUnknownFormat = fmt.Errorf("unknown report format")

// ParseFormat resolves a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatText:
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Report wraps the results of a sync run with a generation timestamp.
type Report struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Results     []*tasks.SyncResult `json:"results"`
}

// NewReport builds a report for the given results, stamped with the
// current time.
func NewReport(results []*tasks.SyncResult) *Report {
	return &Report{GeneratedAt: time.Now().UTC(), Results: results}
}

type jsonResult struct {
	Name        string          `json:"name"`
	SourceID    string          `json:"source_id,omitempty"`
	TargetID    string          `json:"target_id,omitempty"`
	Total       int             `json:"total"`
	Matched     int             `json:"matched"`
	Failed      int             `json:"failed"`
	Prepopulate int             `json:"prepopulated"`
	Searched    int             `json:"searched"`
	Update      string          `json:"update"`
	Duplicates  []jsonDuplicate `json:"duplicates,omitempty"`
}

type jsonDuplicate struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Artists []string `json:"artists"`
}

type jsonReport struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Results     []jsonResult `json:"results"`
}

// ToJSON renders the report as indented JSON.
func (r *Report) ToJSON() ([]byte, error) {
	out := jsonReport{GeneratedAt: r.GeneratedAt, Results: make([]jsonResult, 0, len(r.Results))}
	for _, res := range r.Results {
		jr := jsonResult{
			Name:        res.Name,
			SourceID:    res.SourceID,
			TargetID:    res.TargetID,
			Total:       res.Total,
			Matched:     res.Matched,
			Failed:      res.Failed,
			Prepopulate: res.Prepopulate,
			Searched:    res.Searched,
			Update:      res.Update.String(),
		}
		for _, d := range res.Duplicates {
			jr.Duplicates = append(jr.Duplicates, jsonDuplicate{ID: d.ID, Name: d.Name, Artists: d.Artists})
		}
		out.Results = append(out.Results, jr)
	}

	data, err := shared.MarshalJSON(out, true)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return data, nil
}

// ToCSV renders the report as CSV with a header row, one row per synced
// playlist.
func (r *Report) ToCSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"name", "source_id", "target_id", "total", "matched", "failed", "prepopulated", "searched", "duplicates", "update"}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, res := range r.Results {
		row := []string{
			res.Name,
			res.SourceID,
			res.TargetID,
			strconv.Itoa(res.Total),
			strconv.Itoa(res.Matched),
			strconv.Itoa(res.Failed),
			strconv.Itoa(res.Prepopulate),
			strconv.Itoa(res.Searched),
			strconv.Itoa(len(res.Duplicates)),
			res.Update.String(),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ToText renders a human-readable summary, listing any duplicate tracks
// dropped during resolution.
func (r *Report) ToText() []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "Sync report (%s)\n", r.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "%s\n\n", strings.Repeat("=", 40))

	var total, matched, failed int
	for _, res := range r.Results {
		total += res.Total
		matched += res.Matched
		failed += res.Failed

		fmt.Fprintf(&b, "%s (%s)\n", res.Name, res.Update)
		fmt.Fprintf(&b, "  tracks: %d  matched: %d  failed: %d\n", res.Total, res.Matched, res.Failed)
		fmt.Fprintf(&b, "  prepopulated: %d  searched: %d\n", res.Prepopulate, res.Searched)
		if len(res.Duplicates) > 0 {
			fmt.Fprintf(&b, "  duplicates dropped:\n")
			for _, d := range res.Duplicates {
				fmt.Fprintf(&b, "    - %s - %s\n", strings.Join(d.Artists, ", "), d.Name)
			}
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "total: %d playlists, %d tracks, %d matched, %d failed\n",
		len(r.Results), total, matched, failed)
	return []byte(b.String())
}

// Render produces the report in the requested format.
func (r *Report) Render(format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return r.ToJSON()
	case FormatCSV:
		return r.ToCSV()
	case FormatText:
		return r.ToText(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteReport renders results in the given format and writes them to path.
func WriteReport(results []*tasks.SyncResult, format Format, path string) error {
	data, err := NewReport(results).Render(format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
