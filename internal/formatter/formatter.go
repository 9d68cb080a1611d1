// package formatter renders matched tracks and playlists for the CLI (plain text, JSON, CSV, Markdown)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// Format names an output encoding.
type Format string

const (
	Text     Format = "text"
	JSON     Format = "json"
	CSV      Format = "csv"
	Markdown Format = "markdown"
)

// Formats lists the accepted values of [ParseFormat].
var Formats = []Format{Text, JSON, CSV, Markdown}

// ParseFormat maps a flag value to a [Format]. The empty string is [Text]; "md" is accepted for [Markdown].
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return Text, nil
	case "md":
		return Markdown, nil
	case Text, JSON, CSV, Markdown:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want one of %v)", shared.ErrInvalidArgument, s, Formats)
	}
}

// Extension returns the file extension for f, without the dot.
func (f Format) Extension() string {
	switch f {
	case JSON:
		return "json"
	case CSV:
		return "csv"
	case Markdown:
		return "md"
	default:
		return "txt"
	}
}

// Report is a rendered result: an optional playlist and the tracks matched for it.
type Report struct {
	Title    string                `json:"title,omitempty"`
	Playlist *models.Collection    `json:"playlist,omitempty"`
	Tracks   []models.MatchedTrack `json:"tracks"`
	Missing  []string              `json:"missing,omitempty"`
}

// Render encodes r in format f.
func Render(f Format, r Report) ([]byte, error) {
	switch f {
	case JSON:
		return ExportToJSON(r)
	case CSV:
		return ExportToCSV(r.Tracks)
	case Markdown:
		return ExportToMarkdown(r)
	case Text, "":
		return ExportToText(r)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, f)
	}
}

// Write renders r to w.
func Write(w io.Writer, f Format, r Report) error {
	data, err := Render(f, r)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// WriteFile renders r to path, creating or truncating it.
func WriteFile(path string, f Format, r Report) error {
	data, err := Render(f, r)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ExportToJSON encodes the report as indented JSON with a trailing newline.
func ExportToJSON(r Report) ([]byte, error) {
	if r.Tracks == nil {
		r.Tracks = []models.MatchedTrack{}
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportToCSV writes one row per track with columns: Position, Name, Artists, URI
func ExportToCSV(tracks []models.MatchedTrack) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Position", "Name", "Artists", "URI"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, track := range tracks {
		record := []string{strconv.Itoa(i + 1), track.Name, track.ArtistLine(), track.URI}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders the report as a Markdown document.
func ExportToMarkdown(r Report) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", reportTitle(r))

	if p := r.Playlist; p != nil {
		if p.Description != "" {
			fmt.Fprintf(&buf, "**Description**: %s\n\n", p.Description)
		}
		fmt.Fprintf(&buf, "**Visibility**: %s\n", shared.VisibilityString(p.Public))
		if p.ExternalURL != "" {
			fmt.Fprintf(&buf, "**Link**: [%s](%s)\n", p.Name, p.ExternalURL)
		}
		buf.WriteString("\n")
	}

	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", len(r.Tracks))

	buf.WriteString("## Tracks\n\n")
	for i, track := range r.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, track.ArtistLine(), track.Name)
	}

	if len(r.Missing) > 0 {
		buf.WriteString("\n## Not found\n\n")
		for _, name := range r.Missing {
			fmt.Fprintf(&buf, "- %s\n", name)
		}
	}

	return buf.Bytes(), nil
}

// ExportToText renders the report as plain text.
func ExportToText(r Report) ([]byte, error) {
	var buf bytes.Buffer

	if p := r.Playlist; p != nil {
		fmt.Fprintf(&buf, "Playlist: %s\n", p.Name)
		if p.Description != "" {
			fmt.Fprintf(&buf, "Description: %s\n", p.Description)
		}
		fmt.Fprintf(&buf, "Visibility: %s\n", shared.VisibilityString(p.Public))
		if p.ExternalURL != "" {
			fmt.Fprintf(&buf, "URL: %s\n", p.ExternalURL)
		}
	} else if r.Title != "" {
		fmt.Fprintf(&buf, "%s\n", r.Title)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(r.Tracks))

	for i, track := range r.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, track.ArtistLine(), track.Name)
		fmt.Fprintf(&buf, "   %s\n", track.URI)
	}

	if len(r.Missing) > 0 {
		fmt.Fprintf(&buf, "\nNot found (%d):\n", len(r.Missing))
		for _, name := range r.Missing {
			fmt.Fprintf(&buf, "  - %s\n", name)
		}
	}

	return buf.Bytes(), nil
}

func reportTitle(r Report) string {
	switch {
	case r.Playlist != nil && r.Playlist.Name != "":
		return r.Playlist.Name
	case r.Title != "":
		return r.Title
	default:
		return "Matched tracks"
	}
}
