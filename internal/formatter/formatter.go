// package formatter renders playlists as CSV, Markdown, plain text and JSON, and writes them to disk
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/go-resty/resty/v2"
)

// Formats accepted by [Write].
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

// ValidFormat reports whether f is a known export format.
func ValidFormat(f string) bool {
	switch f {
	case FormatJSON, FormatCSV, FormatMarkdown, FormatText:
		return true
	}
	return false
}

// ExportToCSV renders songs with columns: ID, Title, Artists, Album, Duration, Explicit, URI
func ExportToCSV(p *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artists", "Album", "Duration", "Explicit", "URI"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, song := range p.Songs {
		record := []string{
			song.ID,
			song.Title,
			song.ArtistNames(),
			song.Album.Name,
			models.FormatDuration(song.DurationMS),
			strconv.FormatBool(song.Explicit),
			song.URI,
		}
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

// ExportToMarkdown renders a playlist as Markdown with an optional cover image
func ExportToMarkdown(p *models.Playlist, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", p.Name)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	if p.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", p.Description)
	}

	fmt.Fprintf(&buf, "**Songs**: %d\n\n", len(p.Songs))

	buf.WriteString("## Songs\n\n")
	for i, song := range p.Songs {
		albumPart := ""
		if song.Album.Name != "" {
			albumPart = fmt.Sprintf(" (%s)", song.Album.Name)
		}
		explicit := ""
		if song.Explicit {
			explicit = " *explicit*"
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s]%s\n",
			i+1, song.ArtistNames(), song.Title, albumPart, models.FormatDuration(song.DurationMS), explicit)
	}

	return buf.Bytes(), nil
}

// ExportToText renders a playlist as plain text
func ExportToText(p *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", p.Description)
	}
	fmt.Fprintf(&buf, "Songs: %d\n\n", len(p.Songs))

	for i, song := range p.Songs {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, song.ArtistNames(), song.Title)
	}

	return buf.Bytes(), nil
}

// ExportToJSON encodes the playlist, indented when pretty is set.
func ExportToJSON(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

// Metadata is a playlist without its songs.
type Metadata struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	SongCount   int    `json:"song_count"`
}

// ToMetadataJSON encodes playlist metadata (without songs)
func ToMetadataJSON(p *models.Playlist) ([]byte, error) {
	return ExportToJSON(Metadata{ID: p.ID, Name: p.Name, Description: p.Description, SongCount: len(p.Songs)}, true)
}

// CoverURL returns the album cover of the first song that has one.
func CoverURL(p *models.Playlist) string {
	for _, s := range p.Songs {
		if s.Album.CoverURL != "" {
			return s.Album.CoverURL
		}
	}
	return ""
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(ctx context.Context, client *resty.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}
	if client == nil {
		client = resty.New().SetTimeout(30 * time.Second)
	}

	resp, err := client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode())
	}
	return resp.Body(), nil
}

// WriteCSVExport writes {base}_tracks.csv and {base}_metadata.json.
//
// Defaults to playlist ID as the base filename.
func WriteCSVExport(p *models.Playlist, base string) ([]string, error) {
	if base == "" {
		base = p.ID
	}

	csvData, err := ExportToCSV(p)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := base + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(p)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := base + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return []string{tracksFile, metadataFile}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
	Warnings   []string
}

// WriteMarkdownExport writes {dir}/README.md and, when imageData is non-empty, {dir}/cover.jpg.
//
// Directory name defaults to the playlist ID.
func WriteMarkdownExport(p *models.Playlist, dir string, imageData []byte) (*MarkdownExportResult, error) {
	if dir == "" {
		dir = p.ID
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{Directory: dir, Files: []string{}}

	var coverFilename string
	if len(imageData) > 0 {
		coverPath := filepath.Join(dir, "cover.jpg")
		if err := os.WriteFile(coverPath, imageData, 0644); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("failed to save cover image: %v", err))
		} else {
			coverFilename = "cover.jpg"
			result.CoverImage = coverPath
			result.Files = append(result.Files, coverPath)
		}
	}

	mdData, err := ExportToMarkdown(p, coverFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(dir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}
	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteTextExport writes a plain text export, defaulting to {id}_tracks.txt.
func WriteTextExport(p *models.Playlist, path string) (string, error) {
	if path == "" {
		path = p.ID + "_tracks.txt"
	}

	textData, err := ExportToText(p)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}
	return path, nil
}

// WriteJSONExport writes the playlist as indented JSON, defaulting to {id}.json.
func WriteJSONExport(p *models.Playlist, path string) (string, error) {
	if path == "" {
		path = p.ID + ".json"
	}

	data, err := ExportToJSON(p, true)
	if err != nil {
		return "", fmt.Errorf("JSON marshal failed: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("JSON write failed: %w", err)
	}
	return path, nil
}

// ManifestEntry is one playlist in an export manifest.
type ManifestEntry struct {
	PlaylistID   string   `json:"playlist_id"`
	PlaylistName string   `json:"playlist_name"`
	Status       string   `json:"status"`
	Files        []string `json:"files,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// Manifest summarizes a bulk export.
type Manifest struct {
	ExportedAt        time.Time       `json:"exported_at"`
	Format            string          `json:"format"`
	TotalPlaylists    int             `json:"total_playlists"`
	SuccessfulExports int             `json:"successful_exports"`
	FailedExports     int             `json:"failed_exports"`
	Playlists         []ManifestEntry `json:"playlists"`
}

// WriteManifest writes m as indented JSON to path.
func WriteManifest(m Manifest, path string) error {
	data, err := ExportToJSON(m, true)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// Table renders playlists as aligned "id  name  songs" rows for terminal output.
func Table(playlists []models.Playlist) string {
	if len(playlists) == 0 {
		return "No playlists.\n"
	}

	idWidth, nameWidth := len("ID"), len("NAME")
	for _, p := range playlists {
		idWidth = max(idWidth, len(p.ID))
		nameWidth = max(nameWidth, len(p.Name))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-*s  %-*s  %s\n", idWidth, "ID", nameWidth, "NAME", "SONGS")
	for _, p := range playlists {
		fmt.Fprintf(&b, "%-*s  %-*s  %d\n", idWidth, p.ID, nameWidth, p.Name, len(p.Songs))
	}
	return b.String()
}
