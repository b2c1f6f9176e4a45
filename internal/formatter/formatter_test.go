package formatter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/mixtape/internal/models"
	th "github.com/desertthunder/mixtape/internal/testing"
)

func testPlaylist() *models.Playlist {
	a, b := models.NewSong(th.Track("track1")), models.NewSong(th.Track("track2"))
	b.Explicit = true
	b.DurationMS = 241000
	return &models.Playlist{ID: "test123", Name: "Test Playlist", Description: "A test playlist", Songs: []models.Song{a, b}}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(testPlaylist())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "ID,Title,Artists,Album,Duration,Explicit,URI") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "track1,Title track1,Artist track1,Album track1,3:00,false,spotify:track:track1") {
			t.Errorf("CSV missing track1 row, got: %s", output)
		}
		if !strings.Contains(output, "4:01,true") {
			t.Errorf("CSV missing track2 duration and explicit flag, got: %s", output)
		}
	})

	t.Run("ExportToCSV empty playlist", func(t *testing.T) {
		data, err := ExportToCSV(&models.Playlist{ID: "e", Name: "Empty"})
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}
		if lines := strings.Count(string(data), "\n"); lines != 1 {
			t.Errorf("expected header only, got %d lines", lines)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(testPlaylist(), "cover.jpg")
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"# Test Playlist",
			"![Cover](cover.jpg)",
			"**Description**: A test playlist",
			"**Songs**: 2",
			"1. Artist track1 - Title track1 (Album track1) [3:00]",
			"2. Artist track2 - Title track2 (Album track2) [4:01] *explicit*",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got: %s", want, output)
			}
		}
	})

	t.Run("ExportToMarkdown without cover", func(t *testing.T) {
		data, _ := ExportToMarkdown(&models.Playlist{ID: "x", Name: "Bare"}, "")
		if strings.Contains(string(data), "![Cover]") || strings.Contains(string(data), "Description") {
			t.Errorf("unexpected optional sections: %s", data)
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(testPlaylist())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Playlist: Test Playlist\nDescription: A test playlist\nSongs: 2\n\n") {
			t.Errorf("Text header wrong, got: %s", output)
		}
		if !strings.Contains(output, "2. Artist track2 - Title track2\n") {
			t.Errorf("Text missing track2, got: %s", output)
		}
	})

	t.Run("ToMetadataJSON", func(t *testing.T) {
		data, err := ToMetadataJSON(testPlaylist())
		if err != nil {
			t.Fatalf("ToMetadataJSON failed: %v", err)
		}

		var meta Metadata
		if err := json.Unmarshal(data, &meta); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if meta.ID != "test123" || meta.SongCount != 2 {
			t.Errorf("unexpected metadata %+v", meta)
		}
		if strings.Contains(string(data), "songs\"") {
			t.Errorf("metadata should not include songs: %s", data)
		}
	})

	t.Run("Table", func(t *testing.T) {
		out := Table([]models.Playlist{*testPlaylist(), {ID: "p2", Name: "Second"}})
		lines := strings.Split(strings.TrimSpace(out), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header and 2 rows, got %q", out)
		}
		if !strings.HasPrefix(lines[0], "ID       NAME") {
			t.Errorf("unexpected header %q", lines[0])
		}
		if !strings.HasSuffix(lines[1], "  2") {
			t.Errorf("unexpected song count in %q", lines[1])
		}
		if Table(nil) != "No playlists.\n" {
			t.Errorf("unexpected empty table %q", Table(nil))
		}
	})

	t.Run("CoverURL", func(t *testing.T) {
		if got := CoverURL(testPlaylist()); got != "https://i.scdn.co/image/track1" {
			t.Errorf("unexpected cover %q", got)
		}
		if got := CoverURL(&models.Playlist{}); got != "" {
			t.Errorf("expected no cover, got %q", got)
		}
	})

	t.Run("ValidFormat", func(t *testing.T) {
		for _, f := range []string{"json", "csv", "markdown", "txt"} {
			if !ValidFormat(f) {
				t.Errorf("%s should be valid", f)
			}
		}
		if ValidFormat("xml") {
			t.Error("xml should be invalid")
		}
	})
}

func TestWriters(t *testing.T) {
	t.Run("WriteCSVExport", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "out")
		files, err := WriteCSVExport(testPlaylist(), base)
		if err != nil {
			t.Fatalf("WriteCSVExport failed: %v", err)
		}
		if len(files) != 2 {
			t.Fatalf("expected 2 files, got %v", files)
		}
		th.AssertFileExists(t, base+"_tracks.csv")
		th.AssertFileExists(t, base+"_metadata.json")
	})

	t.Run("WriteCSVExport default name", func(t *testing.T) {
		th.MustChdir(t, t.TempDir())
		if _, err := WriteCSVExport(testPlaylist(), ""); err != nil {
			t.Fatalf("WriteCSVExport failed: %v", err)
		}
		th.AssertFileExists(t, "test123_tracks.csv")
	})

	t.Run("WriteMarkdownExport", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "md")
		res, err := WriteMarkdownExport(testPlaylist(), dir, []byte("jpeg"))
		if err != nil {
			t.Fatalf("WriteMarkdownExport failed: %v", err)
		}
		if len(res.Files) != 2 || res.CoverImage == "" {
			t.Errorf("expected cover and README, got %+v", res)
		}
		content := th.MustReadFile(t, filepath.Join(dir, "README.md"))
		if !strings.Contains(content, "![Cover](cover.jpg)") {
			t.Errorf("README should link the cover: %s", content)
		}
	})

	t.Run("WriteMarkdownExport without image", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "md")
		res, err := WriteMarkdownExport(testPlaylist(), dir, nil)
		if err != nil {
			t.Fatalf("WriteMarkdownExport failed: %v", err)
		}
		if len(res.Files) != 1 || res.CoverImage != "" {
			t.Errorf("expected README only, got %+v", res)
		}
	})

	t.Run("WriteTextExport", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "list.txt")
		got, err := WriteTextExport(testPlaylist(), path)
		if err != nil || got != path {
			t.Fatalf("WriteTextExport = %q, %v", got, err)
		}
		if !strings.Contains(th.MustReadFile(t, path), "Playlist: Test Playlist") {
			t.Error("text export missing header")
		}
	})

	t.Run("WriteJSONExport", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "p.json")
		if _, err := WriteJSONExport(testPlaylist(), path); err != nil {
			t.Fatalf("WriteJSONExport failed: %v", err)
		}

		var p models.Playlist
		if err := json.Unmarshal([]byte(th.MustReadFile(t, path)), &p); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if p.ID != "test123" || len(p.Songs) != 2 {
			t.Errorf("unexpected playlist %+v", p)
		}
	})

	t.Run("WriteManifest", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "export_manifest.json")
		m := Manifest{
			Format:            "csv",
			TotalPlaylists:    2,
			SuccessfulExports: 1,
			FailedExports:     1,
			Playlists: []ManifestEntry{
				{PlaylistID: "p1", PlaylistName: "One", Status: "success", Files: []string{"p1_tracks.csv"}},
				{PlaylistID: "p2", PlaylistName: "Two", Status: "failed", Error: "playlist not found"},
			},
		}
		if err := WriteManifest(m, path); err != nil {
			t.Fatalf("WriteManifest failed: %v", err)
		}

		content := th.MustReadFile(t, path)
		for _, want := range []string{`"format": "csv"`, `"total_playlists": 2`, `"status": "failed"`, `"playlist not found"`} {
			if !strings.Contains(content, want) {
				t.Errorf("manifest missing %s", want)
			}
		}
	})
}

func TestDownloadImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("image-bytes"))
	}))
	defer server.Close()

	ctx := context.Background()

	data, err := DownloadImage(ctx, nil, server.URL+"/cover.jpg")
	if err != nil {
		t.Fatalf("DownloadImage failed: %v", err)
	}
	if string(data) != "image-bytes" {
		t.Errorf("unexpected body %q", data)
	}

	if _, err := DownloadImage(ctx, nil, server.URL+"/missing"); err == nil {
		t.Error("expected error for 404")
	}
	if _, err := DownloadImage(ctx, nil, ""); err == nil {
		t.Error("expected error for empty URL")
	}
}
