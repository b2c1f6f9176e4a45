package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/desertthunder/mixtape/internal/formatter"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"golang.org/x/time/rate"
)

// PlaylistSource reads playlists for export.
type PlaylistSource interface {
	Get(ctx context.Context, id string) (*models.Playlist, error)
}

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format     string  // json, csv, markdown, txt
	OutputDir  string  // default: mixtape_export_{epoch}
	NumWorkers int     // concurrent writers (default 5, max 10)
	RateLimit  float64 // playlist reads per second (default 5)
	// FetchCover downloads a cover image for markdown exports; nil skips covers.
	FetchCover func(ctx context.Context, url string) ([]byte, error)
}

// PlaylistExportResult is the outcome for one playlist.
type PlaylistExportResult struct {
	PlaylistID   string
	PlaylistName string
	Success      bool
	Files        []string
	Error        error
}

// BulkExportResult summarizes a bulk export.
type BulkExportResult struct {
	TotalPlaylists    int
	SuccessfulExports int
	FailedExports     int
	OutputDirectory   string
	ManifestPath      string
	Results           []PlaylistExportResult
}

type exportJob struct {
	id       string
	playlist *models.Playlist
}

// BulkExport fetches the playlists in ids and writes each one in opts.Format.
//
// Reads are rate limited and happen on one goroutine; file writes run on a worker pool. Partial failures
// are recorded per playlist and in export_manifest.json.
func BulkExport(ctx context.Context, src PlaylistSource, ids []string, opts BulkExportOpts, prog chan<- ProgressUpdate) (*BulkExportResult, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: playlist source not initialized", shared.ErrServiceUnavailable)
	}
	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	if !formatter.ValidFormat(opts.Format) {
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidFlag, opts.Format)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("mixtape_export_%d", time.Now().Unix())
	}
	opts.NumWorkers = min(max(opts.NumWorkers, 0), 10)
	if opts.NumWorkers == 0 {
		opts.NumWorkers = 5
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		TotalPlaylists:  len(ids),
		OutputDirectory: opts.OutputDir,
		Results:         make([]PlaylistExportResult, 0, len(ids)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan exportJob, len(ids))
	results := make(chan PlaylistExportResult, len(ids))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				results <- exportPlaylist(ctx, job, opts)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, id := range ids {
			if err := limiter.Wait(ctx); err != nil {
				results <- PlaylistExportResult{PlaylistID: id, PlaylistName: id, Error: err}
				continue
			}

			sendProgress(prog, fetchingPlaylistUpdate(i+1, len(ids), id))
			p, err := src.Get(ctx, id)
			if err != nil {
				results <- PlaylistExportResult{
					PlaylistID:   id,
					PlaylistName: fmt.Sprintf("Unknown (%s)", id),
					Error:        fmt.Errorf("failed to fetch playlist: %w", err),
				}
				continue
			}
			jobs <- exportJob{id: id, playlist: p}
		}
	}()

	for completed := 1; completed <= len(ids); completed++ {
		res := <-results
		result.Results = append(result.Results, res)
		if res.Success {
			result.SuccessfulExports++
			sendProgress(prog, exportCompletedUpdate(completed, len(ids), res.PlaylistName, len(res.Files)))
		} else {
			result.FailedExports++
			sendProgress(prog, exportFailedUpdate(completed, len(ids), res.PlaylistName, res.Error))
		}
	}
	wg.Wait()

	// workers finish in any order; keep the manifest in request order
	slices.SortStableFunc(result.Results, func(a, b PlaylistExportResult) int {
		return slices.Index(ids, a.PlaylistID) - slices.Index(ids, b.PlaylistID)
	})

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteManifest(manifest(result, opts.Format), manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

func exportPlaylist(ctx context.Context, j exportJob, opts BulkExportOpts) PlaylistExportResult {
	result := PlaylistExportResult{PlaylistID: j.id, PlaylistName: j.playlist.Name}
	base := filepath.Join(opts.OutputDir, j.playlist.ID)

	var err error
	switch opts.Format {
	case formatter.FormatCSV:
		result.Files, err = formatter.WriteCSVExport(j.playlist, base)
	case formatter.FormatMarkdown:
		var cover []byte
		if url := formatter.CoverURL(j.playlist); url != "" && opts.FetchCover != nil {
			cover, _ = opts.FetchCover(ctx, url)
		}
		var md *formatter.MarkdownExportResult
		if md, err = formatter.WriteMarkdownExport(j.playlist, base, cover); err == nil {
			result.Files = md.Files
		}
	case formatter.FormatText:
		var path string
		if path, err = formatter.WriteTextExport(j.playlist, base+"_tracks.txt"); err == nil {
			result.Files = []string{path}
		}
	default:
		var path string
		if path, err = formatter.WriteJSONExport(j.playlist, base+".json"); err == nil {
			result.Files = []string{path}
		}
	}

	if err != nil {
		result.Error = fmt.Errorf("%s export failed: %w", opts.Format, err)
		return result
	}
	result.Success = true
	return result
}

func manifest(r *BulkExportResult, format string) formatter.Manifest {
	m := formatter.Manifest{
		ExportedAt:        time.Now().UTC(),
		Format:            format,
		TotalPlaylists:    r.TotalPlaylists,
		SuccessfulExports: r.SuccessfulExports,
		FailedExports:     r.FailedExports,
		Playlists:         make([]formatter.ManifestEntry, 0, len(r.Results)),
	}
	for _, res := range r.Results {
		entry := formatter.ManifestEntry{
			PlaylistID:   res.PlaylistID,
			PlaylistName: res.PlaylistName,
			Status:       "success",
			Files:        res.Files,
		}
		if !res.Success {
			entry.Status = "failed"
			if res.Error != nil {
				entry.Error = res.Error.Error()
			}
		}
		m.Playlists = append(m.Playlists, entry)
	}
	return m
}
