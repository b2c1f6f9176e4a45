package tasks

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
)

// Mutation transforms a confirmed song list. It returns false when nothing needs to be sent.
type Mutation func(songs []models.Song) ([]models.Song, bool)

// AppendSong adds song at the end unless a song with its id is already present.
func AppendSong(song models.Song) Mutation {
	return func(songs []models.Song) ([]models.Song, bool) {
		if slices.ContainsFunc(songs, func(s models.Song) bool { return s.ID == song.ID }) {
			return songs, false
		}
		return append(slices.Clone(songs), song), true
	}
}

// RemoveSong drops every song with the given id.
func RemoveSong(id string) Mutation {
	return func(songs []models.Song) ([]models.Song, bool) {
		out := slices.DeleteFunc(slices.Clone(songs), func(s models.Song) bool { return s.ID == id })
		return out, len(out) != len(songs)
	}
}

type mutationResult struct {
	playlist *models.Playlist
	err      error
}

type mutationJob struct {
	ctx      context.Context
	mutation Mutation
	confirm  func(*models.Playlist, error)
	done     chan mutationResult
}

type lane struct {
	pending []*mutationJob
}

// MutationQueue serializes song-list updates per playlist id. Jobs for one playlist run in FIFO order
// on a single goroutine; jobs for different playlists run independently.
type MutationQueue struct {
	playlists services.Playlists
	logger    *log.Logger

	mu    sync.Mutex
	lanes map[string]*lane
}

// NewMutationQueue creates a queue writing through p.
func NewMutationQueue(p services.Playlists, logger *log.Logger) *MutationQueue {
	if logger == nil {
		logger = log.Default()
	}
	return &MutationQueue{playlists: p, logger: logger, lanes: map[string]*lane{}}
}

// Do enqueues m for playlist id and waits for it. The returned playlist is the server state read after
// the update. Cancelling ctx stops waiting; a job that already started still completes.
func (q *MutationQueue) Do(ctx context.Context, id string, m Mutation) (*models.Playlist, error) {
	return q.do(ctx, id, m, nil)
}

// do is Do with a confirm hook that runs on the lane goroutine, so hooks observe results in job order.
func (q *MutationQueue) do(ctx context.Context, id string, m Mutation, confirm func(*models.Playlist, error)) (*models.Playlist, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	job := &mutationJob{ctx: ctx, mutation: m, confirm: confirm, done: make(chan mutationResult, 1)}

	q.mu.Lock()
	l, running := q.lanes[id]
	if !running {
		l = &lane{}
		q.lanes[id] = l
	}
	l.pending = append(l.pending, job)
	q.mu.Unlock()

	if !running {
		go q.drain(id, l)
	}

	select {
	case r := <-job.done:
		return r.playlist, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Pending reports queued and running jobs for id.
func (q *MutationQueue) Pending(id string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if l, ok := q.lanes[id]; ok {
		return len(l.pending)
	}
	return 0
}

func (q *MutationQueue) drain(id string, l *lane) {
	for {
		q.mu.Lock()
		if len(l.pending) == 0 {
			delete(q.lanes, id)
			q.mu.Unlock()
			return
		}
		job := l.pending[0]
		q.mu.Unlock()

		var r mutationResult
		if err := job.ctx.Err(); err != nil {
			r.err = err
		} else {
			r.playlist, r.err = q.apply(job.ctx, id, job.mutation)
		}
		if job.confirm != nil {
			job.confirm(r.playlist, r.err)
		}
		job.done <- r

		q.mu.Lock()
		l.pending = l.pending[1:]
		q.mu.Unlock()
	}
}

func (q *MutationQueue) apply(ctx context.Context, id string, m Mutation) (*models.Playlist, error) {
	current, err := q.playlists.Refetch(ctx, id)
	if err != nil {
		return nil, err
	}

	next, changed := m(current.Songs)
	if !changed {
		q.logger.Debug("mutation is a no-op", "playlist", id)
		return current, nil
	}

	if _, err := q.playlists.Update(ctx, id, models.WithSongs(next)); err != nil {
		q.logger.Warn("playlist update failed", "playlist", id, "error", err)
		return nil, err
	}

	confirmed, err := q.playlists.Refetch(ctx, id)
	if err != nil {
		return nil, err
	}
	q.logger.Debug("playlist updated", "playlist", id, "songs", len(confirmed.Songs))
	return confirmed, nil
}
