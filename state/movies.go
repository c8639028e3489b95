package state

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/s0up4200/reelcritic/movies"
)

// Messages recorded in MoviesState on failure
const (
	MsgFetchMovies  = "Failed to fetch movies"
	MsgFetchMine    = "Failed to fetch your movies"
	MsgFetchMovie   = "Failed to fetch movie details"
	MsgAddMovie     = "Failed to add movie"
	MsgUpdateMovie  = "Failed to update movie"
	MsgDeleteMovie  = "Failed to delete movie"
	MsgDeleteMovies = "Failed to delete movies"
)

// MoviesService is the movie API the container drives
type MoviesService interface {
	ListAll(ctx context.Context) ([]movies.Movie, error)
	ListMine(ctx context.Context) ([]movies.Movie, error)
	Get(ctx context.Context, id int64) (*movies.Movie, error)
	Create(ctx context.Context, data movies.FormData) (*movies.Movie, error)
	Update(ctx context.Context, id int64, data movies.FormData) (*movies.Movie, error)
	Delete(ctx context.Context, id int64) error
	DeleteMany(ctx context.Context, ids []int64) movies.BatchDeleteResult
}

// MoviesState is an immutable snapshot of the movie collection
type MoviesState struct {
	phase    MoviesPhase
	movies   []movies.Movie
	selected *movies.Movie
	reason   string
}

// Phase returns the lifecycle phase
func (s MoviesState) Phase() MoviesPhase { return s.phase }

// Movies returns a copy of the collection in server order
func (s MoviesState) Movies() []movies.Movie { return slices.Clone(s.movies) }

// Len returns the number of movies held
func (s MoviesState) Len() int { return len(s.movies) }

// Selected returns a copy of the selected movie, or nil
func (s MoviesState) Selected() *movies.Movie {
	if s.selected == nil {
		return nil
	}
	m := *s.selected
	return &m
}

// IsLoading reports whether an operation is in flight
func (s MoviesState) IsLoading() bool { return s.phase == MoviesLoading }

// Error returns the message of the last failed operation, or ""
func (s MoviesState) Error() string {
	if s.phase != MoviesFailed {
		return ""
	}
	return s.reason
}

func (s *MoviesState) replace(m movies.Movie) {
	next := make([]movies.Movie, len(s.movies))
	for i, cur := range s.movies {
		if cur.ID == m.ID {
			next[i] = m
			continue
		}
		next[i] = cur
	}
	s.movies = next
}

func (s *MoviesState) remove(ids ...int64) {
	s.movies = slices.DeleteFunc(slices.Clone(s.movies), func(m movies.Movie) bool {
		return slices.Contains(ids, m.ID)
	})
	if s.selected != nil && slices.Contains(ids, s.selected.ID) {
		s.selected = nil
	}
}

// op describes one container operation
type op struct {
	name     string
	message  string
	mutation bool
}

// Movies owns the movie collection state. Reads are cancelled and their
// results dropped once a newer operation starts. Mutations are never
// cancelled and their result is always merged, since the server has already
// applied them; only their phase change is dropped when superseded.
type Movies struct {
	svc    MoviesService
	logger zerolog.Logger

	mu     sync.Mutex
	state  MoviesState
	gen    uint64
	cancel context.CancelFunc
	subs   subscribers[MoviesState]
}

// NewMovies creates an empty container in the Idle phase
func NewMovies(svc MoviesService, logger zerolog.Logger) *Movies {
	return &Movies{
		svc:    svc,
		logger: logger,
	}
}

// OpenMovies creates a container and fetches every movie
func OpenMovies(ctx context.Context, svc MoviesService, logger zerolog.Logger) (*Movies, error) {
	m := NewMovies(svc, logger)
	if err := m.FetchAll(ctx); err != nil {
		return m, err
	}
	return m, nil
}

// State returns the current snapshot
func (m *Movies) State() MoviesState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers fn to receive every state change. The returned func
// removes it.
func (m *Movies) Subscribe(fn func(MoviesState)) func() {
	m.mu.Lock()
	id := m.subs.add(fn)
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		m.subs.remove(id)
		m.mu.Unlock()
	}
}

func (m *Movies) begin(ctx context.Context, o op) (context.Context, uint64, context.CancelFunc) {
	opCtx, cancel := ctx, context.CancelFunc(func() {})

	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if !o.mutation {
		opCtx, cancel = context.WithCancel(ctx)
		m.cancel = cancel
	}
	m.gen++
	gen := m.gen
	m.state.phase = MoviesLoading
	m.state.reason = ""
	next, subs := m.state, m.subs.snapshot()
	m.mu.Unlock()

	m.logger.Debug().Str("op", o.name).Uint64("generation", gen).Msg("Movies operation started")
	notify(subs, next)
	return opCtx, gen, cancel
}

// run drives one operation. call returns how to merge its result into the
// state (nil for nothing) and the failure, if any; both may be set.
func (m *Movies) run(ctx context.Context, o op, call func(ctx context.Context) (func(*MoviesState), error)) error {
	opCtx, gen, cancel := m.begin(ctx, o)
	defer cancel()

	apply, err := call(opCtx)

	m.mu.Lock()
	current := gen == m.gen
	if !current && (!o.mutation || apply == nil) {
		m.mu.Unlock()
		m.logger.Debug().Str("op", o.name).Uint64("generation", gen).Msg("Discarding superseded movies result")
		if o.mutation {
			return m.wrap(o, err)
		}
		return ErrSuperseded
	}

	if apply != nil {
		apply(&m.state)
	}
	if current {
		if err != nil {
			m.state.phase = MoviesFailed
			m.state.reason = o.message
		} else {
			m.state.phase = MoviesReady
		}
	}
	next, subs := m.state, m.subs.snapshot()
	m.mu.Unlock()

	notify(subs, next)
	return m.wrap(o, err)
}

func (m *Movies) wrap(o op, err error) error {
	if err == nil {
		return nil
	}

	m.logger.Debug().Err(err).Str("op", o.name).Msg(o.message)
	if o.mutation {
		return &MutationError{Op: o.name, Message: o.message, Err: err}
	}
	return &FetchError{Op: o.name, Message: o.message, Err: err}
}

// FetchAll replaces the collection with every movie
func (m *Movies) FetchAll(ctx context.Context) error {
	return m.run(ctx, op{name: "fetch_all", message: MsgFetchMovies}, func(ctx context.Context) (func(*MoviesState), error) {
		list, err := m.svc.ListAll(ctx)
		if err != nil {
			return nil, err
		}
		return func(s *MoviesState) { s.movies = list }, nil
	})
}

// FetchMine replaces the collection with the logged-in user's movies
func (m *Movies) FetchMine(ctx context.Context) error {
	return m.run(ctx, op{name: "fetch_mine", message: MsgFetchMine}, func(ctx context.Context) (func(*MoviesState), error) {
		list, err := m.svc.ListMine(ctx)
		if err != nil {
			return nil, err
		}
		return func(s *MoviesState) { s.movies = list }, nil
	})
}

// Get loads one movie into the selection. The collection is not touched.
func (m *Movies) Get(ctx context.Context, id int64) (*movies.Movie, error) {
	var got *movies.Movie
	err := m.run(ctx, op{name: "get", message: MsgFetchMovie}, func(ctx context.Context) (func(*MoviesState), error) {
		movie, err := m.svc.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		got = movie
		return func(s *MoviesState) {
			selected := *movie
			s.selected = &selected
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return got, nil
}

// Add creates a movie and prepends it to the collection
func (m *Movies) Add(ctx context.Context, data movies.FormData) (*movies.Movie, error) {
	var created *movies.Movie
	err := m.run(ctx, op{name: "add", message: MsgAddMovie, mutation: true}, func(ctx context.Context) (func(*MoviesState), error) {
		movie, err := m.svc.Create(ctx, data)
		if err != nil {
			return nil, err
		}
		created = movie
		return func(s *MoviesState) {
			s.movies = append([]movies.Movie{*movie}, s.movies...)
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update saves a movie, replaces it in place and selects the saved record
func (m *Movies) Update(ctx context.Context, id int64, data movies.FormData) (*movies.Movie, error) {
	var updated *movies.Movie
	err := m.run(ctx, op{name: "update", message: MsgUpdateMovie, mutation: true}, func(ctx context.Context) (func(*MoviesState), error) {
		movie, err := m.svc.Update(ctx, id, data)
		if err != nil {
			return nil, err
		}
		updated = movie
		return func(s *MoviesState) {
			record := *movie
			record.ID = id
			s.replace(record)
			s.selected = &record
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Remove deletes a movie and drops it from the collection. The selection is
// cleared only if it was that movie.
func (m *Movies) Remove(ctx context.Context, id int64) error {
	return m.run(ctx, op{name: "remove", message: MsgDeleteMovie, mutation: true}, func(ctx context.Context) (func(*MoviesState), error) {
		if err := m.svc.Delete(ctx, id); err != nil {
			return nil, err
		}
		return func(s *MoviesState) { s.remove(id) }, nil
	})
}

// RemoveMany deletes several movies concurrently. Those deleted are dropped
// from the collection even when others fail; the failures are joined into
// the returned *MutationError.
func (m *Movies) RemoveMany(ctx context.Context, ids []int64) (movies.BatchDeleteResult, error) {
	var result movies.BatchDeleteResult
	err := m.run(ctx, op{name: "remove_many", message: MsgDeleteMovies, mutation: true}, func(ctx context.Context) (func(*MoviesState), error) {
		result = m.svc.DeleteMany(ctx, ids)

		var errs []error
		for _, f := range result.Failed {
			errs = append(errs, f)
		}

		var apply func(*MoviesState)
		if len(result.Successful) > 0 {
			deleted := result.Successful
			apply = func(s *MoviesState) { s.remove(deleted...) }
		}
		return apply, errors.Join(errs...)
	})
	return result, err
}

// ClearSelected drops the selection
func (m *Movies) ClearSelected() {
	m.mu.Lock()
	if m.state.selected == nil {
		m.mu.Unlock()
		return
	}
	m.state.selected = nil
	next, subs := m.state, m.subs.snapshot()
	m.mu.Unlock()

	notify(subs, next)
}
