package movies

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
)

// Endpoints used by the movie service
const (
	PathMovies   = "/movies/"
	PathMyMovies = "/movies/my_movies/"
)

// Requester performs a JSON request against the API
type Requester interface {
	Do(ctx context.Context, method, path string, body, out any) error
}

// Service wraps the movie review CRUD endpoints. Failures from the API
// client are wrapped with the operation name and otherwise passed through.
type Service struct {
	api    Requester
	logger zerolog.Logger
}

// NewService creates a new movie service
func NewService(requester Requester, logger zerolog.Logger) *Service {
	return &Service{
		api:    requester,
		logger: logger,
	}
}

func moviePath(id int64) string {
	return fmt.Sprintf("%s%d/", PathMovies, id)
}

// ListAll returns every review, in server order
func (s *Service) ListAll(ctx context.Context) ([]Movie, error) {
	var list []Movie
	if err := s.api.Do(ctx, http.MethodGet, PathMovies, nil, &list); err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}

	s.logger.Debug().Msgf("Retrieved %d movies", len(list))
	return list, nil
}

// ListMine returns the reviews created by the logged-in user
func (s *Service) ListMine(ctx context.Context) ([]Movie, error) {
	var list []Movie
	if err := s.api.Do(ctx, http.MethodGet, PathMyMovies, nil, &list); err != nil {
		return nil, fmt.Errorf("list my movies: %w", err)
	}

	s.logger.Debug().Msgf("Retrieved %d of my movies", len(list))
	return list, nil
}

// Get returns a single review
func (s *Service) Get(ctx context.Context, id int64) (*Movie, error) {
	var m Movie
	if err := s.api.Do(ctx, http.MethodGet, moviePath(id), nil, &m); err != nil {
		return nil, fmt.Errorf("get movie %d: %w", id, err)
	}
	return &m, nil
}

// Create submits a new review
func (s *Service) Create(ctx context.Context, data FormData) (*Movie, error) {
	var m Movie
	if err := s.api.Do(ctx, http.MethodPost, PathMovies, data, &m); err != nil {
		return nil, fmt.Errorf("create movie: %w", err)
	}

	s.logger.Info().Int64("movie_id", m.ID).Str("title", m.Title).Msg("Created movie")
	return &m, nil
}

// Update replaces the editable fields of a review
func (s *Service) Update(ctx context.Context, id int64, data FormData) (*Movie, error) {
	var m Movie
	if err := s.api.Do(ctx, http.MethodPut, moviePath(id), data, &m); err != nil {
		return nil, fmt.Errorf("update movie %d: %w", id, err)
	}

	s.logger.Info().Int64("movie_id", id).Str("title", m.Title).Msg("Updated movie")
	return &m, nil
}

// Delete removes a review
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.api.Do(ctx, http.MethodDelete, moviePath(id), nil, nil); err != nil {
		return fmt.Errorf("delete movie %d: %w", id, err)
	}

	s.logger.Info().Int64("movie_id", id).Msg("Deleted movie")
	return nil
}
