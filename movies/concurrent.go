package movies

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DeleteConcurrency caps parallel delete requests
const DeleteConcurrency = 5

// BatchDeleteResult contains the results of a batch delete operation
type BatchDeleteResult struct {
	Requested  int
	Successful []int64
	Failed     []DeleteError
}

// DeleteError contains information about a failed delete operation
type DeleteError struct {
	MovieID int64
	Err     error
}

// Error implements the error interface
func (e DeleteError) Error() string {
	return fmt.Sprintf("failed to delete movie %d: %v", e.MovieID, e.Err)
}

func (e DeleteError) Unwrap() error {
	return e.Err
}

// DeleteMany deletes reviews concurrently. Individual failures do not stop
// the batch; they are reported in the result. Successful and Failed are in
// request order.
func (s *Service) DeleteMany(ctx context.Context, ids []int64) BatchDeleteResult {
	result := BatchDeleteResult{
		Requested: len(ids),
	}

	if len(ids) == 0 {
		return result
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(DeleteConcurrency)

	errs := make([]error, len(ids))
	for i, id := range ids {
		g.Go(func() error {
			errs[i] = s.Delete(ctx, id)
			return nil // Don't stop on individual errors
		})
	}

	g.Wait()

	for i, id := range ids {
		if errs[i] != nil {
			result.Failed = append(result.Failed, DeleteError{MovieID: id, Err: errs[i]})
			continue
		}
		result.Successful = append(result.Successful, id)
	}

	s.logger.Info().
		Int("deleted", len(result.Successful)).
		Int("failed", len(result.Failed)).
		Msg("Batch delete complete")

	return result
}
