package filter

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/s0up4200/reelcritic/movies"
)

// ExprFilter is a compiled filter expression over movie reviews
type ExprFilter struct {
	program *vm.Program
	expr    string
}

// CompileExprFilter compiles an expr filter expression. The expression must
// evaluate to a boolean.
func CompileExprFilter(expression string) (*ExprFilter, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, &CompilationError{Expression: expression, Reason: "empty expression"}
	}

	// Type-check against the environment of a zero movie
	program, err := expr.Compile(expression,
		expr.Env(environment(movies.Movie{})),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     err.Error(),
			Err:        err,
		}
	}

	return &ExprFilter{
		program: program,
		expr:    expression,
	}, nil
}

// environment exposes a movie and the helper functions to an expression
func environment(movie movies.Movie) map[string]any {
	releaseYear := 0
	if movie.ReleaseYear != nil {
		releaseYear = *movie.ReleaseYear
	}

	return map[string]any{
		// Movie data
		"Movie": movie,

		// Direct movie properties for convenience
		"ID":             movie.ID,
		"Title":          movie.Title,
		"Genre":          string(movie.Genre),
		"GenreLabel":     movie.Genre.Label(),
		"ReleaseYear":    releaseYear,
		"HasReleaseYear": movie.ReleaseYear != nil,
		"Rating":         float64(movie.Rating),
		"Review":         movie.Review,
		"Author":         movie.CreatedBy.Username,
		"CreatedAt":      movie.CreatedAt,
		"UpdatedAt":      movie.UpdatedAt,

		// Review helpers
		"isGenre": func(genre string) bool {
			g, err := movies.ParseGenre(genre)
			return err == nil && g == movie.Genre
		},
		"by": func(username string) bool {
			return strings.EqualFold(movie.CreatedBy.Username, username)
		},
		"edited": func() bool {
			return movie.UpdatedAt.After(movie.CreatedAt)
		},

		// Date helpers
		"daysSince": func(t time.Time) int {
			return int(time.Since(t).Hours() / 24)
		},
		"daysAgo": func(days int) time.Time {
			return time.Now().AddDate(0, 0, -days)
		},
		"monthsAgo": func(months int) time.Time {
			return time.Now().AddDate(0, -months, 0)
		},
		"yearsAgo": func(years int) time.Time {
			return time.Now().AddDate(-years, 0, 0)
		},
		"parseDate": func(dateStr string) time.Time {
			t, _ := time.Parse("2006-01-02", dateStr)
			return t
		},

		// String helpers
		"contains": func(str, substr string) bool {
			return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
		},
		"startsWith": func(str, prefix string) bool {
			return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
		},
		"endsWith": func(str, suffix string) bool {
			return strings.HasSuffix(strings.ToLower(str), strings.ToLower(suffix))
		},
		"lower": strings.ToLower,
		"upper": strings.ToUpper,

		// Current time
		"now": time.Now,
	}
}

// Match evaluates the filter against a movie
func (f *ExprFilter) Match(movie movies.Movie) (bool, error) {
	result, err := expr.Run(f.program, environment(movie))
	if err != nil {
		return false, &EvaluationError{
			Expression: f.expr,
			MovieTitle: movie.Title,
			Reason:     err.Error(),
			Err:        err,
		}
	}

	matched, _ := result.(bool)
	return matched, nil
}

// Apply keeps the movies the filter matches, in their original order.
// Movies the expression fails on are left out and their errors joined.
func (f *ExprFilter) Apply(list []movies.Movie) ([]movies.Movie, error) {
	var kept []movies.Movie
	var errs []error

	for _, m := range list {
		ok, err := f.Match(m)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			kept = append(kept, m)
		}
	}

	return kept, errors.Join(errs...)
}

// String returns the original expression
func (f *ExprFilter) String() string {
	return f.expr
}

// Resolve returns the expression for a named filter, or nameOrExpr itself
// when no filter has that name
func Resolve(named map[string]string, nameOrExpr string) string {
	if expression, ok := named[nameOrExpr]; ok {
		return expression
	}
	return nameOrExpr
}

// CreateExprFilter creates a predicate from an expression. Evaluation errors
// count as no match.
func CreateExprFilter(expression string) (func(movies.Movie) bool, error) {
	filter, err := CompileExprFilter(expression)
	if err != nil {
		return nil, fmt.Errorf("failed to compile filter expression: %w", err)
	}

	return func(movie movies.Movie) bool {
		ok, err := filter.Match(movie)
		return err == nil && ok
	}, nil
}
