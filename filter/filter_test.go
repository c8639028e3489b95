package filter

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/s0up4200/reelcritic/auth"
	"github.com/s0up4200/reelcritic/movies"
)

func testMovies() []movies.Movie {
	year := func(y int) *int { return &y }
	return []movies.Movie{
		{
			ID: 1, Title: "Arrival", Genre: movies.GenreSciFi, ReleaseYear: year(2016), Rating: 8.5,
			Review:    "A linguist decodes an alien language.",
			CreatedBy: auth.User{Username: "alice"},
			CreatedAt: time.Now().AddDate(0, 0, -3),
		},
		{
			ID: 2, Title: "Heat", Genre: movies.GenreThriller, ReleaseYear: year(1995), Rating: 9,
			CreatedBy: auth.User{Username: "bob"},
			CreatedAt: time.Now().AddDate(-1, 0, 0),
		},
		{
			ID: 3, Title: "Untitled Home Video", Genre: movies.GenreOther, Rating: 2,
			CreatedBy: auth.User{Username: "Alice"},
			CreatedAt: time.Now().AddDate(0, -2, 0),
			UpdatedAt: time.Now(),
		},
	}
}

func TestCompileExprFilter(t *testing.T) {
	tests := []struct {
		name        string
		expression  string
		wantErr     bool
		errContains string
	}{
		{
			name:       "valid expression",
			expression: `Rating >= 8`,
		},
		{
			name:        "empty expression",
			expression:  "  ",
			wantErr:     true,
			errContains: "empty expression",
		},
		{
			name:       "invalid syntax",
			expression: `contains(Title, "unclosed`,
			wantErr:    true,
		},
		{
			name:       "unknown variable",
			expression: `Director == "Villeneuve"`,
			wantErr:    true,
		},
		{
			name:       "not a boolean",
			expression: `Rating + 1`,
			wantErr:    true,
		},
		{
			name:       "complex expression",
			expression: `isGenre("sci-fi") and HasReleaseYear and ReleaseYear > 2010 and daysSince(CreatedAt) < 30`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := CompileExprFilter(tt.expression)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error but got none")
				}
				var compErr *CompilationError
				if !errors.As(err, &compErr) {
					t.Errorf("expected CompilationError, got %T", err)
				}
				if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("error %q does not contain %q", err.Error(), tt.errContains)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if filter.String() != tt.expression {
				t.Errorf("String() = %q, want %q", filter.String(), tt.expression)
			}
		})
	}
}

func TestExprFilter_Apply(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		wantIDs    []int64
	}{
		{name: "rating", expression: `Rating >= 8.5`, wantIDs: []int64{1, 2}},
		{name: "genre label", expression: `GenreLabel == "Science Fiction"`, wantIDs: []int64{1}},
		{name: "genre helper", expression: `isGenre("thriller")`, wantIDs: []int64{2}},
		{name: "author case insensitive", expression: `by("alice")`, wantIDs: []int64{1, 3}},
		{name: "missing release year", expression: `not HasReleaseYear`, wantIDs: []int64{3}},
		{name: "release year", expression: `ReleaseYear < 2000 and HasReleaseYear`, wantIDs: []int64{2}},
		{name: "review text", expression: `contains(Review, "ALIEN")`, wantIDs: []int64{1}},
		{name: "title prefix", expression: `startsWith(Title, "he")`, wantIDs: []int64{2}},
		{name: "recent", expression: `CreatedAt > daysAgo(30)`, wantIDs: []int64{1}},
		{name: "older than six months", expression: `CreatedAt < monthsAgo(6)`, wantIDs: []int64{2}},
		{name: "edited", expression: `edited()`, wantIDs: []int64{3}},
		{name: "movie struct", expression: `Movie.ID == 2`, wantIDs: []int64{2}},
		{name: "no match", expression: `Rating > 10`, wantIDs: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := CompileExprFilter(tt.expression)
			if err != nil {
				t.Fatalf("compile: %v", err)
			}

			got, err := filter.Apply(testMovies())
			if err != nil {
				t.Fatalf("apply: %v", err)
			}

			var gotIDs []int64
			for _, m := range got {
				gotIDs = append(gotIDs, m.ID)
			}
			if len(gotIDs) != len(tt.wantIDs) {
				t.Fatalf("got ids %v, want %v", gotIDs, tt.wantIDs)
			}
			for i := range gotIDs {
				if gotIDs[i] != tt.wantIDs[i] {
					t.Errorf("got ids %v, want %v", gotIDs, tt.wantIDs)
					break
				}
			}
		})
	}
}

func TestExprFilter_EvaluationError(t *testing.T) {
	filter, err := CompileExprFilter(`ID % (ID - ID) == 0`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	_, err = filter.Match(testMovies()[0])
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %v", err)
	}
	if evalErr.MovieTitle != "Arrival" {
		t.Errorf("MovieTitle = %q, want Arrival", evalErr.MovieTitle)
	}
}

func TestResolve(t *testing.T) {
	named := map[string]string{"classics": `ReleaseYear < 1980 and HasReleaseYear`}

	if got := Resolve(named, "classics"); got != named["classics"] {
		t.Errorf("Resolve(classics) = %q", got)
	}
	if got := Resolve(named, "Rating > 5"); got != "Rating > 5" {
		t.Errorf("Resolve(expr) = %q", got)
	}
	if got := Resolve(nil, "Rating > 5"); got != "Rating > 5" {
		t.Errorf("Resolve(nil) = %q", got)
	}
}

func TestCreateExprFilter(t *testing.T) {
	match, err := CreateExprFilter(`by("bob")`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	list := testMovies()
	if match(list[0]) {
		t.Errorf("expected Arrival not to match")
	}
	if !match(list[1]) {
		t.Errorf("expected Heat to match")
	}

	if _, err := CreateExprFilter(""); err == nil {
		t.Errorf("expected error for empty expression")
	}
}
