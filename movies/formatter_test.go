package movies

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/s0up4200/reelcritic/auth"
)

func sampleMovies() []Movie {
	year := 2016
	return []Movie{
		{
			ID: 1, Title: "Arrival", Genre: GenreSciFi, ReleaseYear: &year, Rating: 8.5,
			Review:    "Quiet and devastating.\nSecond line.",
			CreatedBy: auth.User{ID: 1, Username: "alice"},
			CreatedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		},
		{ID: 2, Title: "Heat", Genre: GenreThriller, Rating: 9},
	}
}

func TestFormatMovieList(t *testing.T) {
	f := NewConsoleFormatter(true)

	out := f.FormatMovieList(sampleMovies(), FormatOptions{ShowDetails: true, ShowReviews: true})

	assert.Contains(t, out, "Movies (2):")
	assert.Contains(t, out, "├── Arrival (2016) 8.5")
	assert.Contains(t, out, "╰── Heat 9.0")
	assert.Contains(t, out, "│   #1 | Science Fiction | by alice | 2024-05-01")
	assert.Contains(t, out, "│   Quiet and devastating.")
	assert.NotContains(t, out, "Second line.")
	assert.Less(t, strings.Index(out, "Arrival"), strings.Index(out, "Heat"))
}

func TestFormatMovieList_Empty(t *testing.T) {
	f := NewConsoleFormatter(true)
	assert.Equal(t, "No movies found\n", f.FormatMovieList(nil, FormatOptions{}))
}

func TestFormatMovieList_Single(t *testing.T) {
	f := NewConsoleFormatter(true)
	out := f.FormatMovieList(sampleMovies()[1:], FormatOptions{})
	assert.Contains(t, out, "Movie (1):")
	assert.NotContains(t, out, "#2")
}

func TestFormatMovie(t *testing.T) {
	f := NewConsoleFormatter(true)
	out := f.FormatMovie(sampleMovies()[0])

	assert.Contains(t, out, "Arrival #1")
	assert.Contains(t, out, "Genre:    Science Fiction")
	assert.Contains(t, out, "Released: 2016")
	assert.Contains(t, out, "Rating:   8.5/10 ★★★★☆")
	assert.Contains(t, out, "By:       alice")
	assert.Contains(t, out, "  Second line.")
}

func TestFormatMoviesToDelete(t *testing.T) {
	f := NewConsoleFormatter(true)

	assert.Empty(t, f.FormatMoviesToDelete(nil))

	out := f.FormatMoviesToDelete(sampleMovies())
	assert.Contains(t, out, "Movies to be deleted (2):")
	assert.Contains(t, out, "├── Arrival (2016)")
	assert.Contains(t, out, "╰── Heat")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
