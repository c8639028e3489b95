package movies

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGenre(t *testing.T) {
	tests := []struct {
		input   string
		want    Genre
		wantErr bool
	}{
		{input: "ACTION", want: GenreAction},
		{input: "drama", want: GenreDrama},
		{input: "sci_fi", want: GenreSciFi},
		{input: "sci-fi", want: GenreSciFi},
		{input: "Science Fiction", want: GenreSciFi},
		{input: " documentary ", want: GenreDocumentary},
		{input: "western", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseGenre(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenres(t *testing.T) {
	all := Genres()
	assert.Len(t, all, 12)
	for _, g := range all {
		assert.True(t, g.Valid(), g)
	}
	assert.Equal(t, "Science Fiction", GenreSciFi.Label())
	assert.Equal(t, "WESTERN", Genre("WESTERN").Label())
	assert.False(t, Genre("WESTERN").Valid())
}

func TestRating_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Rating
		wantErr bool
	}{
		{name: "string", input: `"7.5"`, want: 7.5},
		{name: "number", input: `8`, want: 8},
		{name: "null", input: `null`, want: 0},
		{name: "garbage string", input: `"abc"`, wantErr: true},
		{name: "object", input: `{}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Rating
			err := json.Unmarshal([]byte(tt.input), &r)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, r)
		})
	}
}

func TestRating_InRangeAndString(t *testing.T) {
	assert.True(t, Rating(0).InRange())
	assert.True(t, Rating(10).InRange())
	assert.False(t, Rating(10.1).InRange())
	assert.False(t, Rating(-0.5).InRange())
	assert.Equal(t, "7.5", Rating(7.5).String())
	assert.Equal(t, "10.0", Rating(10).String())
}

func TestFormDataFrom(t *testing.T) {
	year := 1999
	m := Movie{ID: 4, Title: "The Matrix", Genre: GenreSciFi, ReleaseYear: &year, Rating: 9, Review: "Whoa."}

	f := FormDataFrom(m)
	assert.Equal(t, "The Matrix", f.Title)
	assert.Equal(t, GenreSciFi, f.Genre)
	assert.Equal(t, Rating(9), f.Rating)
	require.NotNil(t, f.ReleaseYear)
	assert.Equal(t, 1999, *f.ReleaseYear)

	*f.ReleaseYear = 2000
	assert.Equal(t, 1999, *m.ReleaseYear, "form must not alias the record")
}

func TestDefaultFormData(t *testing.T) {
	f := DefaultFormData()
	assert.Equal(t, GenreOther, f.Genre)
	assert.Equal(t, Rating(5), f.Rating)
	assert.Empty(t, f.Title)
	assert.Nil(t, f.ReleaseYear)
}
