package movies

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/s0up4200/reelcritic/auth"
)

// Genre is one of the fixed genre codes accepted by the server
type Genre string

const (
	GenreAction      Genre = "ACTION"
	GenreComedy      Genre = "COMEDY"
	GenreDrama       Genre = "DRAMA"
	GenreFantasy     Genre = "FANTASY"
	GenreHorror      Genre = "HORROR"
	GenreMystery     Genre = "MYSTERY"
	GenreRomance     Genre = "ROMANCE"
	GenreThriller    Genre = "THRILLER"
	GenreSciFi       Genre = "SCI_FI"
	GenreDocumentary Genre = "DOCUMENTARY"
	GenreAnimation   Genre = "ANIMATION"
	GenreOther       Genre = "OTHER"
)

var genreLabels = map[Genre]string{
	GenreAction:      "Action",
	GenreComedy:      "Comedy",
	GenreDrama:       "Drama",
	GenreFantasy:     "Fantasy",
	GenreHorror:      "Horror",
	GenreMystery:     "Mystery",
	GenreRomance:     "Romance",
	GenreThriller:    "Thriller",
	GenreSciFi:       "Science Fiction",
	GenreDocumentary: "Documentary",
	GenreAnimation:   "Animation",
	GenreOther:       "Other",
}

// Genres returns every genre in display order
func Genres() []Genre {
	return []Genre{
		GenreAction, GenreComedy, GenreDrama, GenreFantasy,
		GenreHorror, GenreMystery, GenreRomance, GenreThriller,
		GenreSciFi, GenreDocumentary, GenreAnimation, GenreOther,
	}
}

// Valid reports whether g is a known genre code
func (g Genre) Valid() bool {
	_, ok := genreLabels[g]
	return ok
}

// Label returns the human readable genre name
func (g Genre) Label() string {
	if label, ok := genreLabels[g]; ok {
		return label
	}
	return string(g)
}

// ParseGenre accepts a genre code or label in any case ("sci_fi", "Science Fiction", "sci-fi")
func ParseGenre(s string) (Genre, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)

	if g := Genre(norm); g.Valid() {
		return g, nil
	}
	for g, label := range genreLabels {
		if strings.EqualFold(label, strings.TrimSpace(s)) {
			return g, nil
		}
	}
	return "", fmt.Errorf("unknown genre: %q", s)
}

// Rating is a score in [0, 10]. The server serialises its decimal field as a
// string ("7.5"), so both strings and numbers are accepted when decoding.
type Rating float64

// UnmarshalJSON implements json.Unmarshaler
func (r *Rating) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = 0
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("invalid rating %q: %w", s, err)
		}
		*r = Rating(v)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("invalid rating %s: %w", string(data), err)
	}
	*r = Rating(f)
	return nil
}

// InRange reports whether the rating lies within [0, 10]
func (r Rating) InRange() bool {
	return r >= 0 && r <= 10
}

// String formats the rating with one decimal, the server's precision
func (r Rating) String() string {
	return strconv.FormatFloat(float64(r), 'f', 1, 64)
}

// Movie is a review record as returned by the server. ID, CreatedBy and the
// timestamps are server-assigned.
type Movie struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Genre       Genre     `json:"genre"`
	ReleaseYear *int      `json:"release_year"`
	Rating      Rating    `json:"rating"`
	Review      string    `json:"review"`
	CreatedBy   auth.User `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FormData is the client-editable subset submitted on create and update
type FormData struct {
	Title       string `json:"title"`
	Genre       Genre  `json:"genre"`
	ReleaseYear *int   `json:"release_year"`
	Rating      Rating `json:"rating"`
	Review      string `json:"review"`
}

// DefaultFormData is the starting point for a new review
func DefaultFormData() FormData {
	return FormData{
		Genre:  GenreOther,
		Rating: 5,
	}
}

// FormDataFrom prefills a form with an existing record
func FormDataFrom(m Movie) FormData {
	f := FormData{
		Title:  m.Title,
		Genre:  m.Genre,
		Rating: m.Rating,
		Review: m.Review,
	}
	if m.ReleaseYear != nil {
		year := *m.ReleaseYear
		f.ReleaseYear = &year
	}
	return f
}
