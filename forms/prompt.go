package forms

import (
	"errors"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/s0up4200/reelcritic/auth"
	"github.com/s0up4200/reelcritic/movies"
)

// ErrAborted is returned when the user cancels a prompt
var ErrAborted = errors.New("prompt aborted")

func run(form *huh.Form) error {
	if err := form.WithTheme(huh.ThemeCharm()).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return ErrAborted
		}
		return err
	}
	return nil
}

// PromptLogin asks for username and password. A username already supplied
// on the command line is used as the default.
func PromptLogin(username string) (auth.LoginCredentials, error) {
	creds := auth.LoginCredentials{Username: username}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(&creds.Username).
				Validate(requireUsername),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&creds.Password).
				Validate(requirePassword),
		).Title("Log in"),
	)
	if err := run(form); err != nil {
		return auth.LoginCredentials{}, err
	}

	creds.Username = strings.TrimSpace(creds.Username)
	return creds, ValidateLogin(creds)
}

// PromptRegister asks for the registration fields
func PromptRegister() (auth.RegisterCredentials, error) {
	var creds auth.RegisterCredentials

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(&creds.Username).
				Validate(requireUsername),
			huh.NewInput().
				Title("Email").
				Value(&creds.Email).
				Validate(requireEmail),
			huh.NewInput().
				Title("Password").
				Description("At least 8 characters").
				EchoMode(huh.EchoModePassword).
				Value(&creds.Password).
				Validate(passwordLength),
			huh.NewInput().
				Title("Confirm password").
				EchoMode(huh.EchoModePassword).
				Value(&creds.PasswordConfirm).
				Validate(func(s string) error {
					if s != creds.Password {
						return invalid("password_confirm", "Passwords do not match")
					}
					return nil
				}),
		).Title("Create an account"),
	)
	if err := run(form); err != nil {
		return auth.RegisterCredentials{}, err
	}

	creds.Username = strings.TrimSpace(creds.Username)
	creds.Email = strings.TrimSpace(creds.Email)
	return creds, ValidateRegistration(creds)
}

// PromptMovie edits a review form starting from initial
func PromptMovie(heading string, initial movies.FormData) (movies.FormData, error) {
	data := initial
	if !data.Genre.Valid() {
		data.Genre = movies.GenreOther
	}

	year := ""
	if initial.ReleaseYear != nil {
		year = strconv.Itoa(*initial.ReleaseYear)
	}
	rating := initial.Rating.String()

	genreOptions := make([]huh.Option[movies.Genre], 0, len(movies.Genres()))
	for _, g := range movies.Genres() {
		genreOptions = append(genreOptions, huh.NewOption(g.Label(), g))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Value(&data.Title).
				Validate(requireTitle),
			huh.NewSelect[movies.Genre]().
				Title("Genre").
				Options(genreOptions...).
				Value(&data.Genre),
			huh.NewInput().
				Title("Release year").
				Placeholder("optional").
				Value(&year).
				Validate(func(s string) error {
					_, err := ParseReleaseYear(s)
					return err
				}),
			huh.NewInput().
				Title("Rating (0-10)").
				Value(&rating).
				Validate(func(s string) error {
					_, err := ParseRating(s)
					return err
				}),
			huh.NewText().
				Title("Review").
				Value(&data.Review),
		).Title(heading),
	)
	if err := run(form); err != nil {
		return movies.FormData{}, err
	}

	var err error
	if data.ReleaseYear, err = ParseReleaseYear(year); err != nil {
		return movies.FormData{}, err
	}
	if data.Rating, err = ParseRating(rating); err != nil {
		return movies.FormData{}, err
	}
	data.Title = strings.TrimSpace(data.Title)

	return data, ValidateMovie(data)
}

// Confirm asks a yes/no question
func Confirm(question string) (bool, error) {
	var ok bool

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(question).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	)
	if err := run(form); err != nil {
		return false, err
	}
	return ok, nil
}

// ParseReleaseYear turns user input into an optional year. Blank means none.
func ParseReleaseYear(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	year, err := strconv.Atoi(s)
	if err != nil {
		return nil, invalid("release_year", "Release year must be a number")
	}
	if err := releaseYear(&year); err != nil {
		return nil, err
	}
	return &year, nil
}

// ParseRating turns user input into a rating within [0, 10]
func ParseRating(s string) (movies.Rating, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, invalid("rating", "Rating must be a number")
	}

	r := movies.Rating(v)
	if err := ratingRange(r); err != nil {
		return 0, err
	}
	return r, nil
}
