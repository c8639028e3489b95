package forms

import (
	"fmt"
	"strings"
	"time"

	"github.com/s0up4200/reelcritic/auth"
	"github.com/s0up4200/reelcritic/movies"
)

// MinPasswordLength is the shortest password accepted at registration
const MinPasswordLength = 8

// ValidationError is a form-local rejection. It is raised before any network
// call and never reaches the state containers.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Field validators, shared by the Validate* functions and the prompts.

func requireUsername(s string) error {
	if strings.TrimSpace(s) == "" {
		return invalid("username", "Username is required")
	}
	return nil
}

func requirePassword(s string) error {
	if s == "" {
		return invalid("password", "Password is required")
	}
	return nil
}

func requireEmail(s string) error {
	if strings.TrimSpace(s) == "" {
		return invalid("email", "Email is required")
	}
	return nil
}

func passwordLength(s string) error {
	if err := requirePassword(s); err != nil {
		return err
	}
	if len([]rune(s)) < MinPasswordLength {
		return invalid("password", "Password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

func requireTitle(s string) error {
	if strings.TrimSpace(s) == "" {
		return invalid("title", "Title is required")
	}
	return nil
}

func ratingRange(r movies.Rating) error {
	if !r.InRange() {
		return invalid("rating", "Rating must be between 0 and 10")
	}
	return nil
}

// MinReleaseYear is the earliest release year the form accepts
const MinReleaseYear = 1900

// releaseYear accepts an absent year or one between MinReleaseYear and the
// current year
func releaseYear(year *int) error {
	if year == nil {
		return nil
	}
	if maxYear := time.Now().Year(); *year < MinReleaseYear || *year > maxYear {
		return invalid("release_year", "Release year must be between %d and %d", MinReleaseYear, maxYear)
	}
	return nil
}

// ValidateLogin checks the login form
func ValidateLogin(creds auth.LoginCredentials) error {
	if err := requireUsername(creds.Username); err != nil {
		return err
	}
	return requirePassword(creds.Password)
}

// ValidateRegistration checks the registration form: every field is
// required, the password has a minimum length and must match its confirmation.
func ValidateRegistration(creds auth.RegisterCredentials) error {
	if err := requireUsername(creds.Username); err != nil {
		return err
	}
	if err := requireEmail(creds.Email); err != nil {
		return err
	}
	if err := passwordLength(creds.Password); err != nil {
		return err
	}
	if creds.Password != creds.PasswordConfirm {
		return invalid("password_confirm", "Passwords do not match")
	}
	return nil
}

// ValidateMovie checks a review form before create or update
func ValidateMovie(data movies.FormData) error {
	if err := requireTitle(data.Title); err != nil {
		return err
	}
	if !data.Genre.Valid() {
		return invalid("genre", "Unknown genre %q", string(data.Genre))
	}
	if err := releaseYear(data.ReleaseYear); err != nil {
		return err
	}
	return ratingRange(data.Rating)
}
