package movies

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// FormatOptions contains options for formatting output
type FormatOptions struct {
	ShowDetails bool
	ShowReviews bool
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	ratingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444"))
)

// ConsoleFormatter provides console output formatting for reviews
type ConsoleFormatter struct {
	plain bool
}

// NewConsoleFormatter creates a new console formatter. plain disables styling.
func NewConsoleFormatter(plain bool) *ConsoleFormatter {
	return &ConsoleFormatter{plain: plain}
}

func (f *ConsoleFormatter) render(style lipgloss.Style, s string) string {
	if f.plain {
		return s
	}
	return style.Render(s)
}

// FormatMovieList formats a list of reviews, keeping the given order
func (f *ConsoleFormatter) FormatMovieList(list []Movie, options FormatOptions) string {
	if len(list) == 0 {
		return "No movies found\n"
	}

	var sb strings.Builder

	sb.WriteString("\nMovie")
	if len(list) != 1 {
		sb.WriteString("s")
	}
	fmt.Fprintf(&sb, " (%d):\n\n", len(list))

	for i, m := range list {
		isLast := i == len(list)-1
		f.formatMovie(&sb, m, isLast, options)

		if !isLast {
			sb.WriteString("│\n")
		}
	}

	sb.WriteString("\n")
	return sb.String()
}

// FormatMovie formats a single review with every field
func (f *ConsoleFormatter) FormatMovie(m Movie) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s %s\n", f.render(titleStyle, m.Title), f.render(mutedStyle, fmt.Sprintf("#%d", m.ID)))
	fmt.Fprintf(&sb, "  Genre:    %s\n", m.Genre.Label())
	if m.ReleaseYear != nil {
		fmt.Fprintf(&sb, "  Released: %d\n", *m.ReleaseYear)
	}
	fmt.Fprintf(&sb, "  Rating:   %s\n", f.render(ratingStyle, fmt.Sprintf("%s/10 %s", m.Rating, stars(m.Rating))))
	if m.CreatedBy.Username != "" {
		fmt.Fprintf(&sb, "  By:       %s\n", m.CreatedBy.Username)
	}
	if !m.CreatedAt.IsZero() {
		dates := "  Added:    " + m.CreatedAt.Format("2006-01-02")
		if m.UpdatedAt.After(m.CreatedAt) {
			dates += fmt.Sprintf(" (updated %s)", m.UpdatedAt.Format("2006-01-02"))
		}
		sb.WriteString(dates + "\n")
	}
	if m.Review != "" {
		sb.WriteString("\n")
		for _, line := range strings.Split(strings.TrimSpace(m.Review), "\n") {
			fmt.Fprintf(&sb, "  %s\n", line)
		}
	}

	return sb.String()
}

// FormatMoviesToDelete formats reviews for deletion confirmation
func (f *ConsoleFormatter) FormatMoviesToDelete(list []Movie) string {
	if len(list) == 0 {
		return ""
	}

	var sb strings.Builder

	sb.WriteString("\nMovie")
	if len(list) != 1 {
		sb.WriteString("s")
	}
	fmt.Fprintf(&sb, " to be deleted (%d):\n\n", len(list))

	for i, m := range list {
		prefix := "├"
		if i == len(list)-1 {
			prefix = "╰"
		}
		fmt.Fprintf(&sb, "%s── %s%s\n", prefix, m.Title, yearSuffix(m))
	}

	sb.WriteString("\n")
	return sb.String()
}

// FormatError formats an inline error line
func (f *ConsoleFormatter) FormatError(msg string) string {
	return f.render(errorStyle, "✗ "+msg) + "\n"
}

// formatMovie formats a single list entry
func (f *ConsoleFormatter) formatMovie(sb *strings.Builder, m Movie, isLast bool, options FormatOptions) {
	prefix := "├"
	if isLast {
		prefix = "╰"
	}

	fmt.Fprintf(sb, "%s── %s%s %s\n",
		prefix,
		f.render(titleStyle, m.Title),
		yearSuffix(m),
		f.render(ratingStyle, m.Rating.String()))

	indent := "│   "
	if isLast {
		indent = "    "
	}

	if options.ShowDetails {
		details := []string{fmt.Sprintf("#%d", m.ID), m.Genre.Label()}
		if m.CreatedBy.Username != "" {
			details = append(details, "by "+m.CreatedBy.Username)
		}
		if !m.CreatedAt.IsZero() {
			details = append(details, m.CreatedAt.Format("2006-01-02"))
		}
		fmt.Fprintf(sb, "%s%s\n", indent, f.render(mutedStyle, strings.Join(details, " | ")))
	}

	if options.ShowReviews && m.Review != "" {
		fmt.Fprintf(sb, "%s%s\n", indent, truncate(firstLine(m.Review), 72))
	}
}

func yearSuffix(m Movie) string {
	if m.ReleaseYear == nil {
		return ""
	}
	return fmt.Sprintf(" (%d)", *m.ReleaseYear)
}

// stars renders the 0-10 rating as five half-resolution stars
func stars(r Rating) string {
	full := int(float64(r) / 2)
	if full > 5 {
		full = 5
	}
	if full < 0 {
		full = 0
	}
	return strings.Repeat("★", full) + strings.Repeat("☆", 5-full)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
