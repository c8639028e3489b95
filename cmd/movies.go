package cmd

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/reelcritic/filter"
	"github.com/s0up4200/reelcritic/forms"
	"github.com/s0up4200/reelcritic/movies"
	"github.com/s0up4200/reelcritic/state"
)

var (
	filterExpr  string
	mineOnly    bool
	showReviews bool
	assumeYes   bool

	movieTitle  string
	movieGenre  string
	movieYear   int
	movieRating float64
	movieReview string
)

// moviesCmd groups the review commands
var moviesCmd = &cobra.Command{
	Use:     "movies",
	Aliases: []string{"movie", "m"},
	Short:   "List, read, write, edit and delete movie reviews",
}

// listCmd represents the movies list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List movie reviews",
	Long: `List every movie review, or only yours with --mine.

--filter takes an expression or the name of a filter from the config file:

  reelcritic movies list --filter 'Rating >= 8 and isGenre("sci-fi")'
  reelcritic movies list --filter 'by("alice") and CreatedAt > daysAgo(30)'
  reelcritic movies list --filter classics`,
	Args: cobra.NoArgs,
	RunE: runList,
}

// mineCmd represents the movies mine command
var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "List your movie reviews",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mineOnly = true
		return runList(cmd, args)
	},
}

// showCmd represents the movies show command
var showCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show a movie review",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

// addCmd represents the movies add command
var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Write a new movie review",
	Long: `Write a new movie review. Without flags the review is entered
interactively.`,
	Args: cobra.NoArgs,
	RunE: runAdd,
}

// editCmd represents the movies edit command
var editCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Edit one of your movie reviews",
	Long: `Edit one of your movie reviews. Flags replace single fields; without
flags the review is edited interactively.`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

// deleteCmd represents the movies delete command
var deleteCmd = &cobra.Command{
	Use:   "delete [ID...]",
	Short: "Delete movie reviews",
	Long: `Delete your movie reviews by id, or every one of your reviews matching
--filter.`,
	RunE: runDelete,
}

func init() {
	rootCmd.AddCommand(moviesCmd)
	moviesCmd.AddCommand(listCmd, mineCmd, showCmd, addCmd, editCmd, deleteCmd)

	for _, c := range []*cobra.Command{listCmd, mineCmd} {
		c.Flags().StringVarP(&filterExpr, "filter", "f", "", "filter expression or named filter")
		c.Flags().BoolVarP(&showReviews, "reviews", "r", false, "show the first line of each review")
	}
	listCmd.Flags().BoolVar(&mineOnly, "mine", false, "only list your reviews")

	for _, c := range []*cobra.Command{addCmd, editCmd} {
		c.Flags().StringVarP(&movieTitle, "title", "t", "", "movie title")
		c.Flags().StringVarP(&movieGenre, "genre", "g", "", "genre, e.g. drama or sci-fi")
		c.Flags().IntVarP(&movieYear, "year", "y", 0, "release year (0 for none)")
		c.Flags().Float64VarP(&movieRating, "rating", "r", 0, "rating from 0 to 10")
		c.Flags().StringVar(&movieReview, "review", "", "review text")
	}

	deleteCmd.Flags().StringVarP(&filterExpr, "filter", "f", "", "delete your reviews matching this filter")
	deleteCmd.Flags().BoolVar(&assumeYes, "yes", false, "skip confirmation prompt")
}

// loadMovies restores the session and fetches the collection concurrently
func loadMovies(ctx context.Context, mine bool) (*state.Movies, error) {
	m := newMovies()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		_, err := requireSession(gctx)
		return err
	})

	var fetchErr error
	g.Go(func() error {
		if mine {
			fetchErr = m.FetchMine(gctx)
		} else {
			fetchErr = m.FetchAll(gctx)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if fetchErr != nil {
		return nil, movieFailure(fetchErr)
	}
	return m, nil
}

func runList(cmd *cobra.Command, args []string) error {
	m, err := loadMovies(cmd.Context(), mineOnly)
	if err != nil {
		return err
	}

	list := m.State().Movies()

	if filterExpr != "" {
		if list, err = applyFilter(list, filterExpr); err != nil {
			return err
		}
	}

	fmt.Print(formatter.FormatMovieList(list, movies.FormatOptions{
		ShowDetails: cfg.Display.ShowDetails,
		ShowReviews: showReviews || cfg.Display.ShowReviews,
	}))
	return nil
}

// applyFilter keeps the movies matching an expression or named filter
func applyFilter(list []movies.Movie, nameOrExpr string) ([]movies.Movie, error) {
	expression := filter.Resolve(cfg.Filters, nameOrExpr)
	logger.Debug().Str("filter", expression).Msg("Filtering movies")

	f, err := filter.CompileExprFilter(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}

	matched, err := f.Apply(list)
	if err != nil {
		logger.Warn().Err(err).Msg("Some movies could not be evaluated and were skipped")
	}
	return matched, nil
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	if _, err := requireSession(ctx); err != nil {
		return err
	}

	movie, err := newMovies().Get(ctx, id)
	if err != nil {
		return movieFailure(err)
	}

	fmt.Print(formatter.FormatMovie(*movie))
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if _, err := requireSession(ctx); err != nil {
		return err
	}

	data, err := movieForm(cmd, "New review", movies.DefaultFormData())
	if err != nil {
		return err
	}

	created, err := newMovies().Add(ctx, data)
	if err != nil {
		return movieFailure(err)
	}

	fmt.Printf("✓ Added %s (#%d)\n", created.Title, created.ID)
	return nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	if _, err := requireSession(ctx); err != nil {
		return err
	}

	m := newMovies()
	current, err := m.Get(ctx, id)
	if err != nil {
		return movieFailure(err)
	}

	data, err := movieForm(cmd, "Edit review", movies.FormDataFrom(*current))
	if err != nil {
		return err
	}

	updated, err := m.Update(ctx, id, data)
	if err != nil {
		return movieFailure(err)
	}

	fmt.Printf("✓ Updated %s (#%d)\n", updated.Title, id)
	return nil
}

// movieForm fills a review form from flags, or from a prompt when no field
// flag was given, and validates it
func movieForm(cmd *cobra.Command, heading string, data movies.FormData) (movies.FormData, error) {
	flags := cmd.Flags()
	changed := false

	if flags.Changed("title") {
		data.Title = movieTitle
		changed = true
	}
	if flags.Changed("genre") {
		g, err := movies.ParseGenre(movieGenre)
		if err != nil {
			return data, err
		}
		data.Genre = g
		changed = true
	}
	if flags.Changed("year") {
		data.ReleaseYear = nil
		if movieYear != 0 {
			year := movieYear
			data.ReleaseYear = &year
		}
		changed = true
	}
	if flags.Changed("rating") {
		data.Rating = movies.Rating(movieRating)
		changed = true
	}
	if flags.Changed("review") {
		data.Review = movieReview
		changed = true
	}

	if !changed {
		if !interactive() {
			return data, errors.New("no fields given; pass --title, --genre, --year, --rating or --review")
		}
		prompted, err := forms.PromptMovie(heading, data)
		if err != nil {
			return data, promptError(err)
		}
		data = prompted
	}

	if err := forms.ValidateMovie(data); err != nil {
		return data, err
	}
	return data, nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if len(args) == 0 && filterExpr == "" {
		return errors.New("pass one or more ids or --filter")
	}
	if len(args) > 0 && filterExpr != "" {
		return errors.New("pass either ids or --filter, not both")
	}

	ids, err := parseIDs(args)
	if err != nil {
		return err
	}

	m, err := loadMovies(ctx, true)
	if err != nil {
		return err
	}
	mine := m.State().Movies()

	var toDelete []movies.Movie
	if filterExpr != "" {
		if toDelete, err = applyFilter(mine, filterExpr); err != nil {
			return err
		}
		for _, movie := range toDelete {
			ids = append(ids, movie.ID)
		}
	} else {
		for _, id := range ids {
			idx := slices.IndexFunc(mine, func(movie movies.Movie) bool { return movie.ID == id })
			if idx < 0 {
				toDelete = append(toDelete, movies.Movie{ID: id, Title: fmt.Sprintf("#%d", id)})
				continue
			}
			toDelete = append(toDelete, mine[idx])
		}
	}

	if len(ids) == 0 {
		fmt.Println("No movies matched the filter.")
		return nil
	}

	fmt.Print(formatter.FormatMoviesToDelete(toDelete))

	if cfg.Safety.ConfirmDelete && !assumeYes {
		if !interactive() {
			return errors.New("refusing to delete without confirmation; pass --yes")
		}
		ok, err := forms.Confirm(fmt.Sprintf("Delete %d review(s)?", len(ids)))
		if err != nil {
			return promptError(err)
		}
		if !ok {
			fmt.Println("Deletion cancelled.")
			return nil
		}
	}

	if len(ids) == 1 {
		if err := m.Remove(ctx, ids[0]); err != nil {
			return movieFailure(err)
		}
		fmt.Println("✓ Deleted 1 review")
		return nil
	}

	result, err := m.RemoveMany(ctx, ids)
	fmt.Printf("✓ Deleted %d of %d reviews\n", len(result.Successful), result.Requested)
	if err != nil {
		for _, f := range result.Failed {
			fmt.Print(formatter.FormatError(f.Error()))
		}
		return movieFailure(err)
	}
	return nil
}

// movieFailure turns a container error into the message shown to the user
func movieFailure(err error) error {
	var fetchErr *state.FetchError
	if errors.As(err, &fetchErr) {
		return failure(fetchErr.Message, fetchErr.Err)
	}
	var mutErr *state.MutationError
	if errors.As(err, &mutErr) {
		return failure(mutErr.Message, mutErr.Err)
	}
	return err
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid movie id: %q", s)
	}
	return id, nil
}

// parseIDs parses ids, dropping duplicates and keeping the given order
func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseID(arg)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
