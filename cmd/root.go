package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/reelcritic/api"
	"github.com/s0up4200/reelcritic/auth"
	"github.com/s0up4200/reelcritic/config"
	"github.com/s0up4200/reelcritic/credentials"
	"github.com/s0up4200/reelcritic/movies"
	"github.com/s0up4200/reelcritic/state"
)

var (
	cfgFile      string
	cfg          *config.Config
	logger       zerolog.Logger
	store        credentials.Store
	apiClient    *api.Client
	authService  *auth.Service
	movieService *movies.Service
	formatter    *movies.ConsoleFormatter

	// Build information, set from main
	version   = "dev"
	buildTime = "unknown"

	// Command flags
	plainOutput bool
)

// errNotLoggedIn is returned by commands that need a session
var errNotLoggedIn = errors.New("not logged in: run `reelcritic login` first")

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "reelcritic",
	Short: "A terminal client for your movie review service",
	Long: `reelcritic is a CLI client for a movie review REST service. It keeps you
logged in between runs and lets you list, read, write, edit and delete
movie reviews from the terminal.`,
	SilenceUsage:       true,
	PersistentPreRunE:  initializeApp,
	PersistentPostRunE: closeApp,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprint(os.Stderr, formatter.FormatError(err.Error()))
		stop()
		os.Exit(1)
	}
}

// SetVersion records the build information reported by `version`
func SetVersion(v, built string) {
	version = v
	buildTime = built
	rootCmd.Version = v
}

func init() {
	logger = zerolog.Nop()
	formatter = movies.NewConsoleFormatter(!isTerminal(os.Stderr))

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or ~/.reelcritic/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&plainOutput, "plain", false, "disable colored output")
}

// initializeApp initializes the configuration, the credential store and the services
func initializeApp(cmd *cobra.Command, args []string) error {
	// Load configuration
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	logger = setupLogger(cfg.Logging)
	if cfg.File != "" {
		logger.Debug().Str("file", cfg.File).Msg("Loaded config")
	}

	plain := plainOutput || !cfg.Display.Color || !isTerminal(os.Stdout)
	formatter = movies.NewConsoleFormatter(plain)

	store, err = credentials.Open(cfg.Credentials.Backend, cfg.Credentials.Path)
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}

	opts := []api.Option{api.WithUserAgent(cfg.API.UserAgent + "/" + version)}
	if cfg.API.Timeout > 0 {
		opts = append(opts, api.WithTimeout(cfg.API.Timeout))
	}

	apiClient, err = api.NewClient(cfg.API.URL, store, logger, opts...)
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}

	authService = auth.NewService(apiClient, store, logger)
	movieService = movies.NewService(apiClient, logger)

	return nil
}

// closeApp releases the credential store
func closeApp(cmd *cobra.Command, args []string) error {
	if store == nil {
		return nil
	}
	return store.Close()
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Console format
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !isTerminal(os.Stderr),
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// interactive reports whether prompts can be shown
func interactive() bool {
	return isTerminal(os.Stdin) && isTerminal(os.Stdout)
}

// openSession restores the stored session and logs its transitions
func openSession(ctx context.Context) (*state.Session, error) {
	session := state.NewSession(authService, logger)
	session.Subscribe(func(st state.SessionState) {
		logger.Debug().
			Stringer("phase", st.Phase()).
			Bool("authenticated", st.IsAuthenticated()).
			Str("error", st.Error()).
			Msg("Session")
	})

	if err := session.Restore(ctx); err != nil {
		return nil, err
	}
	return session, nil
}

// requireSession restores the session and fails unless a user is logged in
func requireSession(ctx context.Context) (*state.Session, error) {
	session, err := openSession(ctx)
	if err != nil {
		return nil, err
	}
	if !session.State().IsAuthenticated() {
		return nil, errNotLoggedIn
	}
	return session, nil
}

// newMovies creates the movie container and logs its transitions
func newMovies() *state.Movies {
	m := state.NewMovies(movieService, logger)
	m.Subscribe(func(st state.MoviesState) {
		logger.Debug().
			Stringer("phase", st.Phase()).
			Int("movies", st.Len()).
			Str("error", st.Error()).
			Msg("Movies")
	})
	return m
}

// failure reports an operation failure with the message recorded in state,
// keeping the underlying error in the debug log
func failure(message string, err error) error {
	logger.Debug().Err(err).Msg(message)
	if api.IsNetworkError(err) {
		return fmt.Errorf("%s: cannot reach %s", message, cfg.API.URL)
	}
	return errors.New(message)
}
