package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/reelcritic/credentials"
	"github.com/s0up4200/reelcritic/state"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration, session and connection status",
	Long: `Show the configuration in use, the stored session and whether the review
service is reachable. The session check and the movie fetch run concurrently.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	fmt.Printf("API:         %s\n", apiClient.BaseURL())
	if cfg.File != "" {
		fmt.Printf("Config:      %s\n", cfg.File)
	} else {
		fmt.Println("Config:      defaults (no config file found)")
	}
	fmt.Printf("Credentials: %s (%s)\n", cfg.Credentials.Backend, cfg.Credentials.Path)

	if !store.HasToken() {
		fmt.Println("Session:     not logged in")
		return nil
	}

	var session *state.Session
	m := newMovies()

	var g errgroup.Group
	g.Go(func() error {
		var err error
		session, err = openSession(ctx)
		return err
	})
	g.Go(func() error {
		_ = m.FetchAll(ctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	st := session.State()
	if st.IsAuthenticated() {
		fmt.Printf("Session:     logged in as %s\n", st.User().Username)
	} else {
		fmt.Println("Session:     stored token was rejected; run `reelcritic login`")
	}

	claims, err := authService.SessionClaims()
	switch {
	case errors.Is(err, credentials.ErrNoToken):
	case err != nil:
		logger.Debug().Err(err).Msg("Access token is not a JWT")
	default:
		if exp, ok := claims.Expiry(); ok {
			label := "expires"
			if claims.Expired(time.Now()) {
				label = "expired"
			}
			fmt.Printf("Token:       %s %s\n", label, exp.Local().Format(time.RFC1123))
		}
	}

	ms := m.State()
	if msg := ms.Error(); msg != "" {
		fmt.Printf("Movies:      %s\n", msg)
		return nil
	}
	fmt.Printf("Movies:      %d reviews\n", ms.Len())
	return nil
}
