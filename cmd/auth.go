package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/s0up4200/reelcritic/auth"
	"github.com/s0up4200/reelcritic/forms"
	"github.com/s0up4200/reelcritic/state"
)

var (
	username        string
	email           string
	password        string
	passwordConfirm string
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Log in and remember the session",
	Long: `Log in to the review service. The session tokens are stored in the
configured credential store and reused by later commands until you log out.

Without --password the credentials are asked for interactively.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

// registerCmd represents the register command
var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and log in",
	Args:  cobra.NoArgs,
	RunE:  runRegister,
}

// logoutCmd represents the logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

// whoamiCmd represents the whoami command
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)

	loginCmd.Flags().StringVarP(&username, "username", "u", "", "username")
	loginCmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")

	registerCmd.Flags().StringVarP(&username, "username", "u", "", "username")
	registerCmd.Flags().StringVarP(&email, "email", "e", "", "email address")
	registerCmd.Flags().StringVarP(&password, "password", "p", "", "password, at least 8 characters")
	registerCmd.Flags().StringVar(&passwordConfirm, "password-confirm", "", "password confirmation")
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	creds := auth.LoginCredentials{Username: username, Password: password}
	if len(args) == 1 {
		creds.Username = args[0]
	}

	if creds.Password == "" && interactive() {
		var err error
		if creds, err = forms.PromptLogin(creds.Username); err != nil {
			return promptError(err)
		}
	}

	if err := forms.ValidateLogin(creds); err != nil {
		return err
	}

	session, err := openSession(ctx)
	if err != nil {
		return err
	}

	user, err := session.Login(ctx, creds)
	if err != nil {
		return authFailure(err)
	}

	fmt.Printf("✓ Logged in as %s\n", user.Username)
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	creds := auth.RegisterCredentials{
		Username:        username,
		Email:           email,
		Password:        password,
		PasswordConfirm: passwordConfirm,
	}

	if creds.Password == "" && interactive() {
		var err error
		if creds, err = forms.PromptRegister(); err != nil {
			return promptError(err)
		}
	}

	if err := forms.ValidateRegistration(creds); err != nil {
		return err
	}

	session, err := openSession(ctx)
	if err != nil {
		return err
	}

	user, err := session.Register(ctx, creds)
	if err != nil {
		return authFailure(err)
	}

	fmt.Printf("✓ Registered and logged in as %s\n", user.Username)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	wasLoggedIn := store.HasToken()

	session := state.NewSession(authService, logger)
	session.Logout()

	if wasLoggedIn {
		fmt.Println("✓ Logged out")
	} else {
		fmt.Println("Not logged in")
	}
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	session, err := requireSession(cmd.Context())
	if err != nil {
		return err
	}

	user := session.State().User()
	if user.Email != "" {
		fmt.Printf("%s <%s>\n", user.Username, user.Email)
		return nil
	}
	fmt.Println(user.Username)
	return nil
}

// authFailure turns a session error into the message shown to the user
func authFailure(err error) error {
	var authErr *state.AuthError
	if errors.As(err, &authErr) {
		return failure(authErr.Message, authErr.Err)
	}
	return err
}

// promptError maps an aborted prompt to a quiet exit
func promptError(err error) error {
	if errors.Is(err, forms.ErrAborted) {
		return errors.New("cancelled")
	}
	return err
}
