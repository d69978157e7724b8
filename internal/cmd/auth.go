package cmd

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	perrors "github.com/marikmarie/mtnvas/internal/errors"
	"github.com/marikmarie/mtnvas/internal/forms"
	"github.com/marikmarie/mtnvas/internal/session"
	"github.com/marikmarie/mtnvas/internal/tui"
)

func newAuthCmd() *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Sign in to and out of the portal",
		Long: `Manage your portal session.

The session (user and bearer token) is stored under session.state_dir and
restored by every command. It ends when you log out, when the backend reports
that the token is no longer valid, or after session.idle_timeout without use.

Examples:
  wakanet auth login --email jane@example.com
  wakanet auth status
  wakanet auth logout`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Long: `Sign in to the portal with your email and password.

Without flags you are prompted interactively. In scripts pass --email and
pipe the password with --password-stdin.

Examples:
  wakanet auth login
  echo "$PASSWORD" | wakanet auth login --email jane@example.com --password-stdin`,
		RunE: withApp(runAuthLogin),
	}
	loginCmd.Flags().String("email", "", "account email")
	loginCmd.Flags().String("password", "", "account password (prefer --password-stdin)")
	loginCmd.Flags().Bool("password-stdin", false, "read the password from stdin")

	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove the stored session",
		RunE:  withApp(runAuthLogout),
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show who is signed in",
		RunE:  withApp(runAuthStatus),
	}

	authCmd.AddCommand(loginCmd, logoutCmd, statusCmd)
	return authCmd
}

func runAuthLogin(cmd *cobra.Command, args []string, a *App) error {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	fromStdin, _ := cmd.Flags().GetBool("password-stdin")

	if fromStdin {
		line, err := bufio.NewReader(a.in).ReadString('\n')
		if err != nil && line == "" {
			return perrors.Wrap(perrors.ErrCodeFileReadFailed, "failed to read password from stdin", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	if email == "" || password == "" {
		if !tui.ShouldPrompt() {
			return perrors.New(perrors.ErrCodeAuthRequired, "--email and a password are required when not running interactively").
				WithSuggestion("Pass --email and pipe the password with --password-stdin")
		}
		creds, err := tui.PromptForSignIn(email)
		if err != nil {
			return err
		}
		email, password = creds.Email, creds.Password
	}

	form := forms.SignInForm{Email: strings.TrimSpace(email), Password: password}
	if err := forms.Validate(form); err != nil {
		return err
	}

	user, err := a.Factory.SignIn(cmd.Context(), form.Email, form.Password)
	if err != nil {
		return err
	}

	if a.structured() {
		return a.render(user)
	}
	who := user.Name
	if who == "" {
		who = user.Email
	}
	if user.Role != "" {
		who += " (" + user.Role + ")"
	}
	fmt.Fprintf(a.out, "✓ Signed in as %s\n", who)
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string, a *App) error {
	if !a.Store.Authenticated() {
		a.printf("Not signed in.\n")
		return nil
	}

	email := a.Store.User().Email
	if err := session.Expire(a.Store, nil, session.ReasonSignOut); err != nil {
		return err
	}
	a.printf("✓ Signed out %s\n", email)
	return nil
}

// authStatus is the 'auth status' report
type authStatus struct {
	SignedIn     bool   `json:"signed_in" yaml:"signed_in"`
	Email        string `json:"email,omitempty" yaml:"email,omitempty"`
	Name         string `json:"name,omitempty" yaml:"name,omitempty"`
	Role         string `json:"role,omitempty" yaml:"role,omitempty"`
	TokenExpires string `json:"token_expires,omitempty" yaml:"token_expires,omitempty"`
	IdleTimeout  string `json:"idle_timeout" yaml:"idle_timeout"`
	Backend      string `json:"backend" yaml:"backend"`
}

func (s authStatus) String() string {
	if !s.SignedIn {
		return fmt.Sprintf("Not signed in to %s\nRun 'wakanet auth login' to sign in.", s.Backend)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Signed in to %s\n", s.Backend)
	fmt.Fprintf(&b, "  Email:   %s\n", s.Email)
	if s.Name != "" {
		fmt.Fprintf(&b, "  Name:    %s\n", s.Name)
	}
	if s.Role != "" {
		fmt.Fprintf(&b, "  Role:    %s\n", s.Role)
	}
	if s.TokenExpires != "" {
		fmt.Fprintf(&b, "  Expires: %s\n", s.TokenExpires)
	}
	fmt.Fprintf(&b, "  Idle timeout: %s", s.IdleTimeout)
	return b.String()
}

func runAuthStatus(cmd *cobra.Command, args []string, a *App) error {
	st := authStatus{
		IdleTimeout: a.Store.IdleTimeout().String(),
		Backend:     a.Config.API.BaseURL,
	}
	if a.Store.Authenticated() {
		user := a.Store.User()
		st.SignedIn = true
		st.Email = user.Email
		st.Name = user.Name
		st.Role = user.Role
		if exp, ok := session.TokenExpiry(a.Store.Token()); ok {
			st.TokenExpires = exp.UTC().Format(time.RFC3339)
		}
	}

	if a.Config.Defaults.Format == "table" || a.Config.Defaults.Format == "" {
		fmt.Fprintln(a.out, st.String())
		return nil
	}
	return a.render(st)
}
