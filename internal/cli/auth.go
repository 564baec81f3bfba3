package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tessro/startify/internal/auth"
	"github.com/tessro/startify/internal/backend/client"
	"github.com/tessro/startify/internal/backend/remote"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the backend session credential",
	Long: `Commands for managing the session credential presented to the backend.

The credential is issued by the backend's sign-in flow and stored locally
with owner-only permissions. It is deleted automatically when the backend
rejects it.`,
}

var authSetTokenCmd = &cobra.Command{
	Use:     "set-token [token]",
	Aliases: []string{"login"},
	Short:   "Store a session credential",
	Long: `Store a session credential.

The token is read from the argument, from standard input when it is not a
terminal, or from a hidden prompt.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuthSetToken,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored credential",
	Args:  cobra.NoArgs,
	RunE:  runAuthLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status",
	Args:  cobra.NoArgs,
	RunE:  runAuthStatus,
}

func init() {
	authCmd.AddCommand(authSetTokenCmd, authLogoutCmd, authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

func readToken(in io.Reader, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(os.Stderr, "Session token: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func runAuthSetToken(cmd *cobra.Command, args []string) error {
	raw, err := readToken(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	cred, err := auth.NewCredential(raw)
	if err != nil {
		return err
	}

	c, _, err := newClient(true)
	if err != nil {
		return err
	}
	if err := c.SetCredential(cred); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Credential saved (%s)\n", cred.Masked())

	// Verification is best effort; the backend may not be running yet.
	ctx, cancel := commandContext(cmd.Context())
	defer cancel()
	if p, err := remote.New(c).Profile(ctx); err == nil && p != nil && p.DisplayName != "" {
		fmt.Fprintf(out, "Signed in as %s\n", p.DisplayName)
	} else if client.IsUnauthorized(err) {
		fmt.Fprintln(out, paint(redStyle, "Warning: the backend rejected this credential"))
	}
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	storage, err := credentialStorage()
	if err != nil {
		return err
	}
	if err := storage.Delete(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
	return nil
}

type authStatus struct {
	Authenticated bool      `json:"authenticated" yaml:"authenticated"`
	Valid         *bool     `json:"valid,omitempty" yaml:"valid,omitempty"`
	Token         string    `json:"token,omitempty" yaml:"token,omitempty"`
	SavedAt       time.Time `json:"saved_at,omitzero" yaml:"saved_at,omitempty"`
	DisplayName   string    `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Path          string    `json:"path" yaml:"path"`
	Error         string    `json:"error,omitempty" yaml:"error,omitempty"`
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	storage, err := credentialStorage()
	if err != nil {
		return err
	}
	cred, err := storage.Load()
	if err != nil {
		return fmt.Errorf("failed to load credential: %w", err)
	}

	st := authStatus{Path: storage.Path()}
	if cred != nil {
		st.Authenticated = true
		st.Token = cred.Masked()
		st.SavedAt = cred.SavedAt

		c := client.New(cfg.Backend.BaseURL, nil,
			client.WithTimeout(commandTimeout),
			client.WithRetries(0),
			client.WithLogger(logger))
		if err := c.SetCredential(cred); err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd.Context())
		defer cancel()
		p, err := remote.New(c).Profile(ctx)
		switch {
		case err == nil:
			valid := true
			st.Valid = &valid
			if p != nil {
				st.DisplayName = p.DisplayName
			}
		case client.IsUnauthorized(err):
			valid := false
			st.Valid = &valid
		default:
			st.Error = err.Error()
		}
	}

	return render(cmd.OutOrStdout(), st, func(w io.Writer) error {
		if !st.Authenticated {
			fmt.Fprintln(w, "Not authenticated.")
			fmt.Fprintln(w, "Run 'startify auth set-token' to store a session credential.")
			return nil
		}
		fmt.Fprintf(w, "Credential: %s (saved %s)\n", st.Token, st.SavedAt.Local().Format(time.RFC3339))
		switch {
		case st.Valid != nil && *st.Valid && st.DisplayName != "":
			fmt.Fprintf(w, "Signed in as: %s\n", st.DisplayName)
		case st.Valid != nil && *st.Valid:
			fmt.Fprintln(w, "Credential accepted by the backend.")
		case st.Valid != nil:
			fmt.Fprintln(w, paint(redStyle, "The backend rejects this credential."))
		default:
			fmt.Fprintf(w, "Could not verify credential: %s\n", st.Error)
		}
		return nil
	})
}
