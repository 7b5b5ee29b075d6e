package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxbrief/internal/google"
)

func newAuthCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the stored Google authorization",
	}

	cmd.AddCommand(newAuthLoginCmd(opts))
	cmd.AddCommand(newAuthStatusCmd(opts))
	cmd.AddCommand(newAuthLogoutCmd(opts))

	return cmd
}

func newAuthLoginCmd(opts *rootOptions) *cobra.Command {
	var (
		port      int
		timeout   time.Duration
		noBrowser bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize inboxbrief with your Google account",
		Long: `Run the OAuth authorization flow in your browser and store the resulting
token. A previously stored token is replaced.

The authorization URL is always printed. The browser is opened automatically
only when stdin is a terminal, unless --no-browser is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			auth := newAuthorizer(cmd, cfg, opts.logger(cmd), nil)

			tok, err := auth.Login(cmd.Context(), google.LoginOptions{
				Port:        port,
				Timeout:     timeout,
				OpenBrowser: !noBrowser && isTerminal(cmd.InOrStdin()),
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Authorization complete. Token saved to %s", auth.TokenPath())
			if tok.RefreshToken == "" {
				_, _ = fmt.Fprint(cmd.OutOrStdout(), " (no refresh token received; re-run login when it expires)")
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Port of the local redirect listener (0 picks a free port)")
	cmd.Flags().DurationVar(&timeout, "timeout", google.DefaultLoginTimeout, "How long to wait for the browser redirect")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Only print the authorization URL")

	return cmd
}

func newAuthStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a token is stored and still valid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			st := newAuthorizer(cmd, cfg, opts.logger(cmd), nil).Status()

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Token file: %s\n", st.Path)
			switch {
			case !st.Exists:
				_, _ = fmt.Fprintln(out, "Status: not authorized (run `inboxbrief auth login`)")
			case st.Err != nil:
				_, _ = fmt.Fprintf(out, "Status: unreadable (%v)\n", st.Err)
			default:
				state := "expired"
				if st.Valid {
					state = "valid"
				}
				_, _ = fmt.Fprintf(out, "Status: %s\n", state)
				if !st.Expiry.IsZero() {
					_, _ = fmt.Fprintf(out, "Expiry: %s\n", st.Expiry.Format(time.RFC3339))
				}
				_, _ = fmt.Fprintf(out, "Refresh token: %t\n", st.HasRefreshToken)
			}
			return nil
		},
	}
}

func newAuthLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Delete the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			auth := newAuthorizer(cmd, cfg, opts.logger(cmd), nil)
			if err := auth.Logout(); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", auth.TokenPath())
			return nil
		},
	}
}
