package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxbrief/internal/config"
	"github.com/teemow/inboxbrief/internal/google"
	"github.com/teemow/inboxbrief/internal/instrumentation"
	"github.com/teemow/inboxbrief/internal/logging"
)

// version will be set by main
var version = "dev"

// SetVersion sets the version reported by the CLI and the MCP server.
func SetVersion(v string) {
	version = v
}

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath        string
	credentialsPath   string
	tokenPath         string
	calendarEntries   int
	emailEntries      int
	noInteractiveAuth bool
	debug             bool
}

// newRootCmd builds the command tree. Tests build a fresh tree per case.
func newRootCmd() *cobra.Command {
	rootCmd, _ := newRootCmdWithOptions()
	return rootCmd
}

func newRootCmdWithOptions() (*cobra.Command, *rootOptions) {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "inboxbrief",
		Short: "Gmail and Google Calendar tools for AI assistants",
		Long: `inboxbrief gives a chat assistant read access to your upcoming Google
Calendar events and Gmail inbox, and lets it prepare draft replies.

It can run as:
  - An MCP (Model Context Protocol) server for AI assistants (default)
  - A CLI printing the same output as the MCP tools`,
		Version:      version,
		SilenceUsage: true,
	}
	rootCmd.SetVersionTemplate(`{{printf "inboxbrief version %s\n" .Version}}`)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to the TOML config file. Can also use "+config.EnvConfigPath+" env var.")
	flags.StringVar(&opts.credentialsPath, "credentials", "", "Path to the Google OAuth client credentials JSON")
	flags.StringVar(&opts.tokenPath, "token", "", "Path of the stored OAuth token")
	flags.IntVar(&opts.calendarEntries, "calendar-entries", 0, "Default number of calendar events to return")
	flags.IntVar(&opts.emailEntries, "email-entries", 0, "Default number of messages to return")
	flags.BoolVar(&opts.noInteractiveAuth, "no-interactive-auth", false, "Fail instead of starting the browser authorization flow when no token is stored")
	flags.BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newAuthCmd(opts))
	rootCmd.AddCommand(newEventsCmd(opts))
	rootCmd.AddCommand(newEmailsCmd(opts))
	rootCmd.AddCommand(newMessageCmd(opts))
	rootCmd.AddCommand(newDraftCmd(opts))
	rootCmd.AddCommand(newMenuCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd, opts
}

// Execute is the main entry point for the CLI application
func Execute() {
	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig applies the persistent flags on top of config.Load. Only flags
// set on the command line override the file and the environment.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, err
	}

	o.applyFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (o *rootOptions) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("credentials") {
		cfg.CredentialsPath = o.credentialsPath
	}
	if flags.Changed("token") {
		cfg.TokenPath = o.tokenPath
	}
	if flags.Changed("calendar-entries") {
		cfg.DefaultCalendarEntries = o.calendarEntries
	}
	if flags.Changed("email-entries") {
		cfg.DefaultEmailEntries = o.emailEntries
	}
	if flags.Changed("no-interactive-auth") {
		cfg.InteractiveAuth = !o.noInteractiveAuth
	}
}

// logger writes to stderr; stdout carries MCP stdio traffic and command output.
func (o *rootOptions) logger(cmd *cobra.Command) *slog.Logger {
	return logging.New(cmd.ErrOrStderr(), o.debug)
}

func newAuthorizer(cmd *cobra.Command, cfg config.Config, logger *slog.Logger, metrics *instrumentation.Metrics) *google.Authorizer {
	return google.NewAuthorizer(google.AuthorizerConfig{
		CredentialsPath: cfg.CredentialsPath,
		TokenPath:       cfg.TokenPath,
		Interactive:     cfg.InteractiveAuth,
		Prompt:          cmd.ErrOrStderr(),
		Metrics:         metrics,
		Logger:          logger,
	})
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of inboxbrief",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "inboxbrief version %s\n", version)
		},
	}
}
