// Package cli wires the tada commands together with cobra.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/api"
	"github.com/Makepad-fr/tada/internal/app"
	"github.com/Makepad-fr/tada/internal/auth"
	"github.com/Makepad-fr/tada/internal/config"
	"github.com/Makepad-fr/tada/internal/logging"
	"github.com/Makepad-fr/tada/internal/tui"
	"github.com/Makepad-fr/tada/internal/ui"
)

// usageError marks bad invocations; they exit with code 2.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// session is the state shared by every command after flags are parsed.
type session struct {
	cfg *config.Config

	apiURL   string
	theme    string
	logLevel string
}

// Execute runs the CLI and returns an exit code (0 ok, 1 error, 2 usage).
func Execute(version string, args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(version)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	ui.Fail(err.Error())
	var ue *usageError
	if errors.As(err, &ue) {
		fmt.Fprintln(ui.Stderr, "Run `tada help` for usage.")
		return 2
	}
	return 1
}

func newRootCmd(version string) *cobra.Command {
	s := &session{}
	root := &cobra.Command{
		Use:   "tada",
		Short: "tada - a tiny to-do client",
		Long: `tada keeps a to-do list in sync with a remote task API.

Run without a subcommand to open the interactive list. When the API cannot be
reached, changes are applied locally and retried on refresh.`,
		Example: `  tada
  tada add "Buy milk"
  tada ls --group
  tada done 2
  tada rm 3`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usagef("unknown subcommand: %s", args[0])
			}
			return nil
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return s.setup(cmd)
		},
		RunE:          s.runTUI,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.SetOut(ui.Stdout)
	root.SetErr(ui.Stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{msg: err.Error()}
	})

	root.PersistentFlags().StringVar(&s.apiURL, "api-url", "", "task API base URL (default from config)")
	root.PersistentFlags().StringVar(&s.theme, "theme", "", "output theme: classic, neon or mono")
	root.PersistentFlags().StringVar(&s.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		s.lsCmd(),
		s.addCmd(),
		s.doneCmd(),
		s.rmCmd(),
		s.syncCmd(),
		s.authCmd(),
		s.configCmd(),
		versionCmd(version),
	)
	return root
}

// setup loads the configuration and applies flag overrides.
func (s *session) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(config.DefaultPaths())
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("api-url") {
		cfg.APIURL = s.apiURL
	}
	if flags.Changed("theme") {
		cfg.Theme = s.theme
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = s.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return usagef("%v", err)
	}
	ui.SetTheme(cfg.Theme)
	s.cfg = cfg
	return nil
}

// stderrLogger is used by one-shot commands.
func (s *session) stderrLogger() *log.Logger {
	return logging.New(ui.Stderr, logging.Options{
		Level:  s.cfg.Log.Level,
		Format: s.cfg.Log.Format,
		Prefix: "tada",
	})
}

func (s *session) client(logger *log.Logger) (*api.Client, error) {
	client, err := api.NewClient(s.cfg.APIURL,
		api.WithToken(auth.Token()),
		api.WithLogger(logger),
	)
	if err != nil {
		return nil, usagef("%v", err)
	}
	return client, nil
}

func (s *session) controller(logger *log.Logger) (*app.Controller, error) {
	client, err := s.client(logger)
	if err != nil {
		return nil, err
	}
	return app.New(client,
		app.WithLogger(logger),
		app.WithReconcile(s.cfg.Reconcile),
	), nil
}

func (s *session) runTUI(cmd *cobra.Command, _ []string) error {
	f, err := logging.OpenFile(s.cfg.Log.File)
	if err != nil {
		return err
	}
	defer f.Close()
	logger := logging.New(f, logging.Options{
		Level:     s.cfg.Log.Level,
		Format:    s.cfg.Log.Format,
		Timestamp: true,
	})
	logger.Info("starting", "api_url", s.cfg.APIURL)

	ctrl, err := s.controller(logger)
	if err != nil {
		return err
	}
	if err := tui.Run(cmd.Context(), ctrl); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

func versionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(ui.Stdout, "tada", version)
		},
	}
}
