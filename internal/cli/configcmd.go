package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/config"
	"github.com/Makepad-fr/tada/internal/ui"
)

func (s *session) configCmd() *cobra.Command {
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective settings to ~/.tada/config.toml",
		Args:  noArgs("config init"),
		RunE: func(*cobra.Command, []string) error {
			path := config.DefaultPaths().User
			if path == "" {
				return fmt.Errorf("config init: cannot resolve home directory")
			}
			if err := s.cfg.WriteFile(path, force); err != nil {
				return err
			}
			ui.OK("wrote " + path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	cmd := &cobra.Command{
		Use:   "config <init|show|path>",
		Short: "Inspect or create the configuration file",
		Args: func(*cobra.Command, []string) error {
			return usagef("usage: tada config <init|show|path>")
		},
		RunE: func(*cobra.Command, []string) error { return nil },
	}
	cmd.AddCommand(
		initCmd,
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective settings as TOML",
			Args:  noArgs("config show"),
			RunE: func(*cobra.Command, []string) error {
				return s.cfg.Write(ui.Stdout)
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the files settings are read from",
			Args:  noArgs("config path"),
			Run: func(*cobra.Command, []string) {
				p := config.DefaultPaths()
				fmt.Fprintln(ui.Stdout, "user:   ", p.User)
				fmt.Fprintln(ui.Stdout, "project:", p.Project)
				fmt.Fprintln(ui.Stdout, "dotenv: ", p.DotEnv)
			},
		},
	)
	return cmd
}
