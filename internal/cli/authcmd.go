package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/auth"
	"github.com/Makepad-fr/tada/internal/ui"
)

var errNotLoggedIn = errors.New("not logged in. Run: tada auth login")

func (s *session) authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth <login|logout|status|whoami>",
		Short: "Token authentication",
		Args: func(*cobra.Command, []string) error {
			return usagef("usage: tada auth <login|logout|status|whoami>")
		},
		RunE: func(*cobra.Command, []string) error { return nil },
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "login [token]",
			Short: "Save a bearer token (read from stdin when omitted)",
			Args:  cobra.MaximumNArgs(1),
			RunE:  authLogin,
		},
		&cobra.Command{
			Use:   "logout",
			Short: "Delete the saved token",
			Args:  noArgs("auth logout"),
			RunE:  authLogout,
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show where the token comes from and when it expires",
			Args:  noArgs("auth status"),
			RunE:  authStatus,
		},
		&cobra.Command{
			Use:   "whoami",
			Short: "Decode the token's JWT payload locally",
			Args:  noArgs("auth whoami"),
			RunE:  authWhoAmI,
		},
	)
	return cmd
}

func authLogin(cmd *cobra.Command, args []string) error {
	var token string
	if len(args) == 1 {
		token = args[0]
	} else {
		fmt.Fprint(ui.Stdout, "Paste your token: ")
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read token: %w", err)
		}
		token = line
	}
	if err := auth.SetToken(token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	ui.OK("logged in")
	return nil
}

func authLogout(*cobra.Command, []string) error {
	ti, _ := auth.GetToken()
	if ti != nil && ti.Source == "env" {
		ui.OK("token is provided by " + auth.EnvToken + " env var (nothing to delete)")
		return nil
	}
	if err := auth.DeleteToken(); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	ui.OK("logged out")
	return nil
}

func authStatus(*cobra.Command, []string) error {
	ti, err := auth.GetToken()
	if err != nil {
		return err
	}
	if ti == nil {
		fmt.Fprintln(ui.Stdout, ui.C(ui.Current().Muted, "not logged in"))
		fmt.Fprintln(ui.Stdout, "Run: tada auth login")
		return nil
	}
	fmt.Fprintf(ui.Stdout, "source: %s\n", ti.Source)
	if ti.ExpiresAt != nil {
		fmt.Fprintf(ui.Stdout, "expires: %s\n", ti.ExpiresAt.UTC().Format(time.RFC3339))
	} else {
		fmt.Fprintln(ui.Stdout, "expires: (unknown)")
	}
	fmt.Fprintln(ui.Stdout, "env override:", auth.EnvToken)
	return nil
}

func authWhoAmI(*cobra.Command, []string) error {
	ti, err := auth.GetToken()
	if err != nil {
		return err
	}
	if ti == nil {
		return &usageError{msg: errNotLoggedIn.Error()}
	}
	claims, err := auth.Claims(ti.Token)
	if err != nil {
		fmt.Fprintln(ui.Stdout, "Opaque token (cannot introspect locally).")
		fmt.Fprintln(ui.Stdout, "source:", ti.Source)
		return nil
	}
	b, err := json.MarshalIndent(claims, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(ui.Stdout, "JWT payload:")
	fmt.Fprintln(ui.Stdout, strings.TrimSpace(string(b)))
	return nil
}
