// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/movex/movex/internal/auth"
	"github.com/movex/movex/internal/client"
	"github.com/movex/movex/internal/config"
)

// clientFlagKeys maps client flags onto config keys.
var clientFlagKeys = map[string]string{
	"server":  "client.base_url",
	"session": "client.session_file",
	"timeout": "client.timeout",
}

func addClientFlags(cmd *cobra.Command) {
	defaults := config.Default()
	cmd.Flags().String("server", defaults.Client.BaseURL, "API base URL")
	cmd.Flags().String("session", "", "session file (default: XDG_CONFIG_HOME/movex/session.json)")
	cmd.Flags().String("timeout", defaults.Client.Timeout.Std().String(), "request timeout")
	cmd.Flags().Bool("captain", false, "act as a captain instead of a rider")
}

func kindFlag(cmd *cobra.Command) auth.Kind {
	if captain, _ := cmd.Flags().GetBool("captain"); captain {
		return auth.KindCaptain
	}
	return auth.KindUser
}

func newClient(cmd *cobra.Command) (*client.Client, error) {
	cfg, err := loadConfig(cmd, clientFlagKeys)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateClient(); err != nil {
		return nil, err
	}
	return client.New(cfg.Client.BaseURL,
		client.NewFileTokenStore(cfg.Client.SessionFile),
		client.WithTimeout(cfg.Client.Timeout.Std()),
	)
}

// prompter reads missing form fields from the command's input.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(cmd *cobra.Command) *prompter {
	return &prompter{in: bufio.NewReader(cmd.InOrStdin()), out: cmd.OutOrStdout()}
}

// fill prompts for *value when it is empty. EOF leaves it empty.
func (p *prompter) fill(label string, value *string) error {
	if *value != "" {
		return nil
	}
	if _, err := fmt.Fprintf(p.out, "%s: ", label); err != nil {
		return err
	}
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	*value = strings.TrimRight(line, "\r\n")
	return nil
}

// reportFieldErrors prints per-field messages so they sit next to the
// input that caused them. It reports whether anything was printed.
func reportFieldErrors(cmd *cobra.Command, err error) bool {
	var fields map[string]string

	var validation *auth.ValidationError
	var apiErr *client.APIError
	switch {
	case errors.As(err, &validation):
		fields = validation.Fields
	case errors.As(err, &apiErr):
		fields = apiErr.Fields
	}
	if len(fields) == 0 {
		return false
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		cmd.PrintErrf("  %s: %s\n", k, fields[k])
	}
	return true
}

func kindLabel(kind auth.Kind) string {
	if kind == auth.KindCaptain {
		return "captain"
	}
	return "rider"
}

// NewSignupCmd creates the signup subcommand.
func NewSignupCmd() *cobra.Command {
	var form client.SignUpForm

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create a rider or captain account",
		Long: `Create an account and store the returned session token. Fields not
given as flags are prompted for.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			p := newPrompter(cmd)
			for _, f := range []struct {
				label string
				value *string
			}{
				{"First name", &form.FirstName},
				{"Last name", &form.LastName},
				{"Email", &form.Email},
				{"Password", &form.Password},
			} {
				if err := p.fill(f.label, f.value); err != nil {
					return err
				}
			}

			kind := kindFlag(cmd)
			resp, err := c.Register(cmd.Context(), kind, &form)
			if err != nil {
				reportFieldErrors(cmd, err)
				return err
			}
			cmd.Printf("Welcome, %s! Signed up as a %s.\n", resp.User.FullName.FirstName, kindLabel(kind))
			return nil
		},
	}

	cmd.Flags().StringVar(&form.FirstName, "firstname", "", "first name")
	cmd.Flags().StringVar(&form.LastName, "lastname", "", "last name (optional)")
	cmd.Flags().StringVar(&form.Email, "email", "", "email address")
	cmd.Flags().StringVar(&form.Password, "password", "", "password")
	addClientFlags(cmd)

	return cmd
}

// NewLoginCmd creates the login subcommand.
func NewLoginCmd() *cobra.Command {
	var form client.LoginForm

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to an existing account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			p := newPrompter(cmd)
			if err := p.fill("Email", &form.Email); err != nil {
				return err
			}
			if err := p.fill("Password", &form.Password); err != nil {
				return err
			}

			kind := kindFlag(cmd)
			resp, err := c.Login(cmd.Context(), kind, &form)
			if err != nil {
				reportFieldErrors(cmd, err)
				return err
			}
			cmd.Printf("Signed in as %s (%s).\n", resp.User.Email, kindLabel(kind))
			return nil
		},
	}

	cmd.Flags().StringVar(&form.Email, "email", "", "email address")
	cmd.Flags().StringVar(&form.Password, "password", "", "password")
	addClientFlags(cmd)

	return cmd
}

// NewHomeCmd creates the home subcommand, the protected landing screen.
func NewHomeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "home",
		Short: "Show the signed-in account",
		Long: `Show the account behind the stored session. Without a valid session
the login route is printed and the command fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			kind := kindFlag(cmd)
			user, err := client.NewGate(c).Enter(cmd.Context(), kind)
			if err != nil {
				var loginErr *client.LoginRequiredError
				if errors.As(err, &loginErr) {
					cmd.PrintErrf("Not signed in. Continue at %s\n", loginErr.Route)
				}
				return err
			}

			name := strings.TrimSpace(user.FullName.FirstName + " " + user.FullName.LastName)
			cmd.Printf("Home (%s)\n", kindLabel(kind))
			cmd.Printf("  Name:  %s\n", name)
			cmd.Printf("  Email: %s\n", user.Email)
			cmd.Printf("  ID:    %s\n", user.ID)
			return nil
		},
	}
	addClientFlags(cmd)
	return cmd
}

// NewLogoutCmd creates the logout subcommand.
func NewLogoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			kind := kindFlag(cmd)
			if err := c.Logout(cmd.Context(), kind); err != nil {
				return err
			}
			cmd.Printf("Logged out. Sign in again at %s\n", client.LoginRoute(kind))
			return nil
		},
	}
	addClientFlags(cmd)
	return cmd
}
