package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"actionplus.app/internal/access"
)

func newLoginCmd(c *cli) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and cache the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				pw, err := readSecret(cmd.InOrStdin(), cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				password = pw
			}
			s, err := c.app.Access.Authenticate(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			return c.output(cmd.OutOrStdout(), s, func(w io.Writer) {
				fmt.Fprintf(w, "Logged in as %s (%s)\n", s.Username, s.Role)
			})
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (read from stdin when omitted)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

// readSecret prompts without echo on a terminal and otherwise reads one line.
func readSecret(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		pw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(pw), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newLogoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the cached session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _, err := c.app.Session(cmd.Context())
			if err != nil {
				ctx = cmd.Context()
			}
			if err := c.app.Access.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user and their sections",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := c.app.Session(cmd.Context())
			if err != nil {
				if errors.Is(err, access.ErrNoSession) || errors.Is(err, access.ErrInvalidToken) {
					return errors.New("not logged in")
				}
				return err
			}
			return c.output(cmd.OutOrStdout(), s, func(w io.Writer) {
				formatTable(w, []string{"USERNAME", "ROLE", "SECTIONS", "SINCE"}, [][]string{{
					s.Username, string(s.Role), joinPerms(s.Permissions), s.IssuedAt.Local().Format(time.DateTime),
				}})
			})
		},
	}
}
