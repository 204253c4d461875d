package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"actionplus.app/internal/access"
	"actionplus.app/internal/app"
	"actionplus.app/internal/audit"
	"actionplus.app/internal/config"
	"actionplus.app/internal/obs"
)

// Build-time variables set via ldflags.
var (
	version = "0.1.0"
	commit  = ""
)

type cli struct {
	format string
	app    *app.App
}

func versionString() string {
	if commit != "" {
		return fmt.Sprintf("gymadmin version %s (commit: %s)", version, commit)
	}
	return fmt.Sprintf("gymadmin version %s-dev", version)
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:     "gymadmin",
		Short:   "Action Plus gym administration",
		Version: versionString(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.format != "json" && c.format != "table" {
				return fmt.Errorf("--format must be json or table, got %q", c.format)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			c.app = a
			return nil
		},
		SilenceUsage: true,
	}
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().StringVar(&c.format, "format", "table", "Output format: json|table")

	root.AddCommand(newLoginCmd(c))
	root.AddCommand(newLogoutCmd(c))
	root.AddCommand(newWhoamiCmd(c))
	root.AddCommand(newUsersCmd(c))
	root.AddCommand(newMembersCmd(c))
	root.AddCommand(newDashboardCmd(c))
	root.AddCommand(newLogsCmd(c))
	root.AddCommand(newFinanceCmd(c))
	root.AddCommand(newSettingsCmd(c))
	return root
}

// run executes args and always releases the app, flushing metrics.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	c := &cli{}
	root := newRootCmd(c)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	ctx = audit.WithRequestID(ctx, uuid.NewString())
	err := root.ExecuteContext(ctx)
	if c.app != nil {
		if cerr := c.app.Close(); cerr != nil {
			obs.Logger().WithError(cerr).Warn("shutdown")
		}
	}
	if err != nil {
		return 1
	}
	return 0
}

// session resolves the logged-in user and checks that they may open section.
func (c *cli) session(cmd *cobra.Command, section access.Permission) (context.Context, access.Session, error) {
	ctx, _, err := c.app.Session(cmd.Context())
	if err == nil {
		var s access.Session
		if s, err = access.Require(ctx, section); err == nil {
			return ctx, s, nil
		}
	}
	switch {
	case errors.Is(err, access.ErrNoSession), errors.Is(err, access.ErrInvalidToken):
		return nil, access.Session{}, errors.New("not logged in: run gymadmin login")
	case errors.Is(err, access.ErrForbidden):
		who, _ := access.SessionFromContext(ctx)
		return nil, access.Session{}, fmt.Errorf("%w: %s cannot open %s", err, who.Username, section)
	default:
		return nil, access.Session{}, err
	}
}

func main() {
	obs.InitBuildInfo(version, commit)
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
