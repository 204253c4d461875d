package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"actionplus.app/internal/access"
	"actionplus.app/internal/audit"
)

func newLogsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Browse and export the activity log",
	}
	cmd.AddCommand(logsListCmd(c))
	cmd.AddCommand(logsExportCmd(c))
	cmd.AddCommand(logsFiltersCmd(c))
	return cmd
}

type logFlags struct {
	from, to       string
	actor, action  string
	text           string
	page, pageSize int
}

func (f *logFlags) register(cmd *cobra.Command, paged bool) {
	cmd.Flags().StringVar(&f.from, "from", "", "First day (YYYY-MM-DD), default 60 days ago")
	cmd.Flags().StringVar(&f.to, "to", "", "Last day (YYYY-MM-DD), default today")
	cmd.Flags().StringVar(&f.actor, "actor", "", "Only entries by this user")
	cmd.Flags().StringVar(&f.action, "action", "", "Only this action, e.g. member.update")
	cmd.Flags().StringVar(&f.text, "text", "", "Free text over actor, action, target and summary")
	if paged {
		cmd.Flags().IntVar(&f.page, "page", 1, "Page number")
		cmd.Flags().IntVar(&f.pageSize, "page-size", audit.DefaultPageSize, "Rows per page")
	}
}

func (f *logFlags) query() (audit.LogQuery, error) {
	q := audit.LogQuery{Actor: f.actor, Action: f.action, Text: f.text, Page: f.page, PageSize: f.pageSize}
	var err error
	if f.from != "" {
		if q.From, err = time.ParseInLocation(time.DateOnly, f.from, time.Local); err != nil {
			return q, fmt.Errorf("--from: %w", err)
		}
	}
	if f.to != "" {
		if q.To, err = time.ParseInLocation(time.DateOnly, f.to, time.Local); err != nil {
			return q, fmt.Errorf("--to: %w", err)
		}
	}
	return q, nil
}

func logsListCmd(c *cli) *cobra.Command {
	var f logFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show matching log entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _, err := c.session(cmd, access.PermLogs)
			if err != nil {
				return err
			}
			q, err := f.query()
			if err != nil {
				return err
			}
			res := c.app.Audit.Query(ctx, q)
			return c.output(cmd.OutOrStdout(), res, func(w io.Writer) {
				rows := make([][]string, len(res.Items))
				for i, e := range res.Items {
					rows[i] = []string{e.Timestamp.Local().Format(time.DateTime), e.Actor, e.Action, e.Target(), e.Summary}
				}
				formatTable(w, []string{"TIME", "ACTOR", "ACTION", "TARGET", "SUMMARY"}, rows)
				fmt.Fprintf(w, "page %d/%d, %d matching\n", res.Page, res.Pages, res.TotalMatched)
			})
		},
	}
	f.register(cmd, true)
	return cmd
}

func logsFiltersCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "filters",
		Short: "List the actors and actions present in the log",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _, err := c.session(cmd, access.PermLogs)
			if err != nil {
				return err
			}
			f := c.app.Audit.Filters(ctx)
			return c.output(cmd.OutOrStdout(), f, func(w io.Writer) {
				fmt.Fprintf(w, "actors:  %s\n", strings.Join(f.Actors, ", "))
				fmt.Fprintf(w, "actions: %s\n", strings.Join(f.Actions, ", "))
			})
		},
	}
}

func logsExportCmd(c *cli) *cobra.Command {
	var f logFlags
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every matching entry as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _, err := c.session(cmd, access.PermLogs)
			if err != nil {
				return err
			}
			q, err := f.query()
			if err != nil {
				return err
			}
			out, err := c.app.Audit.Export(ctx, q)
			if err != nil {
				return err
			}
			if outPath == "" {
				_, err = io.WriteString(cmd.OutOrStdout(), out)
				return err
			}
			if err := os.WriteFile(outPath, []byte(out), 0o600); err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", outPath)
			return nil
		},
	}
	f.register(cmd, false)
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Write CSV to this file instead of stdout")
	return cmd
}
