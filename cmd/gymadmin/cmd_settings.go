package main

import (
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"actionplus.app/internal/access"
	"actionplus.app/internal/settings"
)

func newSettingsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Vocabularies and message templates",
	}
	cmd.AddCommand(settingsShowCmd(c))
	cmd.AddCommand(settingsVocabCmd(c))
	cmd.AddCommand(settingsTemplateCmd(c))
	cmd.AddCommand(settingsRenderCmd(c))
	return cmd
}

func settingsShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show every vocabulary and template",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _, err := c.session(cmd, access.PermSettings)
			if err != nil {
				return err
			}
			st, err := c.app.Settings.Load(ctx)
			if err != nil {
				return err
			}
			return c.output(cmd.OutOrStdout(), st, func(w io.Writer) {
				names := make([]string, 0, len(st.Vocabularies))
				for _, n := range []string{settings.Plans, settings.Genders, settings.PaymentMethods, settings.HoldDurations} {
					if _, ok := st.Vocabularies[n]; ok {
						names = append(names, n)
					}
				}
				var extra []string
				for n := range st.Vocabularies {
					if !slices.Contains(names, n) {
						extra = append(extra, n)
					}
				}
				sort.Strings(extra)
				names = append(names, extra...)
				rows := make([][]string, 0, len(names))
				for _, n := range names {
					rows = append(rows, []string{n, strings.Join(st.Vocabularies[n], ", ")})
				}
				formatTable(w, []string{"VOCABULARY", "VALUES"}, rows)
				fmt.Fprintln(w)
				rows = rows[:0]
				for _, n := range st.TemplateNames() {
					rows = append(rows, []string{n, st.Templates[n]})
				}
				formatTable(w, []string{"TEMPLATE", "BODY"}, rows)
				fmt.Fprintf(w, "\npayment months: %s\n", strings.Join(settings.PaymentMonths(time.Now()), ", "))
			})
		},
	}
}

func settingsVocabCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "vocab <name> [value...]",
		Short: "Show a vocabulary, or replace it when values are given",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _, err := c.session(cmd, access.PermSettings)
			if err != nil {
				return err
			}
			name := args[0]
			if len(args) > 1 {
				if err := c.app.Settings.SetVocabulary(ctx, name, args[1:]); err != nil {
					return err
				}
			}
			values := c.app.Settings.Vocabulary(ctx, name)
			return c.output(cmd.OutOrStdout(), values, func(w io.Writer) {
				for _, v := range values {
					fmt.Fprintln(w, v)
				}
			})
		},
	}
}

func settingsTemplateCmd(c *cli) *cobra.Command {
	var body string
	cmd := &cobra.Command{
		Use:   "template <name>",
		Short: "Show a template, or replace it with --set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _, err := c.session(cmd, access.PermSettings)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("set") {
				if err := c.app.Settings.SetTemplate(ctx, args[0], body); err != nil {
					return err
				}
			}
			tpl := c.app.Settings.Template(ctx, args[0])
			return c.output(cmd.OutOrStdout(), map[string]string{"name": args[0], "body": tpl}, func(w io.Writer) {
				fmt.Fprintln(w, tpl)
			})
		},
	}
	cmd.Flags().StringVar(&body, "set", "", "New template body ({{ name }}, {{ plan }}, {{ billingDate }}, {{ amount }}, ...)")
	return cmd
}

// settingsRenderCmd previews an SMS, so it is gated on the sms section.
func settingsRenderCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "render <template> <member-id>",
		Short: "Render a message template for a member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _, err := c.session(cmd, access.PermSMS)
			if err != nil {
				return err
			}
			m, err := c.app.Members.Get(ctx, args[1])
			if err != nil {
				return err
			}
			msg, err := c.app.Settings.Render(ctx, args[0], m)
			if err != nil {
				return err
			}
			return c.output(cmd.OutOrStdout(), map[string]string{"to": m.Mobile, "message": msg}, func(w io.Writer) {
				fmt.Fprintf(w, "To: %s\n%s\n", m.Mobile, msg)
			})
		},
	}
}
