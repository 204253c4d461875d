package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"actionplus.app/internal/access"
	"actionplus.app/internal/finance"
	"actionplus.app/internal/members"
)

func newFinanceCmd(c *cli) *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "finance",
		Short: "Payment totals by status, plan and payment method",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _, err := c.session(cmd, access.PermFinance)
			if err != nil {
				return err
			}
			list, err := c.app.Members.List(ctx)
			if err != nil {
				return err
			}
			sum := finance.Summarize(list, month)
			return c.output(cmd.OutOrStdout(), sum, func(w io.Writer) {
				fmt.Fprintf(w, "%d members, total %s\n", sum.Count, members.FormatAmount(sum.Total))
				for _, group := range []struct {
					title   string
					buckets []finance.Bucket
				}{
					{"STATUS", sum.ByStatus},
					{"PLAN", sum.ByPlan},
					{"PAYMENT METHOD", sum.ByPaymentMethod},
				} {
					rows := make([][]string, len(group.buckets))
					for i, b := range group.buckets {
						rows[i] = []string{b.Key, fmt.Sprint(b.Count), members.FormatAmount(b.Amount)}
					}
					fmt.Fprintln(w)
					formatTable(w, []string{group.title, "COUNT", "AMOUNT"}, rows)
				}
			})
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "Only members paying for this month (Month-YYYY)")
	return cmd
}
