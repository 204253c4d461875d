package main

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"actionplus.app/internal/access"
	"actionplus.app/internal/members"
)

func newMembersCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members",
		Short: "Manage the member register",
	}
	cmd.AddCommand(membersListCmd(c))
	cmd.AddCommand(membersShowCmd(c))
	cmd.AddCommand(membersSaveCmd(c))
	cmd.AddCommand(membersDeleteCmd(c))
	return cmd
}

func memberRows(list []members.Member) [][]string {
	rows := make([][]string, len(list))
	for i, m := range list {
		rows[i] = []string{m.ID, m.Name, m.Mobile, m.Plan, m.JoinDate, m.BillingDate, string(m.Status), members.FormatAmount(m.Amount)}
	}
	return rows
}

var memberHeaders = []string{"ID", "NAME", "MOBILE", "PLAN", "JOINED", "BILLING", "STATUS", "AMOUNT"}

func membersListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all members",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _, err := c.session(cmd, access.PermMembers)
			if err != nil {
				return err
			}
			list, err := c.app.Members.List(ctx)
			if err != nil {
				return err
			}
			return c.output(cmd.OutOrStdout(), list, func(w io.Writer) {
				formatTable(w, memberHeaders, memberRows(list))
			})
		},
	}
}

func membersShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _, err := c.session(cmd, access.PermMembers)
			if err != nil {
				return err
			}
			m, err := c.app.Members.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return c.output(cmd.OutOrStdout(), m, func(w io.Writer) {
				formatTable(w, []string{"FIELD", "VALUE"}, [][]string{
					{"Form Number", m.FormNumber},
					{"ID", m.ID},
					{"Name", m.Name},
					{"DOB", m.DOB},
					{"Gender", m.Gender},
					{"Mobile", m.Mobile},
					{"Email", m.Email},
					{"Address", m.Address},
					{"Staff", m.Staff},
					{"Amount", members.FormatAmount(m.Amount)},
					{"Plan", m.Plan},
					{"Join Date", m.JoinDate},
					{"Billing Date", m.BillingDate},
					{"Status", string(m.Status)},
					{"Hold Duration", m.HoldDuration},
					{"Payment Method", m.PaymentMethod},
					{"Payment Month", m.PayMonth},
					{"Remark", m.Remark},
					{"Photo", photoLabel(m.Photo)},
					{"Created", stamp(m.CreatedAt)},
					{"Updated", stamp(m.UpdatedAt)},
				})
			})
		},
	}
}

func membersSaveCmd(c *cli) *cobra.Command {
	var in members.Input
	var status, photo string
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Create a member, or update one with --id",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, s, err := c.session(cmd, access.PermMembers)
			if err != nil {
				return err
			}
			form := in
			if form.ID != "" {
				existing, err := c.app.Members.Get(ctx, form.ID)
				if err != nil {
					return err
				}
				form = members.FromMember(existing)
				overlay(cmd, &form, in)
			}
			if cmd.Flags().Changed("status") || form.Status == "" {
				if form.Status, err = members.ParseStatus(status); err != nil {
					return err
				}
			}
			if form.Staff == "" {
				form.Staff = s.Username
			}
			if cmd.Flags().Changed("photo") {
				if form.Photo, err = photoDataURL(photo); err != nil {
					return err
				}
			}
			m, err := c.app.Members.Save(ctx, form)
			if err != nil {
				return err
			}
			return c.output(cmd.OutOrStdout(), m, func(w io.Writer) {
				fmt.Fprintf(w, "Saved %s (%s)\n", m.ID, m.Name)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.ID, "id", "", "Existing member id to update")
	f.StringVar(&in.FormNumber, "form-number", "", "Paper form number")
	f.StringVar(&in.Name, "name", "", "Full name")
	f.StringVar(&in.DOB, "dob", "", "Date of birth (YYYY-MM-DD)")
	f.StringVar(&in.Gender, "gender", "", "Gender")
	f.StringVar(&in.Mobile, "mobile", "", "Mobile number")
	f.StringVar(&in.Email, "email", "", "Email")
	f.StringVar(&in.Address, "address", "", "Address")
	f.StringVar(&in.Staff, "staff", "", "Staff member handling the form (default: you)")
	f.StringVar(&in.Amount, "amount", "", "Amount paid")
	f.StringVar(&in.Plan, "plan", "", "Plan")
	f.StringVar(&in.JoinDate, "join-date", "", "Join date (YYYY-MM-DD)")
	f.StringVar(&in.BillingDate, "billing-date", "", "Next billing date (YYYY-MM-DD)")
	f.StringVar(&status, "status", string(members.StatusActive), "Active|Hold|Cancelled|Deactivated")
	f.StringVar(&in.HoldDuration, "hold-duration", "", "Hold duration when status is Hold")
	f.StringVar(&in.PaymentMethod, "payment-method", "", "Payment method")
	f.StringVar(&in.PayMonth, "pay-month", "", "Month paid for (Month-YYYY)")
	f.StringVar(&in.Remark, "remark", "", "Remark")
	f.StringVar(&photo, "photo", "", "Image file to attach; an empty value removes the photo")
	return cmd
}

// photoDataURL reads an image into a data URL; an empty path clears the photo.
func photoDataURL(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read photo: %w", err)
	}
	mime := http.DetectContentType(raw)
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("%w: %s is not an image (%s)", members.ErrInvalidInput, path, mime)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(raw), nil
}

// overlay copies every flag the user set from src onto dst.
func overlay(cmd *cobra.Command, dst *members.Input, src members.Input) {
	fields := map[string]func(){
		"form-number":    func() { dst.FormNumber = src.FormNumber },
		"name":           func() { dst.Name = src.Name },
		"dob":            func() { dst.DOB = src.DOB },
		"gender":         func() { dst.Gender = src.Gender },
		"mobile":         func() { dst.Mobile = src.Mobile },
		"email":          func() { dst.Email = src.Email },
		"address":        func() { dst.Address = src.Address },
		"staff":          func() { dst.Staff = src.Staff },
		"amount":         func() { dst.Amount = src.Amount },
		"plan":           func() { dst.Plan = src.Plan },
		"join-date":      func() { dst.JoinDate = src.JoinDate },
		"billing-date":   func() { dst.BillingDate = src.BillingDate },
		"hold-duration":  func() { dst.HoldDuration = src.HoldDuration },
		"payment-method": func() { dst.PaymentMethod = src.PaymentMethod },
		"pay-month":      func() { dst.PayMonth = src.PayMonth },
		"remark":         func() { dst.Remark = src.Remark },
	}
	for name, apply := range fields {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}
}

func photoLabel(p string) string {
	if p == "" {
		return ""
	}
	if i := strings.IndexByte(p, ';'); strings.HasPrefix(p, "data:") && i > 0 {
		return p[len("data:"):i]
	}
	return "attached"
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(time.DateTime)
}

func membersDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _, err := c.session(cmd, access.PermMembers)
			if err != nil {
				return err
			}
			if err := c.app.Members.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func newDashboardCmd(c *cli) *cobra.Command {
	var search, sortKey, dir, only string
	var page int
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Members by status with search, sort and paging",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _, err := c.session(cmd, access.PermDashboard)
			if err != nil {
				return err
			}
			list, err := c.app.Members.List(ctx)
			if err != nil {
				return err
			}
			state := members.DefaultSort()
			if sortKey != "" {
				state = members.SortState{Key: sortKey, Dir: members.SortDir(strings.ToLower(dir)), Page: 1}
				if state.Dir != members.SortAsc && state.Dir != members.SortDesc {
					return fmt.Errorf("--dir must be asc or desc")
				}
			}
			state.Page = page
			q := members.DashboardQuery{Search: search, Sorts: map[members.Status]members.SortState{}}
			for _, st := range members.Statuses {
				q.Sorts[st] = state
			}
			segments := members.Dashboard(list, q)
			if only != "" {
				want, err := members.ParseStatus(only)
				if err != nil {
					return err
				}
				for _, seg := range segments {
					if seg.Status == want {
						segments = []members.Segment{seg}
						break
					}
				}
			}
			return c.output(cmd.OutOrStdout(), segments, func(w io.Writer) {
				for i, seg := range segments {
					if i > 0 {
						fmt.Fprintln(w)
					}
					fmt.Fprintf(w, "%s (%d)  page %d/%d\n", seg.Status, seg.Count, seg.Sort.Page, seg.Pages)
					formatTable(w, memberHeaders, memberRows(seg.Rows))
				}
			})
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "Filter by name or mobile digits")
	cmd.Flags().StringVar(&sortKey, "sort", "", "Sort key (name, amount, joinDate, billingDate, ...)")
	cmd.Flags().StringVar(&dir, "dir", "asc", "Sort direction: asc|desc")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().StringVar(&only, "status", "", "Show a single status segment")
	return cmd
}
