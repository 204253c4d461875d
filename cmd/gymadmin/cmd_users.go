package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"actionplus.app/internal/access"
)

func newUsersCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage staff accounts",
	}
	cmd.AddCommand(usersListCmd(c))
	cmd.AddCommand(usersAddCmd(c))
	cmd.AddCommand(usersEditCmd(c))
	cmd.AddCommand(usersDeleteCmd(c))
	return cmd
}

type userView struct {
	Username  string              `json:"username"`
	Role      access.Role         `json:"role"`
	Grants    []access.Permission `json:"grants"`
	Revokes   []access.Permission `json:"revokes"`
	Effective []access.Permission `json:"effectivePermissions"`
}

func viewUser(u access.User) userView {
	return userView{
		Username:  u.Username,
		Role:      u.Role,
		Grants:    u.Grants,
		Revokes:   u.Revokes,
		Effective: access.EffectivePermissions(u),
	}
}

func (c *cli) printUsers(w io.Writer, users []access.User) error {
	views := make([]userView, len(users))
	rows := make([][]string, len(users))
	for i, u := range users {
		views[i] = viewUser(u)
		rows[i] = []string{u.Username, string(u.Role), joinPerms(views[i].Effective)}
	}
	return c.output(w, views, func(w io.Writer) {
		formatTable(w, []string{"USERNAME", "ROLE", "SECTIONS"}, rows)
	})
}

func usersListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List staff accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _, err := c.session(cmd, access.PermStaff)
			if err != nil {
				return err
			}
			users, err := c.app.Access.Users(ctx)
			if err != nil {
				return err
			}
			return c.printUsers(cmd.OutOrStdout(), users)
		},
	}
}

type userFlags struct {
	role     string
	password string
	confirm  string
	grants   []string
	revokes  []string
	sections []string
}

func (f *userFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.role, "role", "", "Role: admin|staff-basic|staff-extended")
	cmd.Flags().StringVar(&f.password, "password", "", "Password")
	cmd.Flags().StringVar(&f.confirm, "confirm", "", "Password confirmation")
	cmd.Flags().StringSliceVar(&f.grants, "grant", nil, "Sections granted beyond the role")
	cmd.Flags().StringSliceVar(&f.revokes, "revoke", nil, "Sections removed from the role")
	cmd.Flags().StringSliceVar(&f.sections, "sections", nil, "Exact sections to allow; grants and revokes are derived from the role")
}

func usersAddCmd(c *cli) *cobra.Command {
	var f userFlags
	var username string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a staff account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _, err := c.session(cmd, access.PermStaff)
			if err != nil {
				return err
			}
			in := access.UserInput{Username: username, Secret: f.password, Confirm: f.confirm}
			if f.role != "" {
				if in.Role, err = access.ParseRole(f.role); err != nil {
					return err
				}
			}
			if in.Grants, err = access.ParsePermissions(f.grants); err != nil {
				return err
			}
			if in.Revokes, err = access.ParsePermissions(f.revokes); err != nil {
				return err
			}
			if cmd.Flags().Changed("sections") {
				if in.Selected, err = access.ParsePermissions(f.sections); err != nil {
					return err
				}
			}
			u, err := c.app.Access.CreateUser(ctx, in)
			if err != nil {
				return err
			}
			return c.printUsers(cmd.OutOrStdout(), []access.User{u})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Username")
	f.register(cmd)
	return cmd
}

func usersEditCmd(c *cli) *cobra.Command {
	var f userFlags
	cmd := &cobra.Command{
		Use:   "edit <username>",
		Short: "Change role, sections or password of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _, err := c.session(cmd, access.PermStaff)
			if err != nil {
				return err
			}
			upd := access.UserUpdate{Secret: f.password, Confirm: f.confirm}
			if cmd.Flags().Changed("role") {
				role, err := access.ParseRole(f.role)
				if err != nil {
					return err
				}
				upd.Role = &role
			}
			if cmd.Flags().Changed("grant") {
				grants, err := access.ParsePermissions(f.grants)
				if err != nil {
					return err
				}
				upd.Grants = &grants
			}
			if cmd.Flags().Changed("revoke") {
				revokes, err := access.ParsePermissions(f.revokes)
				if err != nil {
					return err
				}
				upd.Revokes = &revokes
			}
			if cmd.Flags().Changed("sections") {
				if upd.Selected, err = access.ParsePermissions(f.sections); err != nil {
					return err
				}
			}
			u, err := c.app.Access.UpdateUser(ctx, args[0], upd)
			if err != nil {
				return err
			}
			return c.printUsers(cmd.OutOrStdout(), []access.User{u})
		},
	}
	f.register(cmd)
	return cmd
}

func usersDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <username>",
		Short: "Delete a staff account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _, err := c.session(cmd, access.PermStaff)
			if err != nil {
				return err
			}
			if err := c.app.Access.DeleteUser(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}
