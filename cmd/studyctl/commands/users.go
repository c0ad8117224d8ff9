package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/studytrackapp/studytrack-server/internal/domain"
	"github.com/studytrackapp/studytrack-server/internal/service"
)

// usersCmd groups user management commands
var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage user accounts",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, false, func(ctx context.Context, e *env) error {
			users, err := adminService(e).ListUsers(ctx)
			if err != nil {
				return err
			}
			if jsonOutput {
				for _, u := range users {
					u.PasswordHash = ""
				}
				return printJSON(cmd, users)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEMAIL\tNAME\tROLE\tBLOCKED\tCREATED")
			for _, u := range users {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%s\n",
					u.ID, u.Email, u.FullName(), u.Role, u.IsBlocked, u.CreatedAt.Format(domain.DateLayout))
			}
			return w.Flush()
		})
	},
}

var usersBlockCmd = &cobra.Command{
	Use:   "block <email>",
	Short: "Block a user and end all of their sessions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setBlocked(cmd, args[0], true)
	},
}

var usersUnblockCmd = &cobra.Command{
	Use:   "unblock <email>",
	Short: "Unblock a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setBlocked(cmd, args[0], false)
	},
}

var demote bool

var usersPromoteCmd = &cobra.Command{
	Use:   "promote <email>",
	Short: "Grant a user the admin role",
	Long: `Grant a user the admin role. With --demote the user becomes a regular user
again; the last remaining admin cannot be demoted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role := domain.RoleAdmin
		if demote {
			role = domain.RoleUser
		}
		return withEnv(cmd, false, func(ctx context.Context, e *env) error {
			admin := adminService(e)
			user, err := admin.FindUserByEmail(ctx, args[0])
			if err != nil {
				return err
			}
			if user, err = admin.SetRole(ctx, user.ID, role); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", user.Email, user.Role)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersListCmd, usersBlockCmd, usersUnblockCmd, usersPromoteCmd)

	usersPromoteCmd.Flags().BoolVar(&demote, "demote", false, "Revoke the admin role instead")
}

func setBlocked(cmd *cobra.Command, email string, blocked bool) error {
	return withEnv(cmd, false, func(ctx context.Context, e *env) error {
		admin := adminService(e)
		user, err := admin.FindUserByEmail(ctx, email)
		if err != nil {
			return err
		}
		if user, err = admin.SetBlocked(ctx, "", user.ID, blocked); err != nil {
			return err
		}

		state := "unblocked"
		if user.IsBlocked {
			state = "blocked"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is %s\n", user.Email, state)
		return nil
	})
}

// adminService builds an AdminService over the CLI store. Events go nowhere.
func adminService(e *env) *service.AdminService {
	sessions := service.NewSessionService(e.store, nil, nil, e.log.Logger)
	return service.NewAdminService(e.store, sessions, nil, e.log.Logger)
}
