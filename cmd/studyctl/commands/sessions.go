package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/studytrackapp/studytrack-server/internal/service"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage auth sessions",
}

var sessionsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired sessions",
	Long: `Delete every session whose refresh token has expired. The API server does
this hourly; prune is for servers that have been down for a while.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, false, func(ctx context.Context, e *env) error {
			sessions := service.NewSessionService(e.store, nil, nil, e.log.Logger)
			count, err := sessions.DeleteExpiredSessions(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d expired session(s)\n", count)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsPruneCmd)
}
