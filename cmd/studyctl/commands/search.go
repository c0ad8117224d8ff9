package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/studytrackapp/studytrack-server/internal/service"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Maintain the search index",
}

var searchReindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the search index from the store",
	Long: `Drop the search index and rebuild it from every user's books, topics and
exams. Run it after restoring a backup or when search results look stale.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, true, func(ctx context.Context, e *env) error {
			result, err := service.NewSearchService(e.index, e.store, e.log.Logger).Reindex(ctx)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd, result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d book(s), %d topic(s) and %d exam(s) for %d user(s)\n",
				result.Books, result.Topics, result.Exams, result.Users)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.AddCommand(searchReindexCmd)
}
