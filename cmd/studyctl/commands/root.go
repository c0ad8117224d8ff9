// Package commands implements the studyctl subcommands.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/studytrackapp/studytrack-server/internal/api"
	"github.com/studytrackapp/studytrack-server/internal/config"
	"github.com/studytrackapp/studytrack-server/internal/di/providers"
	"github.com/studytrackapp/studytrack-server/internal/logger"
	"github.com/studytrackapp/studytrack-server/internal/search"
	"github.com/studytrackapp/studytrack-server/internal/store"
)

var (
	// Global flags
	metadataPath string
	storeBackend string
	envFile      string
	verbose      bool
	jsonOutput   bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "studyctl",
	Short: "StudyTrack operator CLI",
	Long: `studyctl manages a StudyTrack data directory directly: users, sessions,
the search index and demo data.

It opens the same store and index as the API server. Badger and Bleve hold
exclusive file locks, so stop the server before running commands that need them.`,
	Version:       api.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&metadataPath, "metadata-path", "", "Data directory (default: $METADATA_PATH or ~/StudyTrack/data)")
	rootCmd.PersistentFlags().StringVar(&storeBackend, "store", "", "Store backend: badger or sqlite (default: $STORE_BACKEND or badger)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to .env file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
}

// env holds what a command opened. close releases it in reverse order.
type env struct {
	cfg    *config.Config
	log    *logger.Logger
	store  store.Store
	index  *search.SearchIndex
	closer []func() error
}

// openEnv resolves configuration the same way the server does and opens the store.
// withIndex also opens the search index.
func openEnv(withIndex bool) (*env, error) {
	args := []string{"--env-file", envFile}
	if metadataPath != "" {
		args = append(args, "--metadata-path", metadataPath)
	}
	if storeBackend != "" {
		args = append(args, "--store", storeBackend)
	}
	if verbose {
		args = append(args, "--log-level", "debug")
	}

	cfg, err := config.Load(args)
	if err != nil {
		return nil, err
	}

	log := logger.Discard()
	if verbose {
		log = logger.New(logger.Config{
			Level:       logger.ParseLevel(cfg.Logger.Level),
			Environment: cfg.App.Environment,
		})
	}

	st, err := providers.OpenStore(cfg, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	e := &env{cfg: cfg, log: log, store: st, closer: []func() error{st.Close}}

	if withIndex {
		index, err := search.NewSearchIndex(search.Options{
			DataPath: providers.SearchIndexPath(cfg),
			Logger:   log.Logger,
		})
		if err != nil {
			e.close()
			return nil, fmt.Errorf("open search index: %w", err)
		}
		e.index = index
		e.closer = append(e.closer, index.Close)
	}

	return e, nil
}

func (e *env) close() {
	for i := len(e.closer) - 1; i >= 0; i-- {
		if err := e.closer[i](); err != nil {
			e.log.Warn("Close failed", "error", err)
		}
	}
}

// withEnv opens an env for the duration of fn.
func withEnv(cmd *cobra.Command, withIndex bool, fn func(ctx context.Context, e *env) error) error {
	e, err := openEnv(withIndex)
	if err != nil {
		return err
	}
	defer e.close()
	return fn(cmd.Context(), e)
}

// printJSON writes v as indented JSON to the command's output.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
