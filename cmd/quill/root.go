package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/quillorm/quill"
	"github.com/quillorm/quill/migrate"
)

var version = "0.1.0"

var (
	cfgFile string
	cfg     *Config
	console zerolog.Logger
)

// newRootCmd builds the quill command tree.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "quill",
		Short:   "Quill - schema migration tool",
		Long:    "Quill manages database schemas through ordered, transactional JSON migrations.",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cfg, err = loadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			level := zerolog.InfoLevel
			if cfg.Verbose {
				level = zerolog.DebugLevel
			}
			console = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen}).
				Level(level).
				With().Timestamp().Logger()
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./quill.yaml)")
	rootCmd.PersistentFlags().String("database", "", "database URL (e.g. sqlite://app.db)")
	rootCmd.PersistentFlags().String("dir", "", "migrations directory")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")

	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newMakeCmd())
	rootCmd.AddCommand(newStatusCmd())
	return rootCmd
}

// openRunner connects to the configured database and returns a runner over
// the configured migrations directory.
func openRunner() (*migrate.Runner, *quill.Database, error) {
	db, err := quill.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Connect(); err != nil {
		return nil, nil, err
	}

	logLevel := slog.LevelInfo
	if cfg.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	return migrate.NewRunner(db, cfg.MigrationsDir, migrate.WithLogger(logger)), db, nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			runner, db, err := openRunner()
			if err != nil {
				return err
			}
			defer db.Disconnect()

			n, err := runner.Migrate(cmd.Context())
			if err != nil {
				return err
			}
			if n == 0 {
				console.Info().Msg("nothing to apply")
				return nil
			}
			console.Info().Int("applied", n).Msg("migrations applied")
			return nil
		},
	}
}

func newMakeCmd() *cobra.Command {
	var stmts []string

	cmd := &cobra.Command{
		Use:   "make <label>",
		Short: "Create a new sequentially numbered migration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, db, err := openRunner()
			if err != nil {
				return err
			}
			defer db.Disconnect()

			ops := make([]migrate.Operation, len(stmts))
			for i, s := range stmts {
				ops[i] = migrate.Operation{Type: migrate.OpSQL, SQL: s}
			}

			path, err := runner.CreateMigration(sanitizeLabel(args[0]), ops)
			if err != nil {
				return err
			}
			console.Info().Str("path", path).Msg("migration created")
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&stmts, "sql", nil, "SQL statement to include (repeatable)")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show each migration and whether it has been applied",
		RunE: func(cmd *cobra.Command, _ []string) error {
			runner, db, err := openRunner()
			if err != nil {
				return err
			}
			defer db.Disconnect()

			entries, err := runner.Status(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				console.Info().Msg("no migrations found")
				return nil
			}
			for _, e := range entries {
				state := "pending"
				if e.Applied {
					state = "applied"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s\n", state, e.Name)
			}
			return nil
		},
	}
}

// sanitizeLabel turns a free-form label into a filename-safe slug.
func sanitizeLabel(label string) string {
	s := strings.ToLower(strings.TrimSpace(label))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}
