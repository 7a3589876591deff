// Command migrate manages the ledger schema with golang-migrate.
package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/erp/settlement/internal/infrastructure/config"
	"github.com/erp/settlement/internal/infrastructure/logger"
	"github.com/erp/settlement/internal/infrastructure/migration"
	"github.com/erp/settlement/migrations"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type migrateCLI struct {
	path     string
	logLevel string
	log      *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &migrateCLI{}
	root := &cobra.Command{
		Use:   "migrate",
		Short: "Ledger database migration tool",
		Long: `Applies the ledger schema migrations.

Connection settings come from config.toml or the LEDGER_DATABASE_* variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log, err := logger.New(&logger.Config{Level: c.logLevel, Format: "console", Output: "stdout"})
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			c.log = log
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.log != nil {
				_ = logger.Sync(c.log)
			}
		},
	}
	root.PersistentFlags().StringVar(&c.path, "path", "", "migrations directory (default: the migrations built into the binary)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		c.migratorCmd("up", "Apply all pending migrations", cobra.NoArgs, func(m *migration.Migrator, _ []string) error {
			return m.Up()
		}),
		c.migratorCmd("down", "Roll back all migrations", cobra.NoArgs, func(m *migration.Migrator, _ []string) error {
			return m.Down()
		}),
		c.migratorCmd("step <n>", "Apply n migrations (negative rolls back)", cobra.ExactArgs(1), func(m *migration.Migrator, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid step count %q", args[0])
			}
			return m.Steps(n)
		}),
		c.migratorCmd("force <version>", "Force the recorded version after a failed run", cobra.ExactArgs(1), func(m *migration.Migrator, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q", args[0])
			}
			c.log.Warn("Forcing migration version", zap.Int("version", version))
			return m.Force(version)
		}),
		c.migratorCmd("version", "Show the applied migration version", cobra.NoArgs, func(m *migration.Migrator, _ []string) error {
			version, dirty, err := m.Version()
			if err != nil {
				return err
			}
			if version == 0 {
				c.log.Info("No migrations applied")
				return nil
			}
			c.log.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
			return nil
		}),
		c.createCmd(),
		c.listCmd(),
	)
	return root
}

func (c *migrateCLI) source() fs.FS {
	if c.path == "" {
		return migrations.FS
	}
	return os.DirFS(c.path)
}

// migratorCmd builds a subcommand that needs a database connection
func (c *migrateCLI) migratorCmd(use, short string, args cobra.PositionalArgs, run func(*migration.Migrator, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			db, err := sql.Open("postgres", cfg.Database.DSN())
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()
			if err := db.PingContext(cmd.Context()); err != nil {
				return fmt.Errorf("ping database: %w", err)
			}

			m, err := migration.New(db, c.source(), c.log)
			if err != nil {
				return err
			}
			defer m.Close()

			c.log.Info("Running migration command", zap.String("command", cmd.Name()))
			return run(m, args)
		},
	}
}

func (c *migrateCLI) createCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name> [description]",
		Short: "Create an up/down migration pair (requires --path)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			if c.path == "" {
				return errors.New("create writes files, pass --path")
			}
			description := ""
			if len(args) == 2 {
				description = args[1]
			}
			mf, err := migration.CreateMigration(c.path, args[0], description)
			if err != nil {
				return err
			}
			c.log.Info("Migration created",
				zap.Uint("version", mf.Version),
				zap.String("up_file", mf.UpPath),
				zap.String("down_file", mf.DownPath),
			)
			return nil
		},
	}
}

func (c *migrateCLI) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := migration.ListMigrations(c.source())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "no migrations found")
				return nil
			}
			for _, m := range list {
				fmt.Fprintf(out, "%06d  %s  (down: %t)\n", m.Version, m.Name, m.HasDown)
			}
			return nil
		},
	}
}
