package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/erp/settlement/internal/infrastructure/config"
	"github.com/erp/settlement/internal/infrastructure/idgen"
	"github.com/erp/settlement/internal/infrastructure/logger"
	"github.com/erp/settlement/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// session is the state shared by every subcommand once the root has run
type session struct {
	logLevel string
	tenant   string

	cfg      *config.Config
	log      *zap.Logger
	db       *persistence.Database
	tenantID uuid.UUID
	numbers  *idgen.SnowflakeGenerator
}

func newRootCmd() *cobra.Command {
	s := &session{}

	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Operate the settlement ledger",
		Long: `ledgerctl runs ledger jobs by hand against the configured database.

Configuration is read the same way the server reads it: config.toml,
a .env file and LEDGER_* environment variables.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return s.open()
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			s.close()
		},
	}

	root.PersistentFlags().StringVar(&s.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&s.tenant, "tenant", "", "Tenant ID (default: the configured default tenant)")

	root.AddCommand(newPayoutsCmd(s), newBalancesCmd(s), newAgingCmd(s))
	return root
}

func (s *session) open() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	s.cfg = cfg

	log, err := logger.New(&logger.Config{
		Level:   s.logLevel,
		Format:  "console",
		Output:  "stderr",
		Service: "ledgerctl",
		Env:     cfg.App.Env,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	s.log = log

	s.tenantID = cfg.App.DefaultTenantID
	if s.tenant != "" {
		if s.tenantID, err = uuid.Parse(s.tenant); err != nil {
			return fmt.Errorf("invalid --tenant: %w", err)
		}
	}
	if s.tenantID == uuid.Nil {
		return fmt.Errorf("no tenant: pass --tenant or set LEDGER_APP_DEFAULT_TENANT_ID")
	}

	if s.numbers, err = idgen.NewSnowflakeGenerator(cfg.IDGen.NodeID); err != nil {
		return err
	}

	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		return err
	}
	s.db = db
	return nil
}

func (s *session) close() {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.log.Warn("Failed to close database", zap.Error(err))
		}
	}
	if s.log != nil {
		_ = logger.Sync(s.log)
	}
}

// parseDate reads an optional YYYY-MM-DD flag value
func parseDate(raw, flag string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s, expected YYYY-MM-DD: %w", flag, err)
	}
	return &t, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
