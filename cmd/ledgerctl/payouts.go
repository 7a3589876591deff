package main

import (
	"fmt"
	"time"

	revenueapp "github.com/erp/settlement/internal/application/revenue"
	"github.com/erp/settlement/internal/domain/revenue"
	"github.com/erp/settlement/internal/infrastructure/persistence"
	"github.com/erp/settlement/internal/infrastructure/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newPayoutsCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payouts",
		Short: "Generate and inspect partner payouts",
	}
	cmd.AddCommand(newPayoutsGenerateCmd(s), newPayoutsSummaryCmd(s))
	return cmd
}

func newPayoutsGenerateCmd(s *session) *cobra.Command {
	var weekOf, start, end string
	var noStatements bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Create one payout per partner with payable revenue in a period",
		Long: `Creates a payout for every partner with received or settled revenue in
the period. Partners already paid for the period are skipped, so running
the command twice is safe.`,
		Example: `  # Last week
  ledgerctl payouts generate --tenant 7c6c... --week-of 2026-10-05

  # Explicit period
  ledgerctl payouts generate --start 2026-10-01 --end 2026-10-15`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			period, err := payoutPeriod(weekOf, start, end)
			if err != nil {
				return err
			}

			generator := s.payoutGenerator()
			if !noStatements {
				exporter, err := s.statementExporter(cmd)
				if err != nil {
					return err
				}
				generator.SetStatementExporter(exporter)
			}

			result, err := generator.GeneratePayouts(cmd.Context(), s.tenantID, revenueapp.GeneratePayoutsRequest{
				PeriodStart: period.Start,
				PeriodEnd:   period.End,
			})
			if err != nil {
				return err
			}
			s.log.Info("Payout run finished",
				zap.Int("created", len(result.Created)),
				zap.Int("skipped", len(result.Skipped)),
				zap.Int("failed", len(result.Failed)),
			)
			if err := printJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if len(result.Failed) > 0 {
				return fmt.Errorf("%d partner payouts failed", len(result.Failed))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&weekOf, "week-of", "", "Any day of the Monday-to-Sunday week to pay (YYYY-MM-DD)")
	cmd.Flags().StringVar(&start, "start", "", "Period start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "Period end, inclusive (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&noStatements, "no-statements", false, "Skip statement export")
	cmd.MarkFlagsMutuallyExclusive("week-of", "start")
	cmd.MarkFlagsMutuallyExclusive("week-of", "end")
	cmd.MarkFlagsRequiredTogether("start", "end")
	return cmd
}

func newPayoutsSummaryCmd(s *session) *cobra.Command {
	var weekOf string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show the payout summary of one week",
		RunE: func(cmd *cobra.Command, _ []string) error {
			day, err := parseDate(weekOf, "week-of")
			if err != nil {
				return err
			}
			summaries := revenueapp.NewPayoutSummaryService(
				persistence.NewGormOrderRevenueRepository(s.db.DB),
				persistence.NewGormPayoutRepository(s.db.DB),
				revenueapp.WithLogger(s.log),
			)
			summary, err := summaries.WeeklySummary(cmd.Context(), s.tenantID, day)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}
	cmd.Flags().StringVar(&weekOf, "week-of", "", "Any day of the week (YYYY-MM-DD), defaults to the current week")
	return cmd
}

// payoutPeriod resolves the period flags; the current week is the default
func payoutPeriod(weekOf, start, end string) (revenue.Period, error) {
	if start != "" {
		from, err := parseDate(start, "start")
		if err != nil {
			return revenue.Period{}, err
		}
		to, err := parseDate(end, "end")
		if err != nil {
			return revenue.Period{}, err
		}
		if to == nil {
			return revenue.Period{}, fmt.Errorf("--end is required with --start")
		}
		// --end names a whole day
		return revenue.NewPeriod(*from, to.AddDate(0, 0, 1).Add(-time.Nanosecond))
	}
	day, err := parseDate(weekOf, "week-of")
	if err != nil {
		return revenue.Period{}, err
	}
	if day == nil {
		now := time.Now()
		day = &now
	}
	return revenue.WeekOf(*day), nil
}

func (s *session) payoutGenerator() *revenueapp.PayoutBatchGenerator {
	var policy revenue.DeductionPolicy = revenue.NoDeductions{}
	if s.cfg.Payout.DeductionFlatFee.IsPositive() {
		policy = revenue.FlatFeeDeduction{Fee: s.cfg.Payout.DeductionFlatFee}
	}
	return revenueapp.NewPayoutBatchGenerator(
		persistence.NewRevenueTransactionScope(s.db.DB),
		persistence.NewGormOrderRevenueRepository(s.db.DB),
		persistence.NewGormPayoutRepository(s.db.DB),
		s.numbers,
		policy,
		revenueapp.PayoutConfig{ScheduledDelay: s.cfg.Payout.ScheduledDelay()},
		revenueapp.WithLogger(s.log),
	)
}

// statementExporter returns the S3 exporter, or nil when storage is disabled
func (s *session) statementExporter(cmd *cobra.Command) (revenueapp.StatementExporter, error) {
	if !s.cfg.Storage.Enabled {
		s.log.Info("Statement storage disabled, no statements will be written")
		return nil, nil
	}
	s3, err := storage.NewS3ObjectStorage(cmd.Context(), &s.cfg.Storage, storage.WithLogger(s.log))
	if err != nil {
		return nil, err
	}
	if err := s3.EnsureBucket(cmd.Context()); err != nil {
		return nil, err
	}
	renderer := storage.NewStatementRenderer(s.cfg.Storage.Locale)
	return storage.NewStatementExporter(s3, renderer, s.cfg.Storage.Prefix, s.log), nil
}
