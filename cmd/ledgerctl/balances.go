package main

import (
	"fmt"

	financeapp "github.com/erp/settlement/internal/application/finance"
	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/infrastructure/persistence"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newBalancesCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balances",
		Short: "Inspect and repair party balances",
	}
	cmd.AddCommand(newBalancesReconcileCmd(s), newBalancesShowCmd(s))
	return cmd
}

func newBalancesReconcileCmd(s *session) *cobra.Command {
	var partyType string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute cached balances from open documents and correct drift",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var filter *finance.PartyType
			if partyType != "" {
				pt := finance.PartyType(partyType)
				if !pt.IsValid() {
					return fmt.Errorf("invalid --party-type %q, expected customer or vendor", partyType)
				}
				filter = &pt
			}

			report, err := s.balanceService().ReconcileBalances(cmd.Context(), s.tenantID, filter)
			if err != nil {
				return err
			}
			s.log.Info("Balance reconciliation finished",
				zap.Int("checked", report.AccountsChecked),
				zap.Int("corrected", len(report.Corrections)),
				zap.Int("failed", len(report.Failures)),
			)
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&partyType, "party-type", "", "Restrict to customer or vendor accounts")
	return cmd
}

func newBalancesShowCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "show <customer|vendor> <party-id>",
		Short: "Print one party account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pt := finance.PartyType(args[0])
			if !pt.IsValid() {
				return fmt.Errorf("invalid party type %q, expected customer or vendor", args[0])
			}
			account, err := s.balanceService().GetAccount(cmd.Context(), s.tenantID, pt, args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), account)
		},
	}
}

func (s *session) balanceService() *financeapp.BalanceService {
	return financeapp.NewBalanceService(
		persistence.NewLedgerTransactionScope(s.db.DB),
		persistence.NewGormPartyAccountRepository(s.db.DB),
		financeapp.WithLogger(s.log),
	)
}
