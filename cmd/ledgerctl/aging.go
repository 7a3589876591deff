package main

import (
	"fmt"

	financeapp "github.com/erp/settlement/internal/application/finance"
	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/infrastructure/persistence"
	"github.com/spf13/cobra"
)

func newAgingCmd(s *session) *cobra.Command {
	var kind, partyID, asOf string

	cmd := &cobra.Command{
		Use:   "aging",
		Short: "Print the aging report of open invoices or bills",
		Example: `  ledgerctl aging --kind invoice
  ledgerctl aging --kind bill --party vendor-17 --as-of 2026-09-30`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			k := finance.DocumentKind(kind)
			if !k.IsValid() {
				return fmt.Errorf("invalid --kind %q, expected invoice or bill", kind)
			}
			day, err := parseDate(asOf, "as-of")
			if err != nil {
				return err
			}

			aging := financeapp.NewAgingService(persistence.NewGormBillingDocumentRepository(s.db.DB),
				financeapp.WithLogger(s.log))
			if partyID != "" {
				report, err := aging.PartyAging(cmd.Context(), s.tenantID, k, partyID, day)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			}
			summary, err := aging.Summary(cmd.Context(), s.tenantID, k, day)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "invoice", "Document kind: invoice or bill")
	cmd.Flags().StringVar(&partyID, "party", "", "Limit to one party")
	cmd.Flags().StringVar(&asOf, "as-of", "", "As-of date (YYYY-MM-DD), defaults to today")
	return cmd
}
