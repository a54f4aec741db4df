package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/usecase"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/api/dto"
	"github.com/spf13/cobra"
)

func auditCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "audit <transactionId>",
		Short: "Print a transaction, its side effects and its audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			appLogger := newLogger(cfg)
			a, err := newApp(ctx, cfg, appLogger)
			if err != nil {
				return err
			}
			defer a.close()

			return printAudit(ctx, cmd.OutOrStdout(), a.reporter, args[0], asJSON)
		},
	}

	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "output as JSON")
	return cmd
}

type auditReport struct {
	dto.TransactionReportResponse
	Audit []dto.AuditRecordResponse `json:"audit"`
}

func printAudit(ctx context.Context, out io.Writer, reports usecase.ReportUseCase, transactionID string, asJSON bool) error {
	report, err := reports.GetTransaction(ctx, transactionID)
	if err != nil {
		return err
	}
	records, err := reports.AuditTrail(ctx, transactionID)
	if err != nil {
		return err
	}

	full := auditReport{
		TransactionReportResponse: dto.NewTransactionReportResponse(report),
		Audit:                     dto.NewAuditTrailResponse(records),
	}
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(full)
	}

	txn := full.Transaction
	fmt.Fprintf(out, "Transaction %s (%s)\n", txn.TransactionNumber, txn.ID)
	fmt.Fprintf(out, "  status:     %s\n", txn.Status)
	fmt.Fprintf(out, "  amount:     %s %s\n", txn.Amount, txn.Currency)
	fmt.Fprintf(out, "  reference:  %s %s\n", txn.ReferenceType, txn.ReferenceID)
	fmt.Fprintf(out, "  order:      %s\n", txn.GatewayOrderRef)
	fmt.Fprintf(out, "  payment:    %s\n", txn.GatewayPaymentRef)
	if txn.ManualReview {
		fmt.Fprintln(out, "  manual review required")
	}

	fmt.Fprintln(out, "Side effects:")
	for _, effect := range full.SideEffects {
		fmt.Fprintf(out, "  %-26s %-8s attempts=%d %s\n", effect.EffectType, effect.Status, effect.AttemptCount, effect.LastError)
	}

	fmt.Fprintln(out, "Audit trail:")
	for _, record := range full.Audit {
		fmt.Fprintf(out, "  %s  %-12s %-22s %-10s %s\n",
			record.CreatedAt.Format("2006-01-02T15:04:05Z07:00"), record.Kind, record.Action, record.Outcome, record.Reason)
	}
	return nil
}
