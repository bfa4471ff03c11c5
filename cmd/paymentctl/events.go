package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/MikeRez0/orderpay/internal/core/domain"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func eventsCmd() *cobra.Command {
	var outcome string
	var limit uint64

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List received webhooks",
		Long: `Lists authenticated webhook deliveries, newest first. Deliveries for
references we do not know are the investigation queue:

  paymentctl events --outcome unknown_reference`,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeDB, err := openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			list, err := repo.ListWebhookEvents(cmd.Context(), domain.Outcome(outcome), limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RECEIVED\tCHANNEL\tEVENT\tREFERENCE\tOUTCOME\tDETAIL")
			for _, e := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					e.ReceivedAt.Format(time.RFC3339), e.Channel, e.Event, e.Reference, e.Outcome, e.Detail)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&outcome, "outcome", "o", "", "Filter by outcome (applied, duplicate, stale, unknown_reference, ignored, confirmation_blocked, unconfirmable, overpaid)")
	cmd.Flags().Uint64VarP(&limit, "limit", "n", 50, "Maximum rows")

	return cmd
}

func tasksCmd() *cobra.Command {
	var status string
	var limit uint64

	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List outbox tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeDB, err := openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			list, err := repo.ListTasks(cmd.Context(), domain.TaskStatus(strings.ToUpper(status)), limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tKIND\tREFERENCE\tSTATUS\tATTEMPTS\tNEXT\tLAST ERROR")
			for _, t := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
					t.ID, t.Kind, t.Reference, t.Status, t.Attempts,
					t.NextAttemptAt.Format(time.RFC3339), t.LastError)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "Filter by status (pending, processing, done, dead)")
	cmd.Flags().Uint64VarP(&limit, "limit", "n", 50, "Maximum rows")

	cmd.AddCommand(&cobra.Command{
		Use:   "requeue <id>",
		Short: "Re-arm a task for immediate delivery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("bad task id: %w", err)
			}
			repo, closeDB, err := openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			if err := repo.RequeueTask(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "task %s requeued\n", id)
			return nil
		},
	})

	return cmd
}
