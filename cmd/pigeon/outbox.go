package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/pigeonchat/pigeon/internal/outbox"
	"github.com/pigeonchat/pigeon/internal/session"
	"github.com/spf13/cobra"
)

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Inspect the durable send journal",
}

var outboxListCmd = &cobra.Command{
	Use:   "list",
	Short: "List journaled sends that were never confirmed",
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := openJournal()
		if err != nil {
			return err
		}
		defer func() { _ = j.Close() }()

		entries, err := j.Unconfirmed()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("outbox is empty")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RECIPIENT\tSTATUS\tCREATED\tBODY")
		for _, e := range entries {
			body := e.Body
			if len(body) > 40 {
				body = body[:37] + "..."
			}
			created := time.UnixMilli(e.CreatedAt).Local().Format("2006-01-02 15:04")
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Recipient, e.Status, created, body)
		}
		return w.Flush()
	},
}

var outboxRetryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Requeue failed sends for the next run",
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := openJournal()
		if err != nil {
			return err
		}
		defer func() { _ = j.Close() }()

		entries, err := j.Unconfirmed()
		if err != nil {
			return err
		}
		requeued := 0
		for _, e := range entries {
			if e.Status != "failed" {
				continue
			}
			if err := j.Record(e.CorrelationID, e.Recipient, e.Body); err != nil {
				return err
			}
			requeued++
		}
		fmt.Printf("requeued %d message(s); they will be resent on the next run\n", requeued)
		return nil
	},
}

var outboxPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete confirmed entries from the journal",
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := openJournal()
		if err != nil {
			return err
		}
		defer func() { _ = j.Close() }()

		if err := j.Prune(0); err != nil {
			return err
		}
		fmt.Println("pruned confirmed entries")
		return nil
	},
}

func openJournal() (*outbox.Journal, error) {
	profile, err := resolveProfile()
	if err != nil {
		return nil, err
	}
	return outbox.Open(session.OutboxPath(profile))
}

func init() {
	outboxCmd.AddCommand(outboxListCmd)
	outboxCmd.AddCommand(outboxRetryCmd)
	outboxCmd.AddCommand(outboxPruneCmd)
}
