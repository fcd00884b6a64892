package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func dailyPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daily-push",
		Short: "Run one daily push firing and print the counts",
		Long: `Claim today's dispatch for every user and send their links.

Users already claimed today are skipped, so running this from cron next to
the in-process timer never sends twice.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			svc, err := a.services()
			if err != nil {
				return err
			}
			sum, err := svc.Scheduler.RunOnce(ctx)
			if err != nil {
				return fmt.Errorf("daily push: %w", err)
			}
			out, _ := json.Marshal(sum)
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			a.close(ctx)
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
