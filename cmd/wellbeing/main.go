// Command wellbeing runs the wellbeing check-in backend: the HTTP server for
// the LINE and form webhooks plus the dashboards, and one-shot operator
// commands for cron environments.
//
// @title          Wellbeing Backend API
// @version        1.0
// @description    LINE onboarding, Google Form ingestion, daily reminders and score dashboards.
// @BasePath       /
// @schemes        http https
//
// @securityDefinitions.apikey WebhookToken
// @in                         header
// @name                       X-Webhook-Token
//
// @securityDefinitions.apikey TaskToken
// @in                         header
// @name                       X-Task-Token
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "wellbeing",
		Short:         "Wellbeing check-in backend (LINE + Google Form)",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files loaded before the environment is read")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(dailyPushCmd())
	rootCmd.AddCommand(migrateCmd())
	return rootCmd
}
