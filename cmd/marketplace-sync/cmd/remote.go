package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/marketplace-sync/internal/api/handlers"
	"github.com/donaldgifford/marketplace-sync/internal/engine"
)

func remoteCmd() *cobra.Command {
	remoteRoot := &cobra.Command{
		Use:   "remote",
		Short: "Query and drive a running marketplace-sync server",
		Long: "Commands that call the API of a running server (see --server)\n" +
			"instead of loading the config locally.",
	}

	remoteRoot.AddCommand(
		remoteCredentialsCmd(),
		remoteRefreshCmd(),
		remoteBudgetCmd(),
		remoteSyncCmd(),
		remoteJobsCmd(),
	)

	return remoteRoot
}

func remoteCredentialsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "credentials",
		Short: "Show the server's token state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			creds, err := newClient().Credentials(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(creds)
			}
			return printCredentialsTable(os.Stdout, creds)
		},
	}
}

func remoteRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <platform>",
		Short: "Force a token refresh on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := newClient().RefreshCredential(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(st)
			}
			return printCredentialsTable(os.Stdout, []handlers.CredentialStatus{*st})
		},
	}
}

func remoteBudgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "budget",
		Short: "Show the spreadsheet sink budget",
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := newClient().SinkBudget(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(b)
			}
			return printBudget(os.Stdout, b)
		},
	}
}

func remoteSyncCmd() *cobra.Command {
	syncRoot := &cobra.Command{
		Use:   "sync",
		Short: "Run a sync on the server",
	}

	var (
		status string
		days   int
	)
	orders := &cobra.Command{
		Use:     "orders <platform>",
		Short:   "Sync recent orders of one platform",
		Args:    cobra.ExactArgs(1),
		Example: `  marketplace-sync remote sync orders lazada --status pending --days 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, err := newClient().SyncOrders(cmd.Context(), args[0], status, days)
			if err != nil {
				return err
			}
			return showSummary(sum)
		},
	}
	orders.Flags().StringVar(&status, "status", engine.StatusAll, "platform order status, or ALL")
	orders.Flags().IntVar(&days, "days", 1, "lookback in days (1-15)")

	var (
		month, year int
		tab         string
	)
	wallet := &cobra.Command{
		Use:   "wallet",
		Short: "Sync one month of Shopee wallet transactions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sum, err := newClient().SyncWallet(cmd.Context(), month, year, tab)
			if err != nil {
				return err
			}
			return showSummary(sum)
		},
	}
	wallet.Flags().IntVar(&month, "month", 0, "month (1-12)")
	wallet.Flags().IntVar(&year, "year", 0, "year")
	wallet.Flags().StringVar(&tab, "tab", "", "transaction tab type; empty for every tab")
	cobra.CheckErr(wallet.MarkFlagRequired("month"))
	cobra.CheckErr(wallet.MarkFlagRequired("year"))

	syncRoot.AddCommand(orders, wallet)
	return syncRoot
}

func showSummary(sum *engine.Summary) error {
	if jsonOutput() {
		return outputJSON(sum)
	}
	return printSummary(os.Stdout, sum)
}

func remoteJobsCmd() *cobra.Command {
	jobsRoot := &cobra.Command{
		Use:   "jobs",
		Short: "View scheduler job history",
		Long: "View the execution history of scheduled jobs (token-check, order-sync).\n" +
			"Job history requires the server to be configured with a database.",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List latest run per job",
		RunE: func(cmd *cobra.Command, _ []string) error {
			runs, err := newClient().ListJobs(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(runs)
			}
			if len(runs) == 0 {
				fmt.Println("No job runs found.")
				return nil
			}
			return printJobRunsTable(os.Stdout, runs)
		},
	}

	var limit int
	history := &cobra.Command{
		Use:     "history <job_name>",
		Short:   "Show run history for a job",
		Args:    cobra.ExactArgs(1),
		Example: `  marketplace-sync remote jobs history order-sync --limit 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := newClient().JobHistory(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(runs)
			}
			if len(runs) == 0 {
				fmt.Printf("No runs found for job %q.\n", args[0])
				return nil
			}
			return printJobRunsTable(os.Stdout, runs)
		},
	}
	history.Flags().IntVar(&limit, "limit", 0, "maximum runs; 0 uses the server default")

	jobsRoot.AddCommand(list, history)
	return jobsRoot
}
