package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/marketplace-sync/internal/credential"
	"github.com/donaldgifford/marketplace-sync/internal/engine"
)

func syncCmd() *cobra.Command {
	syncRoot := &cobra.Command{
		Use:   "sync",
		Short: "Fetch platform data and write it to the spreadsheet",
	}

	syncRoot.AddCommand(
		syncWalletCmd(),
		syncOrdersCmd(),
	)

	return syncRoot
}

func syncWalletCmd() *cobra.Command {
	now := time.Now()
	var req engine.WalletRequest
	c := &cobra.Command{
		Use:   "wallet",
		Short: "Sync one month of Shopee wallet transactions",
		Example: `  marketplace-sync sync wallet --month 11 --year 2024
  marketplace-sync sync wallet --month 11 --year 2024 --tab wallet_order_income`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			sum, err := a.engine.SyncWallet(cmd.Context(), req)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(sum)
			}
			return printSummary(os.Stdout, sum)
		},
	}
	c.Flags().IntVar(&req.Month, "month", int(now.Month()), "month (1-12)")
	c.Flags().IntVar(&req.Year, "year", now.Year(), "year")
	c.Flags().StringVar(&req.Tab, "tab", "", "transaction tab type; empty for every tab")
	return c
}

func syncOrdersCmd() *cobra.Command {
	var (
		platformName string
		status       string
		days         int
	)
	c := &cobra.Command{
		Use:   "orders",
		Short: "Sync recent orders of one platform, or of every platform",
		Example: `  marketplace-sync sync orders --platform shopee --status COMPLETED --days 7
  marketplace-sync sync orders --days 1`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if platformName == "" {
				results, err := a.engine.SyncAllOrders(cmd.Context(), status, days)
				if jsonOutput() {
					if jerr := outputJSON(results); jerr != nil {
						return jerr
					}
					return err
				}
				if perr := printOrdersResults(os.Stdout, results); perr != nil {
					return perr
				}
				return err
			}

			p, err := credential.ParsePlatform(platformName)
			if err != nil {
				return err
			}
			sum, err := a.engine.SyncOrders(cmd.Context(), engine.OrdersRequest{
				Platform: p,
				Status:   status,
				Days:     days,
			})
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(sum)
			}
			return printSummary(os.Stdout, sum)
		},
	}
	c.Flags().StringVarP(&platformName, "platform", "p", "", "platform (shopee, lazada, tiktok); empty for all")
	c.Flags().StringVar(&status, "status", engine.StatusAll, "platform order status, or ALL")
	c.Flags().IntVar(&days, "days", 1, "lookback in days (1-15)")
	return c
}
