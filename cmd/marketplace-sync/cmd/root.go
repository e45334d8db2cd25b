// Package cmd implements the marketplace-sync CLI commands.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	apiclient "github.com/donaldgifford/marketplace-sync/internal/api/client"
)

var rootCmd = &cobra.Command{
	Use:   "marketplace-sync",
	Short: "Sync Shopee, Lazada and TikTok Shop data into Google Sheets",
	Long: "marketplace-sync keeps marketplace API tokens fresh, pages through orders\n" +
		"and wallet transactions, and writes them to spreadsheet worksheets.\n" +
		"It runs once from the terminal or as a server with a cron scheduler.",
	SilenceUsage: true,
}

// Root returns the root cobra command.
func Root() *cobra.Command {
	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "config.yaml", "config file path")
	flags.String("env-file", ".env", "dotenv file loaded before the config")
	flags.String("server", "http://localhost:8080", "API server URL for remote commands")
	flags.String("output", "table", "output format (table, json)")

	for _, name := range []string{"config", "env-file", "server", "output"} {
		cobra.CheckErr(viper.BindPFlag(name, flags.Lookup(name)))
	}

	rootCmd.AddCommand(
		serveCmd(),
		migrateCmd(),
		tokenCmd(),
		syncCmd(),
		remoteCmd(),
		versionCmd(),
	)
}

func initConfig() {
	viper.SetEnvPrefix("MPS")
	viper.AutomaticEnv()

	// Secrets referenced as ${VAR} in the YAML may live in a dotenv file.
	if err := godotenv.Load(viper.GetString("env-file")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Ignoring env file:", err)
	}
}

func newClient() *apiclient.Client {
	return apiclient.New(viper.GetString("server"))
}

func jsonOutput() bool {
	return viper.GetString("output") == "json"
}
