package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/marketplace-sync/internal/api/handlers"
	"github.com/donaldgifford/marketplace-sync/internal/auth"
	"github.com/donaldgifford/marketplace-sync/internal/credential"
)

func tokenCmd() *cobra.Command {
	tokenRoot := &cobra.Command{
		Use:   "token",
		Short: "Inspect and manage platform tokens",
		Long: "Manage the access and refresh tokens of each enabled platform.\n" +
			"Tokens are read from and persisted to the configured credential store.",
	}

	tokenRoot.AddCommand(
		tokenStatusCmd(),
		tokenValidateCmd(),
		tokenRefreshCmd(),
		tokenCodeCmd(),
		tokenAuthorizeCmd(),
		tokenLogoutCmd(),
	)

	return tokenRoot
}

func tokenStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show token state without refreshing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			statuses := a.engine.TokenStatus()
			out := make([]handlers.CredentialStatus, 0, len(statuses))
			for _, st := range statuses {
				out = append(out, handlers.CredentialStatusOf(st))
			}
			if jsonOutput() {
				return outputJSON(out)
			}
			return printCredentialsTable(os.Stdout, out)
		},
	}
}

func tokenValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Ensure every platform token is usable, refreshing where needed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return a.engine.ValidateTokens(cmd.Context())
		},
	}
}

// platformAction wires a --platform flag to a token manager action.
func platformAction(
	use, short string,
	run func(cmd *cobra.Command, a *app, tokens *auth.Manager) error,
) *cobra.Command {
	var platformName string
	c := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := credential.ParsePlatform(platformName)
			if err != nil {
				return err
			}
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			tokens, err := a.engine.Tokens(p)
			if err != nil {
				return err
			}
			return run(cmd, a, tokens)
		},
	}
	c.Flags().StringVarP(&platformName, "platform", "p", "", "platform (shopee, lazada, tiktok)")
	cobra.CheckErr(c.MarkFlagRequired("platform"))
	return c
}

func tokenRefreshCmd() *cobra.Command {
	return platformAction("refresh", "Force a refresh token exchange",
		func(cmd *cobra.Command, a *app, tokens *auth.Manager) error {
			p := tokens.Handle().Platform()
			st, err := a.engine.RefreshToken(cmd.Context(), p)
			if err != nil {
				return err
			}
			return printCredentialsTable(os.Stdout, []handlers.CredentialStatus{handlers.CredentialStatusOf(st)})
		})
}

func tokenCodeCmd() *cobra.Command {
	var code string
	c := platformAction("code", "Store an authorization code for a later authorize",
		func(cmd *cobra.Command, _ *app, tokens *auth.Manager) error {
			if err := tokens.SetCode(cmd.Context(), code); err != nil {
				return err
			}
			fmt.Printf("Stored authorization code for %s.\n", tokens.Handle().Platform())
			return nil
		})
	c.Flags().StringVar(&code, "code", "", "authorization code from the platform redirect")
	cobra.CheckErr(c.MarkFlagRequired("code"))
	return c
}

func tokenAuthorizeCmd() *cobra.Command {
	var code string
	c := platformAction("authorize", "Exchange an authorization code for the first token pair",
		func(cmd *cobra.Command, _ *app, tokens *auth.Manager) error {
			if err := tokens.Authorize(cmd.Context(), code); err != nil {
				return err
			}
			st := handlers.CredentialStatusOf(tokens.Status())
			return printCredentialsTable(os.Stdout, []handlers.CredentialStatus{st})
		})
	c.Flags().StringVar(&code, "code", "", "authorization code; defaults to the stored code")
	return c
}

func tokenLogoutCmd() *cobra.Command {
	return platformAction("logout", "Clear the platform tokens and delete the stored credential",
		func(cmd *cobra.Command, _ *app, tokens *auth.Manager) error {
			if err := tokens.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("Logged out of %s.\n", tokens.Handle().Platform())
			return nil
		})
}
