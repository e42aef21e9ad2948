package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/layer-3/trusttag"
	"github.com/spf13/cobra"
)

var (
	serverURL string
	keyHex    string
	domain    string
	uri       string
	statement string
	chainID   int64
	timeout   time.Duration
	verbose   bool

	logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "siwe-login"})
)

var rootCmd = &cobra.Command{
	Use:   "siwe-login",
	Short: "Sign in to a trusttag server with an Ethereum key",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logger.SetLevel(log.DebugLevel)
		}
	},
}

var nonceCmd = &cobra.Command{
	Use:   "nonce",
	Short: "Request a nonce and print it",
	Args:  cobra.NoArgs,
	RunE:  runNonce,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Run the full handshake and print the session token",
	Long: `Requests a nonce, signs a Sign-In with Ethereum message with the given
key and submits it. On success the access token is printed to stdout.

The key is read from --key or the TRUSTTAG_PRIVATE_KEY environment variable.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:3000/api", "Server API base URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	loginCmd.Flags().StringVar(&keyHex, "key", "", "Hex private key (or set TRUSTTAG_PRIVATE_KEY env)")
	loginCmd.Flags().StringVar(&domain, "domain", "localhost:3000", "Domain placed in the SIWE message")
	loginCmd.Flags().StringVar(&uri, "uri", "http://localhost:3000", "URI placed in the SIWE message")
	loginCmd.Flags().StringVar(&statement, "statement", "Sign in with Ethereum to the app.", "Statement placed in the SIWE message")
	loginCmd.Flags().Int64Var(&chainID, "chain-id", 1, "Chain ID placed in the SIWE message")

	rootCmd.AddCommand(nonceCmd)
	rootCmd.AddCommand(loginCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runNonce(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	client, err := trusttag.NewHTTPClient(serverURL)
	if err != nil {
		return err
	}

	nonce, err := client.Nonce(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), nonce)
	return nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	if keyHex == "" {
		keyHex = os.Getenv("TRUSTTAG_PRIVATE_KEY")
	}
	if keyHex == "" {
		return fmt.Errorf("a private key is required (--key or TRUSTTAG_PRIVATE_KEY)")
	}

	signer, err := trusttag.NewKeySignerFromHex(keyHex)
	if err != nil {
		return err
	}

	client, err := trusttag.NewHTTPClient(serverURL)
	if err != nil {
		return err
	}

	account := trusttag.NewAccount(client, signer, trusttag.AccountConfig{
		Domain:    domain,
		URI:       uri,
		ChainID:   chainID,
		Statement: statement,
	})
	account.Subscribe(func(id *trusttag.Identity) {
		if id != nil {
			logger.Debug("account changed", "address", id.Address)
		}
	})

	logger.Info("signing in", "address", signer.Address().Hex(), "server", serverURL)
	id, err := account.SignIn(ctx)
	if err != nil {
		return err
	}

	logger.Info("signed in", "address", id.Address)
	fmt.Fprintln(cmd.OutOrStdout(), id.Token)
	return nil
}
