package auth

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/auth"
	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/config"
	"github.com/katlaang/pestscan-sub000/pkg/sdk"
)

var (
	loginToken     string
	loginExpiresIn time.Duration
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a bearer token",
	Long: `Stores a bearer token minted by 'scoutapi token issue' in ~/.scout so later
commands authenticate without --token. When --token is omitted the token is
read from stdin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cmd.Context())

		token := strings.TrimSpace(loginToken)
		if token == "" {
			if cfg.NonInteractive {
				pterm.Info.Println("Reading token from stdin")
			} else {
				pterm.Info.Println("Paste the bearer token and press Enter:")
			}
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read token: %w", err)
			}
			token = strings.TrimSpace(line)
		}
		if token == "" {
			return fmt.Errorf("token is required")
		}

		creds := &sdk.Credentials{
			AccessToken: token,
			TokenType:   "Bearer",
			ServerURL:   cfg.ServerURL,
		}
		if loginExpiresIn > 0 {
			creds.ExpiresAt = time.Now().Add(loginExpiresIn)
		}

		store, err := auth.NewFileStore()
		if err != nil {
			return fmt.Errorf("failed to create credential store: %w", err)
		}
		if err := store.SaveCredentials(creds); err != nil {
			return fmt.Errorf("failed to save credentials: %w", err)
		}

		pterm.Success.Printf("Token stored for %s\n", cfg.ServerURL)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginToken, "token", "", "Bearer token to store")
	loginCmd.Flags().DurationVar(&loginExpiresIn, "expires-in", 0, "Remember the token's lifetime so expired tokens are reported locally")
}
