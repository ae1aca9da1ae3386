package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/auth"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
)

var (
	tokenActorID string
	tokenRole    string
	tokenEmail   string
	tokenName    string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Bearer token commands",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Mint a bearer token for an actor",
	Long: `Signs an HS256 bearer token with auth.token_secret naming the given actor.
The token is printed to stdout so it can be captured by scripts.`,
	Example: `  scoutapi token issue --actor-id 0190c6d2-... --role SCOUT --name "Amina"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ttl := tokenTTL
		if ttl == 0 {
			ttl = cfg.Auth.TokenTTL
		}

		tokens := auth.NewTokenService([]byte(cfg.Auth.TokenSecret), cfg.Auth.TokenIssuer, nil)
		signed, err := tokens.Issue(auth.Actor{
			ID:    tokenActorID,
			Role:  models.Role(tokenRole),
			Email: tokenEmail,
			Name:  tokenName,
		}, ttl)
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), signed)
		return nil
	},
}

func init() {
	tokenIssueCmd.Flags().StringVar(&tokenActorID, "actor-id", "", "Actor (user) id written to the sub claim")
	tokenIssueCmd.Flags().StringVar(&tokenRole, "role", string(models.RoleScout), "Actor role: SCOUT, MANAGER, FARM_ADMIN, SUPER_ADMIN or EDGE_SYNC")
	tokenIssueCmd.Flags().StringVar(&tokenEmail, "email", "", "Actor email")
	tokenIssueCmd.Flags().StringVar(&tokenName, "name", "", "Actor display name")
	tokenIssueCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Token lifetime (defaults to auth.token_ttl)")
	_ = tokenIssueCmd.MarkFlagRequired("actor-id")

	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenIssueCmd)
}
