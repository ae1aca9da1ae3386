package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/auth"
	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/config"
	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/output"
)

type authStatus struct {
	LoggedIn  bool       `json:"loggedIn"`
	ServerURL string     `json:"serverUrl,omitempty"`
	Matches   bool       `json:"matchesServer"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Expired   bool       `json:"expired"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored token and whether it fits --server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cmd.Context())
		store, err := auth.NewFileStore()
		if err != nil {
			return fmt.Errorf("failed to open credential store: %w", err)
		}

		var status authStatus
		creds, err := store.LoadCredentials()
		switch {
		case errors.Is(err, auth.ErrNotLoggedIn):
		case err != nil:
			return err
		default:
			status = authStatus{
				LoggedIn:  true,
				ServerURL: creds.ServerURL,
				Matches:   creds.ServerURL == "" || creds.ServerURL == cfg.ServerURL,
				Expired:   creds.IsExpired(),
			}
			if !creds.ExpiresAt.IsZero() {
				status.ExpiresAt = &creds.ExpiresAt
			}
		}

		if cfg.OutputJSON {
			return output.JSON(status)
		}
		if !status.LoggedIn {
			pterm.Warning.Println("Not logged in; run `scoutctl auth login`")
			return nil
		}

		pterm.DefaultSection.Println("Authentication Status")
		pterm.Info.Printf("Server: %s\n", output.Dash(status.ServerURL))
		if !status.Matches {
			pterm.Warning.Printf("Token was stored for %s but --server is %s\n", status.ServerURL, cfg.ServerURL)
		}
		switch {
		case status.ExpiresAt == nil:
			pterm.Info.Println("Token expiry unknown")
		case status.Expired:
			pterm.Warning.Printf("Token expired at %s\n", status.ExpiresAt.Format(time.RFC1123))
		default:
			pterm.Info.Printf("Token expires in %s (%s)\n",
				time.Until(*status.ExpiresAt).Round(time.Minute), status.ExpiresAt.Format(time.RFC1123))
		}
		return nil
	},
}
