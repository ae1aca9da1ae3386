package auth

import (
	"errors"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/auth"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored bearer token",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := auth.NewFileStore()
		if err != nil {
			return fmt.Errorf("failed to open credential store: %w", err)
		}

		creds, err := store.LoadCredentials()
		if errors.Is(err, auth.ErrNotLoggedIn) {
			pterm.Info.Println("No stored token")
			return nil
		}
		// A corrupt file is removed as well.
		if err := store.DeleteCredentials(); err != nil {
			return err
		}

		if creds != nil && creds.ServerURL != "" {
			pterm.Success.Printf("Removed token for %s\n", creds.ServerURL)
			return nil
		}
		pterm.Success.Println("Removed stored token")
		return nil
	},
}
