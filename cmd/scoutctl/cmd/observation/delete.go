package observation

import (
	"context"
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete SESSION_ID OBSERVATION_ID",
	Short: "Soft-delete an observation",
	Args:  cobra.ExactArgs(2),
	RunE: func(cobraCmd *cobra.Command, args []string) error {
		client, err := sdkClient(cobraCmd.Context())
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cobraCmd.Context(), 10*time.Second)
		defer cancel()

		if err := client.DeleteObservation(ctx, args[0], args[1]); err != nil {
			return fmt.Errorf("failed to delete observation: %w", err)
		}
		pterm.Success.Printf("Deleted observation %s\n", args[1])
		return nil
	},
}
