package photo

import (
	"context"
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/config"
	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/output"
)

var confirmCmd = &cobra.Command{
	Use:   "confirm SESSION_ID LOCAL_PHOTO_ID OBJECT_KEY",
	Short: "Confirm a photo upload",
	Args:  cobra.ExactArgs(3),
	RunE: func(cobraCmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cobraCmd.Context())
		client, err := sdkClient(cobraCmd.Context())
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cobraCmd.Context(), 10*time.Second)
		defer cancel()

		photo, err := client.ConfirmPhotoUpload(ctx, args[0], args[1], args[2])
		if err != nil {
			return fmt.Errorf("failed to confirm photo upload: %w", err)
		}
		if cfg.OutputJSON {
			return output.JSON(photo)
		}
		pterm.Success.Printf("Photo %s stored at %s\n", photo.LocalPhotoID, output.Deref(photo.ObjectKey))
		return nil
	},
}
