package photo

import (
	"context"
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/config"
	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/output"
	"github.com/katlaang/pestscan-sub000/pkg/sdk"
)

var (
	registerObservation string
	registerPurpose     string
	registerCapturedAt  string
)

var registerCmd = &cobra.Command{
	Use:   "register SESSION_ID LOCAL_PHOTO_ID",
	Short: "Register a photo with a session",
	Long: `Records the metadata of a photo taken on a device. Registering the same
LOCAL_PHOTO_ID again returns the stored photo.`,
	Example: `  scoutctl photo register <session-id> IMG_0042 --observation <observation-id> --captured-at 2026-03-10T09:30:00+03:00`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cobraCmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cobraCmd.Context())
		input, err := buildInput(args[1], registerObservation, registerPurpose, registerCapturedAt)
		if err != nil {
			return err
		}

		client, err := sdkClient(cobraCmd.Context())
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cobraCmd.Context(), 10*time.Second)
		defer cancel()

		photo, err := client.RegisterPhoto(ctx, args[0], input)
		if err != nil {
			return fmt.Errorf("failed to register photo: %w", err)
		}
		if cfg.OutputJSON {
			return output.JSON(photo)
		}
		pterm.Success.Printf("Registered %s as %s (%s)\n", photo.LocalPhotoID, photo.ID, photo.SyncStatus)
		return nil
	},
}

func buildInput(localID, observationID, purpose, capturedAt string) (sdk.PhotoInput, error) {
	input := sdk.PhotoInput{LocalPhotoID: localID, Purpose: purpose}
	if observationID != "" {
		input.ObservationID = &observationID
	}
	if capturedAt != "" {
		at, err := time.Parse(time.RFC3339, capturedAt)
		if err != nil {
			return sdk.PhotoInput{}, fmt.Errorf("--captured-at must be RFC 3339, e.g. 2026-03-10T09:30:00Z: %w", err)
		}
		input.CapturedAt = &at
	}
	return input, nil
}

func init() {
	flags := registerCmd.Flags()
	flags.StringVar(&registerObservation, "observation", "", "Observation the photo documents")
	flags.StringVar(&registerPurpose, "purpose", "", "Why the photo was taken")
	flags.StringVar(&registerCapturedAt, "captured-at", "", "Capture time (RFC 3339)")
}
