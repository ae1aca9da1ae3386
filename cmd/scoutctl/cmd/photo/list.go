package photo

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/config"
	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/output"
)

var listCmd = &cobra.Command{
	Use:   "list SESSION_ID",
	Short: "List the photos of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cobraCmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cobraCmd.Context())
		client, err := sdkClient(cobraCmd.Context())
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cobraCmd.Context(), 10*time.Second)
		defer cancel()

		photos, err := client.ListPhotos(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to list photos: %w", err)
		}
		if cfg.OutputJSON {
			return output.JSON(photos)
		}

		rows := make([][]string, 0, len(photos))
		for _, p := range photos {
			rows = append(rows, []string{
				p.LocalPhotoID,
				p.SyncStatus,
				output.Deref(p.ObservationID),
				output.Deref(p.ObjectKey),
				output.Dash(p.Purpose),
			})
		}
		return output.Table([]string{"LOCAL ID", "STATUS", "OBSERVATION", "OBJECT KEY", "PURPOSE"}, rows)
	},
}
