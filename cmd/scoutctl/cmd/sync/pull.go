package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/config"
)

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Pull one delta and advance the stored watermark",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cmd.Context())
		dc, err := loadContext(cfg)
		if err != nil {
			return err
		}
		client, err := sdkClient(cmd.Context())
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		syncer := newSyncer(client, dc)
		resp, err := syncer.Pull(ctx)
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		if err := saveWatermark(dc, syncer); err != nil {
			return err
		}
		return summarize(resp, cfg.OutputJSON)
	},
}
