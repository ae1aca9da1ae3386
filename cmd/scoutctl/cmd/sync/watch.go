package sync

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/config"
	"github.com/katlaang/pestscan-sub000/pkg/sdk"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Pull deltas until interrupted",
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

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		pterm.Info.Printf("Watching farm %s every %s\n", dc.FarmID, watchInterval)
		syncer := newSyncer(client, dc)
		err = syncer.Watch(ctx, watchInterval, func(resp *sdk.SyncResponse) error {
			if err := saveWatermark(dc, syncer); err != nil {
				return err
			}
			return summarize(resp, cfg.OutputJSON)
		})
		if saveErr := saveWatermark(dc, syncer); saveErr != nil {
			return saveErr
		}
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 30*time.Second, "Time between pulls")
}
