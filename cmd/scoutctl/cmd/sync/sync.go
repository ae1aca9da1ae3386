package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/config"
	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/dirctx"
	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/output"
	"github.com/katlaang/pestscan-sub000/pkg/sdk"
)

// SyncCmd is the parent command for delta sync
var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull farm changes onto this device",
	Long: `Commands for delta sync. The working directory's .scout file binds it to a
farm and stores the watermark each pull resumes from.`,
}

func init() {
	SyncCmd.AddCommand(initCmd)
	SyncCmd.AddCommand(pullCmd)
	SyncCmd.AddCommand(watchCmd)
}

func sdkClient(ctx context.Context) (*sdk.Client, error) {
	return config.MustFromContext(ctx).SDKClient()
}

// loadContext reads the .scout file and refuses directories bound to
// another server.
func loadContext(cfg *config.GlobalConfig) (*dirctx.DirectoryContext, error) {
	dc, err := cfg.DirectoryContext()
	if err != nil {
		return nil, err
	}
	if dc == nil {
		return nil, fmt.Errorf("no .scout context here; run `scoutctl sync init --farm <id>` first")
	}
	if dc.ServerURL != "" && dc.ServerURL != cfg.ServerURL {
		return nil, fmt.Errorf(".scout is bound to %s, not %s", dc.ServerURL, cfg.ServerURL)
	}
	return dc, nil
}

func newSyncer(client *sdk.Client, dc *dirctx.DirectoryContext) *sdk.Syncer {
	if dc.Watermark != nil {
		return sdk.ResumeSyncer(client, dc.FarmID, *dc.Watermark)
	}
	return sdk.NewSyncer(client, dc.FarmID, dc.CreatedAt)
}

// saveWatermark persists the syncer's position.
func saveWatermark(dc *dirctx.DirectoryContext, syncer *sdk.Syncer) error {
	watermark, ok := syncer.Watermark()
	if !ok {
		return nil
	}
	dc.Watermark = &watermark
	dc.UpdatedAt = time.Now().UTC()
	return dirctx.WriteScoutContext(dc)
}

func summarize(resp *sdk.SyncResponse, asJSON bool) error {
	if asJSON {
		return output.JSON(resp)
	}
	deleted := 0
	for _, obs := range resp.Observations {
		if obs.Deleted {
			deleted++
		}
	}
	pterm.Info.Printf("%d sessions, %d observations (%d deleted), %d photos, cursor %d\n",
		len(resp.Sessions), len(resp.Observations)-deleted, deleted, len(resp.Photos), resp.Watermark.Cursor)

	rows := make([][]string, 0, len(resp.Sessions))
	for _, s := range resp.Sessions {
		rows = append(rows, []string{s.ID, s.SessionDate, s.Status, output.Int(s.Version)})
	}
	if len(rows) == 0 {
		return nil
	}
	return output.Table([]string{"SESSION", "DATE", "STATUS", "VERSION"}, rows)
}
