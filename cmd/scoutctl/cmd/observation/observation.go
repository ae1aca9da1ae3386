package observation

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/config"
	"github.com/katlaang/pestscan-sub000/pkg/sdk"
)

// ObservationCmd is the parent command for observation writes
var ObservationCmd = &cobra.Command{
	Use:     "observation",
	Aliases: []string{"obs"},
	Short:   "Record and remove observations",
	Long:    `Commands for writing species counts at bay/bench/spot sample points of a session.`,
}

func init() {
	ObservationCmd.AddCommand(recordCmd)
	ObservationCmd.AddCommand(bulkCmd)
	ObservationCmd.AddCommand(deleteCmd)
}

func sdkClient(ctx context.Context) (*sdk.Client, error) {
	return config.MustFromContext(ctx).SDKClient()
}
