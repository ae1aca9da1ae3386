package session

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/config"
	"github.com/katlaang/pestscan-sub000/pkg/sdk"
)

// SessionCmd is the parent command for session operations
var SessionCmd = &cobra.Command{
	Use:     "session",
	Aliases: []string{"sessions"},
	Short:   "Manage scouting sessions",
	Long:    `Commands for creating, listing, updating and moving scouting sessions through their lifecycle.`,
}

func init() {
	SessionCmd.AddCommand(createCmd)
	SessionCmd.AddCommand(listCmd)
	SessionCmd.AddCommand(getCmd)
	SessionCmd.AddCommand(updateCmd)
	SessionCmd.AddCommand(auditCmd)
	for _, cmd := range transitionCmds() {
		SessionCmd.AddCommand(cmd)
	}
}

func sdkClient(ctx context.Context) (*sdk.Client, error) {
	return config.MustFromContext(ctx).SDKClient()
}

func resolveFarm(ctx context.Context, explicit string) (string, error) {
	return config.MustFromContext(ctx).Farm(explicit)
}
