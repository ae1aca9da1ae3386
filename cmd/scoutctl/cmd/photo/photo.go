package photo

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/config"
	"github.com/katlaang/pestscan-sub000/pkg/sdk"
)

// PhotoCmd is the parent command for photo metadata
var PhotoCmd = &cobra.Command{
	Use:   "photo",
	Short: "Register photos and confirm their uploads",
	Long: `Commands for photo metadata. A device registers each photo it takes with the
session, uploads the binary to object storage, then confirms the upload with
the object key.`,
}

func init() {
	PhotoCmd.AddCommand(registerCmd)
	PhotoCmd.AddCommand(confirmCmd)
	PhotoCmd.AddCommand(listCmd)
}

func sdkClient(ctx context.Context) (*sdk.Client, error) {
	return config.MustFromContext(ctx).SDKClient()
}
