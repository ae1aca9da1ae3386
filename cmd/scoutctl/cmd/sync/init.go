package sync

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/config"
	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/dirctx"
)

var (
	initFarm  string
	initSince string
	initForce bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Bind this directory to a farm",
	Long: `Writes a .scout file naming the farm. The first pull returns changes made after
--since (default: everything).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cmd.Context())
		if initFarm == "" {
			return fmt.Errorf("--farm is required")
		}

		existing, err := dirctx.ReadScoutContext()
		if err != nil && !initForce {
			return err
		}
		if existing != nil && !initForce {
			return fmt.Errorf(".scout already binds this directory to farm %s; use --force to replace it", existing.FarmID)
		}

		since := time.Unix(0, 0).UTC()
		if initSince != "" {
			since, err = time.Parse(time.RFC3339, initSince)
			if err != nil {
				return fmt.Errorf("--since must be an RFC 3339 timestamp: %w", err)
			}
		}

		now := time.Now().UTC()
		dc := &dirctx.DirectoryContext{
			Version:   dirctx.ScoutFileVersion,
			FarmID:    initFarm,
			ServerURL: cfg.ServerURL,
			CreatedAt: since,
			UpdatedAt: now,
		}
		if err := dirctx.WriteScoutContext(dc); err != nil {
			return err
		}

		path, _ := dirctx.GetScoutFilePath()
		pterm.Success.Printf("Bound %s to farm %s\n", path, initFarm)
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initFarm, "farm", "", "Farm id")
	initCmd.Flags().StringVar(&initSince, "since", "", "Only sync changes after this RFC 3339 time")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Replace an existing .scout file")
}
