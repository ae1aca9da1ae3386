package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/cmd/cmdutil"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/bunx"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/repository"
)

var (
	seedFarmID      string
	seedFarmName    string
	seedOwnerID     string
	seedScoutID     string
	seedBayCount    int
	seedBenches     int
	seedGreenhouses []string
	seedFieldBlocks []string
)

var farmCmd = &cobra.Command{
	Use:   "farm",
	Short: "Farm master data commands",
	Long:  `Commands for loading the farm, greenhouse and field block records sessions are scouted against.`,
}

var farmSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create or refresh a farm and its structures",
	Long: `Upserts one farm together with its greenhouses and field blocks.

Greenhouses are given as NAME:BAYS:BENCHES_PER_BAY and field blocks as NAME:BAYS.
Re-running the command with the same --id refreshes the farm record; structures
are always created with new ids.`,
	Example: `  scoutapi farm seed --name "Kilimo Roses" --bays 4 --benches 3 \
    --greenhouse "Greenhouse B:4:3" --field-block "Block A:2"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(seedFarmName) == "" {
			return fmt.Errorf("--name is required")
		}
		for _, id := range []string{seedFarmID, seedOwnerID, seedScoutID} {
			if id != "" && !bunx.IsUUID(id) {
				return fmt.Errorf("%q is not a UUID", id)
			}
		}

		greenhouses, err := parseGreenhouseSpecs(seedGreenhouses)
		if err != nil {
			return err
		}
		blocks, err := parseFieldBlockSpecs(seedFieldBlocks)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		db, err := cmdutil.OpenDB(ctx, cfg)
		if err != nil {
			return err
		}
		defer bunx.Close(db)

		farm := &models.Farm{
			ID:            seedFarmID,
			Name:          seedFarmName,
			OwnerID:       optionalID(seedOwnerID),
			ScoutID:       optionalID(seedScoutID),
			BayCount:      seedBayCount,
			BenchesPerBay: seedBenches,
		}
		if farm.ID == "" {
			farm.ID = bunx.NewUUIDv7()
		}

		repo := repository.NewBunFarmRepository(db)
		if err := repo.UpsertFarm(ctx, farm); err != nil {
			return err
		}
		cmd.Printf("farm %s\t%s\n", farm.ID, farm.Name)

		for _, greenhouse := range greenhouses {
			greenhouse.ID = bunx.NewUUIDv7()
			greenhouse.FarmID = farm.ID
			if err := repo.UpsertGreenhouse(ctx, greenhouse); err != nil {
				return err
			}
			cmd.Printf("greenhouse %s\t%s\n", greenhouse.ID, greenhouse.Name)
		}
		for _, block := range blocks {
			block.ID = bunx.NewUUIDv7()
			block.FarmID = farm.ID
			if err := repo.UpsertFieldBlock(ctx, block); err != nil {
				return err
			}
			cmd.Printf("field-block %s\t%s\n", block.ID, block.Name)
		}
		return nil
	},
}

func optionalID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

func parseGreenhouseSpecs(specs []string) ([]*models.Greenhouse, error) {
	out := make([]*models.Greenhouse, 0, len(specs))
	for _, spec := range specs {
		parts := strings.Split(spec, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("greenhouse %q must be NAME:BAYS:BENCHES_PER_BAY", spec)
		}
		bays, err := parseCount(parts[1])
		if err != nil {
			return nil, fmt.Errorf("greenhouse %q: %w", spec, err)
		}
		benches, err := parseCount(parts[2])
		if err != nil {
			return nil, fmt.Errorf("greenhouse %q: %w", spec, err)
		}
		out = append(out, &models.Greenhouse{Name: strings.TrimSpace(parts[0]), BayCount: bays, BenchesPerBay: benches})
	}
	return out, nil
}

func parseFieldBlockSpecs(specs []string) ([]*models.FieldBlock, error) {
	out := make([]*models.FieldBlock, 0, len(specs))
	for _, spec := range specs {
		parts := strings.Split(spec, ":")
		if len(parts) != 2 {
			return nil, fmt.Errorf("field block %q must be NAME:BAYS", spec)
		}
		bays, err := parseCount(parts[1])
		if err != nil {
			return nil, fmt.Errorf("field block %q: %w", spec, err)
		}
		out = append(out, &models.FieldBlock{Name: strings.TrimSpace(parts[0]), BayCount: bays})
	}
	return out, nil
}

func parseCount(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%q is not a non-negative integer", raw)
	}
	return n, nil
}

func init() {
	farmSeedCmd.Flags().StringVar(&seedFarmID, "id", "", "Farm id (UUID); generated when empty")
	farmSeedCmd.Flags().StringVar(&seedFarmName, "name", "", "Farm name")
	farmSeedCmd.Flags().StringVar(&seedOwnerID, "owner-id", "", "Owning farm admin user id")
	farmSeedCmd.Flags().StringVar(&seedScoutID, "scout-id", "", "Default scout user id")
	farmSeedCmd.Flags().IntVar(&seedBayCount, "bays", 0, "Default bay count for the farm")
	farmSeedCmd.Flags().IntVar(&seedBenches, "benches", 0, "Default benches per bay for the farm")
	farmSeedCmd.Flags().StringArrayVar(&seedGreenhouses, "greenhouse", nil, "Greenhouse as NAME:BAYS:BENCHES_PER_BAY (repeatable)")
	farmSeedCmd.Flags().StringArrayVar(&seedFieldBlocks, "field-block", nil, "Field block as NAME:BAYS (repeatable)")

	rootCmd.AddCommand(farmCmd)
	farmCmd.AddCommand(farmSeedCmd)
}
