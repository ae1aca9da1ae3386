package session

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/config"
	"github.com/katlaang/pestscan-sub000/pkg/sdk"
)

var (
	createFarm        string
	createDate        string
	createGreenhouses []string
	createFieldBlocks []string
	createScout       string
	createCrop        string
	createVariety     string
	createNotes       string
	createStatus      string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a scouting session",
	Long: `Creates a session covering the given greenhouses and field blocks. All bays and
benches of every structure are included.`,
	Example: `  scoutctl session create --farm <farm-id> --date 2026-03-10 --greenhouse <greenhouse-id> --crop Roses`,
	RunE: func(cobraCmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cobraCmd.Context())
		farmID, err := resolveFarm(cobraCmd.Context(), createFarm)
		if err != nil {
			return err
		}
		if len(createGreenhouses) == 0 && len(createFieldBlocks) == 0 {
			return fmt.Errorf("at least one --greenhouse or --field-block is required")
		}

		input := sdk.CreateSessionInput{
			SessionDate: createDate,
			CropType:    createCrop,
			CropVariety: createVariety,
			Notes:       createNotes,
			Status:      createStatus,
		}
		if input.SessionDate == "" {
			input.SessionDate = time.Now().Format(time.DateOnly)
		}
		if createScout != "" {
			input.ScoutID = &createScout
		}
		all := true
		for _, id := range createGreenhouses {
			input.Targets = append(input.Targets, sdk.TargetInput{GreenhouseID: &id, IncludeAllBays: &all, IncludeAllBenches: &all})
		}
		for _, id := range createFieldBlocks {
			input.Targets = append(input.Targets, sdk.TargetInput{FieldBlockID: &id, IncludeAllBays: &all, IncludeAllBenches: &all})
		}

		client, err := sdkClient(cobraCmd.Context())
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cobraCmd.Context(), 10*time.Second)
		defer cancel()

		session, err := client.CreateSession(ctx, farmID, input)
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		return renderSession(session, cfg.OutputJSON)
	},
}

func init() {
	createCmd.Flags().StringVar(&createFarm, "farm", "", "Farm id (defaults to the .scout context)")
	createCmd.Flags().StringVar(&createDate, "date", "", "Session date YYYY-MM-DD (defaults to today)")
	createCmd.Flags().StringArrayVar(&createGreenhouses, "greenhouse", nil, "Greenhouse id to scout (repeatable)")
	createCmd.Flags().StringArrayVar(&createFieldBlocks, "field-block", nil, "Field block id to scout (repeatable)")
	createCmd.Flags().StringVar(&createScout, "scout", "", "Scout user id (defaults to the farm's scout)")
	createCmd.Flags().StringVar(&createCrop, "crop", "", "Crop type")
	createCmd.Flags().StringVar(&createVariety, "variety", "", "Crop variety")
	createCmd.Flags().StringVar(&createNotes, "notes", "", "Free-form notes")
	createCmd.Flags().StringVar(&createStatus, "status", "", "Initial status: DRAFT (default) or NEW")
}
