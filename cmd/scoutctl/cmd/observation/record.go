package observation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/config"
	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/output"
	"github.com/katlaang/pestscan-sub000/pkg/sdk"
)

var (
	recordInput   sdk.ObservationInput
	recordVersion int64
)

var recordCmd = &cobra.Command{
	Use:   "record SESSION_ID",
	Short: "Create or update one observation",
	Long: `Writes one species count. Without --version the write creates the observation
(or replays an earlier write with the same --request-id); with --version it
updates the stored observation at that version.`,
	Example: `  scoutctl obs record <session-id> --target <target-id> --species THRIPS --bay 0 --bench 1 --count 4`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cobraCmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cobraCmd.Context())
		input := recordInput
		if cobraCmd.Flags().Changed("version") {
			version := recordVersion
			input.Version = &version
		}
		if input.ClientRequestID == "" {
			input.ClientRequestID = uuid.NewString()
		}

		client, err := sdkClient(cobraCmd.Context())
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cobraCmd.Context(), 10*time.Second)
		defer cancel()

		obs, err := client.UpsertObservation(ctx, args[0], input)
		if err != nil {
			return fmt.Errorf("failed to record observation: %w", err)
		}
		if cfg.OutputJSON {
			return output.JSON(obs)
		}
		pterm.Success.Printf("%s %s count %d at bay %d bench %d spot %d (version %d)\n",
			obs.ID, obs.SpeciesCode, obs.Count, obs.BayIndex, obs.BenchIndex, obs.SpotIndex, obs.Version)
		return nil
	},
}

func init() {
	flags := recordCmd.Flags()
	flags.StringVar(&recordInput.SessionTargetID, "target", "", "Session target (section) id")
	flags.StringVar(&recordInput.SpeciesCode, "species", "", "Species code, e.g. THRIPS or DOWNY_MILDEW")
	flags.IntVar(&recordInput.BayIndex, "bay", 0, "Bay index")
	flags.StringVar(&recordInput.BayLabel, "bay-label", "", "Bay label")
	flags.IntVar(&recordInput.BenchIndex, "bench", 0, "Bench index")
	flags.StringVar(&recordInput.BenchLabel, "bench-label", "", "Bench label")
	flags.IntVar(&recordInput.SpotIndex, "spot", 0, "Spot index")
	flags.IntVar(&recordInput.Count, "count", 0, "Counted individuals")
	flags.StringVar(&recordInput.Notes, "notes", "", "Notes")
	flags.StringVar(&recordInput.ClientRequestID, "request-id", "", "Idempotency key (generated when empty)")
	flags.Int64Var(&recordVersion, "version", 0, "Stored observation version to update")
	_ = recordCmd.MarkFlagRequired("target")
	_ = recordCmd.MarkFlagRequired("species")
}
