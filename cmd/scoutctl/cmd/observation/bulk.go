package observation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/config"
	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/output"
	"github.com/katlaang/pestscan-sub000/pkg/sdk"
)

var bulkFile string

var bulkCmd = &cobra.Command{
	Use:   "bulk SESSION_ID",
	Short: "Apply a batch of observations all-or-nothing",
	Long: `Reads a JSON array of observations (or an object with an "observations"
array) from --file, or stdin when --file is "-", and applies them in one
transaction. When any entry is rejected nothing is written and the failing
entry is reported.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cobraCmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cobraCmd.Context())
		entries, err := readEntries(bulkFile)
		if err != nil {
			return err
		}

		client, err := sdkClient(cobraCmd.Context())
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cobraCmd.Context(), 30*time.Second)
		defer cancel()

		written, err := client.BulkUpsertObservations(ctx, args[0], entries)
		if err != nil {
			var apiErr *sdk.APIError
			if errors.As(err, &apiErr) && apiErr.EntryIndex != nil {
				return fmt.Errorf("batch rejected at entry %d: %s", *apiErr.EntryIndex, apiErr.Message)
			}
			return fmt.Errorf("failed to apply batch: %w", err)
		}
		if cfg.OutputJSON {
			return output.JSON(written)
		}
		pterm.Success.Printf("Applied %d observations\n", len(written))
		return nil
	},
}

func readEntries(path string) ([]sdk.ObservationInput, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return decodeEntries(raw)
}

func decodeEntries(raw []byte) ([]sdk.ObservationInput, error) {
	var entries []sdk.ObservationInput
	if err := json.Unmarshal(raw, &entries); err == nil {
		return entries, nil
	}
	var wrapped struct {
		Observations []sdk.ObservationInput `json:"observations"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("batch must be a JSON array or an object with an observations array: %w", err)
	}
	return wrapped.Observations, nil
}

func init() {
	bulkCmd.Flags().StringVarP(&bulkFile, "file", "f", "-", "JSON file with the batch, - for stdin")
}
