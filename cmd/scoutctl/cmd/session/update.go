package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/config"
)

var (
	updateVersion int64
	updateSet     []string
)

var updateCmd = &cobra.Command{
	Use:   "update SESSION_ID",
	Short: "Change session fields",
	Long: `Patches session fields guarded by --version. Field names use the API's JSON
names; numeric values are sent as numbers and "null" clears a field.`,
	Example: `  scoutctl session update <id> --version 3 --set weather=Sunny --set temperatureCelsius=24.5`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cobraCmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cobraCmd.Context())
		if len(updateSet) == 0 {
			return fmt.Errorf("at least one --set is required")
		}
		fields, err := parseSetArgs(updateSet)
		if err != nil {
			return err
		}

		client, err := sdkClient(cobraCmd.Context())
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cobraCmd.Context(), 10*time.Second)
		defer cancel()

		session, err := client.UpdateSession(ctx, args[0], updateVersion, fields)
		if err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		return renderSession(session, cfg.OutputJSON)
	},
}

func parseSetArgs(args []string) (map[string]any, error) {
	fields := make(map[string]any, len(args))
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("--set %q must be KEY=VALUE", arg)
		}
		switch {
		case raw == "null":
			fields[key] = nil
		case raw == "true" || raw == "false":
			fields[key] = raw == "true"
		default:
			if n, err := strconv.ParseFloat(raw, 64); err == nil {
				fields[key] = n
			} else {
				fields[key] = raw
			}
		}
	}
	return fields, nil
}

func init() {
	updateCmd.Flags().Int64Var(&updateVersion, "version", 0, "Session version the change is based on")
	updateCmd.Flags().StringArrayVar(&updateSet, "set", nil, "KEY=VALUE field to change (repeatable)")
	_ = updateCmd.MarkFlagRequired("version")
}
