package session

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/config"
	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/output"
)

var auditCmd = &cobra.Command{
	Use:   "audit SESSION_ID",
	Short: "Show the audit trail of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cobraCmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cobraCmd.Context())
		client, err := sdkClient(cobraCmd.Context())
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cobraCmd.Context(), 10*time.Second)
		defer cancel()

		events, err := client.AuditEvents(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to get audit trail: %w", err)
		}
		if cfg.OutputJSON {
			return output.JSON(events)
		}

		rows := make([][]string, 0, len(events))
		for _, e := range events {
			rows = append(rows, []string{
				e.OccurredAt.Format(time.RFC3339),
				e.Action,
				e.ActorName,
				e.ActorRole,
				output.Dash(e.DeviceID),
				output.Dash(e.Comment),
			})
		}
		return output.Table([]string{"AT", "ACTION", "ACTOR", "ROLE", "DEVICE", "COMMENT"}, rows)
	},
}
