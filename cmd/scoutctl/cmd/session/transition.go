package session

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/config"
	"github.com/katlaang/pestscan-sub000/pkg/sdk"
)

type transitionSpec struct {
	action string
	short  string
	// confirm adds --confirm, sent as confirmationAcknowledged.
	confirm bool
}

var transitions = []transitionSpec{
	{action: sdk.ActionStart, short: "Start scouting a session"},
	{action: sdk.ActionSubmit, short: "Submit a session for review", confirm: true},
	{action: sdk.ActionComplete, short: "Mark a submitted session completed"},
	{action: sdk.ActionReopen, short: "Reopen a submitted or completed session"},
	{action: sdk.ActionIncomplete, short: "Mark a session incomplete"},
}

func transitionCmds() []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(transitions))
	for _, spec := range transitions {
		cmds = append(cmds, newTransitionCmd(spec))
	}
	return cmds
}

func newTransitionCmd(spec transitionSpec) *cobra.Command {
	var (
		version   int64
		confirmed bool
		input     sdk.TransitionInput
	)
	cmd := &cobra.Command{
		Use:   spec.action + " SESSION_ID",
		Short: spec.short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			cfg := config.MustFromContext(cobraCmd.Context())
			client, err := sdkClient(cobraCmd.Context())
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cobraCmd.Context(), 10*time.Second)
			defer cancel()

			input.Version = version
			input.ConfirmationAcknowledged = confirmed
			if input.DeviceID == "" {
				if host, err := os.Hostname(); err == nil {
					input.DeviceID = host
				}
			}
			if input.DeviceType == "" {
				input.DeviceType = "scoutctl"
			}

			session, err := client.Transition(ctx, args[0], spec.action, input)
			if err != nil {
				return fmt.Errorf("failed to %s session: %w", spec.action, err)
			}
			return renderSession(session, cfg.OutputJSON)
		},
	}
	cmd.Flags().Int64Var(&version, "version", 0, "Session version the action is based on")
	cmd.Flags().StringVar(&input.Comment, "comment", "", "Audit comment")
	cmd.Flags().StringVar(&input.Location, "location", "", "Where the action was taken")
	cmd.Flags().StringVar(&input.DeviceID, "device-id", "", "Device id recorded in the audit trail (defaults to hostname)")
	cmd.Flags().StringVar(&input.DeviceType, "device-type", "", "Device type recorded in the audit trail")
	cmd.Flags().StringVar(&input.ActorName, "actor-name", "", "Display name recorded in the audit trail")
	_ = cmd.MarkFlagRequired("version")
	if spec.confirm {
		cmd.Flags().BoolVar(&confirmed, "confirm", false, "Acknowledge the submission confirmation")
	}
	return cmd
}
