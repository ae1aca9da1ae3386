package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/config"
	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/output"
	"github.com/katlaang/pestscan-sub000/pkg/sdk"
)

var (
	listFarm   string
	listFilter string
	listWhere  []string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions of a farm",
	Long: `Lists the sessions of a farm visible to the caller. --filter takes a bexpr
expression over session fields (Status, WeekNumber, SessionDate, ScoutID,
ManagerID, CropType, CropVariety, Confirmed, ...); --where KEY=VALUE adds
equality constraints joined with "and".`,
	Example: `  scoutctl session list --where Status=SUBMITTED --where WeekNumber=11`,
	RunE: func(cobraCmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cobraCmd.Context())
		farmID, err := resolveFarm(cobraCmd.Context(), listFarm)
		if err != nil {
			return err
		}

		fields, err := sdk.ParseFieldArgs(listWhere)
		if err != nil {
			return err
		}
		filter := strings.TrimSpace(listFilter)
		if len(fields) > 0 {
			fieldExpr := sdk.BuildBexprFilter(fields)
			if filter == "" {
				filter = fieldExpr
			} else {
				filter = fmt.Sprintf("(%s) and (%s)", filter, fieldExpr)
			}
		}

		client, err := sdkClient(cobraCmd.Context())
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cobraCmd.Context(), 10*time.Second)
		defer cancel()

		sessions, err := client.ListSessions(ctx, farmID, sdk.ListSessionsOptions{Filter: filter})
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		if cfg.OutputJSON {
			return output.JSON(sessions)
		}

		rows := make([][]string, 0, len(sessions))
		for _, s := range sessions {
			rows = append(rows, []string{
				s.ID,
				s.SessionDate,
				output.Int(s.WeekNumber),
				s.Status,
				output.Deref(s.ScoutID),
				output.Dash(s.CropType),
				output.Int(s.Version),
			})
		}
		return output.Table([]string{"ID", "DATE", "WEEK", "STATUS", "SCOUT", "CROP", "VERSION"}, rows)
	},
}

func init() {
	listCmd.Flags().StringVar(&listFarm, "farm", "", "Farm id (defaults to the .scout context)")
	listCmd.Flags().StringVar(&listFilter, "filter", "", "bexpr filter expression")
	listCmd.Flags().StringArrayVar(&listWhere, "where", nil, "KEY=VALUE equality constraint (repeatable)")
}
