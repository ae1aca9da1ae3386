package heatmap

import (
	"context"
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/config"
	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/output"
	"github.com/katlaang/pestscan-sub000/pkg/sdk"
)

var (
	heatmapFarm string
	heatmapWeek int
	heatmapYear int
)

// HeatmapCmd prints the weekly severity heatmap of a farm
var HeatmapCmd = &cobra.Command{
	Use:   "heatmap",
	Short: "Show the weekly severity heatmap of a farm",
	Long: `Prints the farm-wide grid and one grid per scouted structure for an ISO week.
Week and year default to the current ISO week.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cmd.Context())
		farmID, err := cfg.Farm(heatmapFarm)
		if err != nil {
			return err
		}
		year, week := time.Now().ISOWeek()
		if heatmapWeek != 0 {
			week = heatmapWeek
		}
		if heatmapYear != 0 {
			year = heatmapYear
		}

		client, err := cfg.SDKClient()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		heatmap, err := client.Heatmap(ctx, farmID, week, year)
		if err != nil {
			return fmt.Errorf("failed to build heatmap: %w", err)
		}
		if cfg.OutputJSON {
			return output.JSON(heatmap)
		}

		pterm.DefaultSection.Printf("%s week %d/%d (%s to %s)\n", heatmap.FarmName, heatmap.Week, heatmap.Year, heatmap.WeekStart, heatmap.WeekEnd)
		if err := renderGrid("Farm", heatmap.BayCount, heatmap.BenchesPerBay, heatmap.Cells); err != nil {
			return err
		}
		for _, section := range heatmap.Sections {
			if err := renderGrid(section.TargetName, section.BayCount, section.BenchesPerBay, section.Cells); err != nil {
				return err
			}
		}
		return nil
	},
}

// renderGrid prints bays as rows and benches as columns; each cell shows the
// total count and severity level.
func renderGrid(title string, bays, benches int, cells []sdk.HeatmapCell) error {
	pterm.DefaultSection.WithLevel(2).Println(title)
	if len(cells) == 0 {
		pterm.Info.Println("No observations")
		return nil
	}
	header := []string{"BAY"}
	for bench := 0; bench < benches; bench++ {
		header = append(header, fmt.Sprintf("BENCH %d", bench))
	}
	rows := make([][]string, 0, bays)
	for bay := 0; bay < bays; bay++ {
		row := []string{output.Int(bay)}
		for bench := 0; bench < benches; bench++ {
			row = append(row, "-")
		}
		rows = append(rows, row)
	}
	for _, cell := range cells {
		if cell.BayIndex < 0 || cell.BayIndex >= bays || cell.BenchIndex < 0 || cell.BenchIndex >= benches {
			continue
		}
		rows[cell.BayIndex][cell.BenchIndex+1] = fmt.Sprintf("%d %s", cell.TotalCount, cell.SeverityLevel)
	}
	return output.Table(header, rows)
}

func init() {
	HeatmapCmd.Flags().StringVar(&heatmapFarm, "farm", "", "Farm id (defaults to the .scout context)")
	HeatmapCmd.Flags().IntVar(&heatmapWeek, "week", 0, "ISO week (defaults to the current week)")
	HeatmapCmd.Flags().IntVar(&heatmapYear, "year", 0, "ISO year (defaults to the current year)")
}
