package session

import (
	"fmt"

	"github.com/pterm/pterm"

	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/output"
	"github.com/katlaang/pestscan-sub000/pkg/sdk"
)

func renderSession(s *sdk.Session, asJSON bool) error {
	if asJSON {
		return output.JSON(s)
	}

	pterm.DefaultSection.Printf("Session %s\n", s.ID)
	pterm.Info.Printf("Status %s, version %d, week %d (%s)\n", s.Status, s.Version, s.WeekNumber, s.SessionDate)
	if s.CropType != "" {
		pterm.Info.Printf("Crop %s %s\n", s.CropType, s.CropVariety)
	}
	if s.ReopenComment != "" {
		pterm.Warning.Printf("Reopened: %s\n", s.ReopenComment)
	}

	rows := make([][]string, 0)
	for _, section := range s.Sections {
		for _, obs := range section.Observations {
			rows = append(rows, []string{
				section.Name,
				obs.SpeciesCode,
				fmt.Sprintf("%d/%d/%d", obs.BayIndex, obs.BenchIndex, obs.SpotIndex),
				output.Int(obs.Count),
				output.Int(obs.Version),
				obs.ID,
			})
		}
	}
	if len(s.Sections) > 0 {
		names := make([][]string, 0, len(s.Sections))
		for _, section := range s.Sections {
			names = append(names, []string{section.Name, section.TargetID, output.Int(len(section.Observations))})
		}
		if err := output.Table([]string{"SECTION", "TARGET_ID", "OBSERVATIONS"}, names); err != nil {
			return err
		}
	}
	if len(rows) > 0 {
		return output.Table([]string{"SECTION", "SPECIES", "BAY/BENCH/SPOT", "COUNT", "VERSION", "ID"}, rows)
	}
	return nil
}
