package output

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pterm/pterm"
)

// JSON prints v indented to stdout.
func JSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table renders rows under header. An empty table prints a notice instead.
func Table(header []string, rows [][]string) error {
	if len(rows) == 0 {
		pterm.Info.Println("No results")
		return nil
	}
	data := pterm.TableData{header}
	data = append(data, rows...)
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

// Deref renders an optional string, using "-" for nil or empty.
func Deref(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

// Dash renders "-" for an empty string.
func Dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Int renders an integer column.
func Int[T ~int | ~int64](v T) string {
	return fmt.Sprintf("%d", v)
}
