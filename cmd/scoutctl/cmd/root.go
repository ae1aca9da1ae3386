package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/cmd/auth"
	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/cmd/heatmap"
	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/cmd/observation"
	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/cmd/photo"
	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/cmd/session"
	scoutsync "github.com/katlaang/pestscan-sub000/cmd/scoutctl/cmd/sync"
	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/client"
	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/config"
)

var (
	serverURL      string
	bearerToken    string
	nonInteractive bool
	outputJSON     bool
)

var rootCmd = &cobra.Command{
	Use:   "scoutctl",
	Short: "Scout CLI - pest scouting session client",
	Long: `scoutctl is the command-line client for the Scout API. Use it to plan and
run scouting sessions, record observations, pull delta sync onto edge devices
and print weekly severity heatmaps.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if os.Getenv("SCOUT_NON_INTERACTIVE") == "1" {
			nonInteractive = true
		}
		if bearerToken == "" {
			bearerToken = os.Getenv("SCOUT_TOKEN")
		}

		provider := client.NewProvider(serverURL)
		provider.SetBearerToken(bearerToken)

		cmd.SetContext(config.InjectConfig(cmd.Context(), &config.GlobalConfig{
			ServerURL:      serverURL,
			NonInteractive: nonInteractive,
			OutputJSON:     outputJSON,
			ClientProvider: provider,
		}))
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Scout API server URL")
	rootCmd.PersistentFlags().StringVar(&bearerToken, "token", "", "Bearer token for this call (also set via SCOUT_TOKEN)")
	rootCmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false, "Disable interactive prompts (also set via SCOUT_NON_INTERACTIVE=1)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Print raw JSON instead of tables")
	rootCmd.AddCommand(auth.AuthCmd)
	rootCmd.AddCommand(session.SessionCmd)
	rootCmd.AddCommand(observation.ObservationCmd)
	rootCmd.AddCommand(photo.PhotoCmd)
	rootCmd.AddCommand(scoutsync.SyncCmd)
	rootCmd.AddCommand(heatmap.HeatmapCmd)
}
