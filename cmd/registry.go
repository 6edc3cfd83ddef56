package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/pkg/platforms"
)

var (
	registryGDrive bool
	registryJSON   bool
)

var registryCmd = &cobra.Command{
	Use:       "registry [hivemind|community]",
	Short:     "Print the platform tabs of a settings screen",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{platforms.ContextHivemind, platforms.ContextCommunity},
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := platforms.ForContext(args[0], registryGDrive)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if registryJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(registry.Tabs())
		}

		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "INDEX\tLABEL\tPLATFORM\tENABLED\tCOMING SOON")
		for _, tab := range registry.Tabs() {
			fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%t\n", tab.Index, tab.Label, tab.Platform, tab.Enabled, tab.ComingSoon)
		}
		return w.Flush()
	},
}

func init() {
	registryCmd.Flags().BoolVar(&registryGDrive, "gdrive", false, "treat the Google Drive tab as enabled")
	registryCmd.Flags().BoolVar(&registryJSON, "json", false, "print JSON instead of a table")
}
