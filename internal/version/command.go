package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

// AttachCobraVersionCommand adds a `version` subcommand to the root command.
// Knowing which deploy tool build ran matters when reading old deployment
// records, so the full metadata is printed, not just the semantic version.
func AttachCobraVersionCommand(root *cobra.Command) {
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information.",
		Long: "Print the newsbot-deploy build metadata: semantic version, git commit, " +
			"and build timestamp. Release builds inject these through ldflags; local " +
			"builds fall back to placeholder values.",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), Full())
		},
	})
}
