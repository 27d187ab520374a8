package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ember/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "ember",
	Short: "Ember middle-end optimizer",
	Long:  `Ember optimizes textual IR modules: construction elision, CFG cleanup, dead-value elimination`,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(optCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(printCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics to show")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal reports whether f is attached to a TTY.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func useColor(cmd *cobra.Command, f *os.File) bool {
	colorFlag, _ := cmd.Root().PersistentFlags().GetString("color")
	return colorFlag == "on" || (colorFlag == "auto" && isTerminal(f))
}
