package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ember/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(_ *cobra.Command, _ []string) error {
		fmt.Printf("ember %s\n", version.Full())
		return nil
	},
}
