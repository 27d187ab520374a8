package main

import (
	"os"

	"github.com/spf13/cobra"

	"ember/internal/ir"
)

var printCmd = &cobra.Command{
	Use:   "print [flags] file.eir",
	Short: "Parse and pretty-print an IR module",
	Long:  `Print round-trips a textual IR module through the parser and printer without transforming it`,
	Args:  cobra.ExactArgs(1),
	RunE:  runPrint,
}

func runPrint(cmd *cobra.Command, args []string) error {
	m, _, err := loadModule(cmd, args[0])
	if err != nil {
		return err
	}
	return ir.DumpModule(os.Stdout, m)
}
