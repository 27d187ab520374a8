package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ember/internal/diag"
	"ember/internal/ir"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [flags] file.eir...",
	Short: "Parse and validate IR modules",
	Long:  `Verify parses textual IR modules and checks the graph invariants without transforming anything`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}

	// Each file gets its own bag; the merged bag is reported once, sorted.
	total := diag.NewBag(maxDiagnostics)
	ok := 0
	for _, path := range args {
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		bag := diag.NewBag(maxDiagnostics)
		m := ir.ParseModule(path, src, bag)
		if !bag.HasErrors() {
			if err := ir.Validate(m); err != nil {
				bag.Error(diag.CodeVerify, diag.Pos{File: path}, err.Error())
			} else {
				ok++
				fmt.Printf("%s: ok (%d function(s))\n", path, len(m.Funcs))
			}
		}
		total.Merge(bag)
	}

	if total.Len() > 0 {
		diag.Pretty(os.Stderr, total, diag.PrettyOpts{Color: useColor(cmd, os.Stderr)})
	}
	if total.HasErrors() {
		return fmt.Errorf("%d of %d file(s) invalid", len(args)-ok, len(args))
	}
	return nil
}
