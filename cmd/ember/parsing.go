package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ember/internal/diag"
	"ember/internal/ir"
)

// loadModule reads and parses one .eir file, printing diagnostics to stderr.
// The returned source bytes feed the optimization cache key.
func loadModule(cmd *cobra.Command, path string) (*ir.Module, []byte, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}

	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}

	bag := diag.NewBag(maxDiagnostics)
	m := ir.ParseModule(path, src, bag)
	if bag.Len() > 0 {
		diag.Pretty(os.Stderr, bag, diag.PrettyOpts{Color: useColor(cmd, os.Stderr)})
	}
	if bag.HasErrors() {
		return nil, nil, fmt.Errorf("%s: %d parse error(s)", path, bag.Len())
	}
	return m, src, nil
}
