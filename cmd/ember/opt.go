package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ember/internal/driver"
	"ember/internal/ir"
	"ember/internal/opt"
	"ember/internal/project"
)

var optCmd = &cobra.Command{
	Use:   "opt [flags] file.eir",
	Short: "Optimize an IR module",
	Long:  `Opt parses a textual IR module, runs the pass pipeline over every function and prints the result`,
	Args:  cobra.ExactArgs(1),
	RunE:  runOpt,
}

func init() {
	optCmd.Flags().StringP("output", "o", "", "write result to file instead of stdout")
	optCmd.Flags().StringSlice("passes", nil, "comma-separated pass list (default: pipeline from ember.toml or built-in)")
	optCmd.Flags().Int("jobs", 0, "max functions optimized in parallel (0 = all CPUs)")
	optCmd.Flags().Bool("no-cache", false, "bypass the on-disk result cache")
	optCmd.Flags().Bool("verify", false, "re-validate every function graph after the pipeline")
}

func runOpt(cmd *cobra.Command, args []string) error {
	path := args[0]

	cfg := resolveOptConfig(cmd, path)
	passes, err := resolvePasses(cfg.Passes)
	if err != nil {
		return err
	}
	names := make([]string, len(passes))
	for i, p := range passes {
		names[i] = p.Name
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var cache *driver.DiskCache
	key := driver.CacheKey(src, names)
	if cfg.Cache {
		cache, err = driver.OpenDiskCache("ember")
		if err != nil {
			// The cache is an accelerator; a broken cache dir must not
			// fail the run.
			fmt.Fprintf(os.Stderr, "warning: disk cache unavailable: %v\n", err)
		}
		var hit driver.CachePayload
		if ok, err := cache.Get(key, &hit); err == nil && ok {
			return writeOutput(cmd, hit.Output)
		}
	}

	m, _, err := loadModule(cmd, path)
	if err != nil {
		return err
	}

	_, err = driver.Optimize(cmd.Context(), m, driver.Options{
		Passes: passes,
		Jobs:   cfg.Jobs,
		Verify: cfg.Verify,
	})
	if err != nil {
		return fmt.Errorf("optimization failed: %w", err)
	}

	var out strings.Builder
	if err := ir.DumpModule(&out, m); err != nil {
		return err
	}

	if cfg.Cache {
		if err := cache.Put(key, &driver.CachePayload{PassNames: names, Output: out.String()}); err != nil {
			fmt.Fprintf(os.Stderr, "warning: cache write failed: %v\n", err)
		}
	}
	return writeOutput(cmd, out.String())
}

// resolveOptConfig layers CLI flags over the nearest ember.toml (if any).
func resolveOptConfig(cmd *cobra.Command, inputPath string) project.OptConfig {
	cfg := project.DefaultManifest().Opt
	if manifest, _, err := project.FindManifest(filepath.Dir(inputPath)); err == nil {
		cfg = manifest.Opt
	} else if !errors.Is(err, project.ErrManifestNotFound) {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	if passes, _ := cmd.Flags().GetStringSlice("passes"); len(passes) > 0 {
		cfg.Passes = passes
	}
	if cmd.Flags().Changed("jobs") {
		cfg.Jobs, _ = cmd.Flags().GetInt("jobs")
	}
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		cfg.Cache = false
	}
	if verify, _ := cmd.Flags().GetBool("verify"); verify {
		cfg.Verify = true
	}
	return cfg
}

func resolvePasses(names []string) ([]opt.Pass, error) {
	if len(names) == 0 {
		return opt.DefaultPipeline(), nil
	}
	passes := make([]opt.Pass, 0, len(names))
	for _, name := range names {
		p, err := opt.Lookup(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		passes = append(passes, p)
	}
	return passes, nil
}

func writeOutput(cmd *cobra.Command, text string) error {
	outPath, _ := cmd.Flags().GetString("output")
	if outPath == "" {
		_, err := fmt.Print(text)
		return err
	}
	return os.WriteFile(outPath, []byte(text), 0o644)
}
