package main

import (
	"Go2NetEntropy/internal/cache"
	"Go2NetEntropy/internal/cli"
	"Go2NetEntropy/internal/experiment"
	"Go2NetEntropy/internal/model"
	"Go2NetEntropy/internal/report"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// defaultContexts are the measurement contexts compared by merge when none
// is given.
var defaultContexts = []string{"baseline", "comun", "boot", "busy"}

func modeOf(force bool) cache.Mode {
	if force {
		return cache.ForceRecompute
	}
	return cache.UseCacheIfPresent
}

func identityOf(args []string) (model.ExperimentIdentity, error) {
	return model.NewIdentity(args[0], args[1])
}

func newAnalyzeCommand(app *cli.App) *cobra.Command {
	var (
		force   bool
		all     bool
		capture bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [USER NAME]",
		Short: "Compute the symbol table and running entropy of experiments",
		Long: `Analyze one experiment, identified by USER and NAME, or with --all every
raw trace found in the data directory. Cached tables are reused unless
--force is given.`,
		Example: `  ns-entropy analyze LP baseline
  ns-entropy analyze --all --force --workers 4`,
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var id model.ExperimentIdentity
			if !all {
				var err error
				if id, err = identityOf(args); err != nil {
					return err
				}
			}

			cfg := app.Config
			c, err := app.Cache()
			if err != nil {
				return err
			}
			writers, err := report.Create(cfg)
			if err != nil {
				return err
			}
			defer report.Close(writers)
			out := cmd.OutOrStdout()

			if all {
				results, runErr := experiment.RunAll(cmd.Context(), experiment.Batch{
					DataDir:    cfg.DataDir,
					Pattern:    cfg.Batch.Pattern,
					NumWorkers: cfg.Batch.NumWorkers,
					Cache:      c,
					Writers:    writers,
				}, modeOf(force))
				for _, res := range results {
					if err := report.Summary(out, res.ID, res.Summary); err != nil {
						return err
					}
				}
				return runErr
			}

			opts := []experiment.Option{experiment.WithWriters(writers...)}
			if capture {
				src, release, err := newFrameSource(cfg)
				if err != nil {
					return err
				}
				defer release()
				if src != nil {
					opts = append(opts, experiment.WithSource(src))
				}
			}

			res, err := experiment.New(id, cfg.DataDir, c, opts...).Process(cmd.Context(), modeOf(force))
			if err != nil {
				return err
			}
			return report.Summary(out, res.ID, res.Summary)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Recompute and replace previously cached tables")
	cmd.Flags().BoolVar(&all, "all", false, "Analyze every raw trace in the data directory")
	cmd.Flags().BoolVar(&capture, "capture", false, "Capture from the configured source when no raw trace is stored")
	cmd.Flags().String("pattern", "", "Glob selecting raw traces for --all (default from config)")
	cmd.Flags().Int("workers", 0, "Experiments processed concurrently with --all (default from config)")
	app.Viper().BindPFlag("batch.pattern", cmd.Flags().Lookup("pattern"))
	app.Viper().BindPFlag("batch.num_workers", cmd.Flags().Lookup("workers"))
	return cmd
}

func newSniffCommand(app *cli.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sniff USER NAME",
		Short: "Capture a new trace until interrupted, then analyze it",
		Long: `Capture frames from the configured interface, or from remote probes when
probe.enabled is set, until SIGINT or SIGTERM. The trace is saved to the data
directory and every table is recomputed from it.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := identityOf(args)
			if err != nil {
				return err
			}

			cfg := app.Config
			c, err := app.Cache()
			if err != nil {
				return err
			}
			writers, err := report.Create(cfg)
			if err != nil {
				return err
			}
			defer report.Close(writers)
			src, release, err := newFrameSource(cfg)
			if err != nil {
				return err
			}
			defer release()
			if src == nil {
				return errors.New("no capture source: set capture.interface or enable the probe")
			}

			exp := experiment.New(id, cfg.DataDir, c,
				experiment.WithSource(src), experiment.WithWriters(writers...))
			res, err := exp.Sniff(cmd.Context())
			if err != nil {
				return err
			}
			return report.Summary(cmd.OutOrStdout(), res.ID, res.Summary)
		},
	}
	cmd.Flags().String("iface", "", "Interface to capture from (default from config)")
	app.Viper().BindPFlag("capture.interface", cmd.Flags().Lookup("iface"))
	return cmd
}

func newMergeCommand(app *cli.App) *cobra.Command {
	return &cobra.Command{
		Use:   "merge [CONTEXT...]",
		Short: "Compare cached experiments that share a measurement context",
		Long: `Group cached experiments whose name matches each CONTEXT pattern and
write a comparison of their symbol information and entropy series to
{out_dir}/merge_{CONTEXT}.md. Without arguments the contexts baseline,
comun, boot and busy are compared.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config
			contexts := args
			if len(contexts) == 0 {
				contexts = defaultContexts
			}

			c, err := app.Cache()
			if err != nil {
				return err
			}
			results, loadErr := loadCached(cmd, app, c)
			if loadErr != nil {
				logrus.WithError(loadErr).Warn("Some experiments could not be loaded")
			}

			for _, name := range contexts {
				cmp, err := experiment.Merge(results, name)
				if err != nil {
					return err
				}
				path := filepath.Join(cfg.OutDir, fmt.Sprintf("merge_%s.md", name))
				if err := writeComparison(path, cmp); err != nil {
					return err
				}
				logrus.WithFields(logrus.Fields{
					"context":     name,
					"experiments": len(cmp.Experiments),
					"path":        path,
				}).Info("Wrote comparison")
			}
			return nil
		},
	}
}

// loadCached processes every experiment present in the cache, reading its
// tables and falling back to the raw trace for missing ones.
func loadCached(cmd *cobra.Command, app *cli.App, c *cache.Cache) ([]*model.Result, error) {
	keys, err := c.Experiments()
	if err != nil {
		return nil, err
	}

	var (
		results []*model.Result
		errs    []error
	)
	for _, key := range keys {
		id, err := model.ParseKey(key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		res, err := experiment.New(id, app.Config.DataDir, c).Process(cmd.Context(), cache.UseCacheIfPresent)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

func writeComparison(path string, cmp experiment.Comparison) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create comparison file '%s': %w", path, err)
	}
	defer file.Close()
	if err := report.WriteComparison(file, cmp); err != nil {
		return err
	}
	return file.Close()
}
