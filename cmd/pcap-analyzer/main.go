package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"Go2NetEntropy/internal/cache"
	"Go2NetEntropy/internal/cli"
	"Go2NetEntropy/internal/experiment"
	"Go2NetEntropy/internal/model"
	"Go2NetEntropy/internal/report"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// pcap-analyzer analyzes capture files stored anywhere on disk. The
// experiment identity comes from each file name, e.g. LP_baseline.pcapng.
func main() {
	app := cli.NewApp()
	var force bool

	rootCmd := &cobra.Command{
		Use:          "pcap-analyzer FILE...",
		Short:        "Analyze capture files outside the data directory",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.Cache()
			if err != nil {
				return err
			}
			writers, err := report.Create(app.Config)
			if err != nil {
				return err
			}
			defer report.Close(writers)
			mode := cache.UseCacheIfPresent
			if force {
				mode = cache.ForceRecompute
			}

			for _, path := range args {
				id, err := model.ParseIdentity(path)
				if err != nil {
					return err
				}
				exp := experiment.New(id, app.Config.DataDir, c,
					experiment.WithTracePath(path), experiment.WithWriters(writers...))
				res, err := exp.Process(cmd.Context(), mode)
				if err != nil {
					return err
				}
				if err := report.Summary(cmd.OutOrStdout(), res.ID, res.Summary); err != nil {
					return err
				}
			}
			return nil
		},
	}
	app.BindFlags(rootCmd)
	rootCmd.Flags().BoolVarP(&force, "force", "f", false, "Recompute and replace previously cached tables")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logrus.WithError(err).Error("Analysis failed")
		stop()
		os.Exit(1)
	}
}
