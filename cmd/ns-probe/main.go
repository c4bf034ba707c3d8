package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Go2NetEntropy/internal/capture/live"
	"Go2NetEntropy/internal/cli"
	"Go2NetEntropy/internal/engine/protocol"
	"Go2NetEntropy/internal/engine/statistic"
	"Go2NetEntropy/internal/model"
	"Go2NetEntropy/internal/probe"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const progressEvery = 1000

func main() {
	app := cli.NewApp()

	rootCmd := &cobra.Command{
		Use:          "ns-probe",
		Short:        "Publish captured frames to NATS, or watch the frames other probes publish",
		SilenceUsage: true,
	}
	app.BindFlags(rootCmd)
	rootCmd.PersistentFlags().String("nats-url", "", "NATS server URL (default from config)")
	rootCmd.PersistentFlags().String("subject", "", "NATS subject carrying frames (default from config)")
	app.Viper().BindPFlag("probe.nats_url", rootCmd.PersistentFlags().Lookup("nats-url"))
	app.Viper().BindPFlag("probe.subject", rootCmd.PersistentFlags().Lookup("subject"))

	rootCmd.AddCommand(newPublishCommand(app), newSubscribeCommand(app))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logrus.WithError(err).Error("Command failed")
		stop()
		os.Exit(1)
	}
}

// newPublishCommand captures on a local interface and publishes every
// Ethernet frame until interrupted.
func newPublishCommand(app *cli.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Capture frames on an interface and publish them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config
			pub, err := probe.NewPublisher(cfg.Probe)
			if err != nil {
				return err
			}
			defer pub.Close()

			logrus.WithField("iface", cfg.Capture.Interface).Info("Starting ns-probe in PUBLISH mode")
			published := 0
			err = live.NewSource(cfg.Capture).Stream(cmd.Context(), func(f model.Frame) {
				if err := pub.Publish(f); err != nil {
					logrus.WithError(err).Warn("Failed to publish frame")
					return
				}
				published++
				if published%progressEvery == 0 {
					logrus.Debugf("%d frames published...", published)
				}
			})
			logrus.WithField("frames", published).Info("Shutdown signal received, cleaning up...")
			return err
		},
	}
	cmd.Flags().String("iface", "", "Interface to capture from (default from config)")
	app.Viper().BindPFlag("capture.interface", cmd.Flags().Lookup("iface"))
	return cmd
}

// newSubscribeCommand prints every received frame with the entropy of the
// stream so far.
func newSubscribeCommand(app *cli.App) *cobra.Command {
	return &cobra.Command{
		Use:   "subscribe",
		Short: "Watch the symbols and running entropy of the frames published by probes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, err := probe.NewSubscriber(app.Config.Probe)
			if err != nil {
				return err
			}
			defer sub.Close()

			logrus.Info("Starting ns-probe in SUBSCRIBE mode...")
			var first time.Time
			st := statistic.NewRunningState()
			err = sub.Stream(cmd.Context(), func(f model.Frame) {
				if st.N() == 0 {
					first = f.Timestamp
				}
				rec := protocol.Classify(f, first)
				row := st.Step(rec.Symbol)
				cmd.Printf("%8d %12s %-24s H=%.6f\n", st.N(), rec.RelativeTime, rec.Symbol, row.Entropy)
			})
			logrus.WithFields(logrus.Fields{"frames": st.N(), "entropy": st.Entropy()}).Info("Subscription closed")
			return err
		},
	}
}
