package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"Go2NetEntropy/internal/cli"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	app := cli.NewApp()

	rootCmd := &cobra.Command{
		Use:   "ns-entropy",
		Short: "Information and entropy of link-layer symbol streams",
		Long: `ns-entropy classifies every frame of a traffic trace into a symbol
(direction, protocol) and reports the probability and self-information of
each symbol, the entropy of the trace and its running entropy. Derived
tables are cached per experiment under the output directory.`,
		SilenceUsage: true,
	}
	app.BindFlags(rootCmd)

	rootCmd.AddCommand(
		newAnalyzeCommand(app),
		newSniffCommand(app),
		newMergeCommand(app),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logrus.WithError(err).Error("Command failed")
		stop()
		os.Exit(1)
	}
}
