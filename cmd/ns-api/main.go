package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"Go2NetEntropy/internal/api"
	"Go2NetEntropy/internal/cli"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	app := cli.NewApp()

	rootCmd := &cobra.Command{
		Use:          "ns-api",
		Short:        "Serve cached experiment tables over HTTP",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.Cache()
			if err != nil {
				return err
			}
			return api.Serve(cmd.Context(), app.Config.API.ListenAddr, api.NewHandler(c).Router())
		},
	}
	app.BindFlags(rootCmd)
	rootCmd.Flags().String("listen", "", "Listen address (default from config)")
	app.Viper().BindPFlag("api.listen_addr", rootCmd.Flags().Lookup("listen"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logrus.WithError(err).Error("API server failed")
		stop()
		os.Exit(1)
	}
}
