package main

import (
	"fmt"
	"os"

	"Go2NetEntropy/internal/cache"
	"Go2NetEntropy/internal/model"
	"Go2NetEntropy/internal/report"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	var (
		outDir      string
		compression string
	)

	cmd := &cobra.Command{
		Use:       "cachedump KEY trace|symbols|running",
		Short:     "Decode and print one cached artifact",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(model.KindTrace), string(model.KindSymbols), string(model.KindRunning)},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := model.ParseKey(args[0])
			if err != nil {
				return err
			}
			c, err := cache.New(outDir, compression)
			if err != nil {
				return err
			}
			fmt.Printf("# %s\n", c.Path(id, model.ArtifactKind(args[1])))

			switch model.ArtifactKind(args[1]) {
			case model.KindTrace:
				trace, err := cache.Load(c, id, model.KindTrace, cache.TraceCodec{})
				if err != nil {
					return err
				}
				for i, rec := range trace {
					fmt.Printf("%d\t%s\t%s\n", i, rec.RelativeTime, rec.Symbol)
				}
			case model.KindSymbols:
				summary, err := cache.Load(c, id, model.KindSymbols, cache.SummaryCodec{})
				if err != nil {
					return err
				}
				return report.Summary(os.Stdout, id, summary)
			case model.KindRunning:
				running, err := cache.Load(c, id, model.KindRunning, cache.RunningCodec{})
				if err != nil {
					return err
				}
				fmt.Printf("alphabet: %v\n", running.Alphabet)
				for i, row := range running.Rows {
					fmt.Printf("%d\t%.6f\t%v\n", i+1, row.Entropy, row.Counts)
				}
			default:
				return fmt.Errorf("unknown artifact kind %q", args[1])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "./out", "Cache directory")
	cmd.Flags().StringVar(&compression, "compression", "gzip", "Cache compression (gzip, xz)")

	if err := cmd.Execute(); err != nil {
		logrus.WithError(err).Error("cachedump failed")
		os.Exit(1)
	}
}
