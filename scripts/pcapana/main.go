package main

import (
	"context"
	"fmt"
	"os"

	"Go2NetEntropy/internal/engine/protocol"
	"Go2NetEntropy/pkg/pcap"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	var limit int

	cmd := &cobra.Command{
		Use:   "pcapana FILE",
		Short: "Print the symbol of every frame of a capture file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			frames, err := pcap.FileSource{Path: args[0]}.Frames(context.Background())
			if err != nil {
				return err
			}

			trace := protocol.ClassifyFrames(frames)
			for i, rec := range trace {
				if limit > 0 && i >= limit {
					break
				}
				f := frames[i]
				fmt.Printf("[%5d] +%-14s dst=%s type=0x%04x %s\n", i+1, rec.RelativeTime, f.Dst, f.EtherType, rec.Symbol)
			}
			fmt.Printf("Total Ethernet frames: %d\n", len(trace))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Print at most this many frames (0 prints all)")

	if err := cmd.Execute(); err != nil {
		logrus.WithError(err).Error("pcapana failed")
		os.Exit(1)
	}
}
