package main

import (
	"fmt"
	"math/rand"
	"net"
	"os"
	"path/filepath"
	"time"

	"Go2NetEntropy/internal/engine/protocol"
	"Go2NetEntropy/internal/model"
	"Go2NetEntropy/pkg/pcap"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// protocolMix weights the ethertypes of generated frames, roughly like an
// office LAN. LLC frames carry an 802.3 length instead of an ethertype.
var protocolMix = []struct {
	etherType layers.EthernetType
	weight    float64
}{
	{layers.EthernetTypeIPv4, 0.62},
	{layers.EthernetTypeIPv6, 0.18},
	{layers.EthernetTypeARP, 0.10},
	{layers.EthernetTypeLLC, 0.04},
	{layers.EthernetTypeLinkLayerDiscovery, 0.03},
	{layers.EthernetType(0x9999), 0.03},
}

var srcMAC = net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}

func main() {
	var (
		outDir    string
		count     int
		broadcast float64
		rate      float64
		seed      int64
	)

	cmd := &cobra.Command{
		Use:   "pcapgen USER NAME",
		Short: "Generate a synthetic Ethernet trace named {USER}_{NAME}.pcap",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if broadcast < 0 || broadcast > 1 {
				return fmt.Errorf("broadcast ratio must be within [0, 1], got %v", broadcast)
			}
			if rate <= 0 {
				return fmt.Errorf("rate must be positive, got %v", rate)
			}
			id, err := model.NewIdentity(args[0], args[1])
			if err != nil {
				return err
			}
			path := filepath.Join(outDir, id.Key()+".pcap")

			logrus.Infof("Generating %d frames into %s...", count, path)
			frames, err := generate(rand.New(rand.NewSource(seed)), count, broadcast, rate)
			if err != nil {
				return err
			}
			if err := pcap.WriteFrames(path, frames); err != nil {
				return err
			}
			logrus.Infof("Successfully generated %d frames into %s.", count, path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "./data", "Directory receiving the trace")
	cmd.Flags().IntVarP(&count, "count", "c", 1000, "Number of frames to generate")
	cmd.Flags().Float64Var(&broadcast, "broadcast", 0.08, "Share of frames sent to the broadcast address")
	cmd.Flags().Float64Var(&rate, "rate", 200, "Mean frames per second")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "Random seed")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func generate(r *rand.Rand, count int, broadcast, rate float64) ([]model.Frame, error) {
	frames := make([]model.Frame, 0, count)
	ts := time.Now().UTC()
	opts := gopacket.SerializeOptions{FixLengths: true}

	for i := 0; i < count; i++ {
		if (i+1)%100000 == 0 {
			logrus.Infof("Generated %d frames...", i+1)
		}

		dst := net.HardwareAddr{0x00, 0x66, 0x77, 0x88, 0x99, byte(r.Intn(256))}
		if r.Float64() < broadcast {
			dst = model.BroadcastAddr
		}
		eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dst, EthernetType: pickEtherType(r)}

		payload := make([]byte, r.Intn(400)+46)
		r.Read(payload)
		if eth.EthernetType == layers.EthernetTypeLLC {
			eth.Length = uint16(len(payload))
		}

		buf := gopacket.NewSerializeBuffer()
		if err := gopacket.SerializeLayers(buf, opts, eth, gopacket.Payload(payload)); err != nil {
			return nil, fmt.Errorf("failed to serialize frame %d: %w", i, err)
		}

		ts = ts.Add(time.Duration(r.ExpFloat64() / rate * float64(time.Second)))
		frame, ok := protocol.ParseFrame(buf.Bytes(), ts)
		if !ok {
			return nil, fmt.Errorf("frame %d does not decode as Ethernet", i)
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

func pickEtherType(r *rand.Rand) layers.EthernetType {
	x := r.Float64()
	for _, p := range protocolMix {
		if x < p.weight {
			return p.etherType
		}
		x -= p.weight
	}
	return protocolMix[0].etherType
}
