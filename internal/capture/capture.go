package capture

import (
	"Go2NetEntropy/internal/engine/protocol"
	"Go2NetEntropy/internal/model"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/gopacket"
	"github.com/sirupsen/logrus"
)

const progressEvery = 10000

// ErrNoPacket is returned by sources whose read timed out before a packet
// arrived. Stream retries the read unless ctx is done.
var ErrNoPacket = errors.New("no packet available yet")

// Stream decodes packets from src and hands every Ethernet frame to fn, in
// arrival order, until src reports io.EOF or ctx is cancelled. Every packet
// read from src before the cancellation is delivered. Packets without an
// Ethernet layer are skipped. It returns the number of frames delivered and
// the first read error other than io.EOF.
func Stream(ctx context.Context, src gopacket.PacketDataSource, decoder gopacket.Decoder, fn func(model.Frame)) (int, error) {
	packetSource := gopacket.NewPacketSource(src, decoder)
	packetSource.DecodeOptions = gopacket.Lazy

	delivered, skipped := 0, 0
	defer func() {
		logrus.WithFields(logrus.Fields{"frames": delivered, "skipped": skipped}).Debug("Capture stream finished")
	}()

	for ctx.Err() == nil {
		packet, err := packetSource.NextPacket()
		switch {
		case err == io.EOF:
			return delivered, nil
		case errors.Is(err, ErrNoPacket):
			continue
		case err != nil:
			return delivered, fmt.Errorf("failed to read packet %d: %w", delivered+skipped+1, err)
		}

		frame, ok := protocol.FrameFromPacket(packet)
		if !ok {
			skipped++
			continue
		}
		fn(frame)
		delivered++
		if delivered%progressEvery == 0 {
			logrus.WithField("frames", delivered).Info("Capturing...")
		}
	}
	return delivered, nil
}

// Collect gathers the frames of Stream into a slice. Whatever was produced
// before cancellation is the complete trace. On a read error the frames read
// so far are returned with it.
func Collect(ctx context.Context, src gopacket.PacketDataSource, decoder gopacket.Decoder) ([]model.Frame, error) {
	frames := make([]model.Frame, 0)
	_, err := Stream(ctx, src, decoder, func(f model.Frame) {
		frames = append(frames, f)
	})
	return frames, err
}
