package protocol

import (
	"Go2NetEntropy/internal/model"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// FrameFromPacket extracts the link-layer fields of a decoded packet.
// Packets without an Ethernet layer are reported with ok == false and must be skipped.
func FrameFromPacket(packet gopacket.Packet) (model.Frame, bool) {
	l := packet.Layer(layers.LayerTypeEthernet)
	if l == nil {
		return model.Frame{}, false
	}
	eth := l.(*layers.Ethernet)

	frame := model.Frame{
		Dst:       eth.DstMAC,
		EtherType: uint16(eth.EthernetType),
		Data:      packet.Data(),
	}
	if meta := packet.Metadata(); meta != nil {
		frame.Timestamp = meta.Timestamp
	}
	return frame, true
}

// ParseFrame decodes raw Ethernet bytes captured at ts.
func ParseFrame(data []byte, ts time.Time) (model.Frame, bool) {
	packet := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
	frame, ok := FrameFromPacket(packet)
	if ok {
		frame.Timestamp = ts
	}
	return frame, ok
}

// Classify maps a frame to its symbol and its offset from the start of the trace.
func Classify(frame model.Frame, firstTimestamp time.Time) model.PacketRecord {
	return model.PacketRecord{
		Symbol: model.Symbol{
			Direction: model.DirectionOf(frame.Dst),
			Protocol:  ProtocolLabel(frame.EtherType),
		},
		RelativeTime: frame.Timestamp.Sub(firstTimestamp),
	}
}

// ClassifyFrames classifies a whole capture, keeping arrival order.
func ClassifyFrames(frames []model.Frame) model.Trace {
	if len(frames) == 0 {
		return model.Trace{}
	}
	first := frames[0].Timestamp
	trace := make(model.Trace, len(frames))
	for i, f := range frames {
		trace[i] = Classify(f, first)
	}
	return trace
}
