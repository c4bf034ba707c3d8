package probe

import (
	"Go2NetEntropy/internal/model"
	"fmt"
	"net"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the frame message:
//
//	message Frame {
//	  bytes  dst        = 1;
//	  uint32 ether_type = 2;
//	  sint64 unix_nanos = 3;
//	  bytes  data       = 4;
//	}
const (
	fieldDst       protowire.Number = 1
	fieldEtherType protowire.Number = 2
	fieldTimestamp protowire.Number = 3
	fieldData      protowire.Number = 4
)

// MarshalFrame encodes a frame in protobuf wire format.
func MarshalFrame(f model.Frame) []byte {
	b := make([]byte, 0, 32+len(f.Data))
	b = protowire.AppendTag(b, fieldDst, protowire.BytesType)
	b = protowire.AppendBytes(b, f.Dst)
	b = protowire.AppendTag(b, fieldEtherType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(f.EtherType))
	b = protowire.AppendTag(b, fieldTimestamp, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(f.Timestamp.UnixNano()))
	if len(f.Data) > 0 {
		b = protowire.AppendTag(b, fieldData, protowire.BytesType)
		b = protowire.AppendBytes(b, f.Data)
	}
	return b
}

// UnmarshalFrame decodes a frame produced by MarshalFrame. Unknown fields are skipped.
func UnmarshalFrame(b []byte) (model.Frame, error) {
	var f model.Frame
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return model.Frame{}, protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case num == fieldDst && typ == protowire.BytesType:
			var v []byte
			v, n = protowire.ConsumeBytes(b)
			f.Dst = append(net.HardwareAddr(nil), v...)
		case num == fieldEtherType && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(b)
			if n >= 0 && v > 0xffff {
				return model.Frame{}, fmt.Errorf("ether type %d out of range", v)
			}
			f.EtherType = uint16(v)
		case num == fieldTimestamp && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(b)
			f.Timestamp = time.Unix(0, protowire.DecodeZigZag(v))
		case num == fieldData && typ == protowire.BytesType:
			var v []byte
			v, n = protowire.ConsumeBytes(b)
			f.Data = append([]byte(nil), v...)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return model.Frame{}, protowire.ParseError(n)
		}
		b = b[n:]
	}
	if len(f.Dst) == 0 {
		return model.Frame{}, fmt.Errorf("frame has no destination address")
	}
	return f, nil
}
