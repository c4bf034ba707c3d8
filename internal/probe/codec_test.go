package probe

import (
	"net"
	"testing"
	"time"

	"Go2NetEntropy/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestFrameCodecRoundTrip(t *testing.T) {
	ts := time.Unix(1700000000, 123456789)
	frames := []model.Frame{
		{Dst: model.BroadcastAddr, EtherType: 0x0806, Timestamp: ts},
		{Dst: net.HardwareAddr{0, 1, 2, 3, 4, 5}, EtherType: 0x9999, Timestamp: time.Unix(-5, 0), Data: []byte{1, 2, 3}},
	}
	for _, f := range frames {
		got, err := UnmarshalFrame(MarshalFrame(f))
		require.NoError(t, err)
		assert.Equal(t, f.Dst, got.Dst)
		assert.Equal(t, f.EtherType, got.EtherType)
		assert.True(t, f.Timestamp.Equal(got.Timestamp))
		assert.Equal(t, f.Data, got.Data)
	}
}

func TestUnmarshalFrameSkipsUnknownFields(t *testing.T) {
	b := MarshalFrame(model.Frame{Dst: model.BroadcastAddr, EtherType: 0x0800, Timestamp: time.Unix(1, 0)})
	b = protowire.AppendTag(b, 15, protowire.BytesType)
	b = protowire.AppendString(b, "probe-7")

	got, err := UnmarshalFrame(b)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0800), got.EtherType)
}

func TestUnmarshalFrameRejectsGarbage(t *testing.T) {
	_, err := UnmarshalFrame([]byte{0x0a, 0x10, 0x01})
	assert.Error(t, err)

	_, err = UnmarshalFrame(nil)
	assert.Error(t, err)

	b := protowire.AppendTag(nil, fieldDst, protowire.BytesType)
	b = protowire.AppendBytes(b, model.BroadcastAddr)
	b = protowire.AppendTag(b, fieldEtherType, protowire.VarintType)
	b = protowire.AppendVarint(b, 0x10000)
	_, err = UnmarshalFrame(b)
	assert.Error(t, err)
}
