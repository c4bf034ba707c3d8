package pcap

import (
	"context"
	"encoding/binary"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"Go2NetEntropy/internal/model"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hostMAC = net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}

func ethernetFrame(t *testing.T, dst net.HardwareAddr, etherType layers.EthernetType, ts time.Time) model.Frame {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	eth := &layers.Ethernet{SrcMAC: hostMAC, DstMAC: dst, EthernetType: etherType}
	require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true}, eth, gopacket.Payload(make([]byte, 46))))
	return model.Frame{Dst: dst, EtherType: uint16(etherType), Timestamp: ts, Data: append([]byte(nil), buf.Bytes()...)}
}

func TestWriteThenReadFrames(t *testing.T) {
	start := time.Unix(1700000000, 0).UTC()
	frames := []model.Frame{
		ethernetFrame(t, model.BroadcastAddr, layers.EthernetTypeARP, start),
		ethernetFrame(t, hostMAC, layers.EthernetTypeIPv4, start.Add(10*time.Millisecond)),
		// No raw bytes: written as a bare header.
		{Dst: hostMAC, EtherType: 0x9999, Timestamp: start.Add(time.Second)},
	}

	path := filepath.Join(t.TempDir(), "traces", "LP_baseline.pcap")
	require.NoError(t, WriteFrames(path, frames))

	got, err := FileSource{Path: path}.Frames(context.Background())
	require.NoError(t, err)
	require.Len(t, got, len(frames))
	for i, f := range frames {
		assert.Equal(t, f.Dst, got[i].Dst, "frame %d", i)
		assert.Equal(t, f.EtherType, got[i].EtherType, "frame %d", i)
		assert.True(t, f.Timestamp.Equal(got[i].Timestamp), "frame %d", i)
	}
	assert.Len(t, got[2].Data, 14)
}

func TestReadPcapng(t *testing.T) {
	start := time.Unix(1700000000, 0).UTC()
	path := filepath.Join(t.TempDir(), "JB_busy.pcapng")
	f, err := os.Create(path)
	require.NoError(t, err)

	w, err := pcapgo.NewNgWriter(f, layers.LinkTypeEthernet)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		fr := ethernetFrame(t, hostMAC, layers.EthernetTypeIPv6, start.Add(time.Duration(i)*time.Second))
		require.NoError(t, w.WritePacket(gopacket.CaptureInfo{
			Timestamp:      fr.Timestamp,
			CaptureLength:  len(fr.Data),
			Length:         len(fr.Data),
			InterfaceIndex: 0,
		}, fr.Data))
	}
	require.NoError(t, w.Flush())
	require.NoError(t, f.Close())

	reader, err := NewReader(path)
	require.NoError(t, err)
	defer reader.Close()
	assert.Equal(t, layers.LinkTypeEthernet, reader.LinkType())

	got, err := reader.ReadFrames(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, uint16(layers.EthernetTypeIPv6), got[0].EtherType)
}

func TestReadSkipsFramesWithoutEthernet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeRaw))

	buf := gopacket.NewSerializeBuffer()
	ip := &layers.IPv4{Version: 4, TTL: 64, SrcIP: net.IP{10, 0, 0, 1}, DstIP: net.IP{10, 0, 0, 2}, Protocol: layers.IPProtocolUDP}
	require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true}, ip, gopacket.Payload([]byte{1, 2, 3})))
	require.NoError(t, w.WritePacket(gopacket.CaptureInfo{Timestamp: time.Now(), CaptureLength: len(buf.Bytes()), Length: len(buf.Bytes())}, buf.Bytes()))
	require.NoError(t, f.Close())

	got, err := FileSource{Path: path}.Frames(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

// writeOneFramePcap writes a valid single-frame capture and returns its path.
func writeOneFramePcap(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "LP_cut.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))
	fr := ethernetFrame(t, hostMAC, layers.EthernetTypeIPv4, time.Unix(1700000000, 0))
	require.NoError(t, w.WritePacket(gopacket.CaptureInfo{Timestamp: fr.Timestamp, CaptureLength: len(fr.Data), Length: len(fr.Data)}, fr.Data))
	require.NoError(t, f.Close())
	return path
}

func appendBytes(t *testing.T, path string, b []byte) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.Write(b)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestReadTruncatedRecordFails(t *testing.T) {
	path := writeOneFramePcap(t)
	// Half of the next record header.
	appendBytes(t, path, make([]byte, 8))

	got, err := FileSource{Path: path}.Frames(context.Background())
	require.Error(t, err)
	assert.Nil(t, got)
	assert.Contains(t, err.Error(), path)
}

func TestReadOversizedRecordFails(t *testing.T) {
	path := writeOneFramePcap(t)
	header := make([]byte, 16)
	binary.LittleEndian.PutUint32(header[0:], 1700000001)
	binary.LittleEndian.PutUint32(header[8:], 1<<20)
	binary.LittleEndian.PutUint32(header[12:], 1<<20)
	appendBytes(t, path, header)

	_, err := FileSource{Path: path}.Frames(context.Background())
	assert.Error(t, err)
}

func TestNewReaderMissingFile(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "nope.pcap"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
