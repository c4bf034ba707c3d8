package pcap

import (
	"Go2NetEntropy/internal/model"
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

const defaultSnapLen = 65536

// WriteFrames saves frames as an Ethernet pcap file at filePath, replacing
// any previous file. Frames that carry no raw bytes are written as a bare
// Ethernet header so that they classify the same way when read back.
func WriteFrames(filePath string, frames []model.Frame) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create trace directory: %w", err)
	}
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create pcap file '%s': %w", filePath, err)
	}
	defer file.Close()

	bw := bufio.NewWriter(file)
	pcapWriter := pcapgo.NewWriter(bw)
	if err := pcapWriter.WriteFileHeader(defaultSnapLen, layers.LinkTypeEthernet); err != nil {
		return fmt.Errorf("failed to write pcap header: %w", err)
	}

	for i, f := range frames {
		data := f.Data
		if len(data) == 0 {
			data = headerOnly(f)
		}
		ci := gopacket.CaptureInfo{
			Timestamp:     f.Timestamp,
			CaptureLength: len(data),
			Length:        len(data),
		}
		if err := pcapWriter.WritePacket(ci, data); err != nil {
			return fmt.Errorf("failed to write frame %d: %w", i, err)
		}
	}

	if err := bw.Flush(); err != nil {
		return err
	}
	return file.Close()
}

func headerOnly(f model.Frame) []byte {
	data := make([]byte, 14)
	copy(data[0:6], f.Dst)
	binary.BigEndian.PutUint16(data[12:14], f.EtherType)
	return data
}
