package pcap

import (
	"Go2NetEntropy/internal/capture"
	"Go2NetEntropy/internal/model"
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

var pcapngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

// Reader reads frames from a pcap or pcapng file.
type Reader struct {
	file     *os.File
	source   gopacket.PacketDataSource
	linkType layers.LinkType
}

// NewReader opens the capture file at filePath. The format is detected from
// the leading magic number.
func NewReader(filePath string) (*Reader, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReader(file)
	magic, err := br.Peek(len(pcapngMagic))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to read capture header of '%s': %w", filePath, err)
	}

	r := &Reader{file: file}
	if bytes.Equal(magic, pcapngMagic) {
		ng, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to open pcapng file '%s': %w", filePath, err)
		}
		r.source, r.linkType = ng, ng.LinkType()
	} else {
		pr, err := pcapgo.NewReader(br)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to open pcap file '%s': %w", filePath, err)
		}
		r.source, r.linkType = pr, pr.LinkType()
	}
	return r, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// LinkType returns the link type declared by the file.
func (r *Reader) LinkType() layers.LinkType {
	return r.linkType
}

// ReadFrames reads every frame of the file into memory, in file order. A
// truncated or corrupt record fails the whole read.
func (r *Reader) ReadFrames(ctx context.Context) ([]model.Frame, error) {
	frames, err := capture.Collect(ctx, r.source, r.linkType)
	if err != nil {
		return nil, fmt.Errorf("failed to read '%s': %w", r.file.Name(), err)
	}
	return frames, nil
}

// FileSource is a model.FrameSource backed by a stored capture file.
type FileSource struct {
	Path string
}

// Frames implements model.FrameSource.
func (s FileSource) Frames(ctx context.Context) ([]model.Frame, error) {
	reader, err := NewReader(s.Path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return reader.ReadFrames(ctx)
}
