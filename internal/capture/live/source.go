package live

import (
	"Go2NetEntropy/internal/capture"
	"Go2NetEntropy/internal/config"
	"Go2NetEntropy/internal/model"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
	"github.com/sirupsen/logrus"
)

// readTimeout bounds how long a read blocks before ctx is checked again.
const readTimeout = 500 * time.Millisecond

// Source captures frames from a network interface until its context is cancelled.
type Source struct {
	cfg config.CaptureConfig
}

// NewSource creates a live capture source for the configured interface.
func NewSource(cfg config.CaptureConfig) *Source {
	return &Source{cfg: cfg}
}

func (s *Source) open() (*pcap.Handle, error) {
	if s.cfg.Interface == "" {
		return nil, errors.New("no capture interface configured")
	}
	handle, err := pcap.OpenLive(s.cfg.Interface, s.cfg.SnapshotLen, s.cfg.Promiscuous, readTimeout)
	if err != nil {
		return nil, fmt.Errorf("error opening device %s: %w", s.cfg.Interface, err)
	}
	if s.cfg.BPFFilter != "" {
		if err := handle.SetBPFFilter(s.cfg.BPFFilter); err != nil {
			handle.Close()
			return nil, fmt.Errorf("invalid BPF filter %q: %w", s.cfg.BPFFilter, err)
		}
	}
	return handle, nil
}

// handleSource reports read timeouts of a live handle as capture.ErrNoPacket.
type handleSource struct {
	*pcap.Handle
}

func (h handleSource) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	data, ci, err := h.Handle.ReadPacketData()
	if err == pcap.NextErrorTimeoutExpired {
		err = capture.ErrNoPacket
	}
	return data, ci, err
}

// Frames implements model.FrameSource.
func (s *Source) Frames(ctx context.Context) ([]model.Frame, error) {
	handle, err := s.open()
	if err != nil {
		return nil, err
	}
	defer handle.Close()

	logrus.WithField("iface", s.cfg.Interface).Info("Capture started, interrupt to stop")
	frames, err := capture.Collect(ctx, handleSource{handle}, handle.LinkType())
	if err != nil {
		return nil, fmt.Errorf("capture on %s failed after %d frames: %w", s.cfg.Interface, len(frames), err)
	}
	logrus.WithFields(logrus.Fields{"iface": s.cfg.Interface, "frames": len(frames)}).Info("Capture stopped")
	return frames, nil
}

// Stream captures frames and hands each one to fn until ctx is cancelled.
func (s *Source) Stream(ctx context.Context, fn func(model.Frame)) error {
	handle, err := s.open()
	if err != nil {
		return err
	}
	defer handle.Close()

	if _, err := capture.Stream(ctx, handleSource{handle}, handle.LinkType(), fn); err != nil {
		return fmt.Errorf("capture on %s failed: %w", s.cfg.Interface, err)
	}
	return nil
}
