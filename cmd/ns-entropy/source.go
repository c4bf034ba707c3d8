package main

import (
	"Go2NetEntropy/internal/capture/live"
	"Go2NetEntropy/internal/config"
	"Go2NetEntropy/internal/model"
	"Go2NetEntropy/internal/probe"
)

// newFrameSource returns the configured capture source: the remote probe when
// enabled, otherwise the local interface if one is set. It returns nil when
// neither is configured. The returned function releases the source.
func newFrameSource(cfg *config.Config) (model.FrameSource, func(), error) {
	switch {
	case cfg.Probe.Enabled:
		sub, err := probe.NewSubscriber(cfg.Probe)
		if err != nil {
			return nil, nil, err
		}
		return sub, sub.Close, nil
	case cfg.Capture.Interface != "":
		return live.NewSource(cfg.Capture), func() {}, nil
	default:
		return nil, func() {}, nil
	}
}
