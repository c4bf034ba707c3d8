package probe

import (
	"Go2NetEntropy/internal/config"
	"Go2NetEntropy/internal/model"
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const subscriberBuffer = 8192

// Subscriber collects frames published by remote probes. It implements
// model.FrameSource, so a remote probe can stand in for a local capture.
type Subscriber struct {
	nc      *nats.Conn
	subject string
}

// NewSubscriber creates a new NATS subscriber.
func NewSubscriber(cfg config.ProbeConfig) (*Subscriber, error) {
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	logrus.WithField("url", cfg.NATSURL).Info("Connected to NATS server")
	return &Subscriber{nc: nc, subject: cfg.Subject}, nil
}

// Frames receives frames in arrival order until ctx is cancelled.
func (s *Subscriber) Frames(ctx context.Context) ([]model.Frame, error) {
	frames := make([]model.Frame, 0)
	err := s.Stream(ctx, func(f model.Frame) {
		frames = append(frames, f)
	})
	if err != nil {
		return nil, err
	}
	return frames, nil
}

// Stream hands every received frame to fn, in arrival order, until ctx is
// cancelled.
func (s *Subscriber) Stream(ctx context.Context, fn func(model.Frame)) error {
	msgs := make(chan *nats.Msg, subscriberBuffer)
	sub, err := s.nc.ChanSubscribe(s.subject, msgs)
	if err != nil {
		return fmt.Errorf("failed to subscribe to '%s': %w", s.subject, err)
	}
	logrus.WithField("subject", s.subject).Info("Subscribed, waiting for frames. Interrupt to stop")

	deliver := func(msg *nats.Msg) {
		frame, err := UnmarshalFrame(msg.Data)
		if err != nil {
			logrus.WithError(err).Warn("Dropping undecodable frame")
			return
		}
		fn(frame)
	}

	for {
		select {
		case msg := <-msgs:
			deliver(msg)
		case <-ctx.Done():
			if err := sub.Unsubscribe(); err != nil {
				logrus.WithError(err).Warn("Failed to unsubscribe")
			}
			// Frames already delivered are complete and belong to the trace.
			for {
				select {
				case msg := <-msgs:
					deliver(msg)
				default:
					return nil
				}
			}
		}
	}
}

// Close closes the NATS connection.
func (s *Subscriber) Close() {
	if s.nc != nil {
		s.nc.Close()
		logrus.Info("NATS connection closed.")
	}
}
