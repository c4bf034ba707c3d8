package probe

import (
	"Go2NetEntropy/internal/config"
	"Go2NetEntropy/internal/model"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// Publisher is responsible for publishing captured frames to a NATS subject.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher creates a new NATS publisher.
func NewPublisher(cfg config.ProbeConfig) (*Publisher, error) {
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	logrus.WithField("url", cfg.NATSURL).Info("Connected to NATS server")
	return &Publisher{nc: nc, subject: cfg.Subject}, nil
}

// Publish encodes a frame and publishes it to the configured subject.
func (p *Publisher) Publish(frame model.Frame) error {
	return p.nc.Publish(p.subject, MarshalFrame(frame))
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		logrus.Info("NATS connection drained and closed.")
	}
}
