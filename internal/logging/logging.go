package logging

import (
	"fmt"
	"io"
	"time"

	"Go2NetEntropy/internal/config"

	"github.com/sirupsen/logrus"
)

// Setup configures the standard logrus logger from the log section of the config.
func Setup(cfg config.LogConfig, out io.Writer) error {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logrus.SetLevel(level)

	switch cfg.Format {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	case "text", "":
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	default:
		return fmt.Errorf("unsupported log format: %s", cfg.Format)
	}

	if out != nil {
		logrus.SetOutput(out)
	}
	return nil
}
