package report

import (
	"Go2NetEntropy/internal/config"
	"Go2NetEntropy/internal/model"
	"fmt"
	"io"
	"sort"

	"github.com/sirupsen/logrus"
)

// WriterFactory builds a report writer from the configuration. It returns a
// nil writer when the report is disabled.
type WriterFactory func(cfg *config.Config) (model.Writer, error)

// registry holds the mapping of report names to their factory functions.
var registry = make(map[string]WriterFactory)

// RegisterWriter registers a new report type with its factory function.
func RegisterWriter(name string, factory WriterFactory) {
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("report writer '%s' already registered", name))
	}
	registry[name] = factory
}

// Create builds every report writer enabled in cfg, in name order.
func Create(cfg *config.Config) ([]model.Writer, error) {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)

	var writers []model.Writer
	for _, name := range names {
		w, err := registry[name](cfg)
		if err != nil {
			Close(writers)
			return nil, fmt.Errorf("error creating report writer '%s': %w", name, err)
		}
		if w == nil {
			continue
		}
		logrus.WithField("writer", name).Debug("Report writer enabled")
		writers = append(writers, w)
	}
	return writers, nil
}

// Close releases the writers that hold resources, such as database
// connections. Failures are logged.
func Close(writers []model.Writer) {
	for _, w := range writers {
		c, ok := w.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			logrus.WithError(err).WithField("writer", w.Name()).Warn("Failed to close report writer")
		}
	}
}
