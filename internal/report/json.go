package report

import (
	"Go2NetEntropy/internal/config"
	"Go2NetEntropy/internal/model"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

func init() {
	RegisterWriter("json", func(cfg *config.Config) (model.Writer, error) {
		if !cfg.Report.JSON {
			return nil, nil
		}
		return NewJSONWriter(cfg.OutDir), nil
	})
}

// SymbolEntry is one symbol of a SummaryDocument.
type SymbolEntry struct {
	Symbol      string  `json:"symbol"`
	Direction   string  `json:"direction"`
	Protocol    string  `json:"protocol"`
	Count       int     `json:"count"`
	Probability float64 `json:"probability"`
	Information float64 `json:"information"`
}

// SummaryDocument is the JSON form of an experiment summary.
type SummaryDocument struct {
	Experiment string        `json:"experiment"`
	User       string        `json:"user"`
	Name       string        `json:"name"`
	Frames     int           `json:"frames"`
	Entropy    float64       `json:"entropy"`
	Symbols    []SymbolEntry `json:"symbols"`
	Timestamp  string        `json:"timestamp,omitempty"`
}

// NewSummaryDocument converts a summary, keeping the row order.
func NewSummaryDocument(id model.ExperimentIdentity, summary model.SymbolSummary) SummaryDocument {
	doc := SummaryDocument{
		Experiment: id.Key(),
		User:       id.User,
		Name:       id.Name,
		Frames:     summary.Total,
		Entropy:    summary.Entropy,
		Symbols:    make([]SymbolEntry, 0, len(summary.Rows)),
	}
	for _, row := range summary.Rows {
		doc.Symbols = append(doc.Symbols, SymbolEntry{
			Symbol:      row.Symbol.String(),
			Direction:   row.Symbol.Direction.String(),
			Protocol:    row.Symbol.Protocol,
			Count:       row.Count,
			Probability: row.Probability,
			Information: row.Information,
		})
	}
	return doc
}

// JSONWriter saves the summary of each experiment as JSON.
type JSONWriter struct {
	rootPath string
	now      func() time.Time
}

// NewJSONWriter creates a JSON writer storing files under rootPath.
func NewJSONWriter(rootPath string) *JSONWriter {
	return &JSONWriter{rootPath: rootPath, now: time.Now}
}

func (w *JSONWriter) Name() string { return "json" }

// Write implements model.Writer.
func (w *JSONWriter) Write(ctx context.Context, result model.Result) error {
	doc := NewSummaryDocument(result.ID, result.Summary)
	doc.Timestamp = w.now().UTC().Format(time.RFC3339)

	path := reportPath(w.rootPath, result.ID, "summary.json")
	err := writeFile(path, func(f io.Writer) error {
		jsonEncoder := json.NewEncoder(f)
		jsonEncoder.SetIndent("", "  ")
		if err := jsonEncoder.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode summary to json: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"experiment": result.ID.Key(), "path": path}).Info("Wrote JSON summary")
	return nil
}
