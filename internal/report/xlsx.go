package report

import (
	"Go2NetEntropy/internal/config"
	"Go2NetEntropy/internal/model"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

const (
	symbolsSheet = "symbols"
	runningSheet = "running"
)

func init() {
	RegisterWriter("xlsx", func(cfg *config.Config) (model.Writer, error) {
		if !cfg.Report.XLSX {
			return nil, nil
		}
		return NewXLSXWriter(cfg.OutDir), nil
	})
}

// WriteXLSX saves a workbook with the symbol table and the running series of
// one experiment, each with a chart: information per symbol and H(n).
func WriteXLSX(path string, result model.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", symbolsSheet); err != nil {
		return err
	}
	if err := writeSymbolsSheet(f, result.Summary); err != nil {
		return fmt.Errorf("failed to write %s sheet: %w", symbolsSheet, err)
	}

	if _, err := f.NewSheet(runningSheet); err != nil {
		return err
	}
	if err := writeRunningSheet(f, result.Running); err != nil {
		return fmt.Errorf("failed to write %s sheet: %w", runningSheet, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook '%s': %w", path, err)
	}
	return nil
}

func writeSymbolsSheet(f *excelize.File, summary model.SymbolSummary) error {
	if err := f.SetSheetRow(symbolsSheet, "A1", &[]interface{}{"symbol", "count", "probability", "information"}); err != nil {
		return err
	}
	rows := summary.Sorted(model.ByProbability)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{row.Symbol.String(), row.Count, row.Probability, row.Information}
		if err := f.SetSheetRow(symbolsSheet, cell, &values); err != nil {
			return err
		}
	}

	last := len(rows) + 1
	if err := f.SetSheetRow(symbolsSheet, fmt.Sprintf("A%d", last+2), &[]interface{}{"frames", summary.Total}); err != nil {
		return err
	}
	if err := f.SetSheetRow(symbolsSheet, fmt.Sprintf("A%d", last+3), &[]interface{}{"entropy", summary.Entropy}); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return f.AddChart(symbolsSheet, "G2", &excelize.Chart{
		Type: excelize.Col,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("%s!$D$1", symbolsSheet),
			Categories: fmt.Sprintf("%s!$A$2:$A$%d", symbolsSheet, last),
			Values:     fmt.Sprintf("%s!$D$2:$D$%d", symbolsSheet, last),
		}},
		Title: []excelize.RichTextRun{{Text: "Information per symbol (bits)"}},
	})
}

func writeRunningSheet(f *excelize.File, running model.RunningStatistics) error {
	sw, err := f.NewStreamWriter(runningSheet)
	if err != nil {
		return err
	}

	header := []interface{}{"n", "H"}
	for _, sym := range running.Alphabet {
		header = append(header, sym.String()+" probability")
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	rows := running.Rows
	if len(rows) > excelize.TotalRows-1 {
		logrus.WithField("rows", len(rows)).Warn("Running series truncated to the sheet size")
		rows = rows[:excelize.TotalRows-1]
	}
	for i, row := range rows {
		n := i + 1
		values := make([]interface{}, 2, 2+len(running.Alphabet))
		values[0], values[1] = n, row.Entropy
		for _, c := range row.Counts {
			values = append(values, float64(c)/float64(n))
		}
		cell, err := excelize.CoordinatesToCellName(1, n+1)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, values); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	last := len(rows) + 1
	return f.AddChart(runningSheet, "E2", &excelize.Chart{
		Type: excelize.Line,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("%s!$B$1", runningSheet),
			Categories: fmt.Sprintf("%s!$A$2:$A$%d", runningSheet, last),
			Values:     fmt.Sprintf("%s!$B$2:$B$%d", runningSheet, last),
		}},
		Title: []excelize.RichTextRun{{Text: "Entropy by number of frames"}},
	})
}

// XLSXWriter saves a workbook per experiment next to the cached tables.
type XLSXWriter struct {
	rootPath string
}

// NewXLSXWriter creates a writer storing workbooks under rootPath.
func NewXLSXWriter(rootPath string) *XLSXWriter {
	return &XLSXWriter{rootPath: rootPath}
}

func (w *XLSXWriter) Name() string { return "xlsx" }

// Write implements model.Writer.
func (w *XLSXWriter) Write(ctx context.Context, result model.Result) error {
	path := reportPath(w.rootPath, result.ID, "report.xlsx")
	if err := WriteXLSX(path, result); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"experiment": result.ID.Key(), "path": path}).Info("Wrote workbook")
	return nil
}
