package report

import (
	"Go2NetEntropy/internal/config"
	"Go2NetEntropy/internal/experiment"
	"Go2NetEntropy/internal/model"
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

func init() {
	RegisterWriter("markdown", func(cfg *config.Config) (model.Writer, error) {
		if !cfg.Report.Markdown {
			return nil, nil
		}
		return NewMarkdownWriter(cfg.OutDir), nil
	})
}

// WriteMarkdown renders the summary of one experiment as a markdown document.
func WriteMarkdown(w io.Writer, result model.Result) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# %s\n\n", result.ID)
	fmt.Fprintf(bw, "- Frames: %d\n", result.Summary.Total)
	fmt.Fprintf(bw, "- Symbols: %d\n", len(result.Summary.Rows))
	fmt.Fprintf(bw, "- Entropy: %.6f bits\n\n", result.Summary.Entropy)

	fmt.Fprintln(bw, "| Symbol | Count | Probability | Information (bits) |")
	fmt.Fprintln(bw, "|---|---:|---:|---:|")
	for _, row := range result.Summary.Sorted(model.ByProbability) {
		fmt.Fprintf(bw, "| %s | %d | %.6f | %.6f |\n", row.Symbol, row.Count, row.Probability, row.Information)
	}
	return bw.Flush()
}

// WriteComparison renders a merged context: information per symbol for each
// experiment, then the entropy of the common prefix at a few checkpoints.
func WriteComparison(w io.Writer, cmp experiment.Comparison) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# Context %q\n\n", cmp.Context)
	if len(cmp.Experiments) == 0 {
		fmt.Fprintln(bw, "No experiment matches this context.")
		return bw.Flush()
	}

	header := []string{"Symbol"}
	for _, id := range cmp.Experiments {
		header = append(header, id.User)
	}
	writeTableHeader(bw, header)
	for _, sym := range cmp.Symbols {
		cells := []string{sym.String()}
		for i := range cmp.Experiments {
			info, ok := cmp.Information[i][sym]
			if !ok {
				cells = append(cells, "-")
				continue
			}
			cells = append(cells, fmt.Sprintf("%.6f", info))
		}
		fmt.Fprintf(bw, "| %s |\n", strings.Join(cells, " | "))
	}

	fmt.Fprintf(bw, "\n## Entropy over the first %d frames\n\n", cmp.Len())
	header[0] = "Frames"
	writeTableHeader(bw, header)
	for _, n := range checkpoints(cmp.Len()) {
		cells := []string{fmt.Sprint(n)}
		for _, series := range cmp.Entropy {
			cells = append(cells, fmt.Sprintf("%.6f", series[n-1]))
		}
		fmt.Fprintf(bw, "| %s |\n", strings.Join(cells, " | "))
	}
	return bw.Flush()
}

func writeTableHeader(w io.Writer, header []string) {
	fmt.Fprintf(w, "| %s |\n", strings.Join(header, " | "))
	fmt.Fprintf(w, "|---%s|\n", strings.Repeat("|---:", len(header)-1))
}

// checkpoints picks the prefix lengths 1, 10, 100, ... up to n, plus n.
func checkpoints(n int) []int {
	var out []int
	for p := 1; p < n; p *= 10 {
		out = append(out, p)
	}
	if n > 0 {
		out = append(out, n)
	}
	return out
}

// MarkdownWriter saves a markdown report next to the cached tables.
type MarkdownWriter struct {
	rootPath string
}

// NewMarkdownWriter creates a writer storing reports under rootPath.
func NewMarkdownWriter(rootPath string) *MarkdownWriter {
	return &MarkdownWriter{rootPath: rootPath}
}

func (w *MarkdownWriter) Name() string { return "markdown" }

// Write implements model.Writer.
func (w *MarkdownWriter) Write(ctx context.Context, result model.Result) error {
	path := reportPath(w.rootPath, result.ID, "report.md")
	if err := writeFile(path, func(f io.Writer) error { return WriteMarkdown(f, result) }); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"experiment": result.ID.Key(), "path": path}).Info("Wrote markdown report")
	return nil
}

// reportPath places a report file in the experiment's output directory.
func reportPath(rootPath string, id model.ExperimentIdentity, suffix string) string {
	return filepath.Join(rootPath, id.Key(), fmt.Sprintf("%s_%s", id.Key(), suffix))
}

func writeFile(path string, render func(w io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file '%s': %w", path, err)
	}
	defer file.Close()

	if err := render(file); err != nil {
		return fmt.Errorf("failed to write report '%s': %w", path, err)
	}
	return file.Close()
}
