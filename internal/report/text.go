package report

import (
	"Go2NetEntropy/internal/model"
	"fmt"
	"io"
	"text/tabwriter"
)

// Summary prints the symbol table of one experiment, most probable symbol
// first, followed by the frame total and the entropy.
func Summary(w io.Writer, id model.ExperimentIdentity, summary model.SymbolSummary) error {
	if _, err := fmt.Fprintf(w, "[%s]\n", id.Key()); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "symbol\tcount\tprobability\tinformation\t")
	for _, row := range summary.Sorted(model.ByProbability) {
		fmt.Fprintf(tw, "%s\t%d\t%.6f\t%.6f\t\n", row.Symbol, row.Count, row.Probability, row.Information)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "Frames: %d\nEntropy: %.6f\n", summary.Total, summary.Entropy)
	return err
}
