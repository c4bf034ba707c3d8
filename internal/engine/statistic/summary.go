package statistic

import "Go2NetEntropy/internal/model"

// Summarize tallies every distinct symbol of the trace and derives its
// probability and self-information. Rows follow order of first appearance.
// An empty trace yields an empty summary with zero entropy.
func Summarize(trace model.Trace) model.SymbolSummary {
	n := len(trace)
	if n == 0 {
		return model.SymbolSummary{}
	}

	index := make(map[model.Symbol]int)
	var rows []model.SummaryRow
	for _, rec := range trace {
		i, ok := index[rec.Symbol]
		if !ok {
			i = len(rows)
			index[rec.Symbol] = i
			rows = append(rows, model.SummaryRow{Symbol: rec.Symbol})
		}
		rows[i].Count++
	}

	return FromCounts(rows, n)
}

// FromCounts fills probability, self-information and entropy for rows whose
// counts are already known. n is the trace length.
func FromCounts(rows []model.SummaryRow, n int) model.SymbolSummary {
	var h float64
	for i := range rows {
		rows[i].SymbolStats = model.StatsOf(rows[i].Count, n)
		h += rows[i].Probability * rows[i].Information
	}
	return model.SymbolSummary{Rows: rows, Total: n, Entropy: h}
}
