package model

import (
	"math"
	"sort"
)

// SymbolStats is the per-symbol record shared by the aggregate and running tables.
type SymbolStats struct {
	Count       int
	Probability float64
	Information float64
}

// StatsOf derives probability and self-information from a count over n.
// count must be positive.
func StatsOf(count, n int) SymbolStats {
	if count == n {
		return SymbolStats{Count: count, Probability: 1}
	}
	p := float64(count) / float64(n)
	return SymbolStats{Count: count, Probability: p, Information: -math.Log2(p)}
}

// SummaryRow is one line of a SymbolSummary.
type SummaryRow struct {
	Symbol Symbol
	SymbolStats
}

// SymbolSummary is the aggregate table over a whole trace.
type SymbolSummary struct {
	Rows    []SummaryRow
	Total   int
	Entropy float64
}

// Lookup returns the row for s, if s was observed.
func (s SymbolSummary) Lookup(sym Symbol) (SummaryRow, bool) {
	for _, r := range s.Rows {
		if r.Symbol == sym {
			return r, true
		}
	}
	return SummaryRow{}, false
}

// RunningRow holds the state after one prefix. Counts is aligned with the
// first len(Counts) symbols of the owning RunningStatistics alphabet.
type RunningRow struct {
	Counts  []int
	Entropy float64
}

// RunningStatistics is the per-prefix series. Rows[n-1] describes the prefix of length n.
type RunningStatistics struct {
	Alphabet []Symbol
	Rows     []RunningRow
}

// Len returns the number of prefixes in the series.
func (r RunningStatistics) Len() int {
	return len(r.Rows)
}

// At returns the statistics of every symbol seen in the prefix of length n.
// Symbols not yet observed have no entry.
func (r RunningStatistics) At(n int) map[Symbol]SymbolStats {
	row := r.Rows[n-1]
	out := make(map[Symbol]SymbolStats, len(row.Counts))
	for i, c := range row.Counts {
		if c == 0 {
			continue
		}
		out[r.Alphabet[i]] = StatsOf(c, n)
	}
	return out
}

// EntropySeries returns H(n) for n = 1..N.
func (r RunningStatistics) EntropySeries() []float64 {
	out := make([]float64, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row.Entropy
	}
	return out
}

// SortKey selects a presentation order for summary rows.
type SortKey int

const (
	ByProbability SortKey = iota
	ByInformation
)

// Sorted returns a copy of the rows in descending order of key. Ties are
// broken by the symbol's string form so the order is stable across runs.
func (s SymbolSummary) Sorted(key SortKey) []SummaryRow {
	rows := append([]SummaryRow(nil), s.Rows...)
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Probability, rows[j].Probability
		if key == ByInformation {
			a, b = rows[i].Information, rows[j].Information
		}
		if a != b {
			return a > b
		}
		return rows[i].Symbol.String() < rows[j].Symbol.String()
	})
	return rows
}
