package statistic

import (
	"Go2NetEntropy/internal/model"
	"fmt"
	"math"
)

// resyncInterval bounds the drift of the incremental accumulator by
// recomputing it from the counts every so many steps.
const resyncInterval = 1 << 12

// RunningState is the per-symbol count table of a trace prefix.
//
// The entropy of a prefix of length n with counts c_s is
//
//	H(n) = log2(n) - (1/n) * sum_s c_s*log2(c_s)
//
// so only the sum has to be kept, and a step changes exactly one of its terms.
type RunningState struct {
	alphabet []model.Symbol
	index    map[model.Symbol]int
	counts   []int
	n        int
	seen     int
	acc      float64
}

// NewRunningState returns the state of the empty prefix.
func NewRunningState() *RunningState {
	return &RunningState{index: make(map[model.Symbol]int)}
}

// RestoreRunningState rebuilds the state of a prefix from persisted counts.
// counts[i] belongs to alphabet[i].
func RestoreRunningState(alphabet []model.Symbol, counts []int) (*RunningState, error) {
	if len(alphabet) != len(counts) {
		return nil, fmt.Errorf("alphabet has %d symbols but %d counts were given", len(alphabet), len(counts))
	}
	st := NewRunningState()
	for i, sym := range alphabet {
		if _, dup := st.index[sym]; dup {
			return nil, fmt.Errorf("symbol %s appears twice in alphabet", sym)
		}
		if counts[i] < 0 {
			return nil, fmt.Errorf("negative count %d for symbol %s", counts[i], sym)
		}
		st.index[sym] = i
		st.alphabet = append(st.alphabet, sym)
		st.counts = append(st.counts, counts[i])
		st.n += counts[i]
		if counts[i] > 0 {
			st.seen++
		}
	}
	st.resync()
	return st, nil
}

// N is the prefix length.
func (st *RunningState) N() int {
	return st.n
}

// Alphabet returns the symbols in order of first appearance.
func (st *RunningState) Alphabet() []model.Symbol {
	return append([]model.Symbol(nil), st.alphabet...)
}

// Counts returns a copy of the counts, aligned with Alphabet.
func (st *RunningState) Counts() []int {
	return append([]int(nil), st.counts...)
}

// Entropy returns H(n), or 0 for the empty prefix.
func (st *RunningState) Entropy() float64 {
	if st.n == 0 || st.seen < 2 {
		return 0
	}
	n := float64(st.n)
	h := math.Log2(n) - st.acc/n
	if h < 0 {
		return 0
	}
	if limit := math.Log2(float64(st.seen)); h > limit {
		return limit
	}
	return h
}

// Step records one more symbol and returns the row of the new prefix.
func (st *RunningState) Step(sym model.Symbol) model.RunningRow {
	st.observe(sym)
	return model.RunningRow{Counts: st.Counts(), Entropy: st.Entropy()}
}

func (st *RunningState) observe(sym model.Symbol) {
	i, ok := st.index[sym]
	if !ok {
		i = len(st.alphabet)
		st.index[sym] = i
		st.alphabet = append(st.alphabet, sym)
		st.counts = append(st.counts, 0)
	}
	c := st.counts[i]
	if c == 0 {
		st.seen++
	}
	st.counts[i] = c + 1
	st.n++

	if st.n%resyncInterval == 0 {
		st.resync()
		return
	}
	st.acc += xlog2x(c+1) - xlog2x(c)
}

func (st *RunningState) resync() {
	st.acc = 0
	for _, c := range st.counts {
		st.acc += xlog2x(c)
	}
}

func xlog2x(c int) float64 {
	if c <= 1 {
		return 0
	}
	x := float64(c)
	return x * math.Log2(x)
}

// RunningSeries computes the statistics of every prefix of the trace.
// The last row agrees with Summarize over the same trace.
func RunningSeries(trace model.Trace) model.RunningStatistics {
	st := NewRunningState()
	rows := make([]model.RunningRow, len(trace))

	// Rows share large backing arrays instead of allocating one slice each.
	var arena []int
	for i, rec := range trace {
		st.observe(rec.Symbol)
		k := len(st.counts)
		if cap(arena)-len(arena) < k {
			arena = make([]int, 0, k*1024)
		}
		start := len(arena)
		arena = append(arena, st.counts...)
		rows[i] = model.RunningRow{Counts: arena[start : start+k : start+k], Entropy: st.Entropy()}
	}

	return model.RunningStatistics{Alphabet: st.alphabet, Rows: rows}
}
