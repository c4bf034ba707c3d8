package cache

import (
	"Go2NetEntropy/internal/model"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Codec converts one artifact kind to and from its tabular file form.
type Codec[T any] interface {
	Encode(w io.Writer, v T) error
	Decode(r io.Reader) (T, error)
}

var (
	traceHeader   = []string{"index", "direction", "protocol", "relative_time"}
	symbolsHeader = []string{"symbol", "count", "probability", "information"}
)

const (
	countSuffix       = " count"
	probabilitySuffix = " probability"
	informationSuffix = " information"
	entropyColumn     = "H"
)

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// formatSeconds renders d as exact decimal seconds, e.g. "1.500000000".
func formatSeconds(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	return fmt.Sprintf("%s%d.%09d", sign, d/time.Second, d%time.Second)
}

func parseSeconds(s string) (time.Duration, error) {
	return time.ParseDuration(s + "s")
}

func readHeader(cr *csv.Reader, want []string) error {
	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	if strings.Join(header, ",") != strings.Join(want, ",") {
		return fmt.Errorf("unexpected header %v", header)
	}
	return nil
}

// TraceCodec stores the classified trace, one row per frame.
type TraceCodec struct{}

func (TraceCodec) Encode(w io.Writer, trace model.Trace) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(traceHeader); err != nil {
		return err
	}
	for i, rec := range trace {
		err := cw.Write([]string{
			strconv.Itoa(i),
			rec.Symbol.Direction.String(),
			rec.Symbol.Protocol,
			formatSeconds(rec.RelativeTime),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (TraceCodec) Decode(r io.Reader) (model.Trace, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(traceHeader)
	if err := readHeader(cr, traceHeader); err != nil {
		return nil, err
	}

	trace := make(model.Trace, 0)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if rec[0] != strconv.Itoa(len(trace)) {
			return nil, fmt.Errorf("row %d has index %q", len(trace), rec[0])
		}
		dir, err := model.ParseDirection(rec[1])
		if err != nil {
			return nil, err
		}
		if rec[2] == "" {
			return nil, fmt.Errorf("row %d has no protocol", len(trace))
		}
		dt, err := parseSeconds(rec[3])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", len(trace), err)
		}
		trace = append(trace, model.PacketRecord{
			Symbol:       model.Symbol{Direction: dir, Protocol: rec[2]},
			RelativeTime: dt,
		})
	}
	return trace, nil
}

// SummaryCodec stores the aggregate table, one row per symbol.
type SummaryCodec struct{}

func (SummaryCodec) Encode(w io.Writer, s model.SymbolSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(symbolsHeader); err != nil {
		return err
	}
	for _, row := range s.Rows {
		err := cw.Write([]string{
			row.Symbol.String(),
			strconv.Itoa(row.Count),
			formatFloat(row.Probability),
			formatFloat(row.Information),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (SummaryCodec) Decode(r io.Reader) (model.SymbolSummary, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(symbolsHeader)
	if err := readHeader(cr, symbolsHeader); err != nil {
		return model.SymbolSummary{}, err
	}

	var s model.SymbolSummary
	seen := make(map[model.Symbol]bool)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return model.SymbolSummary{}, err
		}
		row, err := parseSummaryRow(rec)
		if err != nil {
			return model.SymbolSummary{}, fmt.Errorf("row %d: %w", len(s.Rows), err)
		}
		if seen[row.Symbol] {
			return model.SymbolSummary{}, fmt.Errorf("duplicate symbol %s", row.Symbol)
		}
		seen[row.Symbol] = true
		s.Rows = append(s.Rows, row)
		s.Total += row.Count
		s.Entropy += row.Probability * row.Information
	}
	return s, nil
}

func parseSummaryRow(rec []string) (model.SummaryRow, error) {
	sym, err := model.ParseSymbol(rec[0])
	if err != nil {
		return model.SummaryRow{}, err
	}
	count, err := strconv.Atoi(rec[1])
	if err != nil || count <= 0 {
		return model.SummaryRow{}, fmt.Errorf("invalid count %q", rec[1])
	}
	p, err := strconv.ParseFloat(rec[2], 64)
	if err != nil || p <= 0 || p > 1 {
		return model.SummaryRow{}, fmt.Errorf("invalid probability %q", rec[2])
	}
	info, err := strconv.ParseFloat(rec[3], 64)
	if err != nil || info < 0 {
		return model.SummaryRow{}, fmt.Errorf("invalid information %q", rec[3])
	}
	return model.SummaryRow{
		Symbol:      sym,
		SymbolStats: model.SymbolStats{Count: count, Probability: p, Information: info},
	}, nil
}

// RunningCodec stores the per-prefix series. Every symbol gets a count,
// probability and information column; cells are empty until the symbol
// first appears.
type RunningCodec struct{}

func (RunningCodec) Encode(w io.Writer, r model.RunningStatistics) error {
	cw := csv.NewWriter(w)
	header := make([]string, 0, 2+3*len(r.Alphabet))
	header = append(header, "n")
	for _, sym := range r.Alphabet {
		name := sym.String()
		header = append(header, name+countSuffix, name+probabilitySuffix, name+informationSuffix)
	}
	header = append(header, entropyColumn)
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for i, row := range r.Rows {
		n := i + 1
		for j := range record {
			record[j] = ""
		}
		record[0] = strconv.Itoa(n)
		for j, c := range row.Counts {
			if c == 0 {
				continue
			}
			st := model.StatsOf(c, n)
			record[1+3*j] = strconv.Itoa(c)
			record[2+3*j] = formatFloat(st.Probability)
			record[3+3*j] = formatFloat(st.Information)
		}
		record[len(record)-1] = formatFloat(row.Entropy)
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (RunningCodec) Decode(r io.Reader) (model.RunningStatistics, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return model.RunningStatistics{}, fmt.Errorf("failed to read header: %w", err)
	}
	alphabet, err := parseRunningHeader(header)
	if err != nil {
		return model.RunningStatistics{}, err
	}
	cr.FieldsPerRecord = len(header)

	out := model.RunningStatistics{Alphabet: alphabet, Rows: make([]model.RunningRow, 0)}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return model.RunningStatistics{}, err
		}
		n := len(out.Rows) + 1
		row, err := parseRunningRow(rec, len(alphabet), n)
		if err != nil {
			return model.RunningStatistics{}, fmt.Errorf("row %d: %w", n, err)
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

func parseRunningHeader(header []string) ([]model.Symbol, error) {
	if len(header) < 2 || header[0] != "n" || header[len(header)-1] != entropyColumn || (len(header)-2)%3 != 0 {
		return nil, fmt.Errorf("unexpected header %v", header)
	}
	var alphabet []model.Symbol
	for j := 1; j < len(header)-1; j += 3 {
		name, ok := strings.CutSuffix(header[j], countSuffix)
		if !ok || header[j+1] != name+probabilitySuffix || header[j+2] != name+informationSuffix {
			return nil, fmt.Errorf("unexpected columns %v", header[j:j+3])
		}
		sym, err := model.ParseSymbol(name)
		if err != nil {
			return nil, err
		}
		alphabet = append(alphabet, sym)
	}
	return alphabet, nil
}

func parseRunningRow(rec []string, k, n int) (model.RunningRow, error) {
	if rec[0] != strconv.Itoa(n) {
		return model.RunningRow{}, fmt.Errorf("unexpected prefix length %q", rec[0])
	}
	var counts []int
	total := 0
	for j := 0; j < k; j++ {
		cell := rec[1+3*j]
		if cell == "" {
			// Symbols are laid out in order of first appearance, so the
			// remaining ones cannot have been seen yet.
			for _, rest := range rec[1+3*j : 1+3*k] {
				if rest != "" {
					return model.RunningRow{}, fmt.Errorf("symbol column %d filled after an empty one", j)
				}
			}
			break
		}
		c, err := strconv.Atoi(cell)
		if err != nil || c <= 0 {
			return model.RunningRow{}, fmt.Errorf("invalid count %q", cell)
		}
		counts = append(counts, c)
		total += c
	}
	if total != n {
		return model.RunningRow{}, fmt.Errorf("counts add up to %d", total)
	}
	h, err := strconv.ParseFloat(rec[len(rec)-1], 64)
	if err != nil || h < 0 {
		return model.RunningRow{}, fmt.Errorf("invalid entropy %q", rec[len(rec)-1])
	}
	return model.RunningRow{Counts: counts, Entropy: h}, nil
}
