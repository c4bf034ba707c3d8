package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"Go2NetEntropy/internal/config"
	"Go2NetEntropy/internal/engine/statistic"
	"Go2NetEntropy/internal/experiment"
	"Go2NetEntropy/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var (
	arpBcast  = model.Symbol{Direction: model.Broadcast, Protocol: "ARP"}
	ipv4Ucast = model.Symbol{Direction: model.Unicast, Protocol: "IPv4"}
	lpBase    = model.ExperimentIdentity{User: "LP", Name: "baseline"}
)

// sampleResult is the trace [A, A, B, A].
func sampleResult(id model.ExperimentIdentity) model.Result {
	trace := model.Trace{}
	for i, sym := range []model.Symbol{arpBcast, arpBcast, ipv4Ucast, arpBcast} {
		trace = append(trace, model.PacketRecord{Symbol: sym, RelativeTime: time.Duration(i) * time.Millisecond})
	}
	return model.Result{ID: id, Summary: statistic.Summarize(trace), Running: statistic.RunningSeries(trace)}
}

func TestSummary(t *testing.T) {
	res := sampleResult(lpBase)
	var buf bytes.Buffer
	require.NoError(t, Summary(&buf, res.ID, res.Summary))

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "[LP_baseline]", lines[0])
	assert.Contains(t, lines[2], "(BROADCAST, ARP)")
	assert.Contains(t, lines[2], "0.750000")
	assert.Contains(t, lines[3], "(UNICAST, IPv4)")
	assert.Contains(t, lines[3], "2.000000")
	assert.Equal(t, "Frames: 4", lines[4])
	assert.Equal(t, "Entropy: 0.811278", lines[5])
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, sampleResult(lpBase)))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "# LP_baseline\n"))
	assert.Contains(t, out, "- Frames: 4\n")
	assert.Contains(t, out, "- Entropy: 0.811278 bits\n")
	assert.Contains(t, out, "| (BROADCAST, ARP) | 3 | 0.750000 | 0.415037 |\n")
	assert.Less(t, strings.Index(out, "(BROADCAST, ARP)"), strings.Index(out, "(UNICAST, IPv4)"))
}

func TestWriteComparison(t *testing.T) {
	a := sampleResult(lpBase)
	b := sampleResult(model.ExperimentIdentity{User: "JB", Name: "baseline"})
	b.Summary.Rows = b.Summary.Rows[:1]
	cmp, err := experiment.Merge([]*model.Result{&a, &b}, "baseline")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteComparison(&buf, cmp))
	out := buf.String()
	assert.Contains(t, out, "| Symbol | LP | JB |\n|---|---:|---:|\n")
	assert.Contains(t, out, "| (UNICAST, IPv4) | 2.000000 | - |\n")
	assert.Contains(t, out, "## Entropy over the first 4 frames")
	assert.Contains(t, out, "| 4 | 0.811278 | 0.811278 |\n")
}

func TestWriteComparisonEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteComparison(&buf, experiment.Comparison{Context: "boot"}))
	assert.Contains(t, buf.String(), "No experiment matches")
}

func TestCheckpoints(t *testing.T) {
	assert.Empty(t, checkpoints(0))
	assert.Equal(t, []int{1}, checkpoints(1))
	assert.Equal(t, []int{1, 4}, checkpoints(4))
	assert.Equal(t, []int{1, 10, 100, 250}, checkpoints(250))
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, WriteXLSX(path, sampleResult(lpBase)))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{symbolsSheet, runningSheet}, f.GetSheetList())

	rows, err := f.GetRows(symbolsSheet)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 3)
	assert.Equal(t, []string{"symbol", "count", "probability", "information"}, rows[0])
	assert.Equal(t, "(BROADCAST, ARP)", rows[1][0])
	assert.Equal(t, "3", rows[1][1])
	assert.Equal(t, "(UNICAST, IPv4)", rows[2][0])

	running, err := f.GetRows(runningSheet)
	require.NoError(t, err)
	require.Len(t, running, 5)
	assert.Equal(t, []string{"n", "H", "(BROADCAST, ARP) probability", "(UNICAST, IPv4) probability"}, running[0])
	assert.Equal(t, "1", running[1][0])
	// The second symbol has no cell before it is first seen.
	assert.Len(t, running[2], 3)
	assert.Len(t, running[3], 4)
}

func TestWriteXLSXEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, WriteXLSX(path, model.Result{ID: lpBase}))
	assert.FileExists(t, path)
}

func TestFileWriters(t *testing.T) {
	root := t.TempDir()
	res := sampleResult(lpBase)

	require.NoError(t, NewMarkdownWriter(root).Write(context.Background(), res))
	assert.FileExists(t, filepath.Join(root, "LP_baseline", "LP_baseline_report.md"))

	require.NoError(t, NewXLSXWriter(root).Write(context.Background(), res))
	assert.FileExists(t, filepath.Join(root, "LP_baseline", "LP_baseline_report.xlsx"))

	jw := NewJSONWriter(root)
	jw.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	require.NoError(t, jw.Write(context.Background(), res))

	data, err := os.ReadFile(filepath.Join(root, "LP_baseline", "LP_baseline_summary.json"))
	require.NoError(t, err)
	var doc SummaryDocument
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "LP_baseline", doc.Experiment)
	assert.Equal(t, 4, doc.Frames)
	assert.Equal(t, "2024-03-01T12:00:00Z", doc.Timestamp)
	require.Len(t, doc.Symbols, 2)
	assert.Equal(t, SymbolEntry{
		Symbol:      "(BROADCAST, ARP)",
		Direction:   "BROADCAST",
		Protocol:    "ARP",
		Count:       3,
		Probability: 0.75,
		Information: res.Summary.Rows[0].Information,
	}, doc.Symbols[0])
}

func TestCreateWriters(t *testing.T) {
	cfg := config.Default()
	writers, err := Create(cfg)
	require.NoError(t, err)
	require.Len(t, writers, 1)
	assert.Equal(t, "markdown", writers[0].Name())

	cfg.Report.JSON = true
	cfg.Report.XLSX = true
	writers, err = Create(cfg)
	require.NoError(t, err)
	var names []string
	for _, w := range writers {
		names = append(names, w.Name())
	}
	assert.Equal(t, []string{"json", "markdown", "xlsx"}, names)
}

type closableWriter struct {
	name   string
	err    error
	closed int
}

func (w *closableWriter) Write(ctx context.Context, result model.Result) error { return nil }
func (w *closableWriter) Name() string                                         { return w.name }
func (w *closableWriter) Close() error {
	w.closed++
	return w.err
}

func TestCloseReleasesClosableWriters(t *testing.T) {
	failing := &closableWriter{name: "failing", err: errors.New("connection reset")}
	sink := &closableWriter{name: "sink"}
	writers := []model.Writer{failing, NewMarkdownWriter(t.TempDir()), sink}

	Close(writers)
	assert.Equal(t, 1, failing.closed)
	assert.Equal(t, 1, sink.closed)
}
