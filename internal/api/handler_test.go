package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"Go2NetEntropy/internal/cache"
	"Go2NetEntropy/internal/engine/statistic"
	"Go2NetEntropy/internal/model"
	"Go2NetEntropy/internal/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	arpBcast  = model.Symbol{Direction: model.Broadcast, Protocol: "ARP"}
	ipv4Ucast = model.Symbol{Direction: model.Unicast, Protocol: "IPv4"}
	lpBase    = model.ExperimentIdentity{User: "LP", Name: "baseline"}
)

func newServer(t *testing.T) (*httptest.Server, *cache.Cache) {
	t.Helper()
	c, err := cache.New(t.TempDir(), "gzip")
	require.NoError(t, err)

	trace := model.Trace{}
	for i, sym := range []model.Symbol{arpBcast, arpBcast, ipv4Ucast, arpBcast} {
		trace = append(trace, model.PacketRecord{Symbol: sym, RelativeTime: time.Duration(i) * time.Millisecond})
	}
	_, err = cache.GetOrCompute(c, lpBase, model.KindSymbols, cache.SummaryCodec{},
		func() (model.SymbolSummary, error) { return statistic.Summarize(trace), nil }, cache.ForceRecompute)
	require.NoError(t, err)
	_, err = cache.GetOrCompute(c, lpBase, model.KindRunning, cache.RunningCodec{},
		func() (model.RunningStatistics, error) { return statistic.RunningSeries(trace), nil }, cache.ForceRecompute)
	require.NoError(t, err)

	srv := httptest.NewServer(NewHandler(c).Router())
	t.Cleanup(srv.Close)
	return srv, c
}

func getJSON(t *testing.T, url string, v interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestListExperiments(t *testing.T) {
	srv, _ := newServer(t)
	var list ExperimentList
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/experiments", &list))
	assert.Equal(t, []string{"LP_baseline"}, list.Experiments)
}

func TestListExperimentsEmptyCache(t *testing.T) {
	c, err := cache.New(t.TempDir()+"/missing", "gzip")
	require.NoError(t, err)
	srv := httptest.NewServer(NewHandler(c).Router())
	defer srv.Close()

	var list ExperimentList
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/experiments", &list))
	assert.NotNil(t, list.Experiments)
	assert.Empty(t, list.Experiments)
}

func TestSummary(t *testing.T) {
	srv, _ := newServer(t)
	var doc report.SummaryDocument
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/experiments/LP_baseline/summary", &doc))
	assert.Equal(t, "LP_baseline", doc.Experiment)
	assert.Equal(t, 4, doc.Frames)
	assert.InDelta(t, 0.811278124459133, doc.Entropy, 1e-12)
	require.Len(t, doc.Symbols, 2)
	assert.Equal(t, "(BROADCAST, ARP)", doc.Symbols[0].Symbol)
	assert.Equal(t, 3, doc.Symbols[0].Count)
}

func TestEntropy(t *testing.T) {
	srv, _ := newServer(t)

	var all EntropyResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/experiments/LP_baseline/entropy", &all))
	assert.Equal(t, 4, all.Frames)
	assert.Equal(t, 1, all.From)
	assert.Equal(t, 4, all.To)
	require.Len(t, all.Entropy, 4)
	assert.Equal(t, 0.0, all.Entropy[0])
	assert.Equal(t, 0.0, all.Entropy[1])
	assert.InDelta(t, 0.811278124459133, all.Entropy[3], 1e-12)

	var window EntropyResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/experiments/LP_baseline/entropy?from=3&to=10", &window))
	assert.Equal(t, 3, window.From)
	assert.Equal(t, 4, window.To)
	assert.Equal(t, all.Entropy[2:], window.Entropy)

	var past EntropyResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/experiments/LP_baseline/entropy?from=9", &past))
	assert.Empty(t, past.Entropy)
}

func TestErrors(t *testing.T) {
	srv, c := newServer(t)

	for _, tc := range []struct {
		path string
		code int
	}{
		{"/api/v1/experiments/JB_busy/summary", http.StatusNotFound},
		{"/api/v1/experiments/JB_busy/entropy", http.StatusNotFound},
		{"/api/v1/experiments/nouser/summary", http.StatusBadRequest},
		{"/api/v1/experiments/LP_baseline/entropy?from=0", http.StatusBadRequest},
		{"/api/v1/experiments/LP_baseline/entropy?from=x", http.StatusBadRequest},
		{"/api/v1/experiments/LP_baseline/entropy?from=3&to=1", http.StatusBadRequest},
		{"/api/v1/unknown", http.StatusNotFound},
	} {
		resp, err := http.Get(srv.URL + tc.path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, tc.code, resp.StatusCode, tc.path)
	}

	// A corrupt artifact is a server error, not a miss.
	require.NoError(t, os.WriteFile(c.Path(lpBase, model.KindSymbols), []byte("garbage"), 0644))
	resp, err := http.Get(srv.URL + "/api/v1/experiments/LP_baseline/summary")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
