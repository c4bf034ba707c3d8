package experiment

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"Go2NetEntropy/internal/cache"
	"Go2NetEntropy/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAllProcessesEveryTrace(t *testing.T) {
	e := newEnv(t)
	e.writeTrace(t, "A_x", scenarioFrames())
	e.writeTrace(t, "B_y", []model.Frame{frame(hostMAC, 0x0800, 0), frame(hostMAC, 0x86dd, 0)})

	writer := &recordingWriter{}
	results, err := RunAll(context.Background(), Batch{
		DataDir:    e.dataDir,
		Pattern:    "*.pcap",
		NumWorkers: 2,
		Cache:      e.cache,
		Writers:    []model.Writer{writer},
	}, cache.UseCacheIfPresent)
	require.NoError(t, err)
	require.Len(t, results, 2)

	a, b := results[0], results[1]
	assert.Equal(t, model.ExperimentIdentity{User: "A", Name: "x"}, a.ID)
	assert.Equal(t, model.ExperimentIdentity{User: "B", Name: "y"}, b.ID)
	assertScenario(t, a)
	assert.Equal(t, 2, b.Summary.Total)
	assert.InDelta(t, 1.0, b.Summary.Entropy, 1e-12)
	assert.Len(t, writer.results, 2)

	// Artifacts of the two experiments live in separate directories.
	assert.NotEqual(t, e.cache.Dir(a.ID), e.cache.Dir(b.ID))
	for _, id := range []model.ExperimentIdentity{a.ID, b.ID} {
		assert.True(t, e.cache.Exists(id, model.KindRunning))
	}
	keys, err := e.cache.Experiments()
	require.NoError(t, err)
	assert.Equal(t, []string{"A_x", "B_y"}, keys)
}

func TestRunAllContinuesAfterFailure(t *testing.T) {
	e := newEnv(t)
	e.writeTrace(t, "A_x", scenarioFrames())
	require.NoError(t, os.WriteFile(filepath.Join(e.dataDir, "C_z.pcap"), []byte("not a capture file"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(e.dataDir, "nouser.pcap"), nil, 0644))

	results, err := RunAll(context.Background(), Batch{
		DataDir:    e.dataDir,
		Pattern:    "*.pcap",
		NumWorkers: 1,
		Cache:      e.cache,
	}, cache.UseCacheIfPresent)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "C_z")
	assert.Contains(t, err.Error(), "nouser.pcap")

	require.Len(t, results, 1)
	assertScenario(t, results[0])
	assert.False(t, e.cache.Exists(model.ExperimentIdentity{User: "C", Name: "z"}, model.KindSymbols))
}

func TestRunAllCancelled(t *testing.T) {
	e := newEnv(t)
	e.writeTrace(t, "A_x", scenarioFrames())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := RunAll(ctx, Batch{DataDir: e.dataDir, Pattern: "*.pcap", NumWorkers: 1, Cache: e.cache}, cache.UseCacheIfPresent)
	// The job may or may not have been handed out before the cancellation
	// was observed; either way nothing is lost silently.
	if len(results) == 0 {
		assert.True(t, errors.Is(err, context.Canceled))
	} else {
		assert.NoError(t, err)
	}
}

func TestDiscoverRecursivePattern(t *testing.T) {
	e := newEnv(t)
	e.writeTrace(t, "A_x", scenarioFrames())
	e.writeTrace(t, filepath.Join("lab", "B_y"), scenarioFrames())
	e.writeTrace(t, filepath.Join("lab", "A_x"), scenarioFrames())

	exps, err := Batch{DataDir: e.dataDir, Pattern: "**/*.pcap", Cache: e.cache}.Discover()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already provided")

	require.Len(t, exps, 2)
	assert.Equal(t, "A_x", exps[0].ID.Key())
	assert.Equal(t, filepath.Join(e.dataDir, "A_x.pcap"), exps[0].TracePath())
	assert.Equal(t, "B_y", exps[1].ID.Key())
	assert.Equal(t, filepath.Join(e.dataDir, "lab", "B_y.pcap"), exps[1].TracePath())
}

func TestDiscoverEmptyDir(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.MkdirAll(e.dataDir, 0755))
	results, err := RunAll(context.Background(), Batch{DataDir: e.dataDir, Pattern: "*.pcap", NumWorkers: 4, Cache: e.cache}, cache.UseCacheIfPresent)
	assert.NoError(t, err)
	assert.Empty(t, results)
}
