package experiment

import (
	"Go2NetEntropy/internal/cache"
	"Go2NetEntropy/internal/engine/protocol"
	"Go2NetEntropy/internal/engine/statistic"
	"Go2NetEntropy/internal/model"
	"Go2NetEntropy/pkg/pcap"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// ErrMissingInput reports that an experiment has neither a stored raw trace
// nor a capture source to produce one.
var ErrMissingInput = errors.New("no raw trace and no capture source")

// Experiment ties one identity to its raw trace, its cached tables and the
// estimators that derive them.
type Experiment struct {
	ID model.ExperimentIdentity

	cache     *cache.Cache
	tracePath string
	source    model.FrameSource
	writers   []model.Writer
	log       *logrus.Entry
}

// Option customizes an Experiment.
type Option func(*Experiment)

// WithSource sets the capture source used when no raw trace is stored.
func WithSource(src model.FrameSource) Option {
	return func(e *Experiment) { e.source = src }
}

// WithTracePath overrides the location of the raw trace.
func WithTracePath(path string) Option {
	return func(e *Experiment) { e.tracePath = path }
}

// WithWriters registers the report writers that receive each result.
func WithWriters(writers ...model.Writer) Option {
	return func(e *Experiment) { e.writers = append(e.writers, writers...) }
}

// New creates an experiment whose raw trace lives at {dataDir}/{key}.pcap.
func New(id model.ExperimentIdentity, dataDir string, c *cache.Cache, opts ...Option) *Experiment {
	e := &Experiment{
		ID:        id,
		cache:     c,
		tracePath: filepath.Join(dataDir, id.Key()+".pcap"),
		log:       logrus.WithField("experiment", id.Key()),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TracePath returns where the raw trace is read from and saved to.
func (e *Experiment) TracePath() string {
	return e.tracePath
}

// Process produces the summary and running series, reusing cached tables
// unless mode is cache.ForceRecompute. The classified trace is obtained at
// most once and only if one of the tables has to be computed.
//
// ctx bounds a live capture, which runs until ctx is cancelled. Everything
// after the capture runs to completion.
func (e *Experiment) Process(ctx context.Context, mode cache.Mode) (*model.Result, error) {
	e.log.WithField("mode", mode).Info("Processing experiment")

	var (
		trace    model.Trace
		traceErr error
		loaded   bool
	)
	getTrace := func() (model.Trace, error) {
		if !loaded {
			trace, traceErr = cache.GetOrCompute(e.cache, e.ID, model.KindTrace, cache.TraceCodec{},
				func() (model.Trace, error) { return e.classify(ctx) }, mode)
			loaded = true
		}
		return trace, traceErr
	}

	summary, err := cache.GetOrCompute(e.cache, e.ID, model.KindSymbols, cache.SummaryCodec{},
		func() (model.SymbolSummary, error) {
			t, err := getTrace()
			if err != nil {
				return model.SymbolSummary{}, err
			}
			return statistic.Summarize(t), nil
		}, mode)
	if err != nil {
		return nil, fmt.Errorf("experiment %s: %w", e.ID.Key(), err)
	}

	running, err := cache.GetOrCompute(e.cache, e.ID, model.KindRunning, cache.RunningCodec{},
		func() (model.RunningStatistics, error) {
			t, err := getTrace()
			if err != nil {
				return model.RunningStatistics{}, err
			}
			return statistic.RunningSeries(t), nil
		}, mode)
	if err != nil {
		return nil, fmt.Errorf("experiment %s: %w", e.ID.Key(), err)
	}

	result := &model.Result{ID: e.ID, Summary: summary, Running: running}
	e.log.WithFields(logrus.Fields{"frames": summary.Total, "entropy": summary.Entropy}).Info("Experiment processed")

	e.report(context.WithoutCancel(ctx), *result)
	return result, nil
}

// Sniff captures from the configured source until ctx is cancelled, saves
// the raw trace and recomputes every table from it.
func (e *Experiment) Sniff(ctx context.Context) (*model.Result, error) {
	if e.source == nil {
		return nil, fmt.Errorf("experiment %s: %w", e.ID.Key(), ErrMissingInput)
	}
	frames, err := e.capture(ctx)
	if err != nil {
		return nil, fmt.Errorf("experiment %s: %w", e.ID.Key(), err)
	}
	e.log.WithField("frames", len(frames)).Info("Capture finished")
	return e.Process(context.WithoutCancel(ctx), cache.ForceRecompute)
}

// classify reads the stored raw trace or, when there is none, captures one.
func (e *Experiment) classify(ctx context.Context) (model.Trace, error) {
	frames, err := e.rawFrames(ctx)
	if err != nil {
		return nil, err
	}
	return protocol.ClassifyFrames(frames), nil
}

func (e *Experiment) rawFrames(ctx context.Context) ([]model.Frame, error) {
	_, err := os.Stat(e.tracePath)
	switch {
	case err == nil:
		e.log.WithField("path", e.tracePath).Info("Reading raw trace")
		return pcap.FileSource{Path: e.tracePath}.Frames(context.WithoutCancel(ctx))
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("failed to stat raw trace: %w", err)
	case e.source == nil:
		return nil, fmt.Errorf("%s: %w", e.tracePath, ErrMissingInput)
	}
	return e.capture(ctx)
}

// capture collects frames from the live source and saves them as the raw
// trace of the experiment.
func (e *Experiment) capture(ctx context.Context) ([]model.Frame, error) {
	e.log.Info("Capturing frames, cancel to stop")
	frames, err := e.source.Frames(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture failed: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(e.tracePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := pcap.WriteFrames(e.tracePath, frames); err != nil {
		return nil, err
	}
	e.log.WithField("path", e.tracePath).Info("Saved raw trace")
	return frames, nil
}

// report hands the result to every writer. Writer failures are logged and do
// not fail the experiment.
func (e *Experiment) report(ctx context.Context, result model.Result) {
	for _, w := range e.writers {
		if err := w.Write(ctx, result); err != nil {
			e.log.WithError(err).WithField("writer", w.Name()).Error("Report writer failed")
		}
	}
}
