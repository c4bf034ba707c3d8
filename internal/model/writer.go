package model

import "context"

// Result bundles everything computed for one experiment.
type Result struct {
	ID      ExperimentIdentity
	Summary SymbolSummary
	Running RunningStatistics
}

// Writer defines a generic interface for handing experiment results to a
// report or persistent store.
type Writer interface {
	// Write persists the results of one experiment.
	Write(ctx context.Context, result Result) error

	// Name identifies the writer in logs.
	Name() string
}
