package experiment

import (
	"Go2NetEntropy/internal/cache"
	"Go2NetEntropy/internal/model"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Batch describes a run over every raw trace stored in a data directory.
type Batch struct {
	DataDir    string
	Pattern    string
	NumWorkers int
	Cache      *cache.Cache
	Writers    []model.Writer
}

// Discover lists the experiments whose raw traces match the batch pattern,
// sorted by key. Files whose names are not a valid identity, and duplicate
// identities, are reported in the returned error.
func (b Batch) Discover() ([]*Experiment, error) {
	matches, err := doublestar.Glob(os.DirFS(b.DataDir), b.Pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to match %q in %s: %w", b.Pattern, b.DataDir, err)
	}
	sort.Strings(matches)

	var (
		errs []error
		exps []*Experiment
		seen = make(map[string]string)
	)
	for _, match := range matches {
		id, err := model.ParseIdentity(match)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if prev, dup := seen[id.Key()]; dup {
			errs = append(errs, fmt.Errorf("%s: experiment %s already provided by %s", match, id.Key(), prev))
			continue
		}
		seen[id.Key()] = match
		exps = append(exps, New(id, b.DataDir, b.Cache,
			WithTracePath(filepath.Join(b.DataDir, filepath.FromSlash(match))),
			WithWriters(b.Writers...)))
	}
	sort.Slice(exps, func(i, j int) bool { return exps[i].ID.Key() < exps[j].ID.Key() })
	return exps, errors.Join(errs...)
}

// RunAll processes every discovered experiment with a pool of workers. Each
// experiment keeps its own trace and estimator state. A failing experiment is
// logged and skipped; the results of the others are returned, in key order,
// together with the joined failures.
func RunAll(ctx context.Context, b Batch, mode cache.Mode) ([]*model.Result, error) {
	runID := uuid.NewString()
	log := logrus.WithField("run_id", runID)

	exps, discoverErr := b.Discover()
	if discoverErr != nil {
		log.WithError(discoverErr).Warn("Some traces were skipped")
	}

	numWorkers := b.NumWorkers
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if numWorkers > len(exps) {
		numWorkers = len(exps)
	}
	log.WithFields(logrus.Fields{"experiments": len(exps), "workers": numWorkers}).Info("Batch started")

	results := make([]*model.Result, len(exps))
	errs := make([]error, len(exps))
	jobs := make(chan int)

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				exp := exps[idx]
				exp.log = exp.log.WithField("run_id", runID)
				res, err := exp.Process(ctx, mode)
				if err != nil {
					exp.log.WithError(err).Error("Experiment failed")
					errs[idx] = err
					continue
				}
				results[idx] = res
			}
		}()
	}

feed:
	for idx := range exps {
		select {
		case jobs <- idx:
		case <-ctx.Done():
			for rest := idx; rest < len(exps); rest++ {
				errs[rest] = fmt.Errorf("experiment %s: %w", exps[rest].ID.Key(), ctx.Err())
			}
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	done := make([]*model.Result, 0, len(results))
	for _, res := range results {
		if res != nil {
			done = append(done, res)
		}
	}
	log.WithFields(logrus.Fields{"succeeded": len(done), "failed": len(exps) - len(done)}).Info("Batch finished")
	return done, errors.Join(append([]error{discoverErr}, errs...)...)
}
