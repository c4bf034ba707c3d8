package experiment

import (
	"Go2NetEntropy/internal/model"
	"fmt"
	"regexp"
	"sort"
)

// Comparison lines up the experiments of one measurement context.
type Comparison struct {
	Context     string
	Experiments []model.ExperimentIdentity
	// Symbols is the union of the experiments' alphabets, sorted.
	Symbols []model.Symbol
	// Information[i] maps each symbol seen by experiment i to its
	// self-information in bits.
	Information []map[model.Symbol]float64
	// Entropy[i] is the running entropy of experiment i, truncated to the
	// shortest series of the group.
	Entropy [][]float64
}

// Len is the common length of the entropy series.
func (c Comparison) Len() int {
	if len(c.Entropy) == 0 {
		return 0
	}
	return len(c.Entropy[0])
}

// Merge groups the results whose experiment name matches the context
// pattern. Experiments keep the order of results.
func Merge(results []*model.Result, context string) (Comparison, error) {
	re, err := regexp.Compile(context)
	if err != nil {
		return Comparison{}, fmt.Errorf("invalid context %q: %w", context, err)
	}

	cmp := Comparison{Context: context}
	symbols := make(map[model.Symbol]struct{})
	shortest := -1
	for _, res := range results {
		if res == nil || !re.MatchString(res.ID.Name) {
			continue
		}
		cmp.Experiments = append(cmp.Experiments, res.ID)

		info := make(map[model.Symbol]float64, len(res.Summary.Rows))
		for _, row := range res.Summary.Rows {
			info[row.Symbol] = row.Information
			symbols[row.Symbol] = struct{}{}
		}
		cmp.Information = append(cmp.Information, info)

		series := res.Running.EntropySeries()
		cmp.Entropy = append(cmp.Entropy, series)
		if shortest < 0 || len(series) < shortest {
			shortest = len(series)
		}
	}

	for i := range cmp.Entropy {
		cmp.Entropy[i] = cmp.Entropy[i][:shortest]
	}
	for sym := range symbols {
		cmp.Symbols = append(cmp.Symbols, sym)
	}
	sort.Slice(cmp.Symbols, func(i, j int) bool { return cmp.Symbols[i].String() < cmp.Symbols[j].String() })
	return cmp, nil
}
