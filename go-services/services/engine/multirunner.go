package engine

import (
	"runtime"
	"sort"
	"sync"
)

// SignalPair is one named strategy's entry/exit vectors, sharing prices and
// dates with every other pair in the same multi-run.
type SignalPair struct {
	Entries []int
	Exits   []int
}

// MultiResult is the outcome of running the simulator once per named
// signal pair. Metrics is populated for every name; Trades holds only the
// ledger of the name that sorts last, matching the single-ledger contract.
// PerNameTrades is always populated as well and exposes every strategy's
// ledger keyed by name.
type MultiResult struct {
	Metrics       map[string]Metrics
	Trades        []Trade
	PerNameTrades map[string][]Trade
}

// RunMulti runs the simulator independently for every named (entries,
// exits) pair against a shared prices/dates series. Each run gets a fresh
// open-set and equity series; no strategy observes another's state. Pairs
// are simulated concurrently across a bounded worker pool, the only point
// in the engine permitted to parallelise. maxWorkers <= 0 defaults to
// runtime.NumCPU(), matching the retrieved orchestrator's fallback when a
// caller leaves its worker-count setting unset.
func RunMulti(cfg Config, prices []float64, dates []int64, pairs map[string]SignalPair, maxWorkers int) (MultiResult, error) {
	names := make([]string, 0, len(pairs))
	for name := range pairs {
		names = append(names, name)
	}
	// Sorted so "last strategy" below is a deterministic function of the
	// input names, independent of map iteration and worker scheduling.
	sort.Strings(names)

	type outcome struct {
		name   string
		result Result
		err    error
	}
	outcomes := make([]outcome, len(names))

	workers := maxWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(names) {
		workers = len(names)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				name := names[idx]
				pair := pairs[name]
				res, err := Simulate(cfg, prices, pair.Entries, pair.Exits, dates)
				outcomes[idx] = outcome{name: name, result: res, err: err}
			}
		}()
	}
	for idx := range names {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	out := MultiResult{
		Metrics:       make(map[string]Metrics, len(names)),
		PerNameTrades: make(map[string][]Trade, len(names)),
	}
	for _, o := range outcomes {
		if o.err != nil {
			return MultiResult{}, o.err
		}
		out.Metrics[o.name] = o.result.Metrics
		out.PerNameTrades[o.name] = o.result.Trades
		out.Trades = o.result.Trades
	}
	return out, nil
}
