package changepoint

import (
	"sync"
)

// ParamPair is one (slack, threshold) combination of a parameter sweep.
type ParamPair struct {
	SlackFactor     float64 `json:"slack_factor"`
	ThresholdFactor float64 `json:"threshold_factor"`
}

// DefaultSweepWorkers bounds the sweep fan-out when the caller passes a
// non-positive worker count.
const DefaultSweepWorkers = 8

// Sweep runs the named algorithm once per parameter pair over the same series
// and baseline. Runs are independent and execute concurrently under a bounded
// worker count; results come back in pair order, one per pair.
//
// All pairs are validated before any run starts, so a bad pair fails the
// whole sweep without partial results.
func Sweep(algorithm string, values []float64, baseline Baseline, direction Direction, pairs []ParamPair, workers int) ([]*Result, error) {
	detector, err := GetDetector(algorithm)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, &InvalidParameterError{Field: "series", Value: 0, Reason: "must not be empty"}
	}
	if err := baseline.Validate(); err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, &InvalidParameterError{Field: "pairs", Value: 0, Reason: "must not be empty"}
	}

	params := make([]Params, len(pairs))
	for i, pair := range pairs {
		params[i] = Params{
			SlackFactor:     pair.SlackFactor,
			ThresholdFactor: pair.ThresholdFactor,
			Direction:       direction,
		}
		if err := params[i].Validate(); err != nil {
			return nil, err
		}
	}

	if workers <= 0 {
		workers = DefaultSweepWorkers
	}
	if workers > len(pairs) {
		workers = len(pairs)
	}

	results := make([]*Result, len(pairs))
	errs := make([]error, len(pairs))

	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)

	for i := range params {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx], errs[idx] = detector.Detect(values, baseline, params[idx])
		}(i)
	}
	wg.Wait()

	// Inputs were validated up front, so a per-run error here means the
	// detector itself rejected something. Surface the first one.
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}
