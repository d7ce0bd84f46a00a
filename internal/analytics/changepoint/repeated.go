package changepoint

// Run is one unit of work for DetectEach: a series with its own baseline and
// control parameters, identified by the caller's key.
type Run struct {
	ID       string
	Values   []float64
	Baseline Baseline
	Params   Params
}

// RunResult pairs a run identifier with its detection outcome. Err is set
// when that run's inputs were rejected; other runs are unaffected.
type RunResult struct {
	ID     string  `json:"id"`
	Result *Result `json:"result,omitempty"`
	Err    error   `json:"-"`
}

// DetectEach runs the named algorithm independently over every run and
// returns one result per run, in input order. A failed run records its error
// in place; it never aborts or contaminates the remaining runs.
func DetectEach(algorithm string, runs []Run) ([]RunResult, error) {
	detector, err := GetDetector(algorithm)
	if err != nil {
		return nil, err
	}

	results := make([]RunResult, len(runs))
	for i, run := range runs {
		res, err := detector.Detect(run.Values, run.Baseline, run.Params)
		results[i] = RunResult{ID: run.ID, Result: res, Err: err}
	}
	return results, nil
}
