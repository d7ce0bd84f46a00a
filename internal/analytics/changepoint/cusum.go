package changepoint

import (
	"math"
)

// CUSUMDetector implements one-sided cumulative-sum change detection.
// Starting from zero, it accumulates how far each value deviates from the
// baseline mean beyond a slack band C = SlackFactor * sigma, flooring the
// running sum at zero. The first index where the sum reaches
// T = ThresholdFactor * sigma is the detected change point.
type CUSUMDetector struct{}

func init() {
	RegisterDetector("cusum", &CUSUMDetector{})
}

// Name returns the algorithm name
func (c *CUSUMDetector) Name() string {
	return "cusum"
}

// Detect runs the CUSUM recurrence over the series values. All inputs are
// validated before any state is built; a series that never crosses the
// threshold yields Triggered=false with TriggerIndex=-1.
func (c *CUSUMDetector) Detect(values []float64, baseline Baseline, params Params) (*Result, error) {
	if len(values) == 0 {
		return nil, &InvalidParameterError{Field: "series", Value: 0, Reason: "must not be empty"}
	}
	if err := baseline.Validate(); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	slack := params.SlackFactor * baseline.Sigma
	threshold := params.ThresholdFactor * baseline.Sigma

	result := &Result{
		TriggerIndex: -1,
		Threshold:    threshold,
		Slack:        slack,
		Direction:    params.Direction,
		Statistic:    make([]float64, len(values)),
	}

	// The sum starts at zero and the first observation only anchors the
	// baseline position, so accumulation begins at index 1.
	s := 0.0
	result.Statistic[0] = 0

	for i := 1; i < len(values); i++ {
		var deviation float64
		if params.Direction == DirectionFalling {
			deviation = baseline.Mu - values[i] - slack
		} else {
			deviation = values[i] - baseline.Mu - slack
		}

		s = math.Max(0, s+deviation)
		result.Statistic[i] = s

		if !result.Triggered && s >= threshold {
			result.Triggered = true
			result.TriggerIndex = i
			result.TriggerValue = values[i]
		}
	}

	result.FinalStatistic = s
	return result, nil
}
