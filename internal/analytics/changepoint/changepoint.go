// Package changepoint implements cumulative-sum (CUSUM) change-point
// detection over observation series. A detector accumulates deviations of
// incoming values from a baseline mean and reports the first index where the
// accumulated statistic crosses a decision threshold.
package changepoint

import (
	"errors"
	"fmt"

	"github.com/driftwatch/driftwatch/internal/analytics"
)

// Direction selects which kind of shift the detector accumulates evidence for.
type Direction string

const (
	// DirectionFalling accumulates evidence that values dropped below the baseline mean.
	DirectionFalling Direction = "falling"
	// DirectionRising accumulates evidence that values rose above the baseline mean.
	DirectionRising Direction = "rising"
)

// Valid reports whether the direction is one of the supported values.
func (d Direction) Valid() bool {
	return d == DirectionFalling || d == DirectionRising
}

// ParseDirection converts a string into a Direction.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionFalling:
		return DirectionFalling, nil
	case DirectionRising:
		return DirectionRising, nil
	default:
		return "", &InvalidParameterError{Field: "direction", Value: s, Reason: "must be 'falling' or 'rising'"}
	}
}

// ErrInvalidParameter is the sentinel matched by errors.Is for every
// parameter validation failure in this package.
var ErrInvalidParameter = errors.New("invalid parameter")

// InvalidParameterError describes a rejected input. Validation is fail-fast:
// no detection state is built before all inputs pass.
type InvalidParameterError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s=%v: %s", e.Field, e.Value, e.Reason)
}

func (e *InvalidParameterError) Unwrap() error {
	return ErrInvalidParameter
}

// Baseline holds the reference statistics deviations are measured against.
type Baseline struct {
	Mu    float64 `json:"mu"`
	Sigma float64 `json:"sigma"`
}

// Validate rejects a non-positive spread. A zero sigma would collapse both
// the slack and the threshold to zero and make every series trigger at once.
func (b Baseline) Validate() error {
	if b.Sigma <= 0 {
		return &InvalidParameterError{Field: "sigma", Value: b.Sigma, Reason: "must be > 0"}
	}
	return nil
}

// BaselineFromSeries computes baseline statistics from a leading window of
// the series. The window must contain at least two observations so a sample
// standard deviation exists.
func BaselineFromSeries(series analytics.Series, window int) (Baseline, error) {
	if window < 2 {
		return Baseline{}, &InvalidParameterError{Field: "baselineWindow", Value: window, Reason: "must be >= 2"}
	}
	if series.Len() < window {
		return Baseline{}, &InvalidParameterError{Field: "series", Value: series.Len(), Reason: fmt.Sprintf("need at least %d observations for the baseline window", window)}
	}
	head := series.Head(window)
	b := Baseline{Mu: head.Mean(), Sigma: head.StdDev()}
	if err := b.Validate(); err != nil {
		return Baseline{}, err
	}
	return b, nil
}

// Params are the control parameters of a single detection run. The slack
// factor scales the dead band (C = SlackFactor * sigma) that small noise must
// exceed before it accumulates; the threshold factor scales the decision
// threshold (T = ThresholdFactor * sigma).
type Params struct {
	SlackFactor     float64   `json:"slack_factor"`
	ThresholdFactor float64   `json:"threshold_factor"`
	Direction       Direction `json:"direction"`
}

// Validate checks the control parameters. SlackFactor may be zero (no dead
// band) but never negative; ThresholdFactor must be strictly positive.
func (p Params) Validate() error {
	if p.SlackFactor < 0 {
		return &InvalidParameterError{Field: "slackFactor", Value: p.SlackFactor, Reason: "must be >= 0"}
	}
	if p.ThresholdFactor <= 0 {
		return &InvalidParameterError{Field: "thresholdFactor", Value: p.ThresholdFactor, Reason: "must be > 0"}
	}
	if !p.Direction.Valid() {
		return &InvalidParameterError{Field: "direction", Value: string(p.Direction), Reason: "must be 'falling' or 'rising'"}
	}
	return nil
}

// DefaultParams returns the conventional CUSUM tuning: half a standard
// deviation of slack and a five-sigma decision threshold.
func DefaultParams() Params {
	return Params{
		SlackFactor:     0.5,
		ThresholdFactor: 5.0,
		Direction:       DirectionFalling,
	}
}

// Result reports the outcome of one detection run. A run that never crosses
// the threshold is a normal outcome, not an error: Triggered is false and
// TriggerIndex is -1.
type Result struct {
	Triggered      bool      `json:"triggered"`
	TriggerIndex   int       `json:"trigger_index"`
	TriggerValue   float64   `json:"trigger_value,omitempty"`
	FinalStatistic float64   `json:"final_statistic"`
	Threshold      float64   `json:"threshold"`
	Slack          float64   `json:"slack"`
	Direction      Direction `json:"direction"`

	// Statistic is the full cumulative trajectory, one entry per
	// observation. Statistic[0] is always 0 and no entry is negative.
	Statistic []float64 `json:"statistic,omitempty"`
}

// Detector is the interface all change-point detection algorithms implement.
type Detector interface {
	// Name returns the algorithm name
	Name() string

	// Detect runs the algorithm over the series values and reports the
	// first threshold crossing, if any.
	Detect(values []float64, baseline Baseline, params Params) (*Result, error)
}

// Registry holds available change-point detectors
var detectorRegistry = make(map[string]Detector)

// RegisterDetector adds a detector to the registry
func RegisterDetector(name string, detector Detector) {
	detectorRegistry[name] = detector
}

// GetDetector returns a detector by name
func GetDetector(name string) (Detector, error) {
	if detector, ok := detectorRegistry[name]; ok {
		return detector, nil
	}
	return nil, &InvalidParameterError{Field: "algorithm", Value: name, Reason: "unknown detector"}
}

// ListDetectors returns list of available detector names
func ListDetectors() []string {
	names := make([]string, 0, len(detectorRegistry))
	for name := range detectorRegistry {
		names = append(names, name)
	}
	return names
}

// Detect is a helper that runs the named algorithm over the series values.
func Detect(algorithm string, values []float64, baseline Baseline, params Params) (*Result, error) {
	detector, err := GetDetector(algorithm)
	if err != nil {
		return nil, err
	}
	return detector.Detect(values, baseline, params)
}
