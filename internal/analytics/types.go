// Package analytics provides common types and utilities shared by the
// change-point detection packages.
package analytics

import (
	"math"
	"time"
)

// Observation is a single observed value with the time it was recorded.
// This is the common type used across the analytics packages.
type Observation struct {
	Time  time.Time
	Value float64
}

// Series is an ordered collection of observations. Order follows the
// observation keys (times), oldest first.
type Series []Observation

// Values extracts just the values from the series
func (s Series) Values() []float64 {
	values := make([]float64, len(s))
	for i, p := range s {
		values[i] = p.Value
	}
	return values
}

// Times extracts just the times from the series
func (s Series) Times() []time.Time {
	times := make([]time.Time, len(s))
	for i, p := range s {
		times[i] = p.Time
	}
	return times
}

// Len returns the number of observations
func (s Series) Len() int {
	return len(s)
}

// Head returns the first n observations (or the whole series if shorter).
func (s Series) Head(n int) Series {
	if n > len(s) {
		n = len(s)
	}
	return s[:n]
}

// Mean calculates the mean of all values
func (s Series) Mean() float64 {
	if len(s) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range s {
		sum += p.Value
	}
	return sum / float64(len(s))
}

// StdDev calculates the sample standard deviation of all values
func (s Series) StdDev() float64 {
	if len(s) < 2 {
		return 0
	}
	mean := s.Mean()
	sumSq := 0.0
	for _, p := range s {
		diff := p.Value - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(len(s)-1))
}
