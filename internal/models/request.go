package models

// CreateDatasetRequest represents create dataset request
type CreateDatasetRequest struct {
	Name        string            `json:"name" validate:"required,min=1,max=64"`
	Description string            `json:"description,omitempty" validate:"max=256"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// CreateSeriesRequest represents create series request
type CreateSeriesRequest struct {
	Name           string            `json:"name" validate:"required,min=1,max=128"`
	Description    string            `json:"description,omitempty" validate:"max=256"`
	Unit           string            `json:"unit,omitempty" validate:"max=32"`
	Labels         map[string]string `json:"labels,omitempty"`
	Direction      string            `json:"direction,omitempty" validate:"omitempty,oneof=falling rising"`
	BaselineWindow int               `json:"baseline_window,omitempty" validate:"omitempty,min=2"`
}

// ObservationRequest represents a single observation append
type ObservationRequest struct {
	Time  string      `json:"time" validate:"required"`
	Value interface{} `json:"value" validate:"required"`
}

// AppendObservationsRequest represents a batch observation append
type AppendObservationsRequest struct {
	Observations []ObservationRequest `json:"observations" validate:"required,min=1"`
}

// BaselineRequest pins the baseline explicitly instead of estimating it from
// the leading window of the series.
type BaselineRequest struct {
	Mu    float64 `json:"mu"`
	Sigma float64 `json:"sigma" validate:"gt=0"`
}

// DetectRequest represents a single change-point detection request
type DetectRequest struct {
	Algorithm        string           `json:"algorithm,omitempty"`
	Direction        string           `json:"direction,omitempty" validate:"omitempty,oneof=falling rising"`
	SlackFactor      *float64         `json:"slack_factor,omitempty" validate:"omitempty,gte=0"`
	ThresholdFactor  *float64         `json:"threshold_factor,omitempty" validate:"omitempty,gt=0"`
	Baseline         *BaselineRequest `json:"baseline,omitempty"`
	BaselineWindow   int              `json:"baseline_window,omitempty" validate:"omitempty,min=2"`
	IncludeStatistic bool             `json:"include_statistic,omitempty"`
}

// SweepPairRequest is one (slack, threshold) pair of a parameter sweep
type SweepPairRequest struct {
	SlackFactor     float64 `json:"slack_factor" validate:"gte=0"`
	ThresholdFactor float64 `json:"threshold_factor" validate:"gt=0"`
}

// SweepRequest represents a parameter sweep over one series
type SweepRequest struct {
	Algorithm      string             `json:"algorithm,omitempty"`
	Direction      string             `json:"direction,omitempty" validate:"omitempty,oneof=falling rising"`
	Pairs          []SweepPairRequest `json:"pairs" validate:"required,min=1"`
	Baseline       *BaselineRequest   `json:"baseline,omitempty"`
	BaselineWindow int                `json:"baseline_window,omitempty" validate:"omitempty,min=2"`
	Workers        int                `json:"workers,omitempty" validate:"omitempty,min=1"`
	NoCache        bool               `json:"no_cache,omitempty"`
}

// DatasetDetectRequest runs one detection per series of a dataset
type DatasetDetectRequest struct {
	Series []string `json:"series,omitempty"` // Empty means every series of the dataset
	DetectRequest
}
