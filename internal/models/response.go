package models

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// DatasetResponse represents dataset metadata response
type DatasetResponse struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   string            `json:"created_at"`
	Series      []SeriesResponse  `json:"series,omitempty"`
}

// DatasetListResponse represents list datasets response
type DatasetListResponse struct {
	Datasets []DatasetResponse `json:"datasets"`
}

// SeriesResponse represents series metadata response
type SeriesResponse struct {
	Name             string            `json:"name"`
	Description      string            `json:"description,omitempty"`
	Unit             string            `json:"unit,omitempty"`
	Labels           map[string]string `json:"labels,omitempty"`
	Direction        string            `json:"direction,omitempty"`
	BaselineWindow   int               `json:"baseline_window,omitempty"`
	ObservationCount int64             `json:"observation_count"`
	LastObservedAt   *string           `json:"last_observed_at,omitempty"`
	CreatedAt        string            `json:"created_at"`
}

// SeriesListResponse represents list series response
type SeriesListResponse struct {
	Series []SeriesResponse `json:"series"`
}

// AppendObservationsResponse represents observation append response
type AppendObservationsResponse struct {
	Accepted  int    `json:"accepted"`
	RequestID string `json:"request_id"`
}

// BaselineView describes the baseline a detection ran against
type BaselineView struct {
	Mu    float64 `json:"mu"`
	Sigma float64 `json:"sigma"`
}

// DetectionResultView represents one detection outcome
type DetectionResultView struct {
	Triggered       bool      `json:"triggered"`
	TriggerIndex    int       `json:"trigger_index"`
	TriggerValue    *float64  `json:"trigger_value,omitempty"`
	FinalStatistic  float64   `json:"final_statistic"`
	Threshold       float64   `json:"threshold"`
	Slack           float64   `json:"slack"`
	Direction       string    `json:"direction"`
	Statistic       []float64 `json:"statistic,omitempty"`
	SlackFactor     float64   `json:"slack_factor"`
	ThresholdFactor float64   `json:"threshold_factor"`
}

// DetectResponse represents a single detection response
type DetectResponse struct {
	Dataset      string              `json:"dataset"`
	Series       string              `json:"series"`
	Algorithm    string              `json:"algorithm"`
	Baseline     BaselineView        `json:"baseline"`
	Observations int                 `json:"observations"`
	Result       DetectionResultView `json:"result"`
}

// SweepResponse represents a parameter sweep response. Results keep the
// order of the request pairs.
type SweepResponse struct {
	Dataset      string                `json:"dataset"`
	Series       string                `json:"series"`
	Algorithm    string                `json:"algorithm"`
	Baseline     BaselineView          `json:"baseline"`
	Observations int                   `json:"observations"`
	Results      []DetectionResultView `json:"results"`
	CacheHits    int                   `json:"cache_hits"`
}

// SeriesDetectResult is one per-series outcome of a dataset-level detection
type SeriesDetectResult struct {
	Series string               `json:"series"`
	Result *DetectionResultView `json:"result,omitempty"`
	Error  *ErrorDetail         `json:"error,omitempty"`
}

// DatasetDetectResponse represents a dataset-level detection response.
// Results are keyed by series and keep the request order; a failed series
// carries its error in place without aborting the others.
type DatasetDetectResponse struct {
	Dataset   string               `json:"dataset"`
	Algorithm string               `json:"algorithm"`
	Results   []SeriesDetectResult `json:"results"`
}

// ChangeEvent is published to the changes subject when a detection triggers
type ChangeEvent struct {
	Dataset        string  `json:"dataset"`
	Series         string  `json:"series"`
	Algorithm      string  `json:"algorithm"`
	Direction      string  `json:"direction"`
	TriggerIndex   int     `json:"trigger_index"`
	TriggerValue   float64 `json:"trigger_value"`
	TriggerTime    string  `json:"trigger_time,omitempty"`
	FinalStatistic float64 `json:"final_statistic"`
	Threshold      float64 `json:"threshold"`
	DetectedAt     string  `json:"detected_at"`
}

// StatsResponse represents admin stats response
type StatsResponse struct {
	Datasets        int      `json:"datasets"`
	Series          int      `json:"series"`
	Observations    int64    `json:"observations"`
	FrozenSegments  int      `json:"frozen_segments"`
	CompressedBytes int64    `json:"compressed_bytes"`
	Uptime          string   `json:"uptime"`
	Detectors       []string `json:"detectors"`
}

// ErrorResponse represents error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Path    string                 `json:"path,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}
