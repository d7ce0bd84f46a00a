package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/driftwatch/driftwatch/internal/analytics"
)

// segmentPayload is the columnar wire form of a sealed segment. Times are
// unix nanoseconds; both columns always have equal length.
type segmentPayload struct {
	Times  []int64   `json:"t"`
	Values []float64 `json:"v"`
}

func encodeSegment(run analytics.Series) ([]byte, error) {
	payload := segmentPayload{
		Times:  make([]int64, len(run)),
		Values: make([]float64, len(run)),
	}
	for i, obs := range run {
		payload.Times[i] = obs.Time.UnixNano()
		payload.Values[i] = obs.Value
	}
	return json.Marshal(payload)
}

func decodeSegment(data []byte) (analytics.Series, error) {
	var payload segmentPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	if len(payload.Times) != len(payload.Values) {
		return nil, fmt.Errorf("segment columns disagree: %d times, %d values", len(payload.Times), len(payload.Values))
	}

	run := make(analytics.Series, len(payload.Times))
	for i := range payload.Times {
		run[i] = analytics.Observation{
			Time:  time.Unix(0, payload.Times[i]).UTC(),
			Value: payload.Values[i],
		}
	}
	return run, nil
}
