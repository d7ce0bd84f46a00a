// Package storage holds observation series in memory. Each series keeps a hot
// tail of recent observations; once the tail outgrows the segment size, the
// oldest observations are frozen into snappy-compressed segments so long
// series stay cheap to hold.
package storage

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/driftwatch/driftwatch/internal/analytics"
	"github.com/driftwatch/driftwatch/internal/compression"
	"github.com/driftwatch/driftwatch/internal/logging"
)

var (
	// ErrSeriesNotFound is returned when no observations exist for a series
	ErrSeriesNotFound = errors.New("series not found")

	// ErrOutOfOrder is returned when an appended observation does not advance
	// the series key order
	ErrOutOfOrder = errors.New("observation out of order")
)

// numShards is the number of lock shards. Appends to different series hash to
// different shards and proceed without contention.
const numShards = 32

// DefaultSegmentSize is the hot-tail length that triggers freezing.
const DefaultSegmentSize = 512

// frozenSegment is a sealed, compressed run of observations.
type frozenSegment struct {
	count   int
	first   time.Time
	last    time.Time
	payload []byte
}

// seriesBuffer is the storage for one series: sealed segments plus hot tail.
type seriesBuffer struct {
	frozen      []frozenSegment
	frozenCount int
	hot         analytics.Series
	lastTime    time.Time
}

type shard struct {
	mu   sync.RWMutex
	data map[string]*seriesBuffer
}

// SeriesStore is an in-memory observation store with sharded locking.
type SeriesStore struct {
	shards      [numShards]shard
	segmentSize int
	compressor  compression.Compressor
	logger      *logging.Logger
}

func seriesKey(dataset, series string) string {
	return dataset + "/" + series
}

func getShard(dataset, series string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(dataset))
	_, _ = h.Write([]byte{'/'})
	_, _ = h.Write([]byte(series))
	return h.Sum32() % numShards
}

// NewSeriesStore creates a new observation store. A non-positive segmentSize
// falls back to DefaultSegmentSize.
func NewSeriesStore(segmentSize int, logger *logging.Logger) *SeriesStore {
	if segmentSize <= 0 {
		segmentSize = DefaultSegmentSize
	}

	ss := &SeriesStore{
		segmentSize: segmentSize,
		compressor:  compression.NewSnappyCompressor(),
		logger:      logger,
	}
	for i := range ss.shards {
		ss.shards[i].data = make(map[string]*seriesBuffer)
	}

	logger.Info("Series store initialized",
		"segment_size", segmentSize,
		"num_shards", numShards)

	return ss
}

// Append adds observations to a series. Observations must arrive in strictly
// increasing time order, both within the batch and against what is already
// stored. The whole batch is rejected before any mutation on a violation.
func (ss *SeriesStore) Append(dataset, series string, obs []analytics.Observation) error {
	if len(obs) == 0 {
		return nil
	}

	for i := 1; i < len(obs); i++ {
		if !obs[i].Time.After(obs[i-1].Time) {
			return fmt.Errorf("%w: batch index %d does not advance time", ErrOutOfOrder, i)
		}
	}

	idx := getShard(dataset, series)
	s := &ss.shards[idx]

	s.mu.Lock()
	defer s.mu.Unlock()

	key := seriesKey(dataset, series)
	buf, exists := s.data[key]
	if !exists {
		buf = &seriesBuffer{}
		s.data[key] = buf
	}

	if (buf.frozenCount > 0 || len(buf.hot) > 0) && !obs[0].Time.After(buf.lastTime) {
		return fmt.Errorf("%w: batch starts at or before the stored tail %v", ErrOutOfOrder, buf.lastTime)
	}

	buf.hot = append(buf.hot, obs...)
	buf.lastTime = obs[len(obs)-1].Time

	for len(buf.hot) > ss.segmentSize {
		if err := ss.freezeOldest(buf); err != nil {
			// The data is still intact in the hot tail; freezing retries
			// on the next append.
			ss.logger.Warn("Failed to freeze series segment",
				"dataset", dataset,
				"series", series,
				"error", err)
			break
		}
	}

	return nil
}

// freezeOldest seals the oldest segmentSize observations of the hot tail.
// Caller holds the shard lock.
func (ss *SeriesStore) freezeOldest(buf *seriesBuffer) error {
	run := buf.hot[:ss.segmentSize]

	payload, err := encodeSegment(run)
	if err != nil {
		return err
	}
	compressed, err := ss.compressor.Compress(payload)
	if err != nil {
		return err
	}

	buf.frozen = append(buf.frozen, frozenSegment{
		count:   len(run),
		first:   run[0].Time,
		last:    run[len(run)-1].Time,
		payload: compressed,
	})
	buf.frozenCount += len(run)
	buf.hot = append(analytics.Series{}, buf.hot[ss.segmentSize:]...)

	return nil
}

// Snapshot returns an ordered copy of every observation in the series,
// thawing frozen segments oldest first.
func (ss *SeriesStore) Snapshot(dataset, series string) (analytics.Series, error) {
	idx := getShard(dataset, series)
	s := &ss.shards[idx]

	s.mu.RLock()
	defer s.mu.RUnlock()

	buf, exists := s.data[seriesKey(dataset, series)]
	if !exists {
		return nil, ErrSeriesNotFound
	}

	result := make(analytics.Series, 0, buf.frozenCount+len(buf.hot))
	for _, seg := range buf.frozen {
		payload, err := ss.compressor.Decompress(seg.payload)
		if err != nil {
			return nil, fmt.Errorf("thaw segment: %w", err)
		}
		run, err := decodeSegment(payload)
		if err != nil {
			return nil, fmt.Errorf("thaw segment: %w", err)
		}
		result = append(result, run...)
	}
	result = append(result, buf.hot...)

	return result, nil
}

// Len returns the number of stored observations, 0 for an unknown series.
func (ss *SeriesStore) Len(dataset, series string) int {
	idx := getShard(dataset, series)
	s := &ss.shards[idx]

	s.mu.RLock()
	defer s.mu.RUnlock()

	buf, exists := s.data[seriesKey(dataset, series)]
	if !exists {
		return 0
	}
	return buf.frozenCount + len(buf.hot)
}

// Delete removes all observations of a series.
func (ss *SeriesStore) Delete(dataset, series string) {
	idx := getShard(dataset, series)
	s := &ss.shards[idx]

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, seriesKey(dataset, series))
}

// DeleteDataset removes every series that belongs to the dataset.
func (ss *SeriesStore) DeleteDataset(dataset string) {
	prefix := dataset + "/"
	for i := range ss.shards {
		s := &ss.shards[i]
		s.mu.Lock()
		for key := range s.data {
			if len(key) > len(prefix) && key[:len(prefix)] == prefix {
				delete(s.data, key)
			}
		}
		s.mu.Unlock()
	}
}

// Stats summarizes what the store currently holds.
type Stats struct {
	SeriesCount      int   `json:"series_count"`
	ObservationCount int   `json:"observation_count"`
	FrozenSegments   int   `json:"frozen_segments"`
	CompressedBytes  int64 `json:"compressed_bytes"`
}

// Stats reports store-wide totals.
func (ss *SeriesStore) Stats() Stats {
	var stats Stats
	for i := range ss.shards {
		s := &ss.shards[i]
		s.mu.RLock()
		for _, buf := range s.data {
			stats.SeriesCount++
			stats.ObservationCount += buf.frozenCount + len(buf.hot)
			stats.FrozenSegments += len(buf.frozen)
			for _, seg := range buf.frozen {
				stats.CompressedBytes += int64(len(seg.payload))
			}
		}
		s.mu.RUnlock()
	}
	return stats
}
