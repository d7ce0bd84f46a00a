package storage

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/driftwatch/driftwatch/internal/analytics"
	"github.com/driftwatch/driftwatch/internal/logging"
)

func testObservations(start time.Time, values ...float64) analytics.Series {
	obs := make(analytics.Series, len(values))
	for i, v := range values {
		obs[i] = analytics.Observation{
			Time:  start.Add(time.Duration(i) * time.Minute),
			Value: v,
		}
	}
	return obs
}

func TestSeriesStore_AppendAndSnapshot(t *testing.T) {
	store := NewSeriesStore(0, logging.NewDevelopment())
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	obs := testObservations(start, 90, 91, 89, 90, 70, 65, 60)
	if err := store.Append("metrics", "cpu.host-a", obs); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	snapshot, err := store.Snapshot("metrics", "cpu.host-a")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snapshot.Len() != 7 {
		t.Fatalf("Expected 7 observations, got %d", snapshot.Len())
	}
	for i, o := range snapshot {
		if o.Value != obs[i].Value || !o.Time.Equal(obs[i].Time) {
			t.Errorf("Observation %d mismatch: got %+v, want %+v", i, o, obs[i])
		}
	}

	if store.Len("metrics", "cpu.host-a") != 7 {
		t.Errorf("Expected Len 7, got %d", store.Len("metrics", "cpu.host-a"))
	}
}

func TestSeriesStore_UnknownSeries(t *testing.T) {
	store := NewSeriesStore(0, logging.NewDevelopment())

	if _, err := store.Snapshot("metrics", "missing"); !errors.Is(err, ErrSeriesNotFound) {
		t.Errorf("Expected ErrSeriesNotFound, got %v", err)
	}
	if store.Len("metrics", "missing") != 0 {
		t.Error("Unknown series must report zero length")
	}
}

func TestSeriesStore_RejectsOutOfOrder(t *testing.T) {
	store := NewSeriesStore(0, logging.NewDevelopment())
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := store.Append("metrics", "cpu", testObservations(start, 1, 2, 3)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	// Batch starting before the stored tail.
	err := store.Append("metrics", "cpu", testObservations(start, 4))
	if !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("Expected ErrOutOfOrder for a stale batch, got %v", err)
	}

	// Disordered batch.
	bad := analytics.Series{
		{Time: start.Add(time.Hour), Value: 1},
		{Time: start.Add(time.Hour), Value: 2},
	}
	if err := store.Append("metrics", "cpu", bad); !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("Expected ErrOutOfOrder for duplicate times, got %v", err)
	}

	// A rejected batch must not mutate the series.
	if store.Len("metrics", "cpu") != 3 {
		t.Errorf("Expected 3 observations after rejected batches, got %d", store.Len("metrics", "cpu"))
	}
}

func TestSeriesStore_FreezesLongSeries(t *testing.T) {
	store := NewSeriesStore(16, logging.NewDevelopment())
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i)
	}
	if err := store.Append("metrics", "long", testObservations(start, values...)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	stats := store.Stats()
	if stats.FrozenSegments == 0 {
		t.Error("Expected the long series to have frozen segments")
	}
	if stats.ObservationCount != 100 {
		t.Errorf("Expected 100 observations, got %d", stats.ObservationCount)
	}

	snapshot, err := store.Snapshot("metrics", "long")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snapshot.Len() != 100 {
		t.Fatalf("Expected 100 observations in snapshot, got %d", snapshot.Len())
	}
	for i, o := range snapshot {
		if o.Value != float64(i) {
			t.Fatalf("Snapshot order broken at %d: got %v", i, o.Value)
		}
	}
}

func TestSeriesStore_Delete(t *testing.T) {
	store := NewSeriesStore(0, logging.NewDevelopment())
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_ = store.Append("metrics", "a", testObservations(start, 1, 2))
	_ = store.Append("metrics", "b", testObservations(start, 3, 4))
	_ = store.Append("other", "a", testObservations(start, 5, 6))

	store.Delete("metrics", "a")
	if store.Len("metrics", "a") != 0 {
		t.Error("Deleted series must be empty")
	}

	store.DeleteDataset("metrics")
	if store.Len("metrics", "b") != 0 {
		t.Error("DeleteDataset must remove all series of the dataset")
	}
	if store.Len("other", "a") != 2 {
		t.Error("DeleteDataset must not touch other datasets")
	}
}

func TestSeriesStore_ConcurrentAppends(t *testing.T) {
	store := NewSeriesStore(32, logging.NewDevelopment())
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			series := fmt.Sprintf("cpu.host-%d", g)
			for batch := 0; batch < 10; batch++ {
				obs := testObservations(start.Add(time.Duration(batch)*time.Hour), 1, 2, 3, 4, 5)
				if err := store.Append("metrics", series, obs); err != nil {
					t.Errorf("Append failed: %v", err)
					return
				}
			}
		}(g)
	}
	wg.Wait()

	stats := store.Stats()
	if stats.SeriesCount != 8 {
		t.Errorf("Expected 8 series, got %d", stats.SeriesCount)
	}
	if stats.ObservationCount != 8*10*5 {
		t.Errorf("Expected %d observations, got %d", 8*10*5, stats.ObservationCount)
	}
}
