// Command loadgen drives a running detector with append and detect traffic
// and reports throughput and latency percentiles.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type loadConfig struct {
	BaseURL       string
	Dataset       string
	NumSeries     int
	Duration      time.Duration
	AppendWorkers int
	DetectWorkers int
	BatchSize     int
	DetectEvery   time.Duration
	ShiftAfter    int // Observations before the injected level shift
	APIKey        string
	SkipSetup     bool
	Client        *http.Client
}

type metrics struct {
	AppendLatencies []float64
	DetectLatencies []float64
	AppendSuccess   int64
	AppendErrors    int64
	DetectSuccess   int64
	DetectErrors    int64
	Triggers        int64
	FirstError      string
	mu              sync.Mutex
}

func main() {
	cfg := loadConfig{}
	flag.StringVar(&cfg.BaseURL, "url", "http://127.0.0.1:8080", "Base URL of the detector API")
	flag.StringVar(&cfg.Dataset, "dataset", "loadgen", "Dataset name")
	flag.IntVar(&cfg.NumSeries, "series", 50, "Number of series")
	flag.DurationVar(&cfg.Duration, "duration", 60*time.Second, "Run duration")
	flag.IntVar(&cfg.AppendWorkers, "append-workers", 10, "Concurrent append workers")
	flag.IntVar(&cfg.DetectWorkers, "detect-workers", 5, "Concurrent detect workers")
	flag.IntVar(&cfg.BatchSize, "batch-size", 10, "Observations per append")
	flag.DurationVar(&cfg.DetectEvery, "detect-interval", 50*time.Millisecond, "Interval between detections per worker")
	flag.IntVar(&cfg.ShiftAfter, "shift-after", 200, "Observations before the injected level shift")
	flag.StringVar(&cfg.APIKey, "api-key", "", "API key for authentication")
	flag.BoolVar(&cfg.SkipSetup, "skip-setup", false, "Skip dataset/series creation")
	flag.Parse()

	cfg.Client = &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	fmt.Printf("=== Driftwatch Load Generator ===\n")
	fmt.Printf("  URL: %s\n", cfg.BaseURL)
	fmt.Printf("  Dataset: %s\n", cfg.Dataset)
	fmt.Printf("  Series: %d\n", cfg.NumSeries)
	fmt.Printf("  Duration: %s\n", cfg.Duration)
	fmt.Printf("  Append Workers: %d (batch %d)\n", cfg.AppendWorkers, cfg.BatchSize)
	fmt.Printf("  Detect Workers: %d (every %s)\n", cfg.DetectWorkers, cfg.DetectEvery)
	fmt.Printf("  Level shift after: %d observations\n\n", cfg.ShiftAfter)

	if !cfg.SkipSetup {
		if err := setup(cfg); err != nil {
			fmt.Printf("Warning: setup failed: %v\n", err)
		}
	}

	m := run(cfg)

	fmt.Printf("\n=== Results ===\n\n")
	report("Append", m.AppendLatencies, m.AppendSuccess, m.AppendErrors, cfg.Duration)
	fmt.Println()
	report("Detect", m.DetectLatencies, m.DetectSuccess, m.DetectErrors, cfg.Duration)
	fmt.Printf("\nDetections that triggered: %d\n", atomic.LoadInt64(&m.Triggers))
	if m.FirstError != "" {
		fmt.Printf("First error: %s\n", m.FirstError)
	}
}

func seriesName(i int) string {
	return fmt.Sprintf("series-%04d", i)
}

func setup(cfg loadConfig) error {
	err := request(cfg, "POST", cfg.BaseURL+"/v1/datasets", map[string]interface{}{
		"name":        cfg.Dataset,
		"description": "Load generator dataset",
	}, nil)
	if err != nil && !isConflict(err) {
		return fmt.Errorf("create dataset: %w", err)
	}

	for i := 0; i < cfg.NumSeries; i++ {
		err := request(cfg, "POST", cfg.BaseURL+"/v1/datasets/"+cfg.Dataset+"/series", map[string]interface{}{
			"name":            seriesName(i),
			"direction":       "falling",
			"baseline_window": 20,
		}, nil)
		if err != nil && !isConflict(err) {
			return fmt.Errorf("create series %d: %w", i, err)
		}
	}

	fmt.Printf("Setup completed: %d series in dataset %q\n", cfg.NumSeries, cfg.Dataset)
	return nil
}

func isConflict(err error) bool {
	return err != nil && err.Error() == "HTTP 409"
}

func run(cfg loadConfig) *metrics {
	m := &metrics{
		AppendLatencies: make([]float64, 0, 10000),
		DetectLatencies: make([]float64, 0, 10000),
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	start := time.Now()

	for i := 0; i < cfg.AppendWorkers; i++ {
		wg.Add(1)
		go appendWorker(i, cfg, m, stop, &wg)
	}
	for i := 0; i < cfg.DetectWorkers; i++ {
		wg.Add(1)
		go detectWorker(i, cfg, m, stop, &wg)
	}
	go progress(m, cfg.Duration, start)

	time.Sleep(cfg.Duration)
	close(stop)
	wg.Wait()

	return m
}

// appendWorker owns a disjoint slice of series so per-series timestamps stay
// strictly increasing. Values hold a steady level first, then shift down so
// falling detections have something to find.
func appendWorker(id int, cfg loadConfig, m *metrics, stop chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	rng := rand.New(rand.NewSource(int64(id)))
	base := time.Now().Add(-24 * time.Hour)
	counters := make(map[int]int)

	for {
		select {
		case <-stop:
			return
		default:
			series := id + cfg.AppendWorkers*rng.Intn(1+cfg.NumSeries/cfg.AppendWorkers)
			if series >= cfg.NumSeries {
				series = id
			}

			count := counters[series]
			observations := make([]map[string]interface{}, cfg.BatchSize)
			for i := range observations {
				level := 100.0
				if count > cfg.ShiftAfter {
					level = 70.0
				}
				observations[i] = map[string]interface{}{
					"time":  base.Add(time.Duration(count) * time.Second).Format(time.RFC3339),
					"value": level + rng.NormFloat64(),
				}
				count++
			}
			counters[series] = count

			url := fmt.Sprintf("%s/v1/datasets/%s/series/%s/observations",
				cfg.BaseURL, cfg.Dataset, seriesName(series))

			t0 := time.Now()
			err := request(cfg, "POST", url, map[string]interface{}{"observations": observations}, nil)
			record(m, &m.AppendLatencies, &m.AppendSuccess, &m.AppendErrors, t0, err)
		}
	}
}

func detectWorker(id int, cfg loadConfig, m *metrics, stop chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	rng := rand.New(rand.NewSource(int64(1000 + id)))
	ticker := time.NewTicker(cfg.DetectEvery)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			url := fmt.Sprintf("%s/v1/datasets/%s/series/%s/detect",
				cfg.BaseURL, cfg.Dataset, seriesName(rng.Intn(cfg.NumSeries)))

			var resp struct {
				Result struct {
					Triggered bool `json:"triggered"`
				} `json:"result"`
			}

			t0 := time.Now()
			err := request(cfg, "POST", url, map[string]interface{}{}, &resp)
			record(m, &m.DetectLatencies, &m.DetectSuccess, &m.DetectErrors, t0, err)
			if err == nil && resp.Result.Triggered {
				atomic.AddInt64(&m.Triggers, 1)
			}
		}
	}
}

func record(m *metrics, latencies *[]float64, success, errors *int64, t0 time.Time, err error) {
	latency := time.Since(t0).Seconds() * 1000

	m.mu.Lock()
	*latencies = append(*latencies, latency)
	if err != nil && m.FirstError == "" {
		m.FirstError = err.Error()
	}
	m.mu.Unlock()

	if err != nil {
		atomic.AddInt64(errors, 1)
	} else {
		atomic.AddInt64(success, 1)
	}
}

func progress(m *metrics, duration time.Duration, start time.Time) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		<-ticker.C
		elapsed := time.Since(start)
		if elapsed >= duration {
			return
		}

		appends := atomic.LoadInt64(&m.AppendSuccess)
		detects := atomic.LoadInt64(&m.DetectSuccess)
		triggers := atomic.LoadInt64(&m.Triggers)

		fmt.Printf("[%s remaining] Appends: %d (%.0f/s) | Detects: %d (%.0f/s) | Triggers: %d\n",
			(duration - elapsed).Round(time.Second),
			appends, float64(appends)/elapsed.Seconds(),
			detects, float64(detects)/elapsed.Seconds(),
			triggers)
	}
}

func request(cfg loadConfig, method, url string, payload interface{}, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.APIKey != "" {
		req.Header.Set("X-API-Key", cfg.APIKey)
	}

	resp, err := cfg.Client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func report(name string, latencies []float64, success, errors int64, duration time.Duration) {
	fmt.Printf("=== %s ===\n", name)
	total := success + errors
	fmt.Printf("Total:      %d\n", total)
	if total == 0 {
		return
	}
	fmt.Printf("Success:    %d (%.2f%%)\n", success, float64(success)/float64(total)*100)
	fmt.Printf("Errors:     %d\n", errors)
	fmt.Printf("Throughput: %.2f ops/sec\n", float64(success)/duration.Seconds())

	if len(latencies) == 0 {
		return
	}
	sort.Float64s(latencies)
	var sum float64
	for _, l := range latencies {
		sum += l
	}
	fmt.Printf("Latency (ms): min %.2f / avg %.2f / p50 %.2f / p95 %.2f / p99 %.2f / max %.2f\n",
		latencies[0], sum/float64(len(latencies)),
		percentile(latencies, 50), percentile(latencies, 95), percentile(latencies, 99),
		latencies[len(latencies)-1])
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	index := int(math.Ceil(float64(len(sorted)) * p / 100.0))
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
