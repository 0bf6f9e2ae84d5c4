// Package loadtest drives concurrent badge requests against a running
// server and summarizes latency and throughput.
package loadtest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/platformbuilds/datadog-badges/pkg/logger"
)

// Config holds configuration for a load test run.
type Config struct {
	// BaseURL is the server root including any context root.
	BaseURL string

	Duration          time.Duration
	ConcurrentWorkers int

	// Pause between two requests of one worker.
	Pause time.Duration

	Targets []Target

	Client *http.Client
}

// Target is one badge request with its share of the traffic.
type Target struct {
	Account   string
	MonitorID string
	Query     url.Values
	Weight    int
}

// Path returns the request path relative to the base URL.
func (t Target) Path() string {
	p := "/accounts/" + url.PathEscape(t.Account) + "/monitors/" + url.PathEscape(t.MonitorID)
	if len(t.Query) > 0 {
		p += "?" + t.Query.Encode()
	}
	return p
}

// Result holds the results of a load test.
type Result struct {
	TotalDuration      time.Duration `json:"total_duration"`
	TotalRequests      int64         `json:"total_requests"`
	SuccessfulRequests int64         `json:"successful_requests"`
	FailedRequests     int64         `json:"failed_requests"`
	StatusCodes        map[int]int64 `json:"status_codes"`
	AvgLatency         time.Duration `json:"avg_latency"`
	P95Latency         time.Duration `json:"p95_latency"`
	P99Latency         time.Duration `json:"p99_latency"`
	QPS                float64       `json:"qps"`
	Errors             []string      `json:"errors,omitempty"`
}

// LoadTester runs weighted badge requests from a pool of workers.
type LoadTester struct {
	config Config
	logger logger.Logger
	total  int
}

func NewLoadTester(cfg Config, log logger.Logger) (*LoadTester, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if len(cfg.Targets) == 0 {
		return nil, errors.New("at least one target is required")
	}
	total := 0
	for _, t := range cfg.Targets {
		if t.Weight < 0 {
			return nil, fmt.Errorf("target %s/%s has a negative weight", t.Account, t.MonitorID)
		}
		total += t.Weight
	}
	if total == 0 {
		return nil, errors.New("target weights sum to zero")
	}
	if cfg.ConcurrentWorkers <= 0 {
		cfg.ConcurrentWorkers = 1
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &LoadTester{config: cfg, logger: log, total: total}, nil
}

type sample struct {
	latency time.Duration
	status  int
	err     error
}

// Run issues requests until the configured duration elapses or ctx is done.
// Any HTTP response counts as a success; the status code is tallied
// separately because error badges are legitimate answers.
func (lt *LoadTester) Run(ctx context.Context) (*Result, error) {
	lt.logger.Info("Starting load test",
		"base_url", lt.config.BaseURL,
		"duration", lt.config.Duration,
		"workers", lt.config.ConcurrentWorkers)

	runCtx, cancel := context.WithTimeout(ctx, lt.config.Duration)
	defer cancel()

	var (
		mu      sync.Mutex
		samples []sample
		wg      sync.WaitGroup
	)
	start := time.Now()
	for i := 0; i < lt.config.ConcurrentWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)))
			var local []sample
			for runCtx.Err() == nil {
				s := lt.do(runCtx, lt.pick(rng))
				// a request cut short by the end of the run is not a failure
				if s.err != nil && runCtx.Err() != nil {
					break
				}
				local = append(local, s)
				if lt.config.Pause > 0 {
					select {
					case <-runCtx.Done():
					case <-time.After(lt.config.Pause):
					}
				}
			}
			mu.Lock()
			samples = append(samples, local...)
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	res := summarize(samples, time.Since(start))
	lt.logger.Info("Load test completed",
		"total_requests", res.TotalRequests,
		"failed_requests", res.FailedRequests,
		"avg_latency", res.AvgLatency,
		"p99_latency", res.P99Latency,
		"qps", res.QPS)
	return res, nil
}

func (lt *LoadTester) pick(rng *rand.Rand) Target {
	r := rng.Intn(lt.total)
	for _, t := range lt.config.Targets {
		if r < t.Weight {
			return t
		}
		r -= t.Weight
	}
	return lt.config.Targets[0]
}

func (lt *LoadTester) do(ctx context.Context, t Target) sample {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lt.config.BaseURL+t.Path(), nil)
	if err != nil {
		return sample{err: err}
	}
	start := time.Now()
	resp, err := lt.config.Client.Do(req)
	if err != nil {
		return sample{latency: time.Since(start), err: err}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return sample{latency: time.Since(start), status: resp.StatusCode}
}

func summarize(samples []sample, elapsed time.Duration) *Result {
	res := &Result{TotalDuration: elapsed, StatusCodes: make(map[int]int64)}
	var latencies []time.Duration
	for _, s := range samples {
		res.TotalRequests++
		if s.err != nil {
			res.FailedRequests++
			if len(res.Errors) < 20 {
				res.Errors = append(res.Errors, s.err.Error())
			}
			continue
		}
		res.SuccessfulRequests++
		res.StatusCodes[s.status]++
		latencies = append(latencies, s.latency)
	}
	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		res.AvgLatency = average(latencies)
		res.P95Latency = percentile(latencies, 95)
		res.P99Latency = percentile(latencies, 99)
	}
	if elapsed > 0 {
		res.QPS = float64(res.TotalRequests) / elapsed.Seconds()
	}
	return res
}

func average(times []time.Duration) time.Duration {
	var sum time.Duration
	for _, t := range times {
		sum += t
	}
	return sum / time.Duration(len(times))
}

// percentile expects sorted input.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[int(float64(len(sorted)-1)*p/100.0)]
}
