package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/platformbuilds/datadog-badges/internal/loadtest"
	"github.com/platformbuilds/datadog-badges/pkg/logger"
)

func main() {
	flags := pflag.NewFlagSet("loadtest", pflag.ExitOnError)
	baseURL := flags.String("base-url", "http://localhost:8080", "server root including the context root")
	duration := flags.Duration("duration", time.Minute, "test duration")
	workers := flags.Int("workers", 10, "number of concurrent workers")
	pause := flags.Duration("pause", 10*time.Millisecond, "pause between requests of one worker")
	targets := flags.StringArray("target", nil, "weighted badge target ACCOUNT/MONITOR[?QUERY][=WEIGHT], repeatable")
	output := flags.String("output", "", "write JSON results to this file")
	logLevel := flags.String("log-level", "info", "log level")
	_ = flags.Parse(os.Args[1:])

	log := logger.New(*logLevel)

	if len(*targets) == 0 {
		fmt.Fprintln(os.Stderr, "at least one --target is required")
		os.Exit(2)
	}
	parsed := make([]loadtest.Target, 0, len(*targets))
	for _, raw := range *targets {
		t, err := parseTarget(raw)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		parsed = append(parsed, t)
	}

	tester, err := loadtest.NewLoadTester(loadtest.Config{
		BaseURL:           *baseURL,
		Duration:          *duration,
		ConcurrentWorkers: *workers,
		Pause:             *pause,
		Targets:           parsed,
	}, log)
	if err != nil {
		log.Fatal("Invalid load test configuration", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := tester.Run(ctx)
	if err != nil {
		log.Fatal("Load test failed", "error", err)
	}

	fmt.Printf("Duration:    %v\n", res.TotalDuration)
	fmt.Printf("Requests:    %d (%d failed)\n", res.TotalRequests, res.FailedRequests)
	for code, n := range res.StatusCodes {
		fmt.Printf("  HTTP %d:  %d\n", code, n)
	}
	fmt.Printf("Avg latency: %v\n", res.AvgLatency)
	fmt.Printf("P95 latency: %v\n", res.P95Latency)
	fmt.Printf("P99 latency: %v\n", res.P99Latency)
	fmt.Printf("QPS:         %.2f\n", res.QPS)
	for _, e := range res.Errors {
		fmt.Printf("  error: %s\n", e)
	}

	if *output != "" {
		data, err := json.MarshalIndent(res, "", "  ")
		if err == nil {
			err = os.WriteFile(*output, data, 0o644)
		}
		if err != nil {
			log.Error("Failed to save results", "file", *output, "error", err)
			os.Exit(1)
		}
		fmt.Printf("Results saved to %s\n", *output)
	}
}

// parseTarget reads ACCOUNT/MONITOR[?QUERY][=WEIGHT]. The weight suffix is
// taken after the last '=' only when it parses as an integer.
func parseTarget(raw string) (loadtest.Target, error) {
	t := loadtest.Target{Weight: 1}
	rest := raw
	if i := strings.LastIndexByte(rest, '='); i >= 0 {
		if w, err := strconv.Atoi(rest[i+1:]); err == nil {
			t.Weight = w
			rest = rest[:i]
		}
	}
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		q, err := url.ParseQuery(rest[i+1:])
		if err != nil {
			return t, fmt.Errorf("target %q: %w", raw, err)
		}
		t.Query = q
		rest = rest[:i]
	}
	account, monitorID, ok := strings.Cut(rest, "/")
	if !ok || account == "" || monitorID == "" {
		return t, fmt.Errorf("target %q: want ACCOUNT/MONITOR", raw)
	}
	t.Account, t.MonitorID = account, monitorID
	return t, nil
}
