package health

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"resty.dev/v3"
)

// Result is the outcome of probing one backend service
type Result struct {
	Name       string
	URL        string
	Reachable  bool
	StatusCode int
	Latency    time.Duration
	Err        error
}

// Probe checks every backend in parallel. A service counts as reachable when
// it answers at all without a 5xx; the storefront only needs to know whether
// requests will get through.
func Probe(ctx context.Context, services map[string]string, timeout time.Duration) []Result {
	resultsCh := make(chan Result, len(services))
	semaphore := make(chan struct{}, 8)

	var wg sync.WaitGroup

	log.Infof("🔄 Probing %d services...", len(services))

	for name, baseURL := range services {
		wg.Add(1)

		go func(name, baseURL string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			result := probeOne(ctx, name, baseURL, timeout)
			if result.Reachable {
				log.Infof("✅ %s is reachable at %s (%s)", name, baseURL, result.Latency.Round(time.Millisecond))
			} else {
				log.Warnf("❌ %s is not reachable at %s", name, baseURL)
			}
			resultsCh <- result
		}(name, baseURL)
	}

	wg.Wait()
	close(resultsCh)

	results := make([]Result, 0, len(services))
	for result := range resultsCh {
		results = append(results, result)
	}
	slices.SortFunc(results, func(a, b Result) int {
		return strings.Compare(a.Name, b.Name)
	})

	return results
}

func probeOne(ctx context.Context, name, baseURL string, timeout time.Duration) Result {
	result := Result{Name: name, URL: baseURL}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0)
	defer client.Close()

	start := time.Now()
	resp, err := client.R().
		SetContext(ctx).
		Get(strings.TrimRight(baseURL, "/") + "/health")
	result.Latency = time.Since(start)

	if err != nil {
		log.Debugf("Probe of %s failed: %v", name, err)
		result.Err = err
		return result
	}

	result.StatusCode = resp.StatusCode()
	result.Reachable = resp.StatusCode() < 500
	return result
}

// AllReachable reports whether every probed service answered
func AllReachable(results []Result) bool {
	for _, result := range results {
		if !result.Reachable {
			return false
		}
	}
	return true
}
