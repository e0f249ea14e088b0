package main

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
)

// routeStats tracks latency and outcomes for one engine operation
type routeStats struct {
	name string

	mu         sync.Mutex
	durations  []time.Duration
	totalCalls int
	rejections int
	failures   int
}

// addDuration records a completed call and classifies its outcome
func (rs *routeStats) addDuration(d time.Duration, rejected, failed bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.durations = append(rs.durations, d)
	rs.totalCalls++
	if rejected {
		rs.rejections++
	}
	if failed {
		rs.failures++
	}
}

// calculate computes performance statistics from recorded durations
// Returns min, max, mean, median, 95th percentile, and 99th percentile durations
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))
	median = rs.durations[len(rs.durations)/2]

	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(rs.durations))*0.99)) - 1
	p95 = rs.durations[p95idx]
	p99 = rs.durations[p99idx]

	return
}

type simulationStats struct {
	routes map[string]*routeStats
	order  []string
}

func newSimulationStats() *simulationStats {
	s := &simulationStats{routes: map[string]*routeStats{}}
	for _, op := range []struct{ key, name string }{
		{"deposit", "Deposit"},
		{"transfer", "Transfer"},
		{"buy", "Buy"},
		{"sell", "Sell"},
	} {
		s.routes[op.key] = &routeStats{name: op.name}
		s.order = append(s.order, op.key)
	}
	return s
}

func (s *simulationStats) totals() (calls, rejections, failures int) {
	for _, rs := range s.routes {
		rs.mu.Lock()
		calls += rs.totalCalls
		rejections += rs.rejections
		failures += rs.failures
		rs.mu.Unlock()
	}
	return
}

// printPerformanceStats renders one row per operation
func (s *simulationStats) printPerformanceStats() {
	fmt.Println("\nOperation Performance Statistics")
	fmt.Println(strings.Repeat("-", 112))
	fmt.Printf("%-12s %8s %8s %8s %12s %12s %12s %12s %12s %12s\n",
		"Operation", "Calls", "Reject", "Failed", "Min", "Max", "Mean", "Median", "P95", "P99")
	fmt.Println(strings.Repeat("-", 112))

	for _, key := range s.order {
		rs := s.routes[key]
		min, max, mean, median, p95, p99 := rs.calculate()
		fmt.Printf("%-12s %8d %8d %8d %12s %12s %12s %12s %12s %12s\n",
			rs.name, rs.totalCalls, rs.rejections, rs.failures,
			min.Round(time.Microsecond), max.Round(time.Microsecond), mean.Round(time.Microsecond),
			median.Round(time.Microsecond), p95.Round(time.Microsecond), p99.Round(time.Microsecond))
	}
	fmt.Println(strings.Repeat("-", 112))
}
