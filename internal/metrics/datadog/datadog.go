// Package datadog implements a Datadog backend for the internal/metrics
// package.
//
// The MCP server is long-lived while the CLI is one-shot, and both share
// this backend. Submitting only at process exit would collapse a server's
// history into a single spike, so instead we:
//
//   - buffer observations in memory (fast, lock-protected)
//   - periodically Flush() on a ticker (default: once per minute)
//   - Flush() one final time on Close()
//
// Concurrency model:
//   - tool handlers call IncCounter/ObserveHistogram at any time
//   - Flush snapshots+resets buffers under a mutex, then submits out-of-lock
//   - the flush loop calls Flush() periodically; Close() stops the loop
//
// If the process dies with SIGKILL/OOM, Close() never runs; no backend can
// fix that.
package datadog

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/metrics"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
)

// Options controls Datadog backend configuration.
type Options struct {
	// JobName becomes tag "job:<name>" on every metric.
	// If empty, defaults to "contract".
	JobName string

	// Tags are extra Datadog tags (e.g. []string{"env:prod", "service:contract-mcp"}).
	Tags []string

	// FlushEvery controls how often buffered metrics are submitted.
	// If <= 0, defaults to 60 seconds.
	FlushEvery time.Duration

	// The following fields are unexported test seams. Production code never
	// sets them; unit tests use them to avoid real network submission and
	// nondeterministic clocks/tickers.
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter metricsSubmitter
}

// metricsSubmitter is the minimal interface needed to submit metrics.
//
// The Datadog SDK exposes a concrete *datadogV2.MetricsApi, which cannot be
// stubbed without real HTTP. Backend depends on this interface instead, so
// tests can inject a fake submitter.
type metricsSubmitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// Backend implements metrics.Backend for Datadog.
type Backend struct {
	api metricsSubmitter
	ctx context.Context

	flushEvery time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}

	baseTags []string

	// now is injected for deterministic tests. Production uses time.Now.
	now func() time.Time

	// newTicker is injected for deterministic tests. Production uses time.NewTicker.
	newTicker func(d time.Duration) *time.Ticker

	mu sync.Mutex

	toolCounts    map[string]float64 // tool+status -> calls
	sourceCounts  map[string]float64 // kind -> sources analyzed
	contractCount float64
	toolDurations map[string][]float64 // tool+status -> seconds

	dbQueryCounts map[string]float64   // backend -> queries
	dbErrCounts   map[string]float64   // backend -> failed queries
	dbQueryDur    map[string][]float64 // backend -> seconds
	inferColumns  map[string][]float64 // kind -> column counts
}

func resolveEnvTag() string {
	if v := strings.TrimSpace(os.Getenv("ENV")); v != "" {
		return "env:" + v
	}
	if v := strings.TrimSpace(os.Getenv("DD_ENV")); v != "" {
		return "env:" + v
	}
	return "env:unknown"
}

func (b *Backend) loop() {
	defer close(b.doneCh)

	t := b.newTicker(b.flushEvery)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			_ = b.Flush()
		case <-b.stopCh:
			return
		}
	}
}

// Close stops the background flush loop and performs one final Flush().
//
// Errors:
//   - Returns any error from the final Flush() submission.
//   - Calling Close twice panics (stopCh is closed twice). Standard
//     close-once semantics; the backend lives for the whole process.
func (b *Backend) Close() error {
	close(b.stopCh)
	<-b.doneCh
	return b.Flush()
}

// NewBackend constructs a Datadog backend using the official client. The
// client reads DD_API_KEY (and friends) from the environment.
//
// Edge cases:
//   - If opts.FlushEvery <= 0, defaults to 60s.
//   - If opts.JobName is empty, defaults to "contract".
//   - Environment tag selection uses ENV then DD_ENV, otherwise env:unknown.
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	job := opts.JobName
	if job == "" {
		job = "contract"
	}

	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 60 * time.Second
	}

	envTag := resolveEnvTag()
	baseTags := make([]string, 0, 2+len(opts.Tags))
	baseTags = append(baseTags, envTag, "job:"+job)
	baseTags = append(baseTags, opts.Tags...)

	// Clock / ticker seams.
	nowFn := opts.now
	if nowFn == nil {
		nowFn = time.Now
	}
	newTicker := opts.newTicker
	if newTicker == nil {
		newTicker = time.NewTicker
	}

	// Submitter seam.
	submitter := opts.submitter
	if submitter == nil {
		cfg := dd.NewConfiguration()
		client := dd.NewAPIClient(cfg)
		submitter = datadogV2.NewMetricsApi(client)
	}

	b := &Backend{
		api:        submitter,
		ctx:        dd.NewDefaultContext(parent),
		flushEvery: flushEvery,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),

		baseTags: baseTags,

		now:       nowFn,
		newTicker: newTicker,

		toolCounts:    make(map[string]float64),
		sourceCounts:  make(map[string]float64),
		toolDurations: make(map[string][]float64),

		dbQueryCounts: make(map[string]float64),
		dbErrCounts:   make(map[string]float64),
		dbQueryDur:    make(map[string][]float64),
		inferColumns:  make(map[string][]float64),
	}

	go b.loop()
	return b, nil
}

// IncCounter implements metrics.Backend.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch name {
	case "contract_tool_total":
		tool := labels["tool"]
		status := labels["status"]
		b.toolCounts[toolStatusKey(tool, status)] += delta

	case "contract_sources_total":
		kind := labels["kind"]
		if kind == "" {
			return
		}
		b.sourceCounts[kind] += delta

	case "contract_contracts_total":
		b.contractCount += delta

	case "contract_db_queries_total":
		backend := labels["backend"]
		if backend == "" {
			backend = "unknown"
		}
		b.dbQueryCounts[backend] += delta

	case "contract_db_errors_total":
		backend := labels["backend"]
		if backend == "" {
			backend = "unknown"
		}
		b.dbErrCounts[backend] += delta

	default:
		// Unknown metrics are dropped.
	}
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if value < 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch name {
	case "contract_tool_duration_seconds":
		tool := labels["tool"]
		status := labels["status"]
		k := toolStatusKey(tool, status)
		b.toolDurations[k] = append(b.toolDurations[k], value)

	case "contract_db_query_duration_seconds":
		backend := labels["backend"]
		if backend == "" {
			backend = "unknown"
		}
		b.dbQueryDur[backend] = append(b.dbQueryDur[backend], value)

	case "contract_infer_columns":
		kind := labels["kind"]
		if kind == "" {
			kind = "unknown"
		}
		b.inferColumns[kind] = append(b.inferColumns[kind], value)

	default:
		// Unknown histograms are dropped.
	}
}

// snapshot is the buffered metric state handed to a single flush.
//
// Flush() must reset buffers under a lock but submit out-of-lock; snapshot
// separates (1) collect+reset from (2) payload building+submission.
type snapshot struct {
	toolCounts    map[string]float64
	sourceCounts  map[string]float64
	contractCount float64
	toolDurations map[string][]float64

	dbQueryCounts map[string]float64
	dbErrCounts   map[string]float64
	dbQueryDur    map[string][]float64
	inferColumns  map[string][]float64
}

// snapshotAndReset grabs current buffered metrics and resets the buffers.
// Takes the lock internally and returns detached maps.
func (b *Backend) snapshotAndReset() snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := snapshot{
		toolCounts:    b.toolCounts,
		sourceCounts:  b.sourceCounts,
		contractCount: b.contractCount,
		toolDurations: b.toolDurations,

		dbQueryCounts: b.dbQueryCounts,
		dbErrCounts:   b.dbErrCounts,
		dbQueryDur:    b.dbQueryDur,
		inferColumns:  b.inferColumns,
	}

	b.toolCounts = make(map[string]float64)
	b.sourceCounts = make(map[string]float64)
	b.contractCount = 0
	b.toolDurations = make(map[string][]float64)

	b.dbQueryCounts = make(map[string]float64)
	b.dbErrCounts = make(map[string]float64)
	b.dbQueryDur = make(map[string][]float64)
	b.inferColumns = make(map[string][]float64)

	return s
}

// isEmpty returns true if the snapshot contains no data to submit.
func (s snapshot) isEmpty() bool {
	return len(s.toolCounts) == 0 &&
		len(s.sourceCounts) == 0 &&
		s.contractCount == 0 &&
		len(s.toolDurations) == 0 &&
		len(s.dbQueryCounts) == 0 &&
		len(s.dbErrCounts) == 0 &&
		len(s.dbQueryDur) == 0 &&
		len(s.inferColumns) == 0
}

// Flush submits buffered metrics to Datadog and resets local buffers.
//
// Errors:
//   - Returns any error from Datadog submission.
//   - Returns nil if there is nothing to submit.
//
// Edge cases:
//   - Safe to call concurrently with IncCounter/ObserveHistogram.
//   - Buffers are reset even if submission fails, so a broken intake never
//     blocks tool handlers or grows memory without bound.
func (b *Backend) Flush() error {
	snap := b.snapshotAndReset()
	if snap.isEmpty() {
		return nil
	}

	nowUnix := b.now().Unix()

	series := b.buildSeries(snap, nowUnix)
	payload := datadogV2.MetricPayload{Series: series}

	_, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters())
	return err
}

// buildSeries constructs Datadog series for a snapshot at a fixed timestamp.
// It is pure (no locks, no network, no clocks), which keeps the naming and
// tagging rules unit-testable.
func (b *Backend) buildSeries(s snapshot, nowUnix int64) []datadogV2.MetricSeries {
	addCount := func(metric string, value float64, tags []string) datadogV2.MetricSeries {
		return datadogV2.MetricSeries{
			Metric: metric,
			Type:   datadogV2.METRICINTAKETYPE_COUNT.Ptr(),
			Points: []datadogV2.MetricPoint{
				{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
			},
			Tags: tags,
		}
	}

	series := make([]datadogV2.MetricSeries, 0, len(s.toolCounts)+len(s.sourceCounts)+64)

	// Tool call counters.
	for k, v := range s.toolCounts {
		if v == 0 {
			continue
		}
		tool, status := splitToolStatusKey(k)
		tags := withTags(b.baseTags, "tool:"+tool, "status:"+status)
		series = append(series, addCount("contract.tool.total", v, tags))
	}

	// Source counters.
	for kind, v := range s.sourceCounts {
		if v == 0 {
			continue
		}
		tags := withTags(b.baseTags, "kind:"+kind)
		series = append(series, addCount("contract.sources.total", v, tags))
	}

	// Contract counter.
	if s.contractCount != 0 {
		series = append(series, addCount("contract.contracts.total", s.contractCount, b.baseTags))
	}

	// Tool duration percentiles.
	for k, samples := range s.toolDurations {
		tool, status := splitToolStatusKey(k)
		tags := withTags(b.baseTags, "tool:"+tool, "status:"+status)
		addPercentiles(&series, "contract.tool.duration_seconds", tags, samples, nowUnix)
	}

	// Database counters.
	for backend, v := range s.dbQueryCounts {
		if v == 0 {
			continue
		}
		tags := withTags(b.baseTags, "backend:"+backend)
		series = append(series, addCount("contract.db.queries.total", v, tags))
	}
	for backend, v := range s.dbErrCounts {
		if v == 0 {
			continue
		}
		tags := withTags(b.baseTags, "backend:"+backend)
		series = append(series, addCount("contract.db.errors.total", v, tags))
	}

	// Database and inference percentiles.
	for backend, samples := range s.dbQueryDur {
		tags := withTags(b.baseTags, "backend:"+backend)
		addPercentiles(&series, "contract.db.query_duration_seconds", tags, samples, nowUnix)
	}
	for kind, samples := range s.inferColumns {
		tags := withTags(b.baseTags, "kind:"+kind)
		addPercentiles(&series, "contract.infer.columns", tags, samples, nowUnix)
	}

	return series
}

// addPercentiles appends a fixed set of percentile gauges for a sample set.
//
// Edge cases:
//   - If samples is empty, it does nothing.
//   - It sorts a copy of samples (does not mutate input).
func addPercentiles(series *[]datadogV2.MetricSeries, metricPrefix string, tags []string, samples []float64, nowUnix int64) {
	if len(samples) == 0 {
		return
	}
	cp := append([]float64(nil), samples...)
	sort.Float64s(cp)

	*series = append(*series, gaugeSeries(metricPrefix+".p50", percentileNearestRank(cp, 0.50), tags, nowUnix))
	*series = append(*series, gaugeSeries(metricPrefix+".p90", percentileNearestRank(cp, 0.90), tags, nowUnix))
	*series = append(*series, gaugeSeries(metricPrefix+".p95", percentileNearestRank(cp, 0.95), tags, nowUnix))
	*series = append(*series, gaugeSeries(metricPrefix+".p99", percentileNearestRank(cp, 0.99), tags, nowUnix))
	*series = append(*series, gaugeSeries(metricPrefix+".max", cp[len(cp)-1], tags, nowUnix))
	*series = append(*series, gaugeSeries(metricPrefix+".samples", float64(len(cp)), tags, nowUnix))
}

func gaugeSeries(metric string, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   datadogV2.METRICINTAKETYPE_GAUGE.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

func toolStatusKey(tool, status string) string {
	return tool + "\x00" + status
}

func splitToolStatusKey(k string) (tool, status string) {
	parts := strings.SplitN(k, "\x00", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return k, "unknown"
}

func withTags(base []string, extras ...string) []string {
	out := make([]string, 0, len(base)+len(extras))
	out = append(out, base...)
	out = append(out, extras...)
	return out
}

func percentileNearestRank(s []float64, p float64) float64 {
	n := len(s)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return s[0]
	}
	if p >= 1 {
		return s[n-1]
	}
	idx := int(p*float64(n-1) + 0.5)
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return s[idx]
}

var _ metrics.Backend = (*Backend)(nil)

// ParseTagsCSV parses comma-separated tags like "env:prod,service:contract-mcp".
func ParseTagsCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func wrapInitErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("datadog metrics init: %w", err)
}
