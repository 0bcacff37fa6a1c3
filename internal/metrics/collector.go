package metrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jinzhu/inflection"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Counters is a per-execution tally of node/wave outcomes.
type Counters struct {
	NodesStarted   int
	NodesCompleted int
	NodesFailed    int
	NodesSkipped   int
	WavesStarted   int
	WavesCompleted int
	WaveDurations  []time.Duration
}

// Alert is raised when a configured threshold is crossed.
type Alert struct {
	ExecutionID string
	Message     string
	Timestamp   time.Time
}

// Threshold configures alerting, e.g. "node failure rate exceeds N% in a
// window of at least MinSamples nodes" (spec §9, generalized).
type Threshold struct {
	FailureRate float64
	MinSamples  int
}

// Collector aggregates per-execution counters behind an RWMutex (spec §5:
// "Metrics map: RW-lock"), raises threshold Alerts, and emits an
// OpenTelemetry span per node/wave via SpanNode/SpanWave, mirroring the
// teacher's observer.Event stream generalized into an aggregator.
//
// Grounded on: internal/application/observer (Event/EventType taxonomy,
// here re-aggregated instead of dispatched to arbitrary observers) plus
// internal/infrastructure/tracing's StartSpan convenience wrapper.
type Collector struct {
	mu         sync.RWMutex
	counters   map[string]*Counters
	alerts     []Alert
	threshold  Threshold
	tracer     trace.Tracer
	subscriber func(Event)
}

func NewCollector(threshold Threshold) *Collector {
	return &Collector{
		counters:  make(map[string]*Counters),
		threshold: threshold,
		tracer:    otel.Tracer("flowmesh/engine"),
	}
}

// Subscribe registers a sink that receives every recorded Event, used to
// wire a WebSocketBroadcaster without the collector importing it.
func (c *Collector) Subscribe(fn func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriber = fn
}

func (c *Collector) counterFor(execID string) *Counters {
	cnt, ok := c.counters[execID]
	if !ok {
		cnt = &Counters{}
		c.counters[execID] = cnt
	}
	return cnt
}

// Record updates counters for evt and checks alert thresholds.
func (c *Collector) Record(evt Event) {
	c.mu.Lock()
	cnt := c.counterFor(evt.ExecutionID)
	switch evt.Type {
	case EventNodeStarted:
		cnt.NodesStarted++
	case EventNodeCompleted:
		cnt.NodesCompleted++
	case EventNodeFailed:
		cnt.NodesFailed++
	case EventNodeSkipped:
		cnt.NodesSkipped++
	case EventWaveStarted:
		cnt.WavesStarted++
	case EventWaveCompleted:
		cnt.WavesCompleted++
		cnt.WaveDurations = append(cnt.WaveDurations, time.Duration(evt.DurationMs)*time.Millisecond)
	}
	sub := c.subscriber
	alert := c.checkThresholdLocked(evt.ExecutionID, cnt)
	c.mu.Unlock()

	if sub != nil {
		sub(evt)
	}
	_ = alert
}

func (c *Collector) checkThresholdLocked(execID string, cnt *Counters) *Alert {
	total := cnt.NodesCompleted + cnt.NodesFailed
	if c.threshold.FailureRate <= 0 || total < c.threshold.MinSamples || total == 0 {
		return nil
	}
	rate := float64(cnt.NodesFailed) / float64(total)
	if rate < c.threshold.FailureRate {
		return nil
	}
	noun := "failure"
	if cnt.NodesFailed != 1 {
		noun = inflection.Plural(noun)
	}
	a := Alert{
		ExecutionID: execID,
		Timestamp:   time.Now(),
		Message: fmt.Sprintf("%s exceeded failure rate threshold: %d %s out of %d (%.0f%%)",
			execID, cnt.NodesFailed, noun, total, rate*100),
	}
	c.alerts = append(c.alerts, a)
	return &a
}

// Counters returns a copy of the current tally for an execution.
func (c *Collector) Counters(executionID string) Counters {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cnt, ok := c.counters[executionID]
	if !ok {
		return Counters{}
	}
	return *cnt
}

// Alerts returns all raised alerts for an execution.
func (c *Collector) Alerts(executionID string) []Alert {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Alert
	for _, a := range c.alerts {
		if a.ExecutionID == executionID {
			out = append(out, a)
		}
	}
	return out
}

// Reset discards counters and alerts for a finished execution.
func (c *Collector) Reset(executionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.counters, executionID)
	filtered := c.alerts[:0]
	for _, a := range c.alerts {
		if a.ExecutionID != executionID {
			filtered = append(filtered, a)
		}
	}
	c.alerts = filtered
}

// SpanNode starts a span covering one node execution and returns a
// finisher to call with the node's outcome.
func (c *Collector) SpanNode(ctx context.Context, executionID, nodeName string) (context.Context, func(err error)) {
	spanCtx, span := c.tracer.Start(ctx, "node.execute",
		trace.WithAttributes(
			attribute.String("flowmesh.execution_id", executionID),
			attribute.String("flowmesh.node_name", nodeName),
		))
	return spanCtx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// SpanWave starts a span covering one planner group ("wave").
func (c *Collector) SpanWave(ctx context.Context, executionID string, waveIndex, nodeCount int) (context.Context, func(err error)) {
	spanCtx, span := c.tracer.Start(ctx, "execution.wave",
		trace.WithAttributes(
			attribute.String("flowmesh.execution_id", executionID),
			attribute.Int("flowmesh.wave_index", waveIndex),
			attribute.Int("flowmesh.node_count", nodeCount),
		))
	return spanCtx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
