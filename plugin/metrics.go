package plugin

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/model"
)

// MetricsOptions configures the metrics plugin.
type MetricsOptions struct {
	// Namespace prefixes every metric name. Defaults to "agentloop".
	Namespace string

	// Registerer receives the collectors. Defaults to the global registerer.
	Registerer prometheus.Registerer
}

// Metrics is an observe-only plugin that records model and tool call counts,
// durations, and token usage as Prometheus metrics. Every hook returns nil so
// the chain always continues past it.
type Metrics struct {
	Base

	modelCalls    *prometheus.CounterVec
	modelDuration *prometheus.HistogramVec
	modelTokens   *prometheus.CounterVec
	toolCalls     *prometheus.CounterVec
	toolDuration  *prometheus.HistogramVec

	// Tool calls fan out concurrently, so start times need locking.
	mu          sync.Mutex
	modelStarts map[string]time.Time
	toolStarts  map[string]time.Time
}

// NewMetrics constructs the metrics plugin and registers its collectors.
func NewMetrics(optFns ...func(o *MetricsOptions)) *Metrics {
	opts := MetricsOptions{
		Namespace:  "agentloop",
		Registerer: prometheus.DefaultRegisterer,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	factory := promauto.With(opts.Registerer)

	return &Metrics{
		modelCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "model_calls_total",
			Help:      "Total number of model calls by agent and outcome.",
		}, []string{"agent", "status"}),
		modelDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Name:      "model_call_duration_seconds",
			Help:      "Model call latency in seconds by agent.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"agent"}),
		modelTokens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "model_tokens_total",
			Help:      "Total tokens consumed by agent and direction.",
		}, []string{"agent", "direction"}),
		toolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "tool_calls_total",
			Help:      "Total number of tool calls by tool and outcome.",
		}, []string{"tool", "status"}),
		toolDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Name:      "tool_call_duration_seconds",
			Help:      "Tool call latency in seconds by tool.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
		modelStarts: map[string]time.Time{},
		toolStarts:  map[string]time.Time{},
	}
}

// Name implements Plugin.
func (m *Metrics) Name() string { return "metrics" }

// BeforeModel records the call start time keyed by run ID.
func (m *Metrics) BeforeModel(cc *core.CallbackContext, _ *model.Request) (*model.Response, error) {
	m.mu.Lock()
	m.modelStarts[cc.RunID()] = time.Now()
	m.mu.Unlock()

	return nil, nil
}

// AfterModel records a successful model call.
func (m *Metrics) AfterModel(cc *core.CallbackContext, resp *model.Response) (*model.Response, error) {
	agent := cc.AgentName()
	m.modelCalls.WithLabelValues(agent, "success").Inc()
	m.observeModelDuration(cc.RunID(), agent)

	if resp != nil && resp.Usage != nil {
		m.modelTokens.WithLabelValues(agent, "prompt").Add(float64(resp.Usage.PromptTokens))
		m.modelTokens.WithLabelValues(agent, "completion").Add(float64(resp.Usage.CompletionTokens))
	}

	return nil, nil
}

// OnModelError records a failed model call.
func (m *Metrics) OnModelError(cc *core.CallbackContext, _ *model.Request, _ error) (*model.Response, error) {
	agent := cc.AgentName()
	m.modelCalls.WithLabelValues(agent, "error").Inc()
	m.observeModelDuration(cc.RunID(), agent)

	return nil, nil
}

// BeforeTool records the call start time keyed by tool call ID.
func (m *Metrics) BeforeTool(tc *core.ToolContext, _ string, _ map[string]any) (map[string]any, error) {
	m.mu.Lock()
	m.toolStarts[tc.FunctionCallID()] = time.Now()
	m.mu.Unlock()

	return nil, nil
}

// AfterTool records a successful tool call.
func (m *Metrics) AfterTool(tc *core.ToolContext, toolName string, _ map[string]any, _ any) (map[string]any, error) {
	m.toolCalls.WithLabelValues(toolName, "success").Inc()
	m.observeToolDuration(tc.FunctionCallID(), toolName)

	return nil, nil
}

// OnToolError records a failed tool call.
func (m *Metrics) OnToolError(tc *core.ToolContext, toolName string, _ map[string]any, _ error) (map[string]any, error) {
	m.toolCalls.WithLabelValues(toolName, "error").Inc()
	m.observeToolDuration(tc.FunctionCallID(), toolName)

	return nil, nil
}

func (m *Metrics) observeModelDuration(runID, agent string) {
	m.mu.Lock()
	start, ok := m.modelStarts[runID]
	delete(m.modelStarts, runID)
	m.mu.Unlock()

	if ok {
		m.modelDuration.WithLabelValues(agent).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) observeToolDuration(callID, toolName string) {
	m.mu.Lock()
	start, ok := m.toolStarts[callID]
	delete(m.toolStarts, callID)
	m.mu.Unlock()

	if ok {
		m.toolDuration.WithLabelValues(toolName).Observe(time.Since(start).Seconds())
	}
}
