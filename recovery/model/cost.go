package model

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Pricing is the cost of a model in USD per 1M tokens.
type Pricing struct {
	InputPer1M  float64
	OutputPer1M float64
}

// DefaultPricing covers the default models of the bundled providers plus a
// few common alternatives. Prices change; override with SetPricing.
var DefaultPricing = map[string]Pricing{
	"gpt-4o":                     {InputPer1M: 2.50, OutputPer1M: 10.00},
	"gpt-4o-mini":                {InputPer1M: 0.15, OutputPer1M: 0.60},
	"gpt-4-turbo":                {InputPer1M: 10.00, OutputPer1M: 30.00},
	"claude-3-5-sonnet-20241022": {InputPer1M: 3.00, OutputPer1M: 15.00},
	"claude-3-opus-20240229":     {InputPer1M: 15.00, OutputPer1M: 75.00},
	"claude-3-haiku-20240307":    {InputPer1M: 0.25, OutputPer1M: 1.25},
	"gemini-2.5-flash":           {InputPer1M: 0.30, OutputPer1M: 2.50},
	"gemini-1.5-pro":             {InputPer1M: 1.25, OutputPer1M: 5.00},
	"gemini-1.5-flash":           {InputPer1M: 0.075, OutputPer1M: 0.30},
}

// Call is one billed model invocation.
type Call struct {
	Model        string
	Computation  string
	InputTokens  int64
	OutputTokens int64
	CostUSD      float64
	Timestamp    time.Time
}

// CostTracker accumulates token usage and cost of model calls that
// actually reached a provider. Replayed replies are never recorded when
// the tracker sits beneath Checkpointed (see Metered).
//
// Unknown models are recorded with zero cost. Safe for concurrent use.
type CostTracker struct {
	mu           sync.RWMutex
	pricing      map[string]Pricing
	calls        []Call
	total        float64
	byModel      map[string]float64
	inputTokens  int64
	outputTokens int64
	enabled      bool
}

// NewCostTracker creates a tracker using DefaultPricing.
func NewCostTracker() *CostTracker {
	pricing := make(map[string]Pricing, len(DefaultPricing))
	for k, v := range DefaultPricing {
		pricing[k] = v
	}
	return &CostTracker{
		pricing: pricing,
		byModel: make(map[string]float64),
		enabled: true,
	}
}

// Record adds one call and returns its cost.
func (ct *CostTracker) Record(model, computation string, usage Usage) float64 {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	if !ct.enabled {
		return 0
	}

	p := ct.pricing[model]
	cost := float64(usage.InputTokens)/1_000_000*p.InputPer1M +
		float64(usage.OutputTokens)/1_000_000*p.OutputPer1M

	ct.calls = append(ct.calls, Call{
		Model:        model,
		Computation:  computation,
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		CostUSD:      cost,
		Timestamp:    time.Now(),
	})
	ct.total += cost
	ct.byModel[model] += cost
	ct.inputTokens += usage.InputTokens
	ct.outputTokens += usage.OutputTokens
	return cost
}

// Total returns the cumulative cost in USD.
func (ct *CostTracker) Total() float64 {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.total
}

// CostByModel returns a copy of the per-model cost breakdown.
func (ct *CostTracker) CostByModel() map[string]float64 {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	out := make(map[string]float64, len(ct.byModel))
	for k, v := range ct.byModel {
		out[k] = v
	}
	return out
}

// Calls returns a copy of the recorded calls in order.
func (ct *CostTracker) Calls() []Call {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	out := make([]Call, len(ct.calls))
	copy(out, ct.calls)
	return out
}

// Tokens returns the total input and output token counts.
func (ct *CostTracker) Tokens() (input, output int64) {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.inputTokens, ct.outputTokens
}

// SetPricing overrides the price of one model.
func (ct *CostTracker) SetPricing(model string, inputPer1M, outputPer1M float64) {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.pricing[model] = Pricing{InputPer1M: inputPer1M, OutputPer1M: outputPer1M}
}

// Disable stops recording until Enable is called.
func (ct *CostTracker) Disable() {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.enabled = false
}

// Enable resumes recording.
func (ct *CostTracker) Enable() {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.enabled = true
}

// Reset clears recorded calls and totals. Pricing is kept.
func (ct *CostTracker) Reset() {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	ct.calls = nil
	ct.total = 0
	ct.byModel = make(map[string]float64)
	ct.inputTokens = 0
	ct.outputTokens = 0
}

func (ct *CostTracker) String() string {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return fmt.Sprintf("CostTracker{Calls: %d, Total: $%.4f, InputTokens: %d, OutputTokens: %d}",
		len(ct.calls), ct.total, ct.inputTokens, ct.outputTokens)
}

// Metered returns a ChatModel that records the Usage of every successful
// reply from m in tracker under modelName and computation.
//
// Wrap the provider first and checkpoint the result, so that only calls
// which reach the provider are billed:
//
//	llm := model.Checkpointed(inst, model.Metered(provider, tracker, "gpt-4o-mini", inst.Name()))
func Metered(m ChatModel, tracker *CostTracker, modelName, computation string) ChatModel {
	return &metered{next: m, tracker: tracker, model: modelName, computation: computation}
}

type metered struct {
	next        ChatModel
	tracker     *CostTracker
	model       string
	computation string
}

func (m *metered) Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error) {
	out, err := m.next.Chat(ctx, messages, tools)
	if err != nil {
		return out, err
	}
	m.tracker.Record(m.model, m.computation, out.Usage)
	return out, nil
}
