package llmcall

import "sort"

// Summary aggregates cost, token and latency figures over recorded calls.
type Summary struct {
	Count        int `json:"count"`
	SuccessCount int `json:"success_count"`
	ErrorCount   int `json:"error_count"`

	TotalCostUSD float64 `json:"total_cost_usd"`
	AvgCostUSD   float64 `json:"avg_cost_usd"`

	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`

	// Latency percentiles (milliseconds)
	LatencyP50 float64 `json:"latency_p50_ms"`
	LatencyP95 float64 `json:"latency_p95_ms"`
	LatencyMax float64 `json:"latency_max_ms"`

	CostByPromptKey map[string]float64 `json:"cost_by_prompt_key,omitempty"`
	CostByModel     map[string]float64 `json:"cost_by_model,omitempty"`
}

// Summarize returns a Summary of the calls matching filter. Limit and
// Offset are ignored.
func (s *Store) Summarize(filter QueryFilter) *Summary {
	filter.Limit, filter.Offset = 0, 0
	return Summarize(s.List(filter))
}

// Summarize aggregates calls.
func Summarize(calls []Call) *Summary {
	sum := &Summary{Count: len(calls)}
	if len(calls) == 0 {
		return sum
	}
	sum.CostByPromptKey = make(map[string]float64)
	sum.CostByModel = make(map[string]float64)

	latencies := make([]float64, 0, len(calls))
	for _, c := range calls {
		if c.Success {
			sum.SuccessCount++
		} else {
			sum.ErrorCount++
		}
		sum.TotalCostUSD += c.CostUSD
		sum.InputTokens += c.InputTokens
		sum.OutputTokens += c.OutputTokens
		sum.CostByPromptKey[c.PromptKey] += c.CostUSD
		if c.Model != "" {
			sum.CostByModel[c.Model] += c.CostUSD
		}
		latencies = append(latencies, float64(c.LatencyMs))
	}
	sum.AvgCostUSD = sum.TotalCostUSD / float64(sum.Count)

	sort.Float64s(latencies)
	sum.LatencyP50 = percentile(latencies, 50)
	sum.LatencyP95 = percentile(latencies, 95)
	sum.LatencyMax = latencies[len(latencies)-1]

	return sum
}

// percentile interpolates the p-th percentile of sorted values.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	idx := (p / 100.0) * float64(len(sorted)-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	weight := idx - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
