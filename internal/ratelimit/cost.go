package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// ModelPricing is the per-million-token input/output cost for one model.
type ModelPricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// DefaultPricing is the fallback pricing table used when a model is not
// explicitly listed, keyed by model identifier.
var DefaultPricing = map[string]ModelPricing{
	"claude-sonnet-4-5-20250929": {InputPerMillion: 3.00, OutputPerMillion: 15.00},
	"claude-opus-4-5-20251101":   {InputPerMillion: 15.00, OutputPerMillion: 75.00},
	"claude-haiku-4-5-20251001":  {InputPerMillion: 0.80, OutputPerMillion: 4.00},
	"default":                    {InputPerMillion: 3.00, OutputPerMillion: 15.00},
}

// CalculateCost returns the dollar cost of an AI call using pricing, falling
// back to pricing["default"] for unlisted models.
func CalculateCost(pricing map[string]ModelPricing, model string, inputTokens, outputTokens int) float64 {
	p, ok := pricing[model]
	if !ok {
		p = pricing["default"]
	}
	return (float64(inputTokens)/1_000_000)*p.InputPerMillion + (float64(outputTokens)/1_000_000)*p.OutputPerMillion
}

// CostLimitExceeded is returned when recording a cost would breach a
// configured daily or per-issue budget.
type CostLimitExceeded struct {
	Scope   string // "daily" or "issue"
	Key     string
	Current float64
	Limit   float64
}

func (e *CostLimitExceeded) Error() string {
	return fmt.Sprintf("ratelimit: %s cost limit exceeded for %s: $%.4f > $%.2f", e.Scope, e.Key, e.Current, e.Limit)
}

// Operation is one recorded AI call, kept for reporting.
type Operation struct {
	Timestamp    time.Time
	Name         string
	Model        string
	InputTokens  int
	OutputTokens int
	Cost         float64
}

// CostTracker enforces a daily call/cost budget and a per-issue cost budget
// across concurrent callers.
type CostTracker struct {
	mu sync.Mutex

	pricing           map[string]ModelPricing
	dailyCallLimit    int
	dailyCostLimit    float64
	perIssueCostLimit float64
	alertThreshold    float64

	dailyCalls     int
	dailyCost      float64
	dailyResetTime time.Time
	issueCosts     map[string]float64
	operations     []Operation
}

// NewCostTracker builds a tracker with the given daily call count limit,
// daily dollar limit, per-issue dollar limit, and alert threshold. A nil
// pricing map uses DefaultPricing.
func NewCostTracker(dailyCallLimit int, dailyCostLimit, perIssueCostLimit, alertThreshold float64, pricing map[string]ModelPricing) *CostTracker {
	if pricing == nil {
		pricing = DefaultPricing
	}
	return &CostTracker{
		pricing:           pricing,
		dailyCallLimit:    dailyCallLimit,
		dailyCostLimit:    dailyCostLimit,
		perIssueCostLimit: perIssueCostLimit,
		alertThreshold:    alertThreshold,
		dailyResetTime:    nextMidnight(time.Now()),
		issueCosts:        make(map[string]float64),
	}
}

func nextMidnight(from time.Time) time.Time {
	return time.Date(from.Year(), from.Month(), from.Day()+1, 0, 0, 0, 0, from.Location())
}

func issueKey(repo string, issueNumber int) string {
	return fmt.Sprintf("%s#%d", repo, issueNumber)
}

func (ct *CostTracker) resetDailyIfNeeded() {
	now := time.Now()
	if now.Before(ct.dailyResetTime) {
		return
	}
	ct.dailyCalls = 0
	ct.dailyCost = 0
	ct.dailyResetTime = nextMidnight(now)
	if len(ct.issueCosts) > 1000 {
		ct.issueCosts = make(map[string]float64)
	}
}

// CanMakeCall reports whether another call is allowed under the daily limit.
func (ct *CostTracker) CanMakeCall() bool {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.resetDailyIfNeeded()
	return ct.dailyCallLimit <= 0 || ct.dailyCalls < ct.dailyCallLimit
}

// CanSpendIssue reports whether additionalCost would keep repo#issueNumber
// within its per-issue budget.
func (ct *CostTracker) CanSpendIssue(repo string, issueNumber int, additionalCost float64) bool {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	key := issueKey(repo, issueNumber)
	return ct.issueCosts[key]+additionalCost <= ct.perIssueCostLimit
}

// CheckLimits returns a *CostLimitExceeded if recording estimatedCost for
// repo#issueNumber would breach the daily or per-issue budget.
func (ct *CostTracker) CheckLimits(repo string, issueNumber int, estimatedCost float64) error {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.resetDailyIfNeeded()

	if ct.dailyCostLimit > 0 && ct.dailyCost+estimatedCost > ct.dailyCostLimit {
		return &CostLimitExceeded{Scope: "daily", Key: "global", Current: ct.dailyCost + estimatedCost, Limit: ct.dailyCostLimit}
	}
	key := issueKey(repo, issueNumber)
	if current := ct.issueCosts[key]; current+estimatedCost > ct.perIssueCostLimit {
		return &CostLimitExceeded{Scope: "issue", Key: key, Current: current + estimatedCost, Limit: ct.perIssueCostLimit}
	}
	return nil
}

// RecordCost computes the dollar cost of an AI call and records it against
// both the daily and per-issue ledgers, returning the computed cost and a
// *CostLimitExceeded if it pushed either ledger over budget (the cost is
// still recorded; callers decide whether to treat it as fatal).
func (ct *CostTracker) RecordCost(repo string, issueNumber int, model, operationName string, inputTokens, outputTokens int) (float64, error) {
	cost := CalculateCost(ct.pricing, model, inputTokens, outputTokens)

	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.resetDailyIfNeeded()

	ct.dailyCalls++
	ct.dailyCost += cost
	key := issueKey(repo, issueNumber)
	ct.issueCosts[key] += cost
	ct.operations = append(ct.operations, Operation{
		Timestamp:    time.Now(),
		Name:         operationName,
		Model:        model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         cost,
	})

	if ct.dailyCostLimit > 0 && ct.dailyCost > ct.dailyCostLimit {
		return cost, &CostLimitExceeded{Scope: "daily", Key: "global", Current: ct.dailyCost, Limit: ct.dailyCostLimit}
	}
	if ct.issueCosts[key] > ct.perIssueCostLimit {
		return cost, &CostLimitExceeded{Scope: "issue", Key: key, Current: ct.issueCosts[key], Limit: ct.perIssueCostLimit}
	}
	return cost, nil
}

// RecordKnownCost records a pre-computed dollar cost (e.g. one already
// reported by the agent CLI's own "result" envelope) against the daily and
// per-issue ledgers without recomputing it from a token count.
func (ct *CostTracker) RecordKnownCost(repo string, issueNumber int, operationName string, cost float64) error {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.resetDailyIfNeeded()

	ct.dailyCalls++
	ct.dailyCost += cost
	key := issueKey(repo, issueNumber)
	ct.issueCosts[key] += cost
	ct.operations = append(ct.operations, Operation{Timestamp: time.Now(), Name: operationName, Cost: cost})

	if ct.dailyCostLimit > 0 && ct.dailyCost > ct.dailyCostLimit {
		return &CostLimitExceeded{Scope: "daily", Key: "global", Current: ct.dailyCost, Limit: ct.dailyCostLimit}
	}
	if ct.issueCosts[key] > ct.perIssueCostLimit {
		return &CostLimitExceeded{Scope: "issue", Key: key, Current: ct.issueCosts[key], Limit: ct.perIssueCostLimit}
	}
	return nil
}

// DailyStats is a point-in-time snapshot of the daily ledger.
type DailyStats struct {
	DailyCalls     int
	DailyCost      float64
	DailyCallLimit int
	DailyCostLimit float64
	NextResetTime  time.Time
}

// Stats returns the current daily statistics.
func (ct *CostTracker) Stats() DailyStats {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.resetDailyIfNeeded()
	return DailyStats{
		DailyCalls:     ct.dailyCalls,
		DailyCost:      ct.dailyCost,
		DailyCallLimit: ct.dailyCallLimit,
		DailyCostLimit: ct.dailyCostLimit,
		NextResetTime:  ct.dailyResetTime,
	}
}
