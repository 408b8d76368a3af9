// engine/evaluator.go
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	conformd_errors "github.com/conformd/conformd/errors"
	logger "github.com/conformd/conformd/logging"
	"github.com/conformd/conformd/model"
)

// Evaluator runs policy rules against an environment snapshot. Rules
// share no mutable state, so they run concurrently on a bounded worker
// pool. A rule whose predicate faults yields unknown for that rule only;
// the batch always completes.
type Evaluator struct {
	workers  int
	programs *programCache
	cache    *decisionCache
}

func NewEvaluator(workers int, cacheTTL time.Duration) (*Evaluator, error) {
	if workers <= 0 {
		workers = 1
	}

	programs, err := newProgramCache()
	if err != nil {
		return nil, err
	}

	return &Evaluator{
		workers:  workers,
		programs: programs,
		cache:    newDecisionCache(cacheTTL),
	}, nil
}

// Evaluate runs every rule in the mapping once and aggregates the
// outcomes per control identifier.
func (e *Evaluator) Evaluate(ctx context.Context, mapping map[string][]model.PolicyRule, snapshot model.Snapshot) (map[string]model.EvaluationResult, error) {
	cacheKey := e.cacheKey(mapping, snapshot)
	if cached := e.cache.Get(cacheKey); cached != nil {
		logger.Debug("Decision cache hit", zap.Int("controls", len(cached)))
		return cached, nil
	}

	outcomes := e.evaluateRules(ctx, uniqueRules(mapping), snapshot)
	results := Aggregate(mapping, outcomes)

	e.cache.Set(cacheKey, results)
	return results, nil
}

// EvaluateRules runs a flat rule set and returns the per-rule outcomes,
// keyed by rule ID.
func (e *Evaluator) EvaluateRules(ctx context.Context, rules []model.PolicyRule, snapshot model.Snapshot) map[string]model.RuleOutcome {
	return e.evaluateRules(ctx, rules, snapshot)
}

func (e *Evaluator) evaluateRules(ctx context.Context, rules []model.PolicyRule, snapshot model.Snapshot) map[string]model.RuleOutcome {
	outcomes := make(map[string]model.RuleOutcome, len(rules))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for _, rule := range rules {
		rule := rule
		g.Go(func() error {
			outcome := e.evaluateRule(ctx, rule, snapshot)
			mu.Lock()
			outcomes[rule.ID] = outcome
			mu.Unlock()
			// Rule faults degrade to unknown; never fail the group.
			return nil
		})
	}

	// Always nil: workers swallow faults into outcomes.
	_ = g.Wait()
	return outcomes
}

func (e *Evaluator) evaluateRule(ctx context.Context, rule model.PolicyRule, snapshot model.Snapshot) (outcome model.RuleOutcome) {
	start := time.Now()
	outcome = model.RuleOutcome{RuleID: rule.ID, Status: model.StatusUnknown}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Rule predicate panicked",
				zap.String("ruleID", rule.ID),
				zap.Any("panic", r))
			outcome.Status = model.StatusUnknown
			outcome.Reason = fmt.Sprintf("%v: %v", conformd_errors.ErrRuleExecution, r)
		}
		outcome.Duration = time.Since(start)
	}()

	if err := ctx.Err(); err != nil {
		outcome.Reason = fmt.Sprintf("evaluation cancelled: %v", err)
		return outcome
	}

	prg, err := e.programs.program(rule.Expression)
	if err != nil {
		logger.Warn("Failed to compile rule expression",
			zap.String("ruleID", rule.ID),
			zap.Error(err))
		outcome.Reason = err.Error()
		return outcome
	}

	val, _, err := prg.Eval(map[string]interface{}{
		"env": snapshot.Attributes,
	})
	if err != nil {
		// Missing attributes and type errors land here. The rule is
		// unknown; siblings are unaffected.
		logger.Warn("Rule execution failed",
			zap.String("ruleID", rule.ID),
			zap.Error(err))
		outcome.Reason = fmt.Sprintf("%v: %v", conformd_errors.ErrRuleExecution, err)
		return outcome
	}

	passed, ok := val.Value().(bool)
	if !ok {
		outcome.Reason = fmt.Sprintf("predicate returned non-boolean value %v", val.Value())
		return outcome
	}

	if passed {
		outcome.Status = model.StatusPass
	} else {
		outcome.Status = model.StatusFail
		outcome.Reason = fmt.Sprintf("rule %s did not hold", rule.ID)
	}
	return outcome
}

// Aggregate combines per-rule outcomes into per-control results: pass
// only if every contributing rule passes, fail if any fails, unknown if
// none fail and at least one is unknown. A control with no rules is
// unknown.
func Aggregate(mapping map[string][]model.PolicyRule, outcomes map[string]model.RuleOutcome) map[string]model.EvaluationResult {
	results := make(map[string]model.EvaluationResult, len(mapping))

	for controlID, rules := range mapping {
		result := model.EvaluationResult{
			ControlID: controlID,
			Status:    model.StatusUnknown,
		}

		if len(rules) == 0 {
			result.Reasons = []string{"no policy rules registered for control"}
			results[controlID] = result
			continue
		}

		failed := false
		unknown := false
		for _, rule := range rules {
			result.RuleIDs = append(result.RuleIDs, rule.ID)
			outcome, evaluated := outcomes[rule.ID]
			if !evaluated {
				unknown = true
				continue
			}
			switch outcome.Status {
			case model.StatusFail:
				failed = true
			case model.StatusUnknown:
				unknown = true
			}
			if outcome.Reason != "" {
				result.Reasons = append(result.Reasons, outcome.Reason)
			}
		}
		sort.Strings(result.RuleIDs)

		switch {
		case failed:
			result.Status = model.StatusFail
		case unknown:
			result.Status = model.StatusUnknown
		default:
			result.Status = model.StatusPass
		}

		results[controlID] = result
	}

	return results
}

func uniqueRules(mapping map[string][]model.PolicyRule) []model.PolicyRule {
	seen := make(map[string]bool)
	var rules []model.PolicyRule
	for _, controlRules := range mapping {
		for _, rule := range controlRules {
			if !seen[rule.ID] {
				seen[rule.ID] = true
				rules = append(rules, rule)
			}
		}
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	return rules
}

func (e *Evaluator) cacheKey(mapping map[string][]model.PolicyRule, snapshot model.Snapshot) string {
	controlIDs := make([]string, 0, len(mapping))
	for controlID := range mapping {
		controlIDs = append(controlIDs, controlID)
	}
	sort.Strings(controlIDs)

	h := sha256.New()
	for _, controlID := range controlIDs {
		h.Write([]byte(controlID))
		h.Write([]byte{0})
		// Rule identity and revision are part of the key, so an updated
		// rule never serves its predecessor's verdict.
		for _, rule := range mapping[controlID] {
			h.Write([]byte(rule.ID))
			h.Write([]byte("@"))
			h.Write([]byte(strconv.Itoa(rule.Revision)))
			h.Write([]byte{0})
		}
	}
	// json.Marshal sorts map keys, so equal attribute maps hash equally.
	attrs, _ := json.Marshal(snapshot.Attributes)
	h.Write(attrs)

	return hex.EncodeToString(h.Sum(nil))
}

type decisionCacheEntry struct {
	results   map[string]model.EvaluationResult
	expiresAt time.Time
}

type decisionCache struct {
	mu      sync.RWMutex
	entries map[string]decisionCacheEntry
	ttl     time.Duration
}

func newDecisionCache(ttl time.Duration) *decisionCache {
	return &decisionCache{
		entries: make(map[string]decisionCacheEntry),
		ttl:     ttl,
	}
}

func (c *decisionCache) Get(key string) map[string]model.EvaluationResult {
	if c.ttl <= 0 {
		return nil
	}

	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		return nil
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil
	}
	return copyResults(entry.results)
}

func (c *decisionCache) Set(key string, results map[string]model.EvaluationResult) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = decisionCacheEntry{
		results:   copyResults(results),
		expiresAt: time.Now().Add(c.ttl),
	}
}

// copyResults clones a result map on the way in and out of the cache.
// Callers extend the returned map with per-request entries; a shared
// reference would leak those entries into later cache hits.
func copyResults(results map[string]model.EvaluationResult) map[string]model.EvaluationResult {
	cloned := make(map[string]model.EvaluationResult, len(results))
	for controlID, result := range results {
		result.RuleIDs = append([]string(nil), result.RuleIDs...)
		result.Reasons = append([]string(nil), result.Reasons...)
		cloned[controlID] = result
	}
	return cloned
}
