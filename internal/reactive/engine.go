// Package reactive owns the mutable scene together with the rule table
// and the trigger-indexed drain loop that cascades rule execution in
// response to scene mutations, grounded on original_source/tinytalk's
// scene.py TinylandScene — a single owner kept separate from the dumb
// CRUD scene.Scene it wraps.
package reactive

import (
	"log/slog"
	"sort"
	"strconv"
	"sync"

	"github.com/tinylanders/tinytalk/internal/ast"
	"github.com/tinylanders/tinytalk/internal/observability"
	"github.com/tinylanders/tinytalk/internal/rule"
	"github.com/tinylanders/tinytalk/internal/scene"
)

// defaultSoftCap bounds a single ExecuteLoop drain so a pathologically
// large current queue cannot block the engine's thread indefinitely;
// exceeding it logs a warning and stops the drain early.
const defaultSoftCap = 10000

// workItem is one (rule, triggering object) pair awaiting execution.
type workItem struct {
	RuleID    int
	TriggerID string
}

// Engine is the single owner of the scene, the loaded rule table, the
// trigger indices, and the current/next drain queues. All host access
// goes through its methods; nothing outside this package mutates the
// scene directly.
//
// A rule fired during a drain may itself create or update objects that
// trigger further rules. Those cascade-produced work items are always
// deferred to the *next* drain rather than folded into the one in
// progress: scene.py's own cascade() recurses into newly-triggered work
// immediately, which is sound for a stable (same-id) cascade loop — the
// executed-set bounds it — but a cascade that keeps minting fresh ids
// (a rule creating a brand new object on every match) never repeats an
// id and so never trips that bound, and the original recurses without
// limit. Routing every cascade-produced item to the next drain instead
// bounds each drain strictly to the work enqueued before it started —
// each drain adds exactly one generation of new objects, not an
// unbounded chain of them.
type Engine struct {
	mu sync.Mutex

	scene *scene.Scene
	rules []*ast.Rule

	createTriggers triggerIndex
	updateTriggers triggerIndex

	draining bool

	curQueue []workItem
	curSet   map[workItem]struct{}

	nextQueue []workItem
	nextSet   map[workItem]struct{}

	softCap int
	logger  *slog.Logger

	metrics *observability.Metrics
}

// New returns an empty Engine. A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		scene:          scene.New(),
		createTriggers: newTriggerIndex(),
		updateTriggers: newTriggerIndex(),
		curSet:         make(map[workItem]struct{}),
		nextSet:        make(map[workItem]struct{}),
		softCap:        defaultSoftCap,
		logger:         logger,
	}
}

// SetSoftCap overrides the per-drain iteration cap (default
// defaultSoftCap).
func (e *Engine) SetSoftCap(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.softCap = n
}

// SetMetrics attaches a metrics sink. Rule loads, executions, and drains
// are counted against it from then on; nil (the default) disables
// counting.
func (e *Engine) SetMetrics(m *observability.Metrics) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.metrics = m
}

// Metrics returns the currently attached metrics sink, or nil if none was
// set. Callers loading rule sources from outside this package (the rule
// file loader) use this to count parse failures against the same sink.
func (e *Engine) Metrics() *observability.Metrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.metrics
}

// LoadRule appends r to the rule table and indexes its premise's tags,
// returning the rule's id (its index).
func (e *Engine) LoadRule(r *ast.Rule) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := len(e.rules)
	e.rules = append(e.rules, r)
	indexRule(id, r.Premise, e.createTriggers, e.updateTriggers)
	if e.metrics != nil {
		e.metrics.RulesLoaded.Inc()
	}
	return id
}

// CreateObject creates an object in the scene and enqueues every rule
// its tags trigger for the next drain.
func (e *Engine) CreateObject(id string, tags []string, attrs map[string]ast.Value) *scene.Object {
	e.mu.Lock()
	defer e.mu.Unlock()

	obj := e.scene.Create(id, tags, attrs)
	e.enqueue(e.createTriggers, obj.ID, obj.Tags)
	return obj
}

// UpdateObject patches an object in the scene and enqueues every rule
// its tags trigger for the next drain.
func (e *Engine) UpdateObject(id string, patch map[string]ast.Value) (*scene.Object, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	obj, err := e.scene.Update(id, patch)
	if err != nil {
		return nil, err
	}
	e.enqueue(e.updateTriggers, obj.ID, obj.Tags)
	return obj, nil
}

// Get and Iter expose read-only scene access for rendering.
func (e *Engine) Get(id string) (*scene.Object, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scene.Get(id)
}

func (e *Engine) Iter() []*scene.Object {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scene.Iter()
}

// ExecuteLoop drains the current work queue: every item queued before
// this call runs exactly once, in enqueue order. Anything a rule's
// consequences cascade during the drain is deferred to the next one
// (see the Engine doc comment). If the soft cap is exceeded the drain
// stops early, and the items still on the current queue are dropped
// rather than carried into the next drain. Returns whether any item was
// dequeued.
func (e *Engine) ExecuteLoop() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	ran := false
	e.draining = true

	iterations := 0
	for len(e.curQueue) > 0 {
		item := e.curQueue[0]
		e.curQueue = e.curQueue[1:]
		delete(e.curSet, item)
		ran = true

		iterations++
		if iterations > e.softCap {
			e.logger.Warn("drain exceeded soft iteration cap, stopping early",
				"cap", e.softCap, "remaining", len(e.curQueue))
			break
		}

		e.runItem(item)
	}

	e.draining = false
	e.curQueue, e.nextQueue = e.nextQueue, nil
	e.curSet, e.nextSet = e.nextSet, make(map[workItem]struct{})
	if ran && e.metrics != nil {
		e.metrics.DrainsRun.Inc()
	}
	return ran
}

func (e *Engine) runItem(item workItem) {
	r := e.rules[item.RuleID]
	affected, err := rule.Execute(r, item.TriggerID, e.scene)
	if err != nil {
		e.logger.Error("rule execution failed", "rule_id", item.RuleID, "trigger_id", item.TriggerID, "error", err)
		return
	}
	if len(affected) > 0 && e.metrics != nil {
		e.metrics.RuleExecutions.WithLabelValues(strconv.Itoa(item.RuleID)).Inc()
	}
	for _, a := range affected {
		triggers := e.createTriggers
		if a.Kind == rule.Updated {
			triggers = e.updateTriggers
		}
		tagSet := make(map[string]struct{}, len(a.Tags))
		for _, t := range a.Tags {
			tagSet[t] = struct{}{}
		}
		e.enqueue(triggers, a.ID, tagSet)
	}
}

// enqueue resolves the rule ids triggers' tag set fires and schedules
// each (rule, id) pair: onto curQueue when called from outside a drain
// (a host mutation), or onto nextQueue when called while one is in
// progress (a cascade). Either way a pair already queued on that side
// is not queued twice.
func (e *Engine) enqueue(triggers triggerIndex, id string, tags map[string]struct{}) {
	ruleIDs := triggers.ruleIDsFor(tags)
	if len(ruleIDs) == 0 {
		return
	}

	ordered := make([]int, 0, len(ruleIDs))
	for ruleID := range ruleIDs {
		ordered = append(ordered, ruleID)
	}
	sort.Ints(ordered)

	queue, set := &e.curQueue, e.curSet
	if e.draining {
		queue, set = &e.nextQueue, e.nextSet
	}

	for _, ruleID := range ordered {
		item := workItem{RuleID: ruleID, TriggerID: id}
		if _, queued := set[item]; queued {
			continue
		}
		set[item] = struct{}{}
		*queue = append(*queue, item)
	}
}
