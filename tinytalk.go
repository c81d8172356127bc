// Package tinytalk is the top-level facade over the scene engine: a
// thin wrapper gluing the parser to the store and exposing the handful
// of calls a host needs.
package tinytalk

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/tinylanders/tinytalk/internal/ast"
	"github.com/tinylanders/tinytalk/internal/dsl"
	"github.com/tinylanders/tinytalk/internal/observability"
	"github.com/tinylanders/tinytalk/internal/reactive"
	"github.com/tinylanders/tinytalk/internal/scene"
	"github.com/tinylanders/tinytalk/internal/serialization"
)

// TinyTalk owns a reactive engine and the parser used to load rules
// into it.
type TinyTalk struct {
	engine *reactive.Engine
	parser *dsl.Parser
	logger *slog.Logger
}

// New returns an empty TinyTalk instance. A nil logger falls back to
// slog.Default.
func New(logger *slog.Logger) (*TinyTalk, error) {
	p, err := dsl.NewParser()
	if err != nil {
		return nil, fmt.Errorf("tinytalk: building parser: %w", err)
	}
	return &TinyTalk{
		engine: reactive.New(logger),
		parser: p,
		logger: logger,
	}, nil
}

// SetMetrics wires an observability sink so rule loads, executions, and
// drains are counted.
func (t *TinyTalk) SetMetrics(m *observability.Metrics) {
	t.engine.SetMetrics(m)
}

// SetSoftCap overrides the engine's per-drain iteration cap.
func (t *TinyTalk) SetSoftCap(n int) {
	t.engine.SetSoftCap(n)
}

// LoadRule parses and loads a single rule, returning its engine id.
func (t *TinyTalk) LoadRule(src string) (int, error) {
	r, err := t.parser.ParseRule(src)
	if err != nil {
		if m := t.engine.Metrics(); m != nil {
			m.ParseFailures.Inc()
		}
		return 0, err
	}
	return t.engine.LoadRule(r), nil
}

// LoadRuleFile parses every blank-line-delimited entry in r and loads
// the ones that parse. It returns one RuleFileResult per entry — a
// failing entry does not prevent the others from loading; a parse
// failure on any rule aborts only that rule's load.
func (t *TinyTalk) LoadRuleFile(r io.Reader) ([]dsl.RuleFileResult, error) {
	results, err := dsl.ParseRuleFile(r)
	if err != nil {
		return nil, err
	}
	metrics := t.engine.Metrics()
	for _, res := range results {
		if res.Err != nil {
			if metrics != nil {
				metrics.ParseFailures.Inc()
			}
			continue
		}
		t.engine.LoadRule(res.Rule)
	}
	return results, nil
}

// CreateObject creates an object in the scene and enqueues the rules it
// triggers for the next Drain.
func (t *TinyTalk) CreateObject(id string, tags []string, attrs map[string]ast.Value) *scene.Object {
	return t.engine.CreateObject(id, tags, attrs)
}

// UpdateObject patches an object in the scene and enqueues the rules it
// triggers for the next Drain.
func (t *TinyTalk) UpdateObject(id string, patch map[string]ast.Value) (*scene.Object, error) {
	return t.engine.UpdateObject(id, patch)
}

// Get and Objects expose read-only scene access.
func (t *TinyTalk) Get(id string) (*scene.Object, bool) {
	return t.engine.Get(id)
}

func (t *TinyTalk) Objects() []*scene.Object {
	return t.engine.Iter()
}

// Drain runs one drain of the engine's reactive loop over the work
// enqueued so far, returning whether any rule ran. Work that those rules
// cascade waits for the next Drain.
func (t *TinyTalk) Drain() bool {
	return t.engine.ExecuteLoop()
}

// Render renders the current scene into the appMarkers/virtualObjects
// envelope a tinyland client expects.
func (t *TinyTalk) Render() serialization.Envelope {
	return serialization.Render(t.engine.Iter())
}

// WriteRenderJSON renders the current scene and writes it as JSON to w.
func (t *TinyTalk) WriteRenderJSON(w io.Writer) error {
	return serialization.WriteJSON(t.engine.Iter(), w)
}
