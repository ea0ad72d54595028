package authz

import (
	"sync"
)

// Gate decides, per operation, whether an actor may proceed against a
// target entity kind.
type Gate interface {
	Authorize(actor Actor, op Operation, kind string) bool
}

// Effect is the outcome a matching rule produces
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Rule matches an operation against a kind and requires a capability.
// An empty Kind matches every kind. An empty Capability matches every
// actor, anonymous callers included.
type Rule struct {
	Operation  Operation  `yaml:"operation"`
	Kind       string     `yaml:"kind,omitempty"`
	Capability Capability `yaml:"capability,omitempty"`
	Effect     Effect     `yaml:"effect"`
}

func (r Rule) matches(op Operation, kind string) bool {
	if r.Operation != op {
		return false
	}
	return r.Kind == "" || r.Kind == kind
}

// RuleGate evaluates an ordered rule table. Rules are checked in order and
// the first conclusive rule decides; anything unmatched is denied.
type RuleGate struct {
	mu    sync.RWMutex
	rules []Rule
}

// NewRuleGate creates a gate with the given rule table
func NewRuleGate(rules []Rule) *RuleGate {
	return &RuleGate{rules: rules}
}

// DefaultRules is the built-in policy: submission requires the kind's
// submit/manage capability, review requires the kind's review capability,
// and inactive listings require the view-inactive capability.
func DefaultRules() []Rule {
	return []Rule{
		{Operation: OpSubmit, Kind: "extension", Capability: CapSubmitExtensions, Effect: EffectAllow},
		{Operation: OpSubmit, Kind: "langpack", Capability: CapManageLangPacks, Effect: EffectAllow},
		{Operation: OpReview, Kind: "extension", Capability: CapReviewExtensions, Effect: EffectAllow},
		{Operation: OpReview, Kind: "langpack", Capability: CapReviewLangPacks, Effect: EffectAllow},
		{Operation: OpViewInactive, Capability: CapViewInactive, Effect: EffectAllow},
	}
}

// Authorize evaluates the rule table in order; the first rule that matches
// the operation/kind and whose capability requirement the actor satisfies
// decides the outcome. No match means deny.
func (g *RuleGate) Authorize(actor Actor, op Operation, kind string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, rule := range g.rules {
		if !rule.matches(op, kind) {
			continue
		}
		if rule.Capability != "" && !actor.HasCapability(rule.Capability) {
			continue
		}
		return rule.Effect == EffectAllow
	}
	return false
}

// Replace swaps the rule table atomically
func (g *RuleGate) Replace(rules []Rule) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rules = rules
}

// Rules returns a copy of the current rule table
func (g *RuleGate) Rules() []Rule {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Rule, len(g.rules))
	copy(out, g.rules)
	return out
}

// GateFunc adapts a function to the Gate interface, used by tests to stub
// trivial allow/deny policies.
type GateFunc func(actor Actor, op Operation, kind string) bool

// Authorize implements Gate
func (f GateFunc) Authorize(actor Actor, op Operation, kind string) bool {
	return f(actor, op, kind)
}

// AllowAll authorizes every request
func AllowAll() Gate {
	return GateFunc(func(Actor, Operation, string) bool { return true })
}

// DenyAll rejects every request
func DenyAll() Gate {
	return GateFunc(func(Actor, Operation, string) bool { return false })
}
