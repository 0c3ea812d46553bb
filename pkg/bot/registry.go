package bot

import "sort"

// DefaultPriority is used for rules registered without an explicit priority.
const DefaultPriority = 500

// Rule binds selectors to a handler. Lower priorities are evaluated first.
type Rule struct {
	Priority    int
	Selectors   []Selector
	Handler     Handler
	Middlewares []MiddlewareRef
}

// RuleOption adjusts a rule at registration.
type RuleOption func(*Rule)

// Priority sets the evaluation priority.
func Priority(n int) RuleOption {
	return func(r *Rule) {
		r.Priority = n
	}
}

// Use appends middleware to the rule, outermost first.
func Use(refs ...MiddlewareRef) RuleOption {
	return func(r *Rule) {
		r.Middlewares = append(r.Middlewares, refs...)
	}
}

// Registry keeps rules in priority buckets. Registration order is preserved
// within a bucket.
type Registry struct {
	buckets map[int][]*Rule
	count   int
}

func NewRegistry() *Registry {
	return &Registry{buckets: make(map[int][]*Rule)}
}

func (r *Registry) Register(rule *Rule) {
	r.buckets[rule.Priority] = append(r.buckets[rule.Priority], rule)
	r.count++
}

// Flatten returns the rules in dispatch order: ascending priority, then
// registration order.
func (r *Registry) Flatten() []*Rule {
	priorities := make([]int, 0, len(r.buckets))
	for priority := range r.buckets {
		priorities = append(priorities, priority)
	}
	sort.Ints(priorities)

	rules := make([]*Rule, 0, r.count)
	for _, priority := range priorities {
		rules = append(rules, r.buckets[priority]...)
	}
	return rules
}

func (r *Registry) Clear() {
	r.buckets = make(map[int][]*Rule)
	r.count = 0
}

func (r *Registry) Len() int {
	return r.count
}
