package resolve

import "github.com/leapstack-labs/sqlscope/pkg/schema"

// Action tells a traversal whether to keep going.
type Action uint8

const (
	// Continue asks the traversal for the next item.
	Continue Action = iota
	// Stop ends the traversal early.
	Stop
)

func (a Action) String() string {
	if a == Stop {
		return "stop"
	}
	return "continue"
}

// Processor consumes the items a traversal produces.
type Processor[T any] interface {
	Process(item T) Action
}

// FindByName stops at the first definition whose name matches.
type FindByName[T Definition] struct {
	name  string
	found T
	ok    bool
}

// NewFindByName returns a processor looking for name.
func NewFindByName[T Definition](name string) *FindByName[T] {
	return &FindByName[T]{name: schema.FoldName(name)}
}

// Process implements Processor.
func (f *FindByName[T]) Process(item T) Action {
	n := item.Name()
	if n == "" || f.name == "" || schema.FoldName(n) != f.name {
		return Continue
	}
	f.found, f.ok = item, true
	return Stop
}

// Result returns the match, if any.
func (f *FindByName[T]) Result() (T, bool) {
	return f.found, f.ok
}

// CollectUniqueNames keeps the first definition seen for every name.
// Unnamed definitions are dropped since nothing can refer to them.
type CollectUniqueNames[T Definition] struct {
	seen  map[string]struct{}
	items []T
}

// NewCollectUniqueNames returns an empty collector.
func NewCollectUniqueNames[T Definition]() *CollectUniqueNames[T] {
	return &CollectUniqueNames[T]{seen: make(map[string]struct{})}
}

// Process implements Processor.
func (c *CollectUniqueNames[T]) Process(item T) Action {
	n := item.Name()
	if n == "" {
		return Continue
	}
	key := schema.FoldName(n)
	if _, dup := c.seen[key]; dup {
		return Continue
	}
	c.seen[key] = struct{}{}
	c.items = append(c.items, item)
	return Continue
}

// Items returns the collected definitions in the order they were first seen.
func (c *CollectUniqueNames[T]) Items() []T {
	return c.items
}

// CollectAll keeps every item, named or not.
type CollectAll[T any] struct {
	Items []T
}

// Process implements Processor.
func (c *CollectAll[T]) Process(item T) Action {
	c.Items = append(c.Items, item)
	return Continue
}

// AllColumns flattens every table it is given into its columns and
// forwards them to Delegate.
type AllColumns struct {
	Delegate   Processor[Column]
	InProgress NodeSet
	// Tables counts the tables visited. Zero means no table was visible at
	// all, e.g. a SELECT without a FROM clause yet.
	Tables int
}

// Process implements Processor.
func (a *AllColumns) Process(t Table) Action {
	a.Tables++
	return t.ProcessColumns(a.Delegate, a.InProgress)
}

// IgnoreViews drops views, CTEs and subqueries before forwarding.
type IgnoreViews struct {
	Delegate Processor[Table]
}

// Process implements Processor.
func (v IgnoreViews) Process(t Table) Action {
	if t.IsView() {
		return Continue
	}
	return v.Delegate.Process(t)
}
