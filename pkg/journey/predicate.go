package journey

import (
	"context"
)

// Node is anything a parent predicate can depend on: steps and tasks.
// A node must be initialised by the builder before another node may depend on it.
type Node interface {
	Name() string
	initialised() bool
}

// Parentage decides whether a step may be visited given the stored answers.
type Parentage interface {
	// Allowed reports whether the parents currently permit the child step.
	Allowed(ctx context.Context) (bool, error)

	// Dependencies lists the nodes the predicate reads.
	Dependencies() []Node
}

type predicate struct {
	deps  []Node
	check func(ctx context.Context) (bool, error)
}

func (p predicate) Allowed(ctx context.Context) (bool, error) {
	return p.check(ctx)
}

func (p predicate) Dependencies() []Node {
	return p.deps
}

// Check builds a custom predicate over deps.
func Check(deps []Node, check func(ctx context.Context) (bool, error)) Parentage {
	return predicate{deps: deps, check: check}
}

// NoParents permits the step unconditionally. It is the default for steps that declare no parents.
func NoParents() Parentage {
	return predicate{check: func(context.Context) (bool, error) { return true, nil }}
}

// Always permits the child once step is reachable and holds a valid answer, whatever its outcome.
func Always(step StepNode) Parentage {
	return predicate{
		deps:  []Node{step},
		check: step.complete,
	}
}

// IsComplete permits the child once task is complete.
func IsComplete(task *Task) Parentage {
	return predicate{
		deps: []Node{task},
		check: func(ctx context.Context) (bool, error) {
			return task.IsComplete(ctx)
		},
	}
}

// And permits the child when every part does. Evaluation stops at the first refusal.
func And(parts ...Parentage) Parentage {
	return predicate{
		deps: dependenciesOf(parts),
		check: func(ctx context.Context) (bool, error) {
			for _, p := range parts {
				ok, err := p.Allowed(ctx)
				if err != nil || !ok {
					return false, err
				}
			}
			return true, nil
		},
	}
}

// Or permits the child when any part does.
func Or(parts ...Parentage) Parentage {
	return predicate{
		deps: dependenciesOf(parts),
		check: func(ctx context.Context) (bool, error) {
			for _, p := range parts {
				ok, err := p.Allowed(ctx)
				if err != nil {
					return false, err
				}
				if ok {
					return true, nil
				}
			}
			return false, nil
		},
	}
}

func dependenciesOf(parts []Parentage) []Node {
	var deps []Node
	seen := map[Node]bool{}
	for _, p := range parts {
		for _, d := range p.Dependencies() {
			if !seen[d] {
				seen[d] = true
				deps = append(deps, d)
			}
		}
	}
	return deps
}
