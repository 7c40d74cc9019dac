package journey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/internal/logging"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/domain"
)

// declaration is one step collected during the first build phase.
type declaration struct {
	segment  string
	step     StepNode
	opts     []StepOption
	notional bool
	task     *Task
}

// Builder assembles a journey graph in two phases.
// Declarations are collected in caller order; Build then initialises them in
// that order, refusing any step whose parents depend on a node that has not
// been initialised yet.
type Builder struct {
	state       *StateService
	decls       []declaration
	unreachable func(ctx context.Context) (domain.Destination, error)
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	errs        []error
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger configures a logger for the built orchestrators.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithHooks registers lifecycle hooks fired by the built orchestrators.
func WithHooks(hooks domain.LifecycleHooks) BuilderOption {
	return func(b *Builder) {
		b.hooks = b.hooks.Merge(hooks)
	}
}

// NewBuilder creates a builder whose steps read and write state.
func NewBuilder(state *StateService, opts ...BuilderOption) *Builder {
	b := &Builder{
		state:  state,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Journey declares and builds a graph in one call.
func Journey(state *StateService, declare func(b *Builder), opts ...BuilderOption) (*Graph, error) {
	b := NewBuilder(state, opts...)
	declare(b)
	return b.Build()
}

// Step declares a visitable step under a route segment.
func (b *Builder) Step(segment string, step StepNode, opts ...StepOption) {
	if segment == "" {
		b.fail(domain.NewConfigurationError("step %s is declared without a route segment", step.Name()))
		return
	}
	b.decls = append(b.decls, declaration{segment: segment, step: step, opts: opts})
}

// NotionalStep declares a step that is never visited but can be depended on.
func (b *Builder) NotionalStep(step StepNode, opts ...StepOption) {
	b.decls = append(b.decls, declaration{step: step, opts: opts, notional: true})
}

// Task declares every step of task, followed by its exit step.
// The task's parents guard its first step.
func (b *Builder) Task(task *Task, opts ...TaskOption) {
	settings := &taskSettings{}
	for _, opt := range opts {
		opt(settings)
	}
	task.redir = settings.redir

	ts := &TaskSteps{task: task}
	if task.declare != nil {
		task.declare(ts)
	}
	if len(ts.decls) == 0 {
		b.fail(domain.NewConfigurationError("task %s declares no steps", task.name))
		return
	}
	if !ts.hasExit {
		b.fail(domain.NewConfigurationError("task %s declares no exit", task.name))
		return
	}

	first := &ts.decls[0]
	for _, p := range settings.parents {
		first.opts = append([]StepOption{Parents(p)}, first.opts...)
	}

	task.members = task.members[:0]
	for _, d := range ts.decls {
		task.members = append(task.members, d.step)
	}
	b.decls = append(b.decls, ts.decls...)
	b.decls = append(b.decls, declaration{step: task.exit, opts: ts.exitOpts, notional: true, task: task})
}

// UnreachableStepURL sends requests for unreachable steps to an external location.
func (b *Builder) UnreachableStepURL(url string) {
	b.setUnreachable(func(context.Context) (domain.Destination, error) {
		return domain.URLDestination(url), nil
	})
}

// UnreachableStepStep sends requests for unreachable steps to target.
func (b *Builder) UnreachableStepStep(target Routable) {
	b.setUnreachable(func(ctx context.Context) (domain.Destination, error) {
		return GoTo(ctx, target)
	})
}

// UnreachableStepDestination sends requests for unreachable steps to a computed destination.
func (b *Builder) UnreachableStepDestination(dest func(ctx context.Context) (domain.Destination, error)) {
	b.setUnreachable(dest)
}

func (b *Builder) setUnreachable(dest func(ctx context.Context) (domain.Destination, error)) {
	if b.unreachable != nil {
		b.fail(domain.NewConfigurationError("unreachableStepDestination has already been set"))
		return
	}
	b.unreachable = dest
}

func (b *Builder) fail(err error) {
	b.errs = append(b.errs, err)
}

// Build initialises every declared step in declaration order and returns the graph.
func (b *Builder) Build() (*Graph, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}

	g := &Graph{
		journeyID:     b.state.JourneyID(),
		orchestrators: make(map[string]*Orchestrator),
	}
	for _, d := range b.decls {
		settings := d.step.settingsFor()
		for _, opt := range d.opts {
			opt(settings)
		}
		if settings.err != nil {
			return nil, settings.err
		}

		if err := checkForUninitialisedParents(d, settings.parentage()); err != nil {
			return nil, err
		}
		if !d.notional {
			if _, dup := g.orchestrators[d.segment]; dup {
				return nil, domain.NewConfigurationError("route segment %q is declared more than once", d.segment)
			}
		}
		if err := d.step.initialise(b, d, settings); err != nil {
			return nil, err
		}

		g.descriptors = append(g.descriptors, d.step.describe())
		if !d.notional {
			g.segments = append(g.segments, d.segment)
			g.orchestrators[d.segment] = &Orchestrator{step: d.step}
		}
	}

	b.logger.Debug("Journey graph built", "journey_id", g.journeyID, "steps", len(g.segments))
	return g, nil
}

func checkForUninitialisedParents(d declaration, parents Parentage) error {
	var missing []string
	for _, dep := range parents.Dependencies() {
		if !dep.initialised() {
			missing = append(missing, dep.Name())
		}
	}
	if len(missing) == 0 {
		return nil
	}

	name := d.segment
	if name == "" {
		name = d.step.Name()
	}
	return domain.NewConfigurationError(
		"Step %s has uninitialised potential parents on initialisation: \n- %s\n"+
			"This could imply a dependency loop, or that these two steps are declared in the wrong order.",
		name, strings.Join(missing, "\n- "),
	)
}

// StepDescriptor describes one built step and the nodes its parents depend on.
type StepDescriptor struct {
	Name         string   `json:"name"`
	Segment      string   `json:"segment,omitempty"`
	Notional     bool     `json:"notional,omitempty"`
	Task         string   `json:"task,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// Graph is a built journey: an immutable map from route segment to orchestrator.
type Graph struct {
	journeyID     string
	orchestrators map[string]*Orchestrator
	segments      []string
	descriptors   []StepDescriptor
}

// Orchestrator returns the orchestrator of a visitable step.
func (g *Graph) Orchestrator(segment string) (*Orchestrator, bool) {
	o, ok := g.orchestrators[segment]
	return o, ok
}

// Segments lists the visitable route segments in declaration order.
func (g *Graph) Segments() []string {
	return append([]string(nil), g.segments...)
}

// Describe lists every built step, notional ones included, in declaration order.
func (g *Graph) Describe() []StepDescriptor {
	return append([]StepDescriptor(nil), g.descriptors...)
}

// String renders a compact listing of the graph, mainly for logs and tests.
func (g *Graph) String() string {
	var sb strings.Builder
	for _, d := range g.descriptors {
		label := d.Segment
		if d.Notional {
			label = "(" + d.Name + ")"
		}
		fmt.Fprintf(&sb, "%s <- [%s]\n", label, strings.Join(d.Dependencies, ", "))
	}
	return sb.String()
}
