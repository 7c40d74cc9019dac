package journey

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/domain"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/form"
)

// Complete is the mode of steps with a single successful outcome.
type Complete int

// Completed is the only value of Complete.
const Completed Complete = 1

// NoInput is the form model of steps that submit no fields.
type NoInput struct{}

// StepConfig supplies the step specific behaviour of a Step.
// M is the step's own closed set of outcomes, F its form model.
type StepConfig[M comparable, F any] interface {
	// Template names the page template used to render the step.
	Template() string

	// Content returns the step specific view content.
	Content(ctx context.Context) (map[string]any, error)

	// Bind converts raw page data into the form model.
	// Field problems are reported as form.Errors.
	Bind(ctx context.Context, data domain.PageData) (F, error)

	// Mode derives the step outcome from a valid form model.
	Mode(ctx context.Context, model F) (M, error)
}

// BeforeRenderer is implemented by configs that prepare state before the step is rendered.
type BeforeRenderer interface {
	BeforeRender(ctx context.Context) error
}

// Routable is a step or task a journey can route to.
type Routable interface {
	Node
	route(ctx context.Context) (domain.Destination, error)
}

// GoTo resolves the destination of a step or task.
// Routing to a task enters its first step; routing to a task's exit leaves the task.
func GoTo(ctx context.Context, target Routable) (domain.Destination, error) {
	if target == nil {
		return domain.Destination{}, domain.NewConfigurationError("cannot route to a nil step")
	}
	return target.route(ctx)
}

// StepNode is the type-erased view of a Step used by builders, predicates and tasks.
type StepNode interface {
	Routable

	// Segment returns the route segment, or "" for notional steps.
	Segment() string

	// Reachable reports whether the step's parents currently permit it.
	Reachable(ctx context.Context) (bool, error)

	// HasAnswer reports whether anything has been stored for the step.
	HasAnswer(ctx context.Context) (bool, error)

	complete(ctx context.Context) (bool, error)
	initialise(b *Builder, d declaration, settings *stepSettings) error
	settingsFor() *stepSettings
	get(ctx context.Context) (*Result, error)
	post(ctx context.Context, data domain.PageData) (*Result, error)
	describe() StepDescriptor
}

// Step is a single page of a journey.
type Step[M comparable, F any] struct {
	name   string
	config StepConfig[M, F]

	segment  string
	notional bool
	task     *Task
	exitOf   *Task
	ready    bool

	parents         Parentage
	next            func(ctx context.Context) (domain.Destination, error)
	routes          func(mode any) Routable
	submit          func(ctx context.Context, model any) (domain.Destination, error)
	back            func(ctx context.Context) (domain.Destination, error)
	persistOnSubmit bool

	state       *StateService
	unreachable func(ctx context.Context) (domain.Destination, error)
	hooks       domain.LifecycleHooks
	logger      *slog.Logger

	memo stepMemo[M, F]
}

// NewStep creates an uninitialised step. The step becomes usable once a Builder has declared and built it.
func NewStep[M comparable, F any](name string, config StepConfig[M, F]) *Step[M, F] {
	return &Step[M, F]{name: name, config: config}
}

// Name returns the step name.
func (s *Step[M, F]) Name() string {
	return s.name
}

// Segment returns the route segment, or "" for notional steps.
func (s *Step[M, F]) Segment() string {
	return s.segment
}

func (s *Step[M, F]) initialised() bool {
	return s.ready
}

func (s *Step[M, F]) key() string {
	if s.segment != "" {
		return s.segment
	}
	return s.name
}

// stepMemo remembers results derived from one version of the stored answers.
type stepMemo[M comparable, F any] struct {
	mu      sync.Mutex
	version uint64

	reachable *bool
	answer    *memoised[F]
	outcome   *memoised[M]
}

type memoised[T any] struct {
	value T
	ok    bool
}

// at drops everything remembered for an earlier version.
func (m *stepMemo[M, F]) at(version uint64) {
	if m.version != version {
		m.version = version
		m.reachable, m.answer, m.outcome = nil, nil, nil
	}
}

func (s *Step[M, F]) cachedReachable() (bool, bool) {
	s.memo.mu.Lock()
	defer s.memo.mu.Unlock()
	s.memo.at(s.state.version())
	if s.memo.reachable == nil {
		return false, false
	}
	return *s.memo.reachable, true
}

func (s *Step[M, F]) cachedAnswer() (*memoised[F], bool) {
	s.memo.mu.Lock()
	defer s.memo.mu.Unlock()
	s.memo.at(s.state.version())
	return s.memo.answer, s.memo.answer != nil
}

func (s *Step[M, F]) cachedOutcome() (*memoised[M], bool) {
	s.memo.mu.Lock()
	defer s.memo.mu.Unlock()
	s.memo.at(s.state.version())
	return s.memo.outcome, s.memo.outcome != nil
}

// remember stores into the memo only if no write happened since version was read.
func (s *Step[M, F]) remember(version uint64, store func(m *stepMemo[M, F])) {
	s.memo.mu.Lock()
	defer s.memo.mu.Unlock()
	if s.state.version() != version {
		return
	}
	s.memo.at(version)
	store(&s.memo)
}

// Reachable reports whether the step's parents currently permit it.
func (s *Step[M, F]) Reachable(ctx context.Context) (bool, error) {
	if !s.ready {
		return false, domain.NewConfigurationError("step %s was used before initialisation", s.name)
	}
	if reachable, ok := s.cachedReachable(); ok {
		return reachable, nil
	}
	version := s.state.version()
	reachable, err := s.parents.Allowed(ctx)
	if err != nil {
		return false, err
	}
	s.remember(version, func(m *stepMemo[M, F]) { m.reachable = &reachable })
	return reachable, nil
}

// HasAnswer reports whether anything has been stored for the step.
func (s *Step[M, F]) HasAnswer(ctx context.Context) (bool, error) {
	if s.notional {
		return false, nil
	}
	_, ok, err := s.state.StepData(ctx, s.key())
	return ok, err
}

// Answer decodes and validates the stored answer.
// The boolean is false when nothing is stored or the stored data is no longer valid.
func (s *Step[M, F]) Answer(ctx context.Context) (F, bool, error) {
	var zero F
	if !s.ready {
		return zero, false, domain.NewConfigurationError("step %s was used before initialisation", s.name)
	}
	if m, ok := s.cachedAnswer(); ok {
		return m.value, m.ok, nil
	}
	version := s.state.version()
	model, ok, err := s.answer(ctx)
	if err != nil {
		return zero, false, err
	}
	s.remember(version, func(m *stepMemo[M, F]) { m.answer = &memoised[F]{value: model, ok: ok} })
	return model, ok, nil
}

func (s *Step[M, F]) answer(ctx context.Context) (F, bool, error) {
	var zero F
	data := domain.PageData{}
	if !s.notional {
		stored, ok, err := s.state.StepData(ctx, s.key())
		if err != nil || !ok {
			return zero, false, err
		}
		data = stored
	}

	model, err := s.config.Bind(ctx, data)
	if err != nil {
		if _, invalid := form.AsErrors(err); invalid {
			return zero, false, nil
		}
		return zero, false, fmt.Errorf("step %s: %w", s.name, err)
	}
	return model, true, nil
}

// RequireAnswer is Answer for callers that cannot continue without it.
// A missing or invalid answer is reported as a *domain.MissingStateError.
func (s *Step[M, F]) RequireAnswer(ctx context.Context) (F, error) {
	model, ok, err := s.Answer(ctx)
	if err != nil {
		return model, err
	}
	if !ok {
		return model, &domain.MissingStateError{Step: s.name, Need: "a valid answer"}
	}
	return model, nil
}

// Outcome returns the mode derived from the stored answer.
func (s *Step[M, F]) Outcome(ctx context.Context) (M, bool, error) {
	var zero M
	if m, ok := s.cachedOutcome(); ok {
		return m.value, m.ok, nil
	}
	version := s.state.version()
	model, ok, err := s.Answer(ctx)
	if err != nil || !ok {
		return zero, false, err
	}
	mode, err := s.config.Mode(ctx, model)
	if err != nil {
		return zero, false, fmt.Errorf("step %s: %w", s.name, err)
	}
	s.remember(version, func(m *stepMemo[M, F]) { m.outcome = &memoised[M]{value: mode, ok: true} })
	return mode, true, nil
}

// HasOutcome permits the child once the step is reachable and its outcome is mode.
func (s *Step[M, F]) HasOutcome(mode M) Parentage {
	return predicate{
		deps: []Node{s},
		check: func(ctx context.Context) (bool, error) {
			reachable, err := s.Reachable(ctx)
			if err != nil || !reachable {
				return false, err
			}
			got, ok, err := s.Outcome(ctx)
			if err != nil || !ok {
				return false, err
			}
			return got == mode, nil
		},
	}
}

func (s *Step[M, F]) complete(ctx context.Context) (bool, error) {
	reachable, err := s.Reachable(ctx)
	if err != nil || !reachable {
		return false, err
	}
	_, ok, err := s.Outcome(ctx)
	return ok, err
}

// URL returns the location of the step for a journey identifier.
func (s *Step[M, F]) URL(journeyID string) string {
	return domain.StepDestination(s.segment).Location(journeyID)
}

func (s *Step[M, F]) route(ctx context.Context) (domain.Destination, error) {
	if s.exitOf != nil {
		return s.exitOf.redirect(ctx)
	}
	if s.notional {
		return domain.Destination{}, domain.NewConfigurationError("notional step %s cannot be routed to", s.name)
	}
	if s.segment == "" {
		return domain.Destination{}, domain.NewConfigurationError("step %s has no route segment; it may not have been declared", s.name)
	}
	return domain.StepDestination(s.segment), nil
}

func (s *Step[M, F]) settingsFor() *stepSettings {
	return &stepSettings{owner: s, persistOnSubmit: true}
}

func (s *Step[M, F]) initialise(b *Builder, d declaration, settings *stepSettings) error {
	if s.ready {
		return domain.NewConfigurationError("step %s has already been initialised", s.name)
	}
	if !d.notional && settings.next == nil && settings.routes == nil && settings.submit == nil {
		return domain.NewConfigurationError("step %s has no next destination", s.name)
	}

	s.segment = d.segment
	s.notional = d.notional
	s.task = d.task
	s.parents = settings.parentage()
	s.next = settings.next
	s.routes = settings.routes
	s.submit = settings.submit
	s.back = settings.back
	s.persistOnSubmit = settings.persistOnSubmit

	s.state = b.state
	s.unreachable = b.unreachable
	s.hooks = b.hooks
	s.logger = b.logger
	s.ready = true
	return nil
}

func (s *Step[M, F]) describe() StepDescriptor {
	d := StepDescriptor{Name: s.name, Segment: s.segment, Notional: s.notional}
	if s.task != nil {
		d.Task = s.task.name
	}
	if s.parents != nil {
		for _, dep := range s.parents.Dependencies() {
			// A task dependency is a dependency on its exit step.
			if t, ok := dep.(*Task); ok {
				dep = t.exit
			}
			d.Dependencies = append(d.Dependencies, dep.Name())
		}
	}
	return d
}
