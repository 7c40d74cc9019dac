package journey

import (
	"context"
	"fmt"

	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/domain"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/form"
)

// StepState is the lifecycle state a step reached while handling one request.
type StepState int

const (
	// Unvisited means the step was neither rendered nor submitted, e.g. because it is unreachable.
	Unvisited StepState = iota
	Rendered
	SubmittedValid
	SubmittedInvalid
)

func (s StepState) String() string {
	switch s {
	case Rendered:
		return "rendered"
	case SubmittedValid:
		return "submitted_valid"
	case SubmittedInvalid:
		return "submitted_invalid"
	default:
		return "unvisited"
	}
}

// Result is the outcome of handling one request for a step.
// Exactly one of View and Redirect is set.
type Result struct {
	State    StepState
	View     *domain.View
	Redirect domain.Destination
}

// IsRedirect reports whether the host should redirect instead of rendering.
func (r *Result) IsRedirect() bool {
	return !r.Redirect.IsZero()
}

// Orchestrator runs the read (GET) and write (POST) behaviour of one visitable step.
type Orchestrator struct {
	step StepNode
}

// Segment returns the route segment of the step.
func (o *Orchestrator) Segment() string {
	return o.step.Segment()
}

// Get renders the step with any stored answer, or redirects to the
// unreachable step destination when the step's parents refuse it.
func (o *Orchestrator) Get(ctx context.Context) (*Result, error) {
	return o.step.get(ctx)
}

// Post validates a submission. Invalid data re-renders the step with field
// errors and leaves the answer bag untouched; valid data is merged into the
// bag and the request is redirected to the next destination.
func (o *Orchestrator) Post(ctx context.Context, data domain.PageData) (*Result, error) {
	if data == nil {
		data = domain.PageData{}
	}
	return o.step.post(ctx, data)
}

func (s *Step[M, F]) get(ctx context.Context) (*Result, error) {
	if res, err := s.redirectIfUnreachable(ctx); res != nil || err != nil {
		return res, err
	}

	if br, ok := s.config.(BeforeRenderer); ok {
		if err := br.BeforeRender(ctx); err != nil {
			return nil, fmt.Errorf("step %s: before render: %w", s.name, err)
		}
	}

	stored, ok, err := s.state.StepData(ctx, s.key())
	if err != nil {
		return nil, err
	}
	view, err := s.view(ctx, stored, nil)
	if err != nil {
		return nil, err
	}
	if ok {
		if model, err := form.Decode[F](stored); err == nil {
			view.Model = model
		}
	}

	s.emit(ctx, domain.NewStepEvent(domain.EventStepRender, s.state.JourneyID(), s.segment))
	return &Result{State: Rendered, View: view}, nil
}

func (s *Step[M, F]) post(ctx context.Context, data domain.PageData) (*Result, error) {
	if res, err := s.redirectIfUnreachable(ctx); res != nil || err != nil {
		return res, err
	}

	model, err := s.config.Bind(ctx, data)
	if errs, invalid := form.AsErrors(err); invalid {
		view, err := s.view(ctx, data, errs)
		if err != nil {
			return nil, err
		}
		e := domain.NewStepEvent(domain.EventStepInvalid, s.state.JourneyID(), s.segment)
		e.FieldErrors = len(errs)
		s.emit(ctx, e)
		return &Result{State: SubmittedInvalid, View: view}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("step %s: %w", s.name, err)
	}

	var dest domain.Destination
	if s.persistOnSubmit {
		if err := s.state.AddSingleStepData(ctx, s.key(), data); err != nil {
			return nil, err
		}
		if dest, err = s.nextDestination(ctx, model); err != nil {
			return nil, err
		}
	} else {
		if dest, err = s.nextDestination(ctx, model); err != nil {
			return nil, err
		}
		if err := s.state.AddSingleStepData(ctx, s.key(), data); err != nil {
			return nil, err
		}
	}

	e := domain.NewStepEvent(domain.EventStepSubmit, s.state.JourneyID(), s.segment)
	e.Destination = dest
	s.emit(ctx, e)
	return &Result{State: SubmittedValid, Redirect: dest}, nil
}

func (s *Step[M, F]) redirectIfUnreachable(ctx context.Context) (*Result, error) {
	reachable, err := s.Reachable(ctx)
	if err != nil || reachable {
		return nil, err
	}
	if s.unreachable == nil {
		return nil, domain.NewConfigurationError("step %s is unreachable and no unreachable step destination is configured", s.name)
	}

	dest, err := s.unreachable(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Step unreachable", "journey_id", s.state.JourneyID(), "step", s.segment, "destination", dest.String())

	e := domain.NewStepEvent(domain.EventStepUnreachable, s.state.JourneyID(), s.segment)
	e.Destination = dest
	s.emit(ctx, e)
	return &Result{State: Unvisited, Redirect: dest}, nil
}

func (s *Step[M, F]) nextDestination(ctx context.Context, model F) (domain.Destination, error) {
	var (
		dest domain.Destination
		err  error
	)
	switch {
	case s.submit != nil:
		dest, err = s.submit(ctx, model)
	case s.routes != nil:
		var mode M
		if mode, err = s.config.Mode(ctx, model); err == nil {
			dest, err = GoTo(ctx, s.routes(mode))
		}
	default:
		dest, err = s.next(ctx)
	}
	if err != nil {
		return domain.Destination{}, err
	}
	if dest.IsZero() {
		return domain.Destination{}, domain.NewConfigurationError("step %s chose no next destination", s.name)
	}
	return dest, nil
}

func (s *Step[M, F]) view(ctx context.Context, data domain.PageData, errs form.Errors) (*domain.View, error) {
	content, err := s.config.Content(ctx)
	if err != nil {
		return nil, fmt.Errorf("step %s: %w", s.name, err)
	}

	v := &domain.View{
		Segment:  s.segment,
		Template: s.config.Template(),
		Content:  content,
		Form:     data,
	}
	if len(errs) > 0 {
		v.Errors = map[string][]string(errs)
	}
	if s.back != nil {
		dest, err := s.back(ctx)
		if err != nil {
			return nil, err
		}
		v.BackURL = dest.Location(s.state.JourneyID())
	}
	return v, nil
}

func (s *Step[M, F]) emit(ctx context.Context, e *domain.StepEvent) {
	s.hooks.Emit(ctx, e)
}
