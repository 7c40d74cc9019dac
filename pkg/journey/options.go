package journey

import (
	"context"

	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/domain"
)

// stepSettings collects the options of one step declaration.
type stepSettings struct {
	owner           Node
	parents         []Parentage
	next            func(ctx context.Context) (domain.Destination, error)
	routes          func(mode any) Routable
	submit          func(ctx context.Context, model any) (domain.Destination, error)
	back            func(ctx context.Context) (domain.Destination, error)
	persistOnSubmit bool
	err             error
}

func (s *stepSettings) parentage() Parentage {
	switch len(s.parents) {
	case 0:
		return NoParents()
	case 1:
		return s.parents[0]
	default:
		return And(s.parents...)
	}
}

// StepOption configures a step declaration.
type StepOption func(*stepSettings)

// Parents sets the reachability predicate of the step.
// Declaring parents more than once requires all of them.
func Parents(p Parentage) StepOption {
	return func(s *stepSettings) {
		s.parents = append(s.parents, p)
	}
}

// NextStep routes a valid submission to target.
func NextStep(target Routable) StepOption {
	return func(s *stepSettings) {
		s.next = func(ctx context.Context) (domain.Destination, error) {
			return GoTo(ctx, target)
		}
	}
}

// NextURL routes a valid submission to an external location.
func NextURL(url string) StepOption {
	return func(s *stepSettings) {
		s.next = func(context.Context) (domain.Destination, error) {
			return domain.URLDestination(url), nil
		}
	}
}

// NextDestination routes a valid submission with a custom function.
func NextDestination(next func(ctx context.Context) (domain.Destination, error)) StepOption {
	return func(s *stepSettings) {
		s.next = next
	}
}

// Routes branches on the outcome of the submitted form.
// The option must be applied to the declaration of step itself.
func Routes[M comparable, F any](step *Step[M, F], route func(mode M) Routable) StepOption {
	return func(s *stepSettings) {
		if s.owner != Node(step) {
			s.err = domain.NewConfigurationError("routes of step %s applied to %s", step.Name(), s.owner.Name())
			return
		}
		s.routes = func(mode any) Routable {
			return route(mode.(M))
		}
	}
}

// HandleSubmit replaces routing with a handler that receives the valid form model.
// It is used by steps that hand data to an external service, e.g. final submission.
// The option must be applied to the declaration of step itself.
func HandleSubmit[M comparable, F any](step *Step[M, F], handle func(ctx context.Context, model F) (domain.Destination, error)) StepOption {
	return func(s *stepSettings) {
		if s.owner != Node(step) {
			s.err = domain.NewConfigurationError("submit handler of step %s applied to %s", step.Name(), s.owner.Name())
			return
		}
		s.submit = func(ctx context.Context, model any) (domain.Destination, error) {
			return handle(ctx, model.(F))
		}
	}
}

// PersistOnSubmit controls whether a valid answer is merged into the answer bag
// before the next destination is computed (the default) or after it.
func PersistOnSubmit(persist bool) StepOption {
	return func(s *stepSettings) {
		s.persistOnSubmit = persist
	}
}

// BackStep sets the back link of the rendered step.
func BackStep(target Routable) StepOption {
	return func(s *stepSettings) {
		s.back = func(ctx context.Context) (domain.Destination, error) {
			return GoTo(ctx, target)
		}
	}
}

// BackURL sets the back link of the rendered step to an external location.
func BackURL(url string) StepOption {
	return func(s *stepSettings) {
		s.back = func(context.Context) (domain.Destination, error) {
			return domain.URLDestination(url), nil
		}
	}
}
