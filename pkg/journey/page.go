package journey

import (
	"context"

	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/domain"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/form"
)

// Page is a StepConfig for ordinary form pages.
// Binding uses form.Bind, so F's own Validate method runs first; Check adds
// rules that need other steps' answers.
type Page[M comparable, F any] struct {
	TemplateName string

	// Static is copied into the view content of every render.
	Static map[string]any

	// Dynamic adds content computed from the journey state.
	Dynamic func(ctx context.Context) (map[string]any, error)

	// Check validates the bound model against other answers.
	Check func(ctx context.Context, model F, errs form.Errors) error

	// ModeOf derives the outcome. When nil, steps of mode Complete report Completed.
	ModeOf func(ctx context.Context, model F) (M, error)

	// Before runs before the step is rendered.
	Before func(ctx context.Context) error
}

func (p *Page[M, F]) Template() string {
	return p.TemplateName
}

func (p *Page[M, F]) Content(ctx context.Context) (map[string]any, error) {
	content := make(map[string]any, len(p.Static))
	for k, v := range p.Static {
		content[k] = v
	}
	if p.Dynamic != nil {
		extra, err := p.Dynamic(ctx)
		if err != nil {
			return nil, err
		}
		for k, v := range extra {
			content[k] = v
		}
	}
	return content, nil
}

func (p *Page[M, F]) Bind(ctx context.Context, data domain.PageData) (F, error) {
	model, err := form.Bind[F](data)
	if err != nil || p.Check == nil {
		return model, err
	}

	errs := form.Errors{}
	if err := p.Check(ctx, model, errs); err != nil {
		return model, err
	}
	return model, errs.Err()
}

func (p *Page[M, F]) Mode(ctx context.Context, model F) (M, error) {
	if p.ModeOf != nil {
		return p.ModeOf(ctx, model)
	}
	var zero M
	if done, ok := any(Completed).(M); ok {
		return done, nil
	}
	return zero, nil
}

func (p *Page[M, F]) BeforeRender(ctx context.Context) error {
	if p.Before == nil {
		return nil
	}
	return p.Before(ctx)
}

// NewPageStep creates a step configured by page.
func NewPageStep[M comparable, F any](name string, page *Page[M, F]) *Step[M, F] {
	return NewStep[M, F](name, page)
}
