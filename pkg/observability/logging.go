package observability

import (
	"context"
	"log/slog"

	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/domain"
)

// LoggingHooks returns lifecycle hooks that write one structured record per step event.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepRender: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "step rendered", "journey_id", e.JourneyID, "segment", e.Segment)
		},
		OnStepSubmit: func(ctx context.Context, e *domain.StepEvent) {
			logger.InfoContext(ctx, "step submitted",
				"journey_id", e.JourneyID,
				"segment", e.Segment,
				"destination", e.Destination.String(),
			)
		},
		OnStepInvalid: func(ctx context.Context, e *domain.StepEvent) {
			logger.InfoContext(ctx, "step submission invalid",
				"journey_id", e.JourneyID,
				"segment", e.Segment,
				"field_errors", e.FieldErrors,
			)
		},
		OnStepUnreachable: func(ctx context.Context, e *domain.StepEvent) {
			logger.WarnContext(ctx, "step unreachable",
				"journey_id", e.JourneyID,
				"segment", e.Segment,
				"destination", e.Destination.String(),
			)
		},
	}
}
