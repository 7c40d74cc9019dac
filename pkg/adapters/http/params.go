package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// StepParams are the parameters of GET and POST /journeys/{journeyName}/{stepName}.
type StepParams struct {
	JourneyName string
	StepName    string
	JourneyID   *string
}

// bindStepParams binds the path and query parameters of a step request.
func bindStepParams(r *http.Request) (StepParams, error) {
	var params StepParams

	err := runtime.BindStyledParameterWithOptions("simple", "journeyName", chi.URLParam(r, "journeyName"), &params.JourneyName,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return params, fmt.Errorf("invalid format for parameter journeyName: %w", err)
	}

	if step := chi.URLParam(r, "stepName"); step != "" {
		err = runtime.BindStyledParameterWithOptions("simple", "stepName", step, &params.StepName,
			runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
		if err != nil {
			return params, fmt.Errorf("invalid format for parameter stepName: %w", err)
		}
	}

	err = runtime.BindQueryParameter("form", true, false, "journeyId", r.URL.Query(), &params.JourneyID)
	if err != nil {
		return params, fmt.Errorf("invalid format for parameter journeyId: %w", err)
	}
	return params, nil
}

func (p StepParams) journeyID() string {
	if p.JourneyID == nil {
		return ""
	}
	return *p.JourneyID
}
