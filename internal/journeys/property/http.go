package property

import (
	"net/http"
	"strconv"

	httpadapter "github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/adapters/http"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/domain"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/journey"
)

// Definition serves the journey under RoutePrefix.
func Definition(deps Deps, opts ...journey.BuilderOption) httpadapter.Definition {
	return httpadapter.Definition{
		Name:         Name,
		FirstStep:    TaskListSegment,
		Build:        Build(deps, opts...),
		Confirmation: confirmation,
	}
}

func confirmation(r *http.Request) (*domain.View, error) {
	number, err := strconv.ParseInt(r.URL.Query().Get("registrationNumber"), 10, 64)
	if err != nil || number <= 0 {
		return domain.ErrorView("No registration to confirm"), nil
	}
	return ConfirmationView(number), nil
}
