package ports

import (
	"net/http"

	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/domain"
)

// Renderer writes a view as the response to a journey request.
type Renderer interface {
	Render(w http.ResponseWriter, status int, view *domain.View) error
}
