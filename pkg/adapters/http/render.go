package http

import (
	"encoding/json"
	"net/http"

	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/domain"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/ports"
)

// JSONRenderer writes views as JSON documents.
type JSONRenderer struct{}

// Ensure JSONRenderer implements Renderer.
var _ ports.Renderer = JSONRenderer{}

func (JSONRenderer) Render(w http.ResponseWriter, status int, view *domain.View) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(view)
}

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: code, Detail: detail})
}
