package v1

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"

	"github.com/tinoosan/schoolfin/internal/dictionary"
)

// GET /v1/dictionary/{name}
func (s *Server) getDictionary(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	items, ok := dictionary.Lookup(name)
	if !ok {
		writeErr(w, http.StatusNotFound, "unknown dictionary", "not_found")
		return
	}
	toJSON(w, http.StatusOK, struct {
		Name  string             `json:"name"`
		Items []dictionary.Entry `json:"items"`
	}{Name: name, Items: items})
}
