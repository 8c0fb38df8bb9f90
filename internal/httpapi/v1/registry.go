package v1

import (
	"net/http"

	"github.com/tinoosan/schoolfin/internal/ledger"
)

func toCounterpartyResponse(c ledger.Counterparty) counterpartyResponse {
	return counterpartyResponse{ID: c.ID, Name: c.Name, Kind: c.Kind, Active: c.Active, CreatedAt: c.CreatedAt}
}

func toCategoryResponse(c ledger.Category) categoryResponse {
	return categoryResponse{ID: c.ID, Name: c.Name, Flow: c.Flow, Active: c.Active, CreatedAt: c.CreatedAt}
}

func (s *Server) postCounterparty(w http.ResponseWriter, r *http.Request) {
	req, ok := validated[postCounterpartyRequest](r, ctxKeyPostCounterparty)
	if !ok {
		writeErr(w, http.StatusBadRequest, "validation_error", "validation_error")
		return
	}
	c, err := s.registry.CreateCounterparty(r.Context(), principalFrom(r), req.Name, req.Kind)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toCounterpartyResponse(c))
}

func (s *Server) listCounterparties(w http.ResponseWriter, r *http.Request) {
	rows, err := s.registry.ListCounterparties(r.Context(), principalFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]counterpartyResponse, 0, len(rows))
	for _, c := range rows {
		out = append(out, toCounterpartyResponse(c))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) postCategory(w http.ResponseWriter, r *http.Request) {
	req, ok := validated[postCategoryRequest](r, ctxKeyPostCategory)
	if !ok {
		writeErr(w, http.StatusBadRequest, "validation_error", "validation_error")
		return
	}
	c, err := s.registry.CreateCategory(r.Context(), principalFrom(r), req.Name, req.Flow)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toCategoryResponse(c))
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	rows, err := s.registry.ListCategories(r.Context(), principalFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]categoryResponse, 0, len(rows))
	for _, c := range rows {
		out = append(out, toCategoryResponse(c))
	}
	toJSON(w, http.StatusOK, out)
}
