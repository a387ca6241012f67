package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/seamed/tracker/pkg/httputil"
	"github.com/seamed/tracker/pkg/templates"
)

type templateSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Source    string `json:"source"`
	ItemCount int    `json:"itemCount"`
}

func (s *Server) listTemplates(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity(w, r); !ok {
		return
	}

	all := s.deps.Templates.List()
	out := make([]templateSummary, 0, len(all))
	for _, t := range all {
		out = append(out, templateSummary{ID: t.ID, Name: t.Name, Source: t.Source, ItemCount: len(t.Items)})
	}
	httputil.WriteSuccess(w, out)
}

func (s *Server) getTemplate(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity(w, r); !ok {
		return
	}

	t, err := s.deps.Templates.Get(mux.Vars(r)["id"])
	if errors.Is(err, templates.ErrNotFound) {
		httputil.WriteNotFound(w, "Template not found")
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, "Failed to fetch template")
		return
	}
	httputil.WriteSuccess(w, t)
}
