package api

import (
	"errors"
	"net/http"

	"github.com/seamed/tracker/pkg/httputil"
	"github.com/seamed/tracker/pkg/observability"
	"github.com/seamed/tracker/pkg/users"
)

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	settings, err := s.settingsFor(r, id)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to load settings")
		httputil.WriteInternalError(w, "Failed to fetch settings")
		return
	}
	httputil.WriteSuccess(w, settings)
}

func (s *Server) updateSettings(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	settings, err := s.deps.Users.GetSettings(r.Context(), id.Subject)
	if errors.Is(err, users.ErrNotFound) {
		httputil.WriteNotFound(w, "Settings not found")
		return
	}
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to load settings")
		httputil.WriteInternalError(w, "Failed to update settings")
		return
	}

	patch, ok := readPatch(w, r)
	if !ok {
		return
	}
	if err := settings.Apply(patch); err != nil {
		writeValidationError(w, r, err)
		return
	}

	err = s.deps.Users.UpdateSettings(r.Context(), settings, patch.Fields())
	if errors.Is(err, users.ErrNotFound) {
		httputil.WriteNotFound(w, "Settings not found")
		return
	}
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to update settings")
		httputil.WriteInternalError(w, "Failed to update settings")
		return
	}

	stored, err := s.deps.Users.GetSettings(r.Context(), id.Subject)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to reload settings")
		httputil.WriteInternalError(w, "Failed to update settings")
		return
	}
	httputil.WriteSuccess(w, stored)
}
