package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/seamed/tracker/pkg/auth"
	"github.com/seamed/tracker/pkg/httputil"
	"github.com/seamed/tracker/pkg/inventory"
	"github.com/seamed/tracker/pkg/observability"
	"github.com/seamed/tracker/pkg/users"
	"github.com/seamed/tracker/pkg/validation"
)

const msgNotAuthorized = "Not authorized"

func (s *Server) ping(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	httputil.WriteSuccess(w, map[string]string{"status": "ok", "userId": id.Subject})
}

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	items, err := s.deps.Inventory.ListByOwner(r.Context(), id.Subject)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to list inventory")
		httputil.WriteInternalError(w, "Failed to fetch inventory")
		return
	}
	httputil.WriteSuccess(w, items)
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	item, ok := s.loadOwnedItem(w, r, id, "Failed to fetch item")
	if !ok {
		return
	}
	httputil.WriteSuccess(w, item)
}

func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	patch, ok := readPatch(w, r)
	if !ok {
		return
	}

	item := inventory.NewItem(s.newID(), id.Subject, s.now())
	if err := item.Apply(patch); err != nil {
		writeValidationError(w, r, err)
		return
	}

	if err := s.deps.Inventory.Create(r.Context(), item); err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to create item")
		httputil.WriteInternalError(w, "Failed to create item")
		return
	}
	httputil.WriteCreated(w, item)
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	item, ok := s.loadOwnedItem(w, r, id, "Failed to update item")
	if !ok {
		return
	}

	patch, ok := readPatch(w, r)
	if !ok {
		return
	}
	if err := item.Apply(patch); err != nil {
		writeValidationError(w, r, err)
		return
	}
	item.UpdatedAt = s.now()

	err := s.deps.Inventory.Update(r.Context(), item, patch.Fields())
	if errors.Is(err, inventory.ErrNotFound) {
		// Deleted between load and update
		s.denyAccess(w, r, id, item.ID)
		return
	}
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to update item")
		httputil.WriteInternalError(w, "Failed to update item")
		return
	}

	// Reload so the response carries fields written by concurrent updates
	stored, ok := s.loadOwnedItem(w, r, id, "Failed to update item")
	if !ok {
		return
	}
	httputil.WriteSuccess(w, stored)
}

func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	item, ok := s.loadOwnedItem(w, r, id, "Failed to delete item")
	if !ok {
		return
	}

	err := s.deps.Inventory.Delete(r.Context(), item.ID, id.Subject)
	if errors.Is(err, inventory.ErrNotFound) {
		s.denyAccess(w, r, id, item.ID)
		return
	}
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to delete item")
		httputil.WriteInternalError(w, "Failed to delete item")
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	items, warningDays, ok := s.itemsWithWarningDays(w, r, id)
	if !ok {
		return
	}
	httputil.WriteSuccess(w, inventory.ComputeStats(items, warningDays, s.now()))
}

func (s *Server) getAlerts(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	items, warningDays, ok := s.itemsWithWarningDays(w, r, id)
	if !ok {
		return
	}
	httputil.WriteSuccess(w, inventory.BuildAlerts(items, warningDays, s.now()))
}

// ownedItem returns the item when it belongs to owner. Missing and foreign
// items both yield auth.ErrAuthorizationDenied so that ids of other users
// are never confirmed.
func (s *Server) ownedItem(ctx context.Context, owner, itemID string) (*inventory.Item, error) {
	item, err := s.deps.Inventory.Get(ctx, itemID)
	if errors.Is(err, inventory.ErrNotFound) || (err == nil && item.UserID != owner) {
		return nil, auth.ErrAuthorizationDenied
	}
	return item, err
}

// loadOwnedItem fetches the item named in the path and writes the error
// response when the caller may not see it
func (s *Server) loadOwnedItem(w http.ResponseWriter, r *http.Request, id *auth.Identity, failure string) (*inventory.Item, bool) {
	itemID := mux.Vars(r)["id"]

	item, err := s.ownedItem(r.Context(), id.Subject, itemID)
	if errors.Is(err, auth.ErrAuthorizationDenied) {
		s.denyAccess(w, r, id, itemID)
		return nil, false
	}
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).WithField("item_id", itemID).Error("failed to load item")
		httputil.WriteInternalError(w, failure)
		return nil, false
	}
	return item, true
}

func (s *Server) denyAccess(w http.ResponseWriter, r *http.Request, id *auth.Identity, itemID string) {
	s.deps.Audit.LogFromRequest(r, auth.AuditEvent{
		Action:     auth.ActionAccessDenied,
		Status:     auth.StatusDenied,
		Subject:    id.Subject,
		ResourceID: itemID,
		Reason:     auth.ErrAuthorizationDenied.Error(),
	})
	httputil.WriteForbidden(w, msgNotAuthorized)
}

func (s *Server) itemsWithWarningDays(w http.ResponseWriter, r *http.Request, id *auth.Identity) ([]*inventory.Item, []int, bool) {
	items, err := s.deps.Inventory.ListByOwner(r.Context(), id.Subject)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to list inventory")
		httputil.WriteInternalError(w, "Failed to fetch inventory")
		return nil, nil, false
	}

	settings, err := s.settingsFor(r, id)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to load settings")
		httputil.WriteInternalError(w, "Failed to fetch settings")
		return nil, nil, false
	}
	return items, settings.ExpirationWarningDays, true
}

// settingsFor returns stored settings, or defaults for users created before
// settings existed.
func (s *Server) settingsFor(r *http.Request, id *auth.Identity) (*users.Settings, error) {
	settings, err := s.deps.Users.GetSettings(r.Context(), id.Subject)
	if errors.Is(err, users.ErrNotFound) {
		return users.DefaultSettings(id.Subject, s.now()), nil
	}
	return settings, err
}

func readPatch(w http.ResponseWriter, r *http.Request) (validation.Patch, bool) {
	if r.Body == nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return nil, false
	}
	body, err := io.ReadAll(r.Body)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		httputil.WriteRequestTooLarge(w, "Request body too large")
		return nil, false
	}
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return nil, false
	}
	patch, err := validation.ParsePatch(body)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return nil, false
	}
	return patch, true
}

func writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	if fe, ok := validation.AsFieldError(err); ok {
		httputil.WriteFieldError(w, fe.Field, fe.Message)
		return
	}
	observability.FromContext(r.Context()).WithError(err).Error("unexpected validation failure")
	httputil.WriteBadRequest(w, "Invalid request body")
}
