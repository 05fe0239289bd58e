package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/abbaskhalil042/smart-talk/internal/api/middleware"
	"github.com/abbaskhalil042/smart-talk/internal/models"
	"github.com/abbaskhalil042/smart-talk/internal/store"
)

// CreateProjectRequest represents the project creation request.
type CreateProjectRequest struct {
	Name string `json:"name"`
}

// AddUsersRequest represents the add-collaborators request.
type AddUsersRequest struct {
	ProjectID string   `json:"projectId"`
	Users     []string `json:"users"`
}

// UpdateFileTreeRequest represents the file-tree update request.
// Last write wins; no merge is attempted.
type UpdateFileTreeRequest struct {
	ProjectID string          `json:"projectId"`
	FileTree  models.FileTree `json:"fileTree"`
}

// CreateProject handles project creation (authenticated).
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	ident := middleware.GetIdentityFromContext(r.Context())
	if ident == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	name := sanitizeName(req.Name)
	if name == "" {
		h.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	project, err := h.store.CreateProject(r.Context(), name, ident.UserID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to create project")
		return
	}

	h.JSON(w, http.StatusCreated, project)
}

// ListProjects returns all projects the authenticated user collaborates on.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	ident := middleware.GetIdentityFromContext(r.Context())
	if ident == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	projects, err := h.store.ListProjectsForUser(r.Context(), ident.UserID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to list projects")
		return
	}
	if projects == nil {
		projects = []models.Project{}
	}

	h.JSON(w, http.StatusOK, map[string][]models.Project{"projects": projects})
}

// GetProject returns one project by id.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "projectId"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid project ID format")
		return
	}

	project, err := h.store.GetProject(r.Context(), projectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.Error(w, http.StatusNotFound, "project not found")
			return
		}
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	h.JSON(w, http.StatusOK, map[string]*models.Project{"project": project})
}

// AddUsers adds collaborators to a project (authenticated, owner or
// collaborator only).
func (h *Handler) AddUsers(w http.ResponseWriter, r *http.Request) {
	ident := middleware.GetIdentityFromContext(r.Context())
	if ident == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req AddUsersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid project ID format")
		return
	}

	users := make([]uuid.UUID, 0, len(req.Users))
	for _, u := range req.Users {
		id, err := uuid.Parse(u)
		if err != nil {
			h.Error(w, http.StatusBadRequest, "invalid user ID format")
			return
		}
		users = append(users, id)
	}
	if len(users) == 0 {
		h.Error(w, http.StatusBadRequest, "users is required")
		return
	}

	project, err := h.store.GetProject(r.Context(), projectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.Error(w, http.StatusNotFound, "project not found")
			return
		}
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if !project.HasUser(ident.UserID) {
		h.Error(w, http.StatusForbidden, "not a collaborator on this project")
		return
	}

	updated, err := h.store.AddProjectUsers(r.Context(), projectID, users)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to add users")
		return
	}

	h.JSON(w, http.StatusOK, map[string]*models.Project{"project": updated})
}

// UpdateFileTree replaces a project's file tree.
func (h *Handler) UpdateFileTree(w http.ResponseWriter, r *http.Request) {
	ident := middleware.GetIdentityFromContext(r.Context())
	if ident == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req UpdateFileTreeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid project ID format")
		return
	}
	if req.FileTree == nil {
		h.Error(w, http.StatusBadRequest, "fileTree is required")
		return
	}

	project, err := h.store.UpdateFileTree(r.Context(), projectID, req.FileTree)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.Error(w, http.StatusNotFound, "project not found")
			return
		}
		h.Error(w, http.StatusInternalServerError, "failed to update file tree")
		return
	}

	h.JSON(w, http.StatusOK, map[string]*models.Project{"project": project})
}

// GetMessages returns the most recent messages of a project's log, served
// from the Redis cache when available.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "projectId"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid project ID format")
		return
	}

	const limit = 100

	if h.redis != nil {
		if messages, err := h.redis.RecentMessages(r.Context(), projectID.String(), limit); err == nil && len(messages) > 0 {
			h.JSON(w, http.StatusOK, map[string][]models.Message{"messages": messages})
			return
		}
	}

	messages, err := h.store.GetMessages(r.Context(), projectID, limit)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to fetch messages")
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}

	h.JSON(w, http.StatusOK, map[string][]models.Message{"messages": messages})
}

// GetOnlineUsers returns the users currently connected to a project's room.
func (h *Handler) GetOnlineUsers(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "projectId"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid project ID format")
		return
	}

	users := []string{}
	if h.redis != nil {
		if online, err := h.redis.OnlineUsers(r.Context(), projectID.String()); err == nil {
			users = online
		}
	}

	h.JSON(w, http.StatusOK, map[string][]string{"users": users})
}
