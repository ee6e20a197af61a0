package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"donation-server/internal/domain"
	"donation-server/internal/middleware"
)

type categoryDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toCategoryDTO(c domain.Category) categoryDTO {
	return categoryDTO{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func (a *App) CategoriesList(w http.ResponseWriter, r *http.Request) {
	activeOnly, err := parseBoolParam(r.URL.Query().Get("isActive"))
	if err != nil {
		a.fail(w, err)
		return
	}
	items, err := a.Categories.List(r.Context(), activeOnly)
	if err != nil {
		a.fail(w, err)
		return
	}
	dtos := make([]categoryDTO, 0, len(items))
	for _, c := range items {
		dtos = append(dtos, toCategoryDTO(c))
	}
	a.json(w, http.StatusOK, map[string]any{"items": dtos})
}

type categoryCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (a *App) CategoriesCreate(w http.ResponseWriter, r *http.Request) {
	var req categoryCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "name is required")
		return
	}

	created, err := a.Categories.Create(r.Context(), &domain.Category{
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
	})
	if err != nil {
		a.fail(w, err)
		return
	}

	actor := a.currentUserID(r)
	a.Recorder.Record(r.Context(), domain.AuditEntry{
		ActorID:     &actor,
		Action:      domain.AuditCategoryCreated,
		EntityType:  "category",
		EntityID:    &created.ID,
		Description: "category " + created.Name + " created",
		IP:          middleware.ClientIP(r),
	})
	a.json(w, http.StatusCreated, toCategoryDTO(*created))
}

type categoryPatchRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"isActive"`
}

func (a *App) CategoriesPatch(w http.ResponseWriter, r *http.Request) {
	var req categoryPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "name cannot be empty")
		return
	}

	updated, err := a.Categories.Update(r.Context(), chi.URLParam(r, "id"), domain.CategoryUpdate{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		a.fail(w, err)
		return
	}

	actor := a.currentUserID(r)
	a.Recorder.Record(r.Context(), domain.AuditEntry{
		ActorID:     &actor,
		Action:      domain.AuditCategoryUpdated,
		EntityType:  "category",
		EntityID:    &updated.ID,
		Description: "category " + updated.Name + " updated",
		IP:          middleware.ClientIP(r),
	})
	a.json(w, http.StatusOK, toCategoryDTO(*updated))
}
