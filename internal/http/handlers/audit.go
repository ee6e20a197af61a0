package handlers

import (
	"net/http"
	"time"
)

type auditDTO struct {
	ID          string         `json:"id"`
	ActorID     *string        `json:"actorId"`
	Action      string         `json:"action"`
	EntityType  string         `json:"entityType"`
	EntityID    *string        `json:"entityId"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	IP          string         `json:"ip,omitempty"`
	Country     string         `json:"country,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

func (a *App) AuditList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseAuditQuery(r.URL.Query())
	if err != nil {
		a.fail(w, err)
		return
	}
	items, total, err := a.AuditLog.List(r.Context(), filter)
	if err != nil {
		a.fail(w, err)
		return
	}
	dtos := make([]auditDTO, 0, len(items))
	for _, e := range items {
		dtos = append(dtos, auditDTO{
			ID:          e.ID,
			ActorID:     e.ActorID,
			Action:      e.Action,
			EntityType:  e.EntityType,
			EntityID:    e.EntityID,
			Description: e.Description,
			Metadata:    e.Metadata,
			IP:          e.IP,
			Country:     e.Country,
			CreatedAt:   e.CreatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{
		"items":  dtos,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}
