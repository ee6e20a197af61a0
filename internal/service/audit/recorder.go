// Package audit records administrative actions. Recording is fire-and-forget:
// an audit failure is logged but never fails the request that triggered it.
package audit

import (
	"context"
	"time"

	"donation-server/internal/domain"
	"donation-server/internal/infra"
	"donation-server/internal/infra/geoip"
)

// Recorder appends audit entries enriched with a GeoIP country code.
type Recorder struct {
	repo   domain.AuditRepository
	geo    geoip.CountryResolver
	logger infra.Logger
}

// NewRecorder creates a Recorder. The resolver may be nil when no GeoIP
// database is configured.
func NewRecorder(repo domain.AuditRepository, geo geoip.CountryResolver, logger infra.Logger) *Recorder {
	return &Recorder{repo: repo, geo: geo, logger: logger}
}

// Record appends an entry. The write is detached from the request context so
// a cancelled request still leaves its trace.
func (r *Recorder) Record(ctx context.Context, entry domain.AuditEntry) {
	if r == nil || r.repo == nil {
		return
	}
	if entry.Country == "" && entry.IP != "" && r.geo != nil {
		if country, err := r.geo.CountryCode(entry.IP); err == nil {
			entry.Country = country
		}
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.repo.Append(writeCtx, &entry); err != nil {
		r.logger.Error().Err(err).
			Str("action", entry.Action).
			Str("entity_type", entry.EntityType).
			Msg("audit append failed")
	}
}
