package repo

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donation-server/internal/domain"
)

func TestAuditAppend(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	actorID := "op-1"
	entityID := "d1"
	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(&actorID, domain.AuditDonationCreated, "donation", &entityID,
			"donation RCPT-2026-000001 recorded", []byte(`{"amount_cents":100050}`),
			"203.0.113.9", "IN").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	r := NewAuditRepository(mock)
	err = r.Append(context.Background(), &domain.AuditEntry{
		ActorID:     &actorID,
		Action:      domain.AuditDonationCreated,
		EntityType:  "donation",
		EntityID:    &entityID,
		Description: "donation RCPT-2026-000001 recorded",
		Metadata:    map[string]any{"amount_cents": 100050},
		IP:          "203.0.113.9",
		Country:     "IN",
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditAppendValidation(t *testing.T) {
	r := NewAuditRepository(nil)

	err := r.Append(context.Background(), nil)
	require.ErrorIs(t, err, domain.ErrValidation)

	err = r.Append(context.Background(), &domain.AuditEntry{EntityType: "donation"})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestAuditList(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	actorID := "op-1"
	now := time.Now()
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT .+ FROM audit_logs").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "actor_id", "action", "entity_type", "entity_id",
			"description", "metadata", "ip", "country", "created_at",
		}).AddRow(
			"a1", &actorID, domain.AuditLoginSucceeded, "user", (*string)(nil),
			"operator signed in", []byte(`{"email":"op@example.com"}`), "203.0.113.9", "IN", now,
		))

	r := NewAuditRepository(mock)
	items, total, err := r.List(context.Background(), domain.AuditFilter{
		Action: domain.AuditLoginSucceeded,
		Limit:  20,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, domain.AuditLoginSucceeded, items[0].Action)
	assert.Equal(t, "op@example.com", items[0].Metadata["email"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil, "donation"))

	err := mapError(pgx.ErrNoRows, "donation")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = mapError(&pgconn.PgError{Code: "23505"}, "category")
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	err = mapError(&pgconn.PgError{Code: "23503"}, "donation")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = mapError(&pgconn.PgError{Code: "23514"}, "donation")
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = mapError(context.DeadlineExceeded, "donation")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}
