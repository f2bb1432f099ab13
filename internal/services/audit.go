package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/AnshRaj112/ura-storage-backend/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// AuditLog records lock, unlock and failed-unlock attempts.
type AuditLog interface {
	Record(ctx context.Context, event models.SecurityEvent) error
}

// PostgresAuditLog writes to the account_security_events table.
type PostgresAuditLog struct {
	db *sql.DB
}

func NewPostgresAuditLog(db *sql.DB) *PostgresAuditLog {
	return &PostgresAuditLog{db: db}
}

func (a *PostgresAuditLog) Record(ctx context.Context, event models.SecurityEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO account_security_events (id, created_at, account_key, type, ip_address)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New(), event.CreatedAt, event.AccountKey, string(event.Type), event.IPAddress)
	return err
}

// CountRecent counts events of one type for an account since the given time.
func (a *PostgresAuditLog) CountRecent(ctx context.Context, accountKey string, eventType models.SecurityEventType, since time.Time) (int64, error) {
	var count int64
	err := a.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM account_security_events
		WHERE account_key = $1 AND type = $2 AND created_at >= $3
	`, accountKey, string(eventType), since).Scan(&count)
	return count, err
}

// NopAuditLog is used when Postgres is not configured.
type NopAuditLog struct{}

func (NopAuditLog) Record(context.Context, models.SecurityEvent) error { return nil }

func recordEvent(ctx context.Context, a AuditLog, event models.SecurityEvent) {
	if a == nil {
		return
	}
	if err := a.Record(ctx, event); err != nil {
		log.Error().Err(err).Str("account", event.AccountKey).Str("type", string(event.Type)).Msg("recording security event")
	}
}
