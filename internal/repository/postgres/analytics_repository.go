package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"studieo/internal/common"
	"studieo/internal/domain/analytics"
)

type AnalyticsRepository struct {
	db *sql.DB
}

func NewAnalyticsRepository(db *sql.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

func (r *AnalyticsRepository) Create(ctx context.Context, event analytics.Event) error {
	payload := event.Payload
	if payload == nil {
		payload = map[string]string{}
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return common.NewError(common.CodeInternal, "failed to encode event payload", err)
	}
	var userID interface{}
	if event.UserID != nil {
		userID = *event.UserID
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO analytics_events (id, name, user_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		common.NewUUID(), event.Name, userID, encoded, time.Now().UTC())
	if err != nil {
		return common.NewError(common.CodeInternal, "failed to create event", err)
	}
	return nil
}
