package analytics

import (
	"context"

	"studieo/internal/common"
)

type Event struct {
	Name    string
	UserID  *common.UUID
	Payload map[string]string
}

type Repository interface {
	Create(ctx context.Context, event Event) error
}
