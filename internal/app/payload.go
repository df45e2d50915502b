package app

import (
	"context"

	"studieo/internal/common"
)

// analyticsPayload tags every event with the request id when one is present.
func analyticsPayload(ctx context.Context, fields map[string]string) map[string]string {
	if fields == nil {
		fields = map[string]string{}
	}
	if requestID := common.RequestIDFromContext(ctx); requestID != "" {
		fields["request_id"] = requestID
	}
	return fields
}
