package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"warbler/internal/middleware"
)

// Every key lives under the app namespace so a shared Redis can host other apps.
const keyNamespace = "warbler"

// UserTTL bounds how stale a cached profile gets if an invalidation is lost.
const UserTTL = 5 * time.Minute

// UserKey is the key of a cached profile.
func UserKey(userID uint) string {
	return fmt.Sprintf("%s:user:%d", keyNamespace, userID)
}

// Invalidate drops keys. A failed delete is only logged; the TTL expires the
// entry later.
func Invalidate(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	if err := client.Del(ctx, keys...).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache invalidation failed",
			slog.Any("keys", keys),
			slog.String("error", err.Error()),
		)
	}
}

// InvalidateUser drops the cached profiles of userIDs.
func InvalidateUser(ctx context.Context, userIDs ...uint) {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, UserKey(id))
	}
	Invalidate(ctx, keys...)
}
