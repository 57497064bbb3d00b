package qr

import (
	"context"
	"log/slog"
	"time"

	platformredis "petcert/internal/platform/redis"
	"petcert/pkg/domain"
)

const cacheTTL = 24 * time.Hour

// Cache stores encoded QR strings in Redis so repeated scans of the same
// certificate skip the compression pipeline. Certificates are immutable, so
// entries never need invalidation, only expiry.
type Cache struct {
	client *platformredis.Client
	logger *slog.Logger
}

// NewCache accepts a nil client; all operations become no-ops, matching the
// unconfigured-Redis profile.
func NewCache(client *platformredis.Client, logger *slog.Logger) *Cache {
	return &Cache{client: client, logger: logger}
}

func (c *Cache) Get(ctx context.Context, id domain.CertificateID) (string, bool) {
	if c == nil || c.client == nil {
		return "", false
	}
	encoded, err := c.client.Get(ctx, cacheKey(id)).Result()
	if err != nil {
		return "", false
	}
	return encoded, true
}

func (c *Cache) Set(ctx context.Context, id domain.CertificateID, encoded string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(id), encoded, cacheTTL).Err(); err != nil {
		c.logger.WarnContext(ctx, "qr cache write failed", "certificate_id", id.String(), "error", err)
	}
}

func cacheKey(id domain.CertificateID) string {
	return "qr:" + id.String()
}
