package cache

import (
	"strings"
	"time"
)

const defaultMappingTTL = 10 * time.Minute

// IdentityResolverCache stores hot-path channel-to-identity lookups so the
// message pipeline does not hit the mapping table on every inbound message.
// Bind invalidates, so a re-bound channel is visible immediately.
type IdentityResolverCache interface {
	GetEmail(channel, channelID string) (string, bool)
	SetEmail(channel, channelID, email string)
	Invalidate(channel, channelID string)
}

type identityResolverCache struct {
	mappings   Cache[string, string]
	mappingTTL time.Duration
}

// NewIdentityResolverCache returns an in-memory cache tuned for inbound
// message resolution.
func NewIdentityResolverCache() IdentityResolverCache {
	return &identityResolverCache{
		mappings:   NewTTLCache[string, string](),
		mappingTTL: defaultMappingTTL,
	}
}

func (c *identityResolverCache) GetEmail(channel, channelID string) (string, bool) {
	return c.mappings.Get(cacheKey(channel, channelID))
}

func (c *identityResolverCache) SetEmail(channel, channelID, email string) {
	c.mappings.Set(cacheKey(channel, channelID), email, c.mappingTTL)
}

func (c *identityResolverCache) Invalidate(channel, channelID string) {
	c.mappings.Delete(cacheKey(channel, channelID))
}

func cacheKey(parts ...string) string {
	return strings.Join(parts, "|")
}
