package auth

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// TokenRevoker is an in-process denylist of access-token IDs, consulted by
// the Authenticate middleware. Entries expire together with the token they
// revoke, so the list never grows past the set of still-live tokens.
//
// This is a single-node, best-effort layer: a token revoked here stays
// usable on other nodes until its natural expiry. Stateless tokens cannot
// be recalled any harder without shared revocation storage.
type TokenRevoker struct {
	cache *gocache.Cache
}

func NewTokenRevoker() *TokenRevoker {
	return &TokenRevoker{
		cache: gocache.New(gocache.NoExpiration, 10*time.Minute),
	}
}

// Revoke marks a token ID as revoked until the token's own expiry instant.
func (tr *TokenRevoker) Revoke(tokenID string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return // already expired, nothing to revoke
	}
	tr.cache.Set(tokenID, struct{}{}, ttl)
}

// IsRevoked reports whether the token ID has been revoked and is still
// inside its lifetime.
func (tr *TokenRevoker) IsRevoked(tokenID string) bool {
	if tokenID == "" {
		return false
	}
	_, found := tr.cache.Get(tokenID)
	return found
}
