// File: internal/cache/tokens.go
package cache

import "time"

// TokenTTL is the fixed validity window of a cached access token.
const TokenTTL = 24 * time.Hour

const accessTokenKey = "access_token"

// TokenCache stores the last access token that authenticated successfully.
type TokenCache struct {
	store *Store
	path  string
}

// NewTokenCache creates a TokenCache backed by path.
func NewTokenCache(store *Store, path string) *TokenCache {
	return &TokenCache{store: store, path: path}
}

// Get returns the cached token if one is present and unexpired.
func (c *TokenCache) Get() (string, bool) {
	token, ok := c.store.LoadIfValid(c.path)[accessTokenKey].(string)
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

// Put caches token for TokenTTL. The window is fixed from the time of writing.
func (c *TokenCache) Put(token string) bool {
	return c.store.SaveWithTTL(c.path, map[string]interface{}{accessTokenKey: token}, TokenTTL)
}

// Path returns the backing file.
func (c *TokenCache) Path() string { return c.path }
