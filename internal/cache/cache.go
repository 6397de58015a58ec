// File: internal/cache/cache.go
package cache

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ExpiryKey holds the absolute expiry, in epoch seconds, of TTL-stamped entries.
const ExpiryKey = "expiry"

// Store persists JSON objects to files on a best-effort basis: read failures
// degrade to an empty map and write failures are logged, never returned.
// There is no locking; one process per path is assumed.
type Store struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewStore creates a Store.
func NewStore(logger *zap.Logger) *Store {
	return &Store{logger: logger.Named("cache"), now: time.Now}
}

// Load returns the object stored at path, or an empty map when the file is
// missing or cannot be parsed.
func (s *Store) Load(path string) map[string]interface{} {
	expanded, err := homedir.Expand(path)
	if err != nil {
		s.logger.Warn("Invalid cache path.", zap.String("path", path), zap.Error(err))
		return map[string]interface{}{}
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("Failed to read cache file.", zap.String("path", expanded), zap.Error(err))
		}
		return map[string]interface{}{}
	}
	out := map[string]interface{}{}
	if err := json.Unmarshal(data, &out); err != nil || out == nil {
		s.logger.Warn("Cache file is corrupt; ignoring it.", zap.String("path", expanded), zap.Error(err))
		return map[string]interface{}{}
	}
	return out
}

// Save overwrites path with m and reports whether the write succeeded.
func (s *Store) Save(path string, m map[string]interface{}) bool {
	expanded, err := homedir.Expand(path)
	if err != nil {
		s.logger.Error("Invalid cache path.", zap.String("path", path), zap.Error(err))
		return false
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		s.logger.Error("Failed to encode cache entry.", zap.String("path", expanded), zap.Error(err))
		return false
	}
	if dir := filepath.Dir(expanded); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			s.logger.Error("Failed to create cache directory.", zap.String("path", expanded), zap.Error(err))
			return false
		}
	}
	if err := os.WriteFile(expanded, data, 0o600); err != nil {
		s.logger.Error("Failed to write cache file.", zap.String("path", expanded), zap.Error(err))
		return false
	}
	return true
}

// LoadIfValid is Load for TTL-stamped objects: a missing or past expiry yields an empty map.
func (s *Store) LoadIfValid(path string) map[string]interface{} {
	m := s.Load(path)
	if len(m) == 0 {
		return m
	}
	expiry, ok := m[ExpiryKey].(float64)
	if !ok {
		s.logger.Debug("Cache entry has no expiry; discarding.", zap.String("path", path))
		return map[string]interface{}{}
	}
	if float64(s.now().Unix()) >= expiry {
		s.logger.Info("Cache entry expired.", zap.String("path", path))
		return map[string]interface{}{}
	}
	return m
}

// SaveWithTTL writes a copy of m stamped with expiry = now + ttl.
func (s *Store) SaveWithTTL(path string, m map[string]interface{}, ttl time.Duration) bool {
	stamped := make(map[string]interface{}, len(m)+1)
	for k, v := range m {
		stamped[k] = v
	}
	stamped[ExpiryKey] = float64(s.now().Add(ttl).Unix())
	return s.Save(path, stamped)
}
