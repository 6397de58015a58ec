// File: internal/cache/cache_test.go
package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

var fixedNow = time.Unix(1_750_000_000, 0)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(zaptest.NewLogger(t))
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestLoad_MissingAndCorrupt(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s := newTestStore(t)

	assert.Empty(t, s.Load(filepath.Join(dir, "missing.json")))

	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{\"access_token\": "), 0o600))
	m := s.Load(corrupt)
	assert.NotNil(t, m)
	assert.Empty(t, m)

	array := filepath.Join(dir, "array.json")
	require.NoError(t, os.WriteFile(array, []byte("[1,2]"), 0o600))
	assert.Empty(t, s.Load(array))
}

func TestLoad_CorruptIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	s := NewStore(zap.New(core))

	path := filepath.Join(t.TempDir(), "corrupt.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))
	s.Load(path)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Cache file is corrupt; ignoring it.", logs.All()[0].Message)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	path := filepath.Join(t.TempDir(), "sub", "cache.json")

	in := map[string]interface{}{"a": "b", "n": float64(3)}
	require.True(t, s.Save(path, in))
	assert.Equal(t, in, s.Load(path))
}

func TestSave_FailureIsNotAnError(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	// A directory cannot be overwritten with a file.
	dir := t.TempDir()
	assert.False(t, s.Save(dir, map[string]interface{}{"a": 1}))
	// Values that cannot be encoded fail the same way.
	assert.False(t, s.Save(filepath.Join(dir, "f.json"), map[string]interface{}{"ch": make(chan int)}))
}

func TestLoadIfValid(t *testing.T) {
	t.Parallel()
	now := float64(fixedNow.Unix())

	tests := []struct {
		name    string
		content map[string]interface{}
		want    map[string]interface{}
	}{
		{
			name:    "expired one second ago",
			content: map[string]interface{}{"access_token": "old", "expiry": now - 1},
			want:    map[string]interface{}{},
		},
		{
			name:    "valid for another hour",
			content: map[string]interface{}{"access_token": "fresh", "expiry": now + 3600},
			want:    map[string]interface{}{"access_token": "fresh", "expiry": now + 3600},
		},
		{
			name:    "no expiry",
			content: map[string]interface{}{"access_token": "forever"},
			want:    map[string]interface{}{},
		},
		{
			name:    "non numeric expiry",
			content: map[string]interface{}{"access_token": "x", "expiry": "tomorrow"},
			want:    map[string]interface{}{},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := newTestStore(t)
			path := filepath.Join(t.TempDir(), "tokens.json")
			require.True(t, s.Save(path, tt.content))
			assert.Equal(t, tt.want, s.LoadIfValid(path))
		})
	}
}

func TestSaveWithTTL(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	path := filepath.Join(t.TempDir(), "ttl.json")

	in := map[string]interface{}{"access_token": "tok"}
	require.True(t, s.SaveWithTTL(path, in, time.Hour))
	_, stamped := in[ExpiryKey]
	assert.False(t, stamped, "the caller's map is not modified")

	got := s.Load(path)
	assert.Equal(t, float64(fixedNow.Add(time.Hour).Unix()), got[ExpiryKey])
	assert.Equal(t, "tok", got["access_token"])

	// Once the clock passes the stamp the entry is gone.
	s.now = func() time.Time { return fixedNow.Add(2 * time.Hour) }
	assert.Empty(t, s.LoadIfValid(path))
}

func TestTokenCache(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	tc := NewTokenCache(s, filepath.Join(t.TempDir(), ".auth_cache.json"))

	_, ok := tc.Get()
	assert.False(t, ok)

	require.True(t, tc.Put("abc"))
	token, ok := tc.Get()
	require.True(t, ok)
	assert.Equal(t, "abc", token)

	// Fixed window: 24h after the write, not after the last read.
	s.now = func() time.Time { return fixedNow.Add(23 * time.Hour) }
	_, ok = tc.Get()
	assert.True(t, ok)
	s.now = func() time.Time { return fixedNow.Add(TokenTTL) }
	_, ok = tc.Get()
	assert.False(t, ok)
}

func TestSnapshotStore(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	path := filepath.Join(t.TempDir(), ".pathfinder_analysis.json")

	snap := NewSnapshotStore(s, path)
	require.True(t, snap.Put(PhaseLogin, map[string]interface{}{"url": "https://x/login"}))
	require.True(t, snap.Put(PhaseAuthTokens, map[string]interface{}{"tokens": []string{"a"}}))
	require.True(t, snap.Put(PhaseLogin, map[string]interface{}{"url": "https://x/login?v=2"}))

	onDisk := s.Load(path)
	assert.Len(t, onDisk, 2)
	assert.Equal(t, map[string]interface{}{"url": "https://x/login?v=2"}, onDisk[PhaseLogin], "last write wins per phase")

	// A new store picks up earlier phases.
	reopened := NewSnapshotStore(s, path)
	assert.Contains(t, reopened.Snapshot(), PhaseAuthTokens)
}
