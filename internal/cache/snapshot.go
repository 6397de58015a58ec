// File: internal/cache/snapshot.go
package cache

import "go.uber.org/zap"

// Analysis phase names used as snapshot keys.
const (
	PhaseLogin        = "login"
	PhaseAuthTokens   = "authTokens"
	PhaseAddAssetForm = "addAssetForm"
	PhaseSelectors    = "selectors"
)

// SnapshotStore accumulates site-analysis findings keyed by phase and persists
// the whole snapshot after every phase. The last write of a phase wins.
type SnapshotStore struct {
	store  *Store
	path   string
	phases map[string]interface{}
}

// NewSnapshotStore creates a SnapshotStore seeded from whatever is on disk at path.
func NewSnapshotStore(store *Store, path string) *SnapshotStore {
	return &SnapshotStore{store: store, path: path, phases: store.Load(path)}
}

// Put records findings for phase and writes the full snapshot.
func (s *SnapshotStore) Put(phase string, findings interface{}) bool {
	s.phases[phase] = findings
	ok := s.store.Save(s.path, s.phases)
	if ok {
		s.store.logger.Debug("Persisted analysis phase.", zap.String("phase", phase), zap.String("path", s.path))
	}
	return ok
}

// Snapshot returns a shallow copy of the accumulated phases.
func (s *SnapshotStore) Snapshot() map[string]interface{} {
	out := make(map[string]interface{}, len(s.phases))
	for k, v := range s.phases {
		out[k] = v
	}
	return out
}
