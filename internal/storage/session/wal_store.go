package session

import (
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/vadiminshakov/simex/internal/domain"
)

const (
	defaultSessionDir   = "./wal/session"
	sessionSegmentLimit = 1000
	sessionMaxSegments  = 100
	sessionKey          = "session_credentials"
)

// WALStore persists the session credentials in a WAL. The latest record wins;
// an empty record means the user disconnected.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore initializes a WAL-backed session store under the provided directory.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = defaultSessionDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "session_",
		SegmentThreshold: sessionSegmentLimit,
		MaxSegments:      sessionMaxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init session WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Save appends the credentials as the newest session record.
func (s *WALStore) Save(creds domain.Credentials) error {
	if s == nil || s.wal == nil {
		return errors.New("session store is not initialized")
	}

	payload, err := json.Marshal(creds)
	if err != nil {
		return errors.Wrap(err, "marshal session")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return errors.Wrap(s.wal.Write(nextIndex, sessionKey, payload), "write session")
}

// Load returns the newest session record. ok is false when nothing was stored.
func (s *WALStore) Load() (creds domain.Credentials, ok bool, err error) {
	if s == nil || s.wal == nil {
		return domain.Credentials{}, false, errors.New("session store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for idx := s.wal.CurrentIndex(); idx > 0; idx-- {
		key, payload, found := s.wal.Get(idx)
		if !found || key != sessionKey {
			continue
		}
		if err := json.Unmarshal(payload, &creds); err != nil {
			return domain.Credentials{}, false, errors.Wrap(err, "decode session")
		}
		return creds, true, nil
	}

	return domain.Credentials{}, false, nil
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("session store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
