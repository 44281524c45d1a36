// Package balancesnapshots keeps a write-ahead log of user balances after
// each trade so web clients can follow them without polling the database.
package balancesnapshots

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
	"github.com/vadiminshakov/papertrade/internal/domain"
)

const (
	defaultDir        = "./wal/balance"
	segmentThreshold  = 1000
	maxSegments       = 100
	snapshotKeyPrefix = "balance_snapshot_"
)

var errNotInitialized = errors.New("balance snapshot store is not initialized")

// WALStore appends balance snapshots to a gowal log keyed by user.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore opens the log under dir, or the default directory when empty.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = defaultDir
	}

	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              dir,
		Prefix:           "snapshot_",
		SegmentThreshold: segmentThreshold,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init balance snapshot WAL")
	}

	return &WALStore{wal: wal}, nil
}

func userKey(userID string) string {
	return snapshotKeyPrefix + userID
}

// Save appends the snapshot and returns its index.
func (s *WALStore) Save(snapshot domain.BalanceSnapshot) (uint64, error) {
	if s == nil || s.wal == nil {
		return 0, errNotInitialized
	}
	if snapshot.UserID == "" {
		return 0, errors.New("balance snapshot user id is required")
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return 0, errors.Wrap(err, "marshal balance snapshot")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.wal.CurrentIndex() + 1
	if err := s.wal.Write(next, userKey(snapshot.UserID), payload); err != nil {
		return 0, errors.Wrap(err, "write balance snapshot")
	}
	return next, nil
}

// SnapshotsAfter returns every snapshot written after index, oldest first.
func (s *WALStore) SnapshotsAfter(index uint64) ([]domain.BalanceSnapshotRecord, error) {
	return s.scan(index, func(key string) bool {
		return strings.HasPrefix(key, snapshotKeyPrefix)
	})
}

// SnapshotsForUserAfter is SnapshotsAfter restricted to one user.
func (s *WALStore) SnapshotsForUserAfter(userID string, index uint64) ([]domain.BalanceSnapshotRecord, error) {
	key := userKey(userID)
	return s.scan(index, func(k string) bool { return k == key })
}

func (s *WALStore) scan(index uint64, match func(key string) bool) ([]domain.BalanceSnapshotRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errNotInitialized
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	var records []domain.BalanceSnapshotRecord
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil || !match(key) {
			continue
		}
		var snapshot domain.BalanceSnapshot
		if err := json.Unmarshal(payload, &snapshot); err != nil {
			return nil, errors.Wrapf(err, "decode balance snapshot %d", idx)
		}
		records = append(records, domain.BalanceSnapshotRecord{Index: idx, Snapshot: snapshot})
	}

	return records, nil
}

// CurrentIndex returns the index of the last written snapshot.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errNotInitialized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
