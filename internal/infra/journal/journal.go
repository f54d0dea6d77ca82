package journal

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"toolgate/internal/domain"
)

var bucketCalls = []byte("calls")

// ErrJournalClosed indicates use after Close.
var ErrJournalClosed = errors.New("journal is closed")

// Journal is a bbolt-backed append log of tool-call outcomes. Recording
// is best-effort: failures are logged, never surfaced to callers.
type Journal struct {
	logger *zap.Logger

	mu     sync.RWMutex
	db     *bolt.DB
	closed bool
}

// Open creates or opens the journal database at path.
func Open(path string, logger *zap.Logger) (*Journal, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("journal path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
		return nil, fmt.Errorf("ensure journal dir: %w", err)
	}
	db, err := bolt.Open(trimmed, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCalls)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure journal schema: %w", err)
	}
	return &Journal{
		logger: logger.Named("journal"),
		db:     db,
	}, nil
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	return j.db.Close()
}

// Record appends one call outcome. Keys are monotonically increasing
// sequence numbers, so Recent can walk backwards in insertion order.
func (j *Journal) Record(rec domain.CallRecord) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return
	}

	err := j.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketCalls)
		if bucket == nil {
			return fmt.Errorf("missing bucket %s", bucketCalls)
		}
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		value, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return bucket.Put(key, value)
	})
	if err != nil {
		j.logger.Warn("record failed", zap.Error(err))
	}
}

// Recent returns up to limit records, newest first.
func (j *Journal) Recent(limit int) ([]domain.CallRecord, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return nil, ErrJournalClosed
	}
	if limit <= 0 {
		limit = 20
	}

	out := make([]domain.CallRecord, 0, limit)
	err := j.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketCalls)
		if bucket == nil {
			return nil
		}
		cursor := bucket.Cursor()
		for key, value := cursor.Last(); key != nil && len(out) < limit; key, value = cursor.Prev() {
			var rec domain.CallRecord
			if err := json.Unmarshal(value, &rec); err != nil {
				return fmt.Errorf("decode record: %w", err)
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

var _ domain.CallRecorder = (*Journal)(nil)
