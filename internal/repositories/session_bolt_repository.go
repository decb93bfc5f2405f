package repositories

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ovostore/internal/models"

	jsoniter "github.com/json-iterator/go"
	"go.etcd.io/bbolt"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var sessionsBucket = []byte("sessions")

// BoltSessionRepository keeps sessions in a bbolt file.
type BoltSessionRepository struct {
	db *bbolt.DB
}

// OpenBoltSessionRepository opens (or creates) the session file at path.
func OpenBoltSessionRepository(path string) (*BoltSessionRepository, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create session store directory: %w", err)
		}
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sessions bucket: %w", err)
	}
	return &BoltSessionRepository{db: db}, nil
}

// Close releases the session file.
func (r *BoltSessionRepository) Close() error {
	return r.db.Close()
}

// Save stores or replaces session.
func (r *BoltSessionRepository) Save(_ context.Context, session models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return r.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionsBucket).Put([]byte(session.ID), data)
	})
}

// Get returns the session with id.
func (r *BoltSessionRepository) Get(_ context.Context, id string) (*models.Session, error) {
	var session models.Session
	err := r.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(sessionsBucket).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
		}
		return json.Unmarshal(data, &session)
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Delete removes the session with id.
func (r *BoltSessionRepository) Delete(_ context.Context, id string) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(sessionsBucket)
		if b.Get([]byte(id)) == nil {
			return fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
		}
		return b.Delete([]byte(id))
	})
}

// PurgeExpired deletes every session expired at now and returns how many were removed.
func (r *BoltSessionRepository) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	purged := 0
	err := r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(sessionsBucket)
		var expired [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var session models.Session
			if err := json.Unmarshal(v, &session); err != nil || session.Expired(now) {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range expired {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		purged = len(expired)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return purged, nil
}
