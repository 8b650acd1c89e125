// Package idempotency keeps the first response to a keyed request in a
// BoltDB file so retries of the same request get the same answer.
package idempotency

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "github.com/boltdb/bolt"
	log "github.com/sirupsen/logrus"
)

const (
	bucketName = "responses"
	DefaultTTL = 24 * time.Hour
)

// Response is a stored reply. Fingerprint identifies the request that
// produced it so a key reused for a different request can be refused.
type Response struct {
	Fingerprint string    `json:"fingerprint"`
	Status      int       `json:"status"`
	Body        []byte    `json:"body"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Store wraps a BoltDB database of responses keyed by caller and key.
type Store struct {
	db  *bolt.DB
	ttl time.Duration
	now func() time.Time
}

// Open opens (or creates) the database at path and ensures the bucket exists.
func Open(path string, ttl time.Duration) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open idempotency store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create idempotency bucket: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{db: db, ttl: ttl, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the stored response for key. Expired entries are reported as
// missing.
func (s *Store) Get(key string) (*Response, bool, error) {
	var resp Response
	found := false

	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketName)).Get([]byte(key))
		if v == nil {
			return nil
		}
		if err := json.Unmarshal(v, &resp); err != nil {
			return err
		}
		found = s.now().Sub(resp.CreatedAt) < s.ttl
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("read idempotency key: %w", err)
	}
	if !found {
		return nil, false, nil
	}
	return &resp, true, nil
}

// Put stores the response unless a live one is already there; the first
// response for a key wins.
func (s *Store) Put(key, fingerprint string, status int, body []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if v := b.Get([]byte(key)); v != nil {
			var existing Response
			if err := json.Unmarshal(v, &existing); err == nil && s.now().Sub(existing.CreatedAt) < s.ttl {
				return nil
			}
		}

		data, err := json.Marshal(Response{
			Fingerprint: fingerprint,
			Status:      status,
			Body:        body,
			CreatedAt:   s.now().UTC(),
		})
		if err != nil {
			return err
		}
		return b.Put([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("write idempotency key: %w", err)
	}
	return nil
}

// Purge deletes expired entries and returns how many were removed.
func (s *Store) Purge() (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		var expired [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var r Response
			if err := json.Unmarshal(v, &r); err != nil || s.now().Sub(r.CreatedAt) >= s.ttl {
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
		removed = len(expired)
		return nil
	})
	return removed, err
}

// RunJanitor purges expired entries every interval until ctx is done.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration) {
	logger := log.WithField("component", "idempotency")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Purge()
			if err != nil {
				logger.WithError(err).Warn("purge failed")
				continue
			}
			if n > 0 {
				logger.WithField("removed", n).Debug("purged expired keys")
			}
		}
	}
}
