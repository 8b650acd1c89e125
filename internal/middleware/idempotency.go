package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"blood-platform/internal/apperr"
	"blood-platform/internal/idempotency"
	"blood-platform/internal/response"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"
	maxIdempotencyKeyLen = 255
)

// responseRecorder captures response status and body for replay.
type responseRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) WriteString(s string) (int, error) {
	r.body.WriteString(s)
	return r.ResponseWriter.WriteString(s)
}

// keyLocks serializes requests sharing a scoped key, so a retry that
// overlaps the original waits for its response instead of running again.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyLocks) lock(key string) (unlock func()) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		if l.refs--; l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// fingerprint hashes the request body and restores it for the handler.
func fingerprint(c *gin.Context) (string, error) {
	if c.Request.Body == nil {
		return hex.EncodeToString(sha256.New().Sum(nil)), nil
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", err
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:]), nil
}

// Idempotency replays the stored response of a request that repeats an
// Idempotency-Key. Keys are scoped to the authenticated user, so it must run
// after AuthMiddleware. Requests with the same key run one at a time; a key
// reused with a different body is refused with 409. Server errors are not
// stored so they can be retried.
func Idempotency(store *idempotency.Store) gin.HandlerFunc {
	logger := log.WithField("component", "idempotency")
	inflight := &keyLocks{locks: make(map[string]*keyLock)}
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
		if key == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLen {
			response.Error(c, apperr.Validation("Idempotency-Key", "key must be at most %d characters", maxIdempotencyKeyLen))
			return
		}

		fp, err := fingerprint(c)
		if err != nil {
			response.Error(c, apperr.Validation("body", "unreadable request body"))
			return
		}

		userID, _ := UserID(c)
		scoped := userID.String() + ":" + c.FullPath() + ":" + key

		unlock := inflight.lock(scoped)
		defer unlock()

		stored, ok, err := store.Get(scoped)
		if err != nil {
			logger.WithError(err).Warn("lookup failed, serving request without replay")
		}
		if ok {
			if stored.Fingerprint != fp {
				response.Error(c, apperr.Conflict("Idempotency-Key", "key was already used for a different request"))
				return
			}
			c.Header(HeaderReplayed, "true")
			c.Data(stored.Status, "application/json; charset=utf-8", stored.Body)
			c.Abort()
			return
		}

		rec := &responseRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		if status := rec.Status(); status < http.StatusInternalServerError {
			if err := store.Put(scoped, fp, status, rec.body.Bytes()); err != nil {
				logger.WithError(err).Warn("failed to store response")
			}
		}
	}
}
