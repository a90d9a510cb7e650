package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/niloyhakimai/medistore-client/pkg/logger"
	pkgredis "github.com/niloyhakimai/medistore-client/pkg/redis"
	"github.com/niloyhakimai/medistore-client/pkg/response"
	"github.com/redis/go-redis/v9"
)

const (
	// IdempotencyKeyHeader is the header carrying the client generated key
	IdempotencyKeyHeader = "X-Idempotency-Key"
	// ReplayedHeader marks a response served from a stored record
	ReplayedHeader = "Idempotent-Replayed"
	// DefaultIdempotencyTTL keeps completed records long enough to cover client retries
	DefaultIdempotencyTTL = 24 * time.Hour
	// IdempotencyKeyPrefix namespaces records in shared stores
	IdempotencyKeyPrefix = "idempotency:"
)

// ErrRecordNotFound is returned by a RecordStore for unknown keys
var ErrRecordNotFound = errors.New("idempotency record not found")

type RecordStatus string

const (
	StatusProcessing RecordStatus = "processing"
	StatusCompleted  RecordStatus = "completed"
)

// Record stores the state of one idempotent request
type Record struct {
	Status       RecordStatus `json:"status"`
	RequestHash  string       `json:"request_hash"`
	ResponseCode int          `json:"response_code"`
	ResponseBody string       `json:"response_body"`
	CreatedAt    time.Time    `json:"created_at"`
}

// RecordStore persists idempotency records
type RecordStore interface {
	Get(ctx context.Context, key string) (*Record, error)
	// Reserve stores rec only if key is absent and reports whether it did
	Reserve(ctx context.Context, key string, rec *Record, ttl time.Duration) (bool, error)
	Save(ctx context.Context, key string, rec *Record, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyConfig holds configuration for the idempotency middleware
type IdempotencyConfig struct {
	Store RecordStore
	// TTL for completed records
	TTL time.Duration
	// ProcessingTTL bounds how long a crashed request blocks its key
	ProcessingTTL time.Duration
	// Scope namespaces keys, usually by the authenticated user
	Scope func(*gin.Context) string
	// Required rejects requests that carry no key
	Required bool
}

// DefaultIdempotencyConfig returns defaults backed by store
func DefaultIdempotencyConfig(store RecordStore) *IdempotencyConfig {
	return &IdempotencyConfig{
		Store:         store,
		TTL:           DefaultIdempotencyTTL,
		ProcessingTTL: 60 * time.Second,
	}
}

// Idempotency replays the stored response for a repeated key. A key reused
// with a different request is rejected with 422, a key whose first request
// is still running with 409. Server errors release the key so the client can
// retry.
func Idempotency(config *IdempotencyConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultIdempotencyConfig(NewMemoryRecordStore())
	}
	if config.Store == nil {
		config.Store = NewMemoryRecordStore()
	}
	if config.TTL == 0 {
		config.TTL = DefaultIdempotencyTTL
	}
	if config.ProcessingTTL == 0 {
		config.ProcessingTTL = 60 * time.Second
	}
	log := logger.Get()

	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			if config.Required {
				response.Error(c, http.StatusBadRequest, "MISSING_IDEMPOTENCY_KEY", IdempotencyKeyHeader+" header is required")
				return
			}
			c.Next()
			return
		}

		scope := ""
		if config.Scope != nil {
			scope = config.Scope(c)
		}
		storeKey := IdempotencyKeyPrefix + scope + ":" + key

		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}
		hash := requestHash(c.Request.Method, c.Request.URL.Path, body)
		ctx := c.Request.Context()

		record := &Record{Status: StatusProcessing, RequestHash: hash, CreatedAt: time.Now()}
		reserved, err := config.Store.Reserve(ctx, storeKey, record, config.ProcessingTTL)
		if err != nil {
			// Store unavailable, serve without protection
			log.Warn("Idempotency store unavailable", "error", err)
			c.Next()
			return
		}
		if !reserved {
			replay(c, config.Store, storeKey, hash)
			return
		}

		rw := &captureWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = rw
		c.Next()

		if rw.Status() >= http.StatusInternalServerError {
			_ = config.Store.Delete(ctx, storeKey)
			return
		}
		record.Status = StatusCompleted
		record.ResponseCode = rw.Status()
		record.ResponseBody = rw.body.String()
		if err := config.Store.Save(ctx, storeKey, record, config.TTL); err != nil {
			log.Warn("Failed to save idempotency record", "error", err)
		}
	}
}

func replay(c *gin.Context, store RecordStore, key, hash string) {
	existing, err := store.Get(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			// Expired between Reserve and Get
			response.Error(c, http.StatusConflict, "REQUEST_IN_PROGRESS", "Please retry the request")
			return
		}
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if existing.RequestHash != hash {
		response.Error(c, http.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_REUSED", "Idempotency key already used with a different request")
		return
	}
	if existing.Status == StatusProcessing {
		response.Error(c, http.StatusConflict, "REQUEST_IN_PROGRESS", "A request with this idempotency key is already being processed")
		return
	}
	c.Header(ReplayedHeader, "true")
	c.Data(existing.ResponseCode, "application/json; charset=utf-8", []byte(existing.ResponseBody))
	c.Abort()
}

func requestHash(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte(path))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// captureWriter tees the response body for storage
type captureWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// MemoryRecordStore keeps records in process
type MemoryRecordStore struct {
	mu      sync.Mutex
	records map[string]memoryRecord
	now     func() time.Time
}

type memoryRecord struct {
	rec     Record
	expires time.Time
}

func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{records: make(map[string]memoryRecord), now: time.Now}
}

func (s *MemoryRecordStore) live(key string) (memoryRecord, bool) {
	r, ok := s.records[key]
	if ok && !s.now().Before(r.expires) {
		delete(s.records, key)
		return memoryRecord{}, false
	}
	return r, ok
}

func (s *MemoryRecordStore) Get(_ context.Context, key string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.live(key)
	if !ok {
		return nil, ErrRecordNotFound
	}
	rec := r.rec
	return &rec, nil
}

func (s *MemoryRecordStore) Reserve(_ context.Context, key string, rec *Record, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live(key); ok {
		return false, nil
	}
	s.records[key] = memoryRecord{rec: *rec, expires: s.now().Add(ttl)}
	return true, nil
}

func (s *MemoryRecordStore) Save(_ context.Context, key string, rec *Record, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = memoryRecord{rec: *rec, expires: s.now().Add(ttl)}
	return nil
}

func (s *MemoryRecordStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

// RedisRecordStore shares records between API instances through Redis
type RedisRecordStore struct {
	client *pkgredis.Client
}

func NewRedisRecordStore(client *pkgredis.Client) *RedisRecordStore {
	return &RedisRecordStore{client: client}
}

func (s *RedisRecordStore) Get(ctx context.Context, key string) (*Record, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *RedisRecordStore) Reserve(ctx context.Context, key string, rec *Record, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return false, err
	}
	return s.client.SetNX(ctx, key, data, ttl).Result()
}

func (s *RedisRecordStore) Save(ctx context.Context, key string, rec *Record, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *RedisRecordStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
