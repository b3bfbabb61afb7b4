package api

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/Code-r4Life/Object-Detection-YOLO/datastructures"
	"github.com/garyburd/redigo/redis"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

// ResultTTL is how long asynchronous results stay retrievable. It doesn't
// make sense to keep them longer than that.
const ResultTTL = time.Hour

// ResultStore keeps asynchronous prediction results by uuid.
type ResultStore interface {
	Put(result datastructures.PredictionResult) error
	// Get returns nil without error when nothing is stored (yet).
	Get(uuid string) (*datastructures.PredictionResult, error)
	Close() error
}

func resultKey(uuid string) string {
	return "predict" + uuid
}

// NewRedisPool dials address lazily, keeping at most maxConnections.
func NewRedisPool(address string, maxConnections int) *redis.Pool {
	return redis.NewPool(func() (redis.Conn, error) {
		c, err := redis.Dial("tcp", address)

		if err != nil {
			return nil, err
		}

		return c, err
	}, maxConnections)
}

// RedisStore keeps results in redis with an expiry.
type RedisStore struct {
	pool *redis.Pool
	ttl  time.Duration
}

func NewRedisStore(pool *redis.Pool, ttl time.Duration) *RedisStore {
	return &RedisStore{pool: pool, ttl: ttl}
}

func (s *RedisStore) Put(result datastructures.PredictionResult) error {
	serialized, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(err, "couldn't marshal prediction result")
	}

	redisConn := s.pool.Get()
	defer redisConn.Close()

	_, err = redisConn.Do("SETEX", resultKey(result.Uuid), int(s.ttl.Seconds()), serialized)
	return errors.Wrap(err, "couldn't store prediction result")
}

func (s *RedisStore) Get(uuid string) (*datastructures.PredictionResult, error) {
	redisConn := s.pool.Get()
	defer redisConn.Close()

	data, err := redis.Bytes(redisConn.Do("GET", resultKey(uuid)))
	if err == redis.ErrNil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "couldn't get prediction result")
	}

	var result datastructures.PredictionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(err, "couldn't unmarshal prediction result")
	}
	return &result, nil
}

// Ping checks the connection, used at startup.
func (s *RedisStore) Ping() error {
	redisConn := s.pool.Get()
	defer redisConn.Close()
	_, err := redisConn.Do("PING")
	return err
}

func (s *RedisStore) Close() error {
	return s.pool.Close()
}

type memoryEntry struct {
	result  datastructures.PredictionResult
	expires time.Time
}

// MemoryStore is a bounded in-process ResultStore for single-instance
// deployments without redis.
type MemoryStore struct {
	mu    sync.Mutex
	cache *lru.Cache[string, memoryEntry]
	ttl   time.Duration
	now   func() time.Time
}

func NewMemoryStore(size int, ttl time.Duration) (*MemoryStore, error) {
	cache, err := lru.New[string, memoryEntry](size)
	if err != nil {
		return nil, err
	}
	return &MemoryStore{cache: cache, ttl: ttl, now: time.Now}, nil
}

func (s *MemoryStore) Put(result datastructures.PredictionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Add(result.Uuid, memoryEntry{result: result, expires: s.now().Add(s.ttl)})
	return nil
}

func (s *MemoryStore) Get(uuid string) (*datastructures.PredictionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.cache.Get(uuid)
	if !ok {
		return nil, nil
	}
	if s.now().After(e.expires) {
		s.cache.Remove(uuid)
		return nil, nil
	}
	result := e.result
	return &result, nil
}

func (s *MemoryStore) Close() error {
	s.cache.Purge()
	return nil
}
