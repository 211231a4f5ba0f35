package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// ErrNoRecord means no usable credential is persisted. Unreadable or partial
// records are reported the same way.
var ErrNoRecord = errors.New("session: no record")

// Store persists the single credential record of one profile.
type Store interface {
	Load(ctx context.Context) (Record, error)
	Save(ctx context.Context, r Record) error
	Clear(ctx context.Context) error
	Close() error
}

// Driver identifiers supported by NewStore.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// StoreConfig describes the store selection parameters.
type StoreConfig struct {
	Driver  string
	File    string
	Profile string
}

// Dependencies captures external handles required by certain drivers.
type Dependencies struct {
	Redis    redis.Cmdable
	Postgres PgxQuerier
}

// NewStore creates a credential store based on the provided configuration.
func NewStore(cfg StoreConfig, deps Dependencies) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverMemory
	}

	switch driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverFile:
		return NewFileStore(cfg.File)
	case DriverRedis:
		if deps.Redis == nil {
			return nil, fmt.Errorf("redis driver requires a client")
		}
		return NewRedisStore(deps.Redis, cfg.Profile), nil
	case DriverPostgres:
		if deps.Postgres == nil {
			return nil, fmt.Errorf("postgres driver requires a pool")
		}
		return NewPostgresStore(deps.Postgres, cfg.Profile), nil
	default:
		return nil, fmt.Errorf("unsupported session store driver: %s", driver)
	}
}

func encodeRecord(r Record) ([]byte, error) {
	return json.Marshal(r)
}

// decodeRecord never returns a partially filled record: anything that does not
// decode into a valid credential is ErrNoRecord.
func decodeRecord(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("%w: malformed record: %v", ErrNoRecord, err)
	}
	if !r.Valid() {
		return Record{}, ErrNoRecord
	}
	return r, nil
}

type memoryStore struct {
	mu  sync.RWMutex
	rec *Record
}

// NewMemoryStore keeps the record in process memory; it does not survive restarts.
func NewMemoryStore() Store {
	return &memoryStore{}
}

func (s *memoryStore) Load(_ context.Context) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.rec == nil {
		return Record{}, ErrNoRecord
	}
	return *s.rec, nil
}

func (s *memoryStore) Save(_ context.Context, r Record) error {
	if !r.Valid() {
		return errors.New("session: refusing to save a record without a token")
	}
	s.mu.Lock()
	s.rec = &r
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.rec = nil
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Close() error { return nil }
