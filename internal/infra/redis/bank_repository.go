package redis

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"trivia-quiz/internal/domain"
	"trivia-quiz/internal/infra/memory"
)

const (
	fieldShape   = "shape"
	fieldPayload = "payload"
)

// BankRepository caches raw question banks in Redis and falls back to a loader on cache miss.
// Each bank is stored as: HSET quiz:bank:{bankID} shape {shape} payload {json}
type BankRepository struct {
	client *redis.Client
	loader memory.BankLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewBankRepository(client *redis.Client, loader memory.BankLoader, ttl time.Duration) *BankRepository {
	return &BankRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *BankRepository) GetBank(ctx context.Context, bankID string) (domain.RawBank, error) {
	if bank, ok := r.cached(ctx, bankID); ok {
		return bank, nil
	}

	result, err, _ := r.sf.Do(bankID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if bank, ok := r.cached(ctx, bankID); ok {
			return bank, nil
		}
		return r.loadAndStore(ctx, bankID)
	})
	if err != nil {
		return domain.RawBank{}, err
	}
	return result.(domain.RawBank), nil
}

// RefreshBank bypasses the cached hash, loads the bank again and overwrites it.
func (r *BankRepository) RefreshBank(ctx context.Context, bankID string) (domain.RawBank, error) {
	result, err, _ := r.sf.Do("refresh:"+bankID, func() (interface{}, error) {
		return r.loadAndStore(ctx, bankID)
	})
	if err != nil {
		return domain.RawBank{}, err
	}
	return result.(domain.RawBank), nil
}

func (r *BankRepository) loadAndStore(ctx context.Context, bankID string) (domain.RawBank, error) {
	bank, err := r.loader.LoadBank(ctx, bankID)
	if err != nil {
		return domain.RawBank{}, err
	}

	key := r.key(bankID)
	ttl := r.ttlWithJitter()
	// cache writes are best-effort
	if ttl <= 0 || !memory.Cacheable(bank) {
		_ = r.client.Del(ctx, key).Err()
		return bank, nil
	}
	pipe := r.client.Pipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, fieldShape, string(bank.Shape), fieldPayload, string(bank.Payload))
	pipe.Expire(ctx, key, ttl)
	_, _ = pipe.Exec(ctx)
	return bank, nil
}

func (r *BankRepository) cached(ctx context.Context, bankID string) (domain.RawBank, bool) {
	fields, err := r.client.HGetAll(ctx, r.key(bankID)).Result()
	if err != nil {
		return domain.RawBank{}, false
	}
	payload, ok := fields[fieldPayload]
	if !ok || payload == "" {
		return domain.RawBank{}, false
	}
	return domain.RawBank{
		ID:      bankID,
		Shape:   domain.Shape(fields[fieldShape]),
		Payload: []byte(payload),
	}, true
}

func (r *BankRepository) key(bankID string) string {
	return "quiz:bank:" + bankID
}

func (r *BankRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
