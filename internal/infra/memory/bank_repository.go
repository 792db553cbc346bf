package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"trivia-quiz/internal/domain"
	"trivia-quiz/internal/normalizer"
)

// BankLoader fetches a raw question bank from a backing source (upstream API, Postgres).
type BankLoader interface {
	LoadBank(ctx context.Context, bankID string) (domain.RawBank, error)
}

// BankRepository caches raw banks with TTL to avoid repeated upstream hits.
// A non-positive TTL disables caching; concurrent loads are still deduplicated.
type BankRepository struct {
	loader BankLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedBank
}

type cachedBank struct {
	bank      domain.RawBank
	expiresAt time.Time
}

func NewBankRepository(loader BankLoader, ttl time.Duration) *BankRepository {
	return &BankRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedBank),
	}
}

func (r *BankRepository) GetBank(ctx context.Context, bankID string) (domain.RawBank, error) {
	if bank, ok := r.cached(bankID); ok {
		return bank, nil
	}

	result, err, _ := r.sf.Do(bankID, func() (interface{}, error) {
		if bank, ok := r.cached(bankID); ok {
			return bank, nil
		}
		return r.loadAndStore(ctx, bankID)
	})
	if err != nil {
		return domain.RawBank{}, err
	}
	return result.(domain.RawBank), nil
}

// RefreshBank skips the cached entry, loads the bank again and overwrites the cache.
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

	cacheable := r.ttl > 0 && Cacheable(bank)

	r.mu.Lock()
	defer r.mu.Unlock()
	if !cacheable {
		delete(r.cache, bankID)
		return bank, nil
	}
	r.cache[bankID] = cachedBank{
		bank:      bank,
		expiresAt: r.clock().Add(r.ttlWithJitterLocked()),
	}
	return bank, nil
}

// Cacheable reports whether a payload decodes to at least one record.
// Rejected envelopes and malformed bodies are returned to the caller but never cached.
func Cacheable(bank domain.RawBank) bool {
	records, err := normalizer.Decode(bank.Payload, bank.Shape)
	return err == nil && len(records) > 0
}

func (r *BankRepository) cached(bankID string) (domain.RawBank, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.cache[bankID]; ok && entry.expiresAt.After(now) {
		return entry.bank, true
	}
	return domain.RawBank{}, false
}

func (r *BankRepository) ttlWithJitterLocked() time.Duration {
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
