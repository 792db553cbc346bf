package cli

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"trivia-quiz/internal/app"
	"trivia-quiz/internal/config"
	"trivia-quiz/internal/infra/memory"
	pgloader "trivia-quiz/internal/infra/postgres"
	infraredis "trivia-quiz/internal/infra/redis"
	"trivia-quiz/internal/infra/upstream"
)

// deps holds the process-wide adapters behind a QuizService.
type deps struct {
	service *app.QuizService
	redis   *redis.Client
	pool    *pgxpool.Pool
}

func (d *deps) Close() {
	if d.redis != nil {
		_ = d.redis.Close()
	}
	if d.pool != nil {
		d.pool.Close()
	}
}

// buildService assembles the loader chain upstream → postgres → embedded samples,
// the bank cache and the session store.
func buildService(ctx context.Context, cfg config.Config) (*deps, error) {
	d := &deps{}
	fetchTimeout := config.TTLDuration(cfg.Source.Timeout, 10*time.Second)

	var loader memory.BankLoader = memory.NewFallbackLoader(
		upstream.NewClient(cfg.Source.Banks, fetchTimeout),
		memory.NewStaticBankLoader(memory.SampleBanks()),
	)
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		d.pool = pool
		loader = memory.NewFallbackLoader(
			upstream.NewClient(cfg.Source.Banks, fetchTimeout),
			memory.NewFallbackLoader(pgloader.NewBankLoader(pool), memory.NewStaticBankLoader(memory.SampleBanks())),
		)
	}

	if cfg.Redis.Addr != "" {
		d.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	bankTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var banks app.BankRepository
	var store app.SessionRepository
	if d.redis != nil {
		banks = infraredis.NewBankRepository(d.redis, loader, bankTTL)
		store = infraredis.NewSessionStore(d.redis, config.TTLDuration(cfg.Redis.TTL, 30*time.Minute))
	} else {
		banks = memory.NewBankRepository(loader, bankTTL)
		store = memory.NewSessionStore()
	}

	d.service = app.NewQuizService(store, banks, app.Options{
		DefaultBank:   cfg.Source.DefaultBank,
		FetchTimeout:  fetchTimeout,
		RestartPolicy: app.RestartPolicy(cfg.Session.Restart),
	})
	return d, nil
}
