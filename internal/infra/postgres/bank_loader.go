package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-quiz/internal/domain"
)

// BankLoader loads raw question bank payloads (JSONB) from Postgres.
type BankLoader struct {
	pool *pgxpool.Pool
}

func NewBankLoader(pool *pgxpool.Pool) *BankLoader {
	return &BankLoader{pool: pool}
}

func (l *BankLoader) LoadBank(ctx context.Context, bankID string) (domain.RawBank, error) {
	var (
		shape   string
		payload []byte
	)
	err := l.pool.QueryRow(ctx, `SELECT shape, payload FROM question_banks WHERE id=$1`, bankID).Scan(&shape, &payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.RawBank{}, fmt.Errorf("bank %s: %w", bankID, domain.ErrBankNotFound)
	}
	if err != nil {
		return domain.RawBank{}, fmt.Errorf("load bank: %w", err)
	}
	return domain.RawBank{ID: bankID, Shape: domain.Shape(shape), Payload: payload}, nil
}
