package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"trivia-quiz/internal/domain"
)

// QuestionBank is the question_banks row.
type QuestionBank struct {
	bun.BaseModel `bun:"table:question_banks"`

	ID        string    `bun:"id,pk"`
	Shape     string    `bun:"shape,notnull"`
	Payload   string    `bun:"payload,type:jsonb,notnull"`
	FetchedAt time.Time `bun:"fetched_at,notnull"`
}

// OpenDB opens a bun handle over the pgdriver connector.
func OpenDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// BankStore persists fetched banks so they can be served offline.
type BankStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewBankStore(db *bun.DB) *BankStore {
	return &BankStore{db: db, now: time.Now}
}

// SaveBank upserts bank by id.
func (s *BankStore) SaveBank(ctx context.Context, bank domain.RawBank) error {
	row := &QuestionBank{
		ID:        bank.ID,
		Shape:     string(bank.Shape),
		Payload:   string(bank.Payload),
		FetchedAt: s.now().UTC(),
	}
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("shape = EXCLUDED.shape").
		Set("payload = EXCLUDED.payload").
		Set("fetched_at = EXCLUDED.fetched_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save bank %s: %w", bank.ID, err)
	}
	return nil
}
