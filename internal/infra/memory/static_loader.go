package memory

import (
	"context"
	_ "embed"
	"errors"

	"trivia-quiz/internal/domain"
)

//go:embed samples/general.json
var sampleGeneral []byte

//go:embed samples/linux.json
var sampleLinux []byte

// StaticBankLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticBankLoader struct {
	banks map[string]domain.RawBank
}

func NewStaticBankLoader(banks map[string]domain.RawBank) *StaticBankLoader {
	return &StaticBankLoader{banks: banks}
}

func (l *StaticBankLoader) LoadBank(_ context.Context, bankID string) (domain.RawBank, error) {
	if bank, ok := l.banks[bankID]; ok {
		return bank, nil
	}
	return domain.RawBank{}, domain.ErrBankNotFound
}

// SampleBanks returns the embedded offline banks, one per supported shape.
func SampleBanks() map[string]domain.RawBank {
	return map[string]domain.RawBank{
		"sample-general": {ID: "sample-general", Shape: domain.ShapeFlat, Payload: sampleGeneral},
		"sample-linux":   {ID: "sample-linux", Shape: domain.ShapeKeyed, Payload: sampleLinux},
	}
}

// FallbackLoader tries primary first and falls back to secondary when primary
// does not know the bank.
type FallbackLoader struct {
	primary   BankLoader
	secondary BankLoader
}

func NewFallbackLoader(primary, secondary BankLoader) *FallbackLoader {
	return &FallbackLoader{primary: primary, secondary: secondary}
}

func (l *FallbackLoader) LoadBank(ctx context.Context, bankID string) (domain.RawBank, error) {
	bank, err := l.primary.LoadBank(ctx, bankID)
	if errors.Is(err, domain.ErrBankNotFound) && l.secondary != nil {
		return l.secondary.LoadBank(ctx, bankID)
	}
	return bank, err
}
