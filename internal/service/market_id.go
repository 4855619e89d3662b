package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"

	"marketsim/internal/config"
	"marketsim/internal/repository"
)

const (
	defaultIDAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	defaultIDLength      = 8
	defaultIDMaxAttempts = 16
)

// MarketIDAllocator draws human-typable market ids and retries on primary-key
// collisions, up to MaxAttempts.
type MarketIDAllocator struct {
	Alphabet    string
	Length      int
	MaxAttempts int
	// IntN returns a uniform int in [0, n); nil uses math/rand/v2.
	IntN func(n int) int
}

func NewMarketIDAllocator(cfg config.MarketConfig) *MarketIDAllocator {
	return &MarketIDAllocator{
		Alphabet:    cfg.IDAlphabet,
		Length:      cfg.IDLength,
		MaxAttempts: cfg.IDMaxAttempts,
	}
}

func (a *MarketIDAllocator) Next() string {
	alphabet := defaultIDAlphabet
	length := defaultIDLength
	intN := rand.IntN
	if a != nil {
		if strings.TrimSpace(a.Alphabet) != "" {
			alphabet = a.Alphabet
		}
		if a.Length > 0 {
			length = a.Length
		}
		if a.IntN != nil {
			intN = a.IntN
		}
	}
	symbols := []rune(alphabet)
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		b.WriteRune(symbols[intN(len(symbols))])
	}
	return b.String()
}

// Allocate calls insert with fresh ids until one does not collide. Any error other than
// a unique violation is returned as is.
func (a *MarketIDAllocator) Allocate(ctx context.Context, insert func(ctx context.Context, id string) error) (string, error) {
	attempts := defaultIDMaxAttempts
	if a != nil && a.MaxAttempts > 0 {
		attempts = a.MaxAttempts
	}
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		id := a.Next()
		err := insert(ctx, id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, repository.ErrUniqueViolation) {
			return "", err
		}
	}
	return "", ErrMarketIDExhausted
}
