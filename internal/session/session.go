// Package session issues and checks the signed token that identifies a caller as one
// trader in one market.
package session

import (
	"crypto/rand"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"marketsim/internal/config"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	MarketID string `json:"market_id"`
	TraderID uint64 `json:"trader_id"`

	jwt.RegisteredClaims
}

type Signer struct {
	Secret   []byte
	TokenTTL time.Duration
	Issuer   string
	now      func() time.Time
}

// NewSigner builds a signer from config. An empty secret gets a random per-process key,
// which invalidates every token on restart.
func NewSigner(cfg config.SessionConfig) (*Signer, bool, error) {
	secret := []byte(strings.TrimSpace(cfg.Secret))
	generated := false
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, false, err
		}
		generated = true
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = "market-sim"
	}
	return &Signer{Secret: secret, TokenTTL: ttl, Issuer: issuer}, generated, nil
}

func (s *Signer) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now().UTC()
}

func (s *Signer) Sign(marketID string, traderID uint64) (token string, expiresAt time.Time, err error) {
	now := s.clock()
	expiresAt = now.Add(s.TokenTTL)
	claims := Claims{
		MarketID: marketID,
		TraderID: traderID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.Issuer,
			Subject:   strconv.FormatUint(traderID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Second)),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (s *Signer) Verify(token string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.Secret, nil
	}, jwt.WithIssuer(s.Issuer), jwt.WithTimeFunc(s.clock))
	if err != nil {
		return Claims{}, errors.Join(ErrInvalidToken, err)
	}
	c, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || c.TraderID == 0 || c.MarketID == "" {
		return Claims{}, ErrInvalidToken
	}
	return *c, nil
}
