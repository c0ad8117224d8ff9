// Package otp keeps short-lived signup codes in an in-process TTL cache.
package otp

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/studytrackapp/studytrack-server/internal/normalize"
)

// KeyPrefix namespaces OTP entries; the full key is "user-otp-<email>".
const KeyPrefix = "user-otp-"

// ErrNotStored is returned when the cache refuses to admit a code.
var ErrNotStored = errors.New("otp cache rejected the code")

// Config configures the store.
type Config struct {
	TTL    time.Duration
	Digits int
}

type entry struct {
	code      string
	expiresAt time.Time
}

// Store issues and verifies one code per email.
type Store struct {
	cache  *ristretto.Cache[string, entry]
	ttl    time.Duration
	digits int
	now    func() time.Time
}

// New creates an OTP store.
func New(cfg Config) (*Store, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("otp TTL must be positive")
	}
	if cfg.Digits < 4 || cfg.Digits > 10 {
		return nil, fmt.Errorf("otp digits must be between 4 and 10, got %d", cfg.Digits)
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, entry]{
		NumCounters: 100_000,
		MaxCost:     10_000,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("create otp cache: %w", err)
	}

	return &Store{cache: cache, ttl: cfg.TTL, digits: cfg.Digits, now: time.Now}, nil
}

// Key returns the cache key for an email.
func Key(email string) string {
	return KeyPrefix + normalize.Email(email)
}

// Issue generates a fresh code for email, replacing any previous one.
func (s *Store) Issue(email string) (string, error) {
	code, err := s.generate()
	if err != nil {
		return "", err
	}

	key := Key(email)
	e := entry{code: code, expiresAt: s.now().Add(s.ttl)}
	if !s.cache.SetWithTTL(key, e, 1, s.ttl) {
		return "", ErrNotStored
	}
	// Sets are buffered; make the code visible before it is mailed.
	s.cache.Wait()

	if got, ok := s.cache.Get(key); !ok || got.code != code {
		return "", ErrNotStored
	}
	return code, nil
}

// Verify reports whether code is the live code for email. A match consumes it.
func (s *Store) Verify(email, code string) bool {
	key := Key(email)
	e, ok := s.cache.Get(key)
	if !ok {
		return false
	}
	if !s.now().Before(e.expiresAt) {
		s.cache.Del(key)
		return false
	}
	if subtle.ConstantTimeCompare([]byte(e.code), []byte(strings.TrimSpace(code))) != 1 {
		return false
	}
	s.cache.Del(key)
	return true
}

// TTL returns how long an issued code stays valid.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Revoke drops any code for email.
func (s *Store) Revoke(email string) {
	s.cache.Del(Key(email))
}

// Len reports how many codes the cache has admitted and not yet evicted.
func (s *Store) Len() uint64 {
	m := s.cache.Metrics
	if m == nil {
		return 0
	}
	return m.KeysAdded() - m.KeysEvicted()
}

// Close releases the cache goroutines.
func (s *Store) Close() {
	s.cache.Close()
}

// Shutdown implements do.Shutdowner.
func (s *Store) Shutdown() error {
	s.Close()
	return nil
}

func (s *Store) generate() (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(s.digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", s.digits, n), nil
}
