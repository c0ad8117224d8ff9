package otp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{TTL: 5 * time.Minute, Digits: 6})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestKey(t *testing.T) {
	assert.Equal(t, "user-otp-ada@example.com", Key(" Ada@Example.com"))
}

func TestIssueAndVerify(t *testing.T) {
	s := newTestStore(t)

	code, err := s.Issue("ada@example.com")
	require.NoError(t, err)
	assert.Len(t, code, 6)
	assert.Regexp(t, `^\d{6}$`, code)

	assert.False(t, s.Verify("ada@example.com", "not-it"))
	assert.True(t, s.Verify("ADA@example.com", code), "lookup ignores case")
	assert.False(t, s.Verify("ada@example.com", code), "codes are single use")
}

func TestIssueReplacesPreviousCode(t *testing.T) {
	s := newTestStore(t)

	var first, second string
	var err error
	// Retry until codes differ; a collision is one in a million.
	for first == second {
		first, err = s.Issue("ada@example.com")
		require.NoError(t, err)
		second, err = s.Issue("ada@example.com")
		require.NoError(t, err)
	}

	assert.False(t, s.Verify("ada@example.com", first))
	assert.True(t, s.Verify("ada@example.com", second))
}

func TestVerifyExpired(t *testing.T) {
	s := newTestStore(t)
	start := time.Now()
	s.now = func() time.Time { return start }

	code, err := s.Issue("ada@example.com")
	require.NoError(t, err)

	s.now = func() time.Time { return start.Add(5 * time.Minute) }
	assert.False(t, s.Verify("ada@example.com", code))
}

func TestRevoke(t *testing.T) {
	s := newTestStore(t)

	code, err := s.Issue("ada@example.com")
	require.NoError(t, err)
	s.Revoke("ada@example.com")
	s.cache.Wait()
	assert.False(t, s.Verify("ada@example.com", code))
}

func TestNew_Rejects(t *testing.T) {
	_, err := New(Config{TTL: 0, Digits: 6})
	assert.Error(t, err)
	_, err = New(Config{TTL: time.Minute, Digits: 3})
	assert.Error(t, err)
}

func TestGenerateZeroPads(t *testing.T) {
	s := newTestStore(t)
	for range 50 {
		code, err := s.generate()
		require.NoError(t, err)
		assert.Len(t, code, 6)
	}
}
