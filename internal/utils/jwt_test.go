package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestCodec(ttl time.Duration) (*JWTCodec, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	return NewJWTCodec("test-secret", ttl).WithClock(clock.Now), clock
}

func TestJWTCodec_RoundTrip(t *testing.T) {
	codec, _ := newTestCodec(time.Hour)

	for _, id := range []string{"64b7f0c2a1b2c3d4e5f60718", "3f2a9c1e-8d7b-4e6a-9f01-23456789abcd", "x"} {
		tok, err := codec.Issue(id)
		require.NoError(t, err)

		got, err := codec.Verify(tok.Token)
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}
}

func TestJWTCodec_ExpiryBoundary(t *testing.T) {
	codec, clock := newTestCodec(time.Hour)
	start := clock.t

	tok, err := codec.Issue("user-1")
	require.NoError(t, err)
	assert.Equal(t, start.Add(time.Hour), tok.Exp)

	clock.t = start.Add(59*time.Minute + 59*time.Second)
	_, err = codec.Verify(tok.Token)
	assert.NoError(t, err)

	clock.t = start.Add(time.Hour)
	_, err = codec.Verify(tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	clock.t = start.Add(2 * time.Hour)
	_, err = codec.Verify(tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTCodec_RejectsForeignSignature(t *testing.T) {
	codec, clock := newTestCodec(time.Hour)
	other := NewJWTCodec("other-secret", time.Hour).WithClock(clock.Now)

	tok, err := other.Issue("user-1")
	require.NoError(t, err)

	_, err = codec.Verify(tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTCodec_RejectsMalformed(t *testing.T) {
	codec, _ := newTestCodec(time.Hour)

	for _, raw := range []string{"", "abc", "a.b.c"} {
		_, err := codec.Verify(raw)
		assert.ErrorIs(t, err, ErrInvalidToken, raw)
	}
}

func TestJWTCodec_RejectsOtherAlgorithms(t *testing.T) {
	codec, clock := newTestCodec(time.Hour)

	claims := jwt.MapClaims{"id": "user-1", "exp": clock.t.Add(time.Hour).Unix()}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = codec.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = codec.Verify(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTCodec_RequiresExpiryAndSubject(t *testing.T) {
	codec, clock := newTestCodec(time.Hour)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": "user-1"}).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = codec.Verify(noExp)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": clock.t.Add(time.Hour).Unix()}).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = codec.Verify(noSubject)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTCodec_AcceptsSubjectOnly(t *testing.T) {
	codec, clock := newTestCodec(time.Hour)

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-9",
		"exp": clock.t.Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	id, err := codec.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-9", id)
}

func TestNewRefreshToken(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	a, err := NewRefreshToken(7*24*time.Hour, now)
	require.NoError(t, err)
	b, err := NewRefreshToken(7*24*time.Hour, now)
	require.NoError(t, err)

	assert.Len(t, a.Raw, 96)
	assert.NotEqual(t, a.Raw, b.Raw)
	assert.Equal(t, now.Add(7*24*time.Hour), a.Exp)
}

func TestHashRefreshRaw(t *testing.T) {
	h := HashRefreshRaw("token")
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashRefreshRaw("token"))
	assert.NotEqual(t, h, HashRefreshRaw("token2"))
}
