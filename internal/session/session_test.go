package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	m := NewManager("secret", time.Hour)

	token, expires, err := m.Issue("user-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	userID, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	m := NewManager("secret", time.Minute)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := m.Issue("user-1")
	require.NoError(t, err)

	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsForeignSecret(t *testing.T) {
	token, _, err := NewManager("other", time.Hour).Issue("user-1")
	require.NoError(t, err)

	_, err = NewManager("secret", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsUnsignedToken(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "user-1"})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewManager("secret", time.Hour).Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewManager("secret", time.Hour).Parse("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
