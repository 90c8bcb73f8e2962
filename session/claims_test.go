package session_test

import (
	"testing"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/minimarket/go-marketplace-client/gateway"
	"github.com/minimarket/go-marketplace-client/session"
)

// makeToken mints a signed JWT with the given claims. The session layer never
// verifies signatures, so any key works.
func makeToken(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	return token
}

func TestDecodeToken(t *testing.T) {
	t.Run("full claim set", func(t *testing.T) {
		token := makeToken(t, jwtlib.MapClaims{
			"userId":   float64(42),
			"username": "alice",
			"role":     "buyer",
			"exp":      float64(1700000000),
			"type":     "access",
		})

		decoded := session.DecodeToken(token)
		require.NotNil(t, decoded.UserID)
		require.Equal(t, int64(42), *decoded.UserID)
		require.NotNil(t, decoded.Username)
		require.Equal(t, "alice", *decoded.Username)
		require.NotNil(t, decoded.Role)
		require.Equal(t, gateway.RoleBuyer, *decoded.Role)
		require.NotNil(t, decoded.ExpiresAt)
		require.Equal(t, int64(1700000000), *decoded.ExpiresAt)
		require.NotNil(t, decoded.TokenType)
		require.Equal(t, "access", *decoded.TokenType)
	})

	t.Run("alternate user id spellings", func(t *testing.T) {
		for _, name := range []string{"UserID", "userID", "userId", "userid", "sub"} {
			decoded := session.DecodeToken(makeToken(t, jwtlib.MapClaims{name: float64(7)}))
			require.NotNil(t, decoded.UserID, "claim %s", name)
			require.Equal(t, int64(7), *decoded.UserID, "claim %s", name)
		}
	})

	t.Run("user id as numeric string", func(t *testing.T) {
		decoded := session.DecodeToken(makeToken(t, jwtlib.MapClaims{"sub": "123"}))
		require.NotNil(t, decoded.UserID)
		require.Equal(t, int64(123), *decoded.UserID)
	})

	t.Run("non-numeric user id ignored", func(t *testing.T) {
		decoded := session.DecodeToken(makeToken(t, jwtlib.MapClaims{"sub": "alice@example.com"}))
		require.Nil(t, decoded.UserID)
	})

	t.Run("capitalised claim names win", func(t *testing.T) {
		decoded := session.DecodeToken(makeToken(t, jwtlib.MapClaims{
			"UserID":   float64(1),
			"userId":   float64(2),
			"Username": "upper",
			"username": "lower",
		}))
		require.Equal(t, int64(1), *decoded.UserID)
		require.Equal(t, "upper", *decoded.Username)
	})

	t.Run("invalid role discarded not crashed on", func(t *testing.T) {
		decoded := session.DecodeToken(makeToken(t, jwtlib.MapClaims{"role": "superadmin"}))
		require.Nil(t, decoded.Role)
	})

	t.Run("seller roles accepted", func(t *testing.T) {
		for _, role := range []string{"seller_admin", "seller_employee"} {
			decoded := session.DecodeToken(makeToken(t, jwtlib.MapClaims{"Role": role}))
			require.NotNil(t, decoded.Role)
			require.Equal(t, gateway.Role(role), *decoded.Role)
		}
	})

	t.Run("malformed token decodes to all nil fields", func(t *testing.T) {
		decoded := session.DecodeToken("not-a-jwt")
		require.Equal(t, session.DecodedToken{}, decoded)
	})

	t.Run("empty token decodes to all nil fields", func(t *testing.T) {
		require.Equal(t, session.DecodedToken{}, session.DecodeToken(""))
	})

	t.Run("missing claims yield nil per field", func(t *testing.T) {
		decoded := session.DecodeToken(makeToken(t, jwtlib.MapClaims{"exp": float64(99)}))
		require.Nil(t, decoded.UserID)
		require.Nil(t, decoded.Username)
		require.Nil(t, decoded.Role)
		require.NotNil(t, decoded.ExpiresAt)
	})
}
