package session

import (
	"math"
	"strconv"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/minimarket/go-marketplace-client/gateway"
)

// DecodedToken holds the identity claims extracted from a bearer token.
// Every field is optional: a claim that is missing or malformed decodes to
// nil rather than failing the whole token.
type DecodedToken struct {
	UserID    *int64
	Username  *string
	Role      *gateway.Role
	ExpiresAt *int64 // unix seconds
	TokenType *string
}

// The token issuer has emitted the user id claim under several spellings over
// time. Checked in order; first spelling that coerces to a number wins.
var userIDClaimNames = []string{"UserID", "userID", "userId", "userid", "sub"}

// DecodeToken extracts claims from a bearer token without verifying its
// signature. The gateway is the authority on token validity; the client only
// reads claims for display and expiry scheduling. An empty or undecodable
// token yields a zero DecodedToken, never an error.
func DecodeToken(raw string) DecodedToken {
	if raw == "" {
		return DecodedToken{}
	}

	token, _, err := jwtlib.NewParser().ParseUnverified(raw, jwtlib.MapClaims{})
	if err != nil {
		return DecodedToken{}
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return DecodedToken{}
	}

	decoded := DecodedToken{}

	for _, name := range userIDClaimNames {
		if id := coerceUserID(claims[name]); id != nil {
			decoded.UserID = id
			break
		}
	}

	decoded.Username = firstString(claims, "Username", "username")
	decoded.TokenType = firstString(claims, "Type", "type")

	roleClaim := claims["Role"]
	if roleClaim == nil {
		roleClaim = claims["role"]
	}
	decoded.Role = coerceRole(roleClaim)

	if exp, ok := claims["exp"].(float64); ok {
		expiresAt := int64(exp)
		decoded.ExpiresAt = &expiresAt
	}

	return decoded
}

// coerceUserID accepts the user id claim as either a JSON number or a
// numeric string.
func coerceUserID(value any) *int64 {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		id := int64(v)
		return &id
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			return nil
		}
		id := int64(parsed)
		return &id
	}
	return nil
}

// coerceRole validates the role claim against the closed role set. Unknown
// role strings are discarded, not treated as an error.
func coerceRole(value any) *gateway.Role {
	s, ok := value.(string)
	if !ok {
		return nil
	}
	role := gateway.Role(s)
	if !role.Valid() {
		return nil
	}
	return &role
}

func firstString(claims jwtlib.MapClaims, names ...string) *string {
	for _, name := range names {
		if s, ok := claims[name].(string); ok {
			return &s
		}
	}
	return nil
}
