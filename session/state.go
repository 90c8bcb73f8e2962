package session

import (
	"time"

	"github.com/minimarket/go-marketplace-client/gateway"
	"github.com/minimarket/go-marketplace-client/internal/utils"
)

// State is a snapshot of the authenticated session. Identity fields
// (Username, Role, UserID) are derived from token claims, never trusted from
// arbitrary caller input. The zero value is the logged-out state.
//
// JSON tags match the persisted storage format so state saved by earlier
// versions of the client reloads cleanly.
type State struct {
	AccessToken           string       `json:"accessToken,omitempty"`
	RefreshToken          string       `json:"refreshToken,omitempty"`
	Username              string       `json:"username,omitempty"`
	Role                  gateway.Role `json:"role,omitempty"`
	UserID                *int64       `json:"userId,omitempty"`
	AccessTokenExpiresAt  *int64       `json:"accessTokenExpiresAt,omitempty"`  // unix seconds
	RefreshTokenExpiresAt *int64       `json:"refreshTokenExpiresAt,omitempty"` // unix seconds
}

// LoggedIn reports whether the session currently holds an access token.
func (s State) LoggedIn() bool {
	return s.AccessToken != ""
}

// deriveState rebuilds a full session state from tokens plus whatever was
// previously known. Claims decoded from the access token win, then the
// caller-supplied fallbacks, then claims from the refresh token. Roles that
// fail enum validation are discarded rather than carried through.
func deriveState(partial State) State {
	decodedAccess := DecodeToken(partial.AccessToken)
	decodedRefresh := DecodeToken(partial.RefreshToken)

	fallbackRole := partial.Role
	if fallbackRole == "" && decodedRefresh.Role != nil {
		fallbackRole = *decodedRefresh.Role
	}
	if !fallbackRole.Valid() {
		fallbackRole = ""
	}
	role := fallbackRole
	if decodedAccess.Role != nil {
		role = *decodedAccess.Role
	}

	return State{
		AccessToken:           partial.AccessToken,
		RefreshToken:          partial.RefreshToken,
		Username:              firstNonEmpty(utils.Value(decodedAccess.Username), partial.Username, utils.Value(decodedRefresh.Username)),
		Role:                  role,
		UserID:                firstNonNil(decodedAccess.UserID, partial.UserID, decodedRefresh.UserID),
		AccessTokenExpiresAt:  firstNonNil(decodedAccess.ExpiresAt, partial.AccessTokenExpiresAt),
		RefreshTokenExpiresAt: firstNonNil(decodedRefresh.ExpiresAt, partial.RefreshTokenExpiresAt),
	}
}

// tokenExpired reports whether an expiry (unix seconds) is within buffer of
// now. A missing expiry counts as expired.
func tokenExpired(expiresAt *int64, buffer time.Duration, now time.Time) bool {
	if expiresAt == nil || *expiresAt == 0 {
		return true
	}
	return *expiresAt-int64(buffer/time.Second) <= now.Unix()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonNil[T any](values ...*T) *T {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
