package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/minimarket/go-marketplace-client/gateway"
	"github.com/minimarket/go-marketplace-client/internal/utils"
	"github.com/minimarket/go-marketplace-client/storage"
)

// StorageKey is the fixed key the session state is persisted under.
const StorageKey = "mini-marketplace-auth"

const (
	// accessTokenBuffer is how close to expiry an access token may be before
	// GetValidAccessToken refreshes instead of returning it.
	accessTokenBuffer = 15 * time.Second

	// proactiveRefreshWindow is how long before access-token expiry the
	// scheduled background refresh fires.
	proactiveRefreshWindow = 30 * time.Second

	refreshKey = "refresh"
)

// AuthAPI is the slice of the gateway the session manager depends on.
type AuthAPI interface {
	Login(ctx context.Context, input gateway.LoginInput) (*gateway.LoginOutput, error)
	Register(ctx context.Context, input gateway.RegisterInput) (*gateway.RegisterOutput, error)
	RefreshToken(ctx context.Context, refreshToken string) (*gateway.RefreshTokenOutput, error)
}

// Manager owns the single authenticated session: tokens, derived identity
// claims, and expiries. It persists state on every change, transparently
// refreshes the access token when it nears expiry, and collapses concurrent
// refresh attempts into one network call.
type Manager struct {
	api     AuthAPI
	store   storage.Store
	logger  zerolog.Logger
	nowTime func() time.Time // nowTime function (injectable for testing)

	mu           sync.Mutex
	state        State
	refreshTimer *time.Timer
	subscribers  []func(State)
	closed       bool

	refreshGroup singleflight.Group
}

// Option defines a function type to modify the Manager instance.
type Option func(*Manager)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a session manager, reloading any persisted session. A
// persisted session whose refresh token has already expired is cleared
// immediately rather than reloaded.
func NewManager(api AuthAPI, store storage.Store, options ...Option) (*Manager, error) {
	if api == nil {
		return nil, errors.New("[NewManager] api is required")
	}
	if store == nil {
		return nil, errors.New("[NewManager] store is required")
	}

	m := &Manager{
		api:     api,
		store:   store,
		logger:  zerolog.Nop(),
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(m)
	}

	m.loadPersisted()
	return m, nil
}

// Login authenticates against the gateway and, on success, derives and
// persists the session from the returned tokens. The gateway's error is
// propagated verbatim on failure; session state is left untouched.
func (m *Manager) Login(ctx context.Context, input gateway.LoginInput) (*gateway.LoginOutput, error) {
	out, err := m.api.Login(ctx, input)
	if err != nil {
		return nil, err
	}

	partial := State{
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
		Username:     firstNonEmpty(out.Username, input.Username),
		Role:         out.Role,
	}
	if partial.Role == "" {
		partial.Role = input.Role
	}
	if out.UserID != nil {
		partial.UserID = utils.Ptr(int64(*out.UserID))
	}

	m.setState(deriveState(partial))
	return out, nil
}

// Register is a pure passthrough to the gateway; it never mutates session
// state.
func (m *Manager) Register(ctx context.Context, input gateway.RegisterInput) (*gateway.RegisterOutput, error) {
	return m.api.Register(ctx, input)
}

// GetValidAccessToken returns an access token that is good for at least the
// buffer window, refreshing first if needed. It returns "" when no valid
// token can be produced; it never returns an error, and any unrecoverable
// refresh condition logs the session out as a side effect.
func (m *Manager) GetValidAccessToken(ctx context.Context) string {
	m.mu.Lock()
	accessToken := m.state.AccessToken
	accessExp := m.state.AccessTokenExpiresAt
	m.mu.Unlock()

	if accessToken != "" && !tokenExpired(accessExp, accessTokenBuffer, m.nowTime()) {
		return accessToken
	}
	return m.refresh(ctx)
}

// Logout clears the session state, its persisted copy, and any scheduled
// refresh.
func (m *Manager) Logout() {
	m.mu.Lock()
	subs := m.applyStateLocked(State{})
	m.mu.Unlock()

	for _, fn := range subs {
		fn(State{})
	}
}

// Close cancels the scheduled refresh and prevents re-arming. The session
// state itself is left intact (and persisted) for the next start.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	if m.refreshTimer != nil {
		m.refreshTimer.Stop()
		m.refreshTimer = nil
	}
}

// State returns a snapshot of the current session.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers a callback invoked after every state change. Callbacks
// run outside the manager's lock, on the goroutine that caused the change.
func (m *Manager) Subscribe(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

// refresh obtains a new access token using the refresh token. Concurrent
// callers share a single in-flight gateway call and observe the same result.
// An absent or expired refresh token logs out without touching the network;
// a failed refresh call logs out rather than retrying.
func (m *Manager) refresh(ctx context.Context) string {
	m.mu.Lock()
	refreshToken := m.state.RefreshToken
	refreshExp := m.state.RefreshTokenExpiresAt
	m.mu.Unlock()

	if refreshToken == "" || tokenExpired(refreshExp, 0, m.nowTime()) {
		m.Logout()
		return ""
	}

	result, _, _ := m.refreshGroup.Do(refreshKey, func() (any, error) {
		out, err := m.api.RefreshToken(ctx, refreshToken)
		if err != nil {
			m.logger.Warn().Err(err).Msg("token refresh failed, logging out")
			m.Logout()
			return "", nil
		}

		m.mu.Lock()
		partial := m.state
		partial.AccessToken = out.AccessToken
		if out.RefreshToken != "" {
			partial.RefreshToken = out.RefreshToken
		}
		next := deriveState(partial)
		subs := m.applyStateLocked(next)
		m.mu.Unlock()

		for _, fn := range subs {
			fn(next)
		}
		return next.AccessToken, nil
	})

	token, _ := result.(string)
	return token
}

// setState replaces the session state, persists it, re-arms the proactive
// refresh, and notifies subscribers.
func (m *Manager) setState(next State) {
	m.mu.Lock()
	subs := m.applyStateLocked(next)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
}

// applyStateLocked mutates state under the lock and returns the subscriber
// snapshot to notify after unlocking.
func (m *Manager) applyStateLocked(next State) []func(State) {
	m.state = next
	m.persistLocked()
	m.scheduleRefreshLocked()
	return append([]func(State){}, m.subscribers...)
}

func (m *Manager) persistLocked() {
	if m.state == (State{}) {
		if err := m.store.Delete(StorageKey); err != nil {
			m.logger.Warn().Err(err).Msg("failed to clear persisted session")
		}
		return
	}

	raw, err := json.Marshal(m.state)
	if err != nil {
		m.logger.Warn().Err(err).Msg("failed to marshal session state")
		return
	}
	if err := m.store.Set(StorageKey, string(raw)); err != nil {
		m.logger.Warn().Err(err).Msg("failed to persist session state")
	}
}

// scheduleRefreshLocked (re)arms the one-shot proactive refresh timer to
// fire proactiveRefreshWindow before the access token expires, clamped to a
// zero minimum delay. The previous timer is always cancelled first.
func (m *Manager) scheduleRefreshLocked() {
	if m.refreshTimer != nil {
		m.refreshTimer.Stop()
		m.refreshTimer = nil
	}

	if m.closed || m.state.AccessToken == "" || m.state.AccessTokenExpiresAt == nil {
		return
	}

	expiry := time.Unix(*m.state.AccessTokenExpiresAt, 0)
	delay := expiry.Sub(m.nowTime()) - proactiveRefreshWindow
	if delay < 0 {
		delay = 0
	}

	m.refreshTimer = time.AfterFunc(delay, func() {
		m.refresh(context.Background())
	})
}

// loadPersisted restores the session from storage at construction time.
// Corrupt state is treated as no session.
func (m *Manager) loadPersisted() {
	raw, err := m.store.Get(StorageKey)
	if err != nil || raw == "" {
		return
	}

	var persisted State
	if err := json.Unmarshal([]byte(raw), &persisted); err != nil {
		m.logger.Warn().Err(err).Msg("failed to parse persisted session state")
		return
	}

	derived := deriveState(persisted)
	if derived.RefreshToken != "" && tokenExpired(derived.RefreshTokenExpiresAt, 0, m.nowTime()) {
		m.Logout()
		return
	}
	m.setState(derived)
}
