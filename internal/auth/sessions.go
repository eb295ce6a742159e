package auth

import (
	"context"
	"database/sql"
	"encoding/gob"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"

	"github.com/mrlokans/librarian/internal/config"
)

// Session data keys
const (
	SessionKeyUserID     = "user_id"
	SessionKeyLoginAt    = "login_at"
	SessionKeyOAuthState = "oauth_state"
	SessionKeyReturnTo   = "return_to"
)

func init() {
	gob.Register(time.Time{})
}

// SessionManager wraps scs.SessionManager with application-specific methods.
//
// Only the user id is kept in the session; the user record is looked up
// again on every request.
type SessionManager struct {
	*scs.SessionManager
}

// NewSessionManager creates a configured session manager backed by the
// sessions table (created by database.Open).
// The sqlDB parameter should be the underlying *sql.DB from GORM.
func NewSessionManager(sqlDB *sql.DB, cfg config.Auth) *SessionManager {
	sm := scs.New()
	sm.Store = sqlite3store.New(sqlDB)

	sm.Lifetime = cfg.SessionLifetime
	sm.IdleTimeout = cfg.SessionLifetime / 2

	sm.Cookie.Name = "session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	// Lax: the OAuth callback is a cross-site top-level navigation and
	// must carry the cookie holding the state.
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm}
}

// CreateSession binds the session to userID after a successful sign-in.
func (sm *SessionManager) CreateSession(ctx context.Context, userID string) error {
	// Renew token to prevent session fixation
	if err := sm.RenewToken(ctx); err != nil {
		return err
	}
	sm.Put(ctx, SessionKeyUserID, userID)
	sm.Put(ctx, SessionKeyLoginAt, time.Now())
	return nil
}

// DestroySession removes all session data and invalidates the session.
func (sm *SessionManager) DestroySession(ctx context.Context) error {
	return sm.Destroy(ctx)
}

// GetUserID returns the user id stored in the session, or "" when the
// session is anonymous.
func (sm *SessionManager) GetUserID(ctx context.Context) string {
	return sm.GetString(ctx, SessionKeyUserID)
}

// LoginAt returns when the session was bound to its user.
func (sm *SessionManager) LoginAt(ctx context.Context) time.Time {
	t, _ := sm.Get(ctx, SessionKeyLoginAt).(time.Time)
	return t
}

// PutOAuthState remembers the state sent to the provider.
func (sm *SessionManager) PutOAuthState(ctx context.Context, state string) {
	sm.Put(ctx, SessionKeyOAuthState, state)
}

// PopOAuthState returns and clears the remembered state so a callback can
// be consumed once.
func (sm *SessionManager) PopOAuthState(ctx context.Context) string {
	return sm.PopString(ctx, SessionKeyOAuthState)
}
