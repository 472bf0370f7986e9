package egon

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/jimm98y/EgonAPI/internal/logging"
	"github.com/jimm98y/EgonAPI/internal/webmodule"
)

// Session is a token together with the credentials that produced it
type Session struct {
	Token    string
	User     string
	Password string
}

// SessionManager derives sessions for one module. The module never signals
// token expiry, so every Authorize performs a fresh login and replaces the
// current session as a whole.
type SessionManager struct {
	web      *webmodule.Client
	user     string
	password string

	mu      sync.Mutex
	current *Session
}

// NewSessionManager creates a manager for the module behind web
func NewSessionManager(web *webmodule.Client, user, password string) *SessionManager {
	return &SessionManager{web: web, user: user, password: password}
}

// Authorize logs in and returns the new session. Rejected credentials and
// an unreachable module both report false; the cause is logged.
func (m *SessionManager) Authorize(ctx context.Context) (*Session, bool) {
	token, err := m.web.Login(ctx, m.user, m.password)
	if err != nil {
		logging.Debug("Authorization failed",
			zap.String("user", m.user),
			zap.String("reason", webmodule.GetShortErrorMessage(err)),
			zap.Error(err),
		)
		return nil, false
	}

	session := &Session{Token: token, User: m.user, Password: m.password}

	m.mu.Lock()
	m.current = session
	m.mu.Unlock()

	return session, true
}

// last returns the most recent session, or nil before the first
// successful Authorize
func (m *SessionManager) last() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}
