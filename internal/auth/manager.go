package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/clinicdesk/dashboard/pkg/logging"
)

// Manager holds the signed-in session and notifies subscribers whenever it
// changes, mirroring an auth-state stream. All mutation goes through the
// manager so observers never miss a transition.
type Manager struct {
	client *Client
	logger *logging.Logger

	mu      sync.RWMutex
	session *Session
	subs    map[int]chan *Session
	nextSub int
}

// NewManager creates a session manager backed by the provider client.
func NewManager(client *Client, logger *logging.Logger) *Manager {
	if client == nil {
		panic("auth: client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{
		client: client,
		logger: logger,
		subs:   make(map[int]chan *Session),
	}
}

// Current returns the active session, or nil when signed out.
func (m *Manager) Current() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// Subscribe returns a channel receiving every session change (nil on
// sign-out) and a cancel function releasing the subscription. The channel is
// buffered; a slow subscriber drops intermediate states, keeping only the
// most recent pending one.
func (m *Manager) Subscribe() (<-chan *Session, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	ch := make(chan *Session, 1)
	m.subs[id] = ch

	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// SignIn authenticates with the provider and publishes the new session.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*Session, error) {
	session, err := m.client.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	m.publish(session)
	m.logger.Info("user signed in", "user_id", session.UserID)
	return session, nil
}

// SignOut clears the session and notifies subscribers with nil.
func (m *Manager) SignOut() {
	m.publish(nil)
	m.logger.Info("user signed out")
}

// UpdateProfile changes the display name and/or photo URL on the provider
// and on the local session.
func (m *Manager) UpdateProfile(ctx context.Context, displayName, photoURL string) error {
	session := m.Current()
	if session == nil {
		return fmt.Errorf("auth: no active session")
	}
	if err := m.client.UpdateProfile(ctx, session.IDToken, displayName, photoURL); err != nil {
		return err
	}

	updated := *session
	if displayName != "" {
		updated.DisplayName = displayName
	}
	if photoURL != "" {
		updated.PhotoURL = photoURL
	}
	m.publish(&updated)
	return nil
}

// ChangePassword reauthenticates with the current password, then sets the
// new one. The refreshed session from reauthentication replaces the old one.
func (m *Manager) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	session := m.Current()
	if session == nil {
		return fmt.Errorf("auth: no active session")
	}

	// Reauthenticate first; a stale token must not be enough to change the
	// password.
	fresh, err := m.client.SignIn(ctx, session.Email, currentPassword)
	if err != nil {
		return fmt.Errorf("auth: reauthentication failed: %w", err)
	}
	if err := m.client.UpdatePassword(ctx, fresh.IDToken, newPassword); err != nil {
		return err
	}

	fresh.DisplayName = session.DisplayName
	fresh.PhotoURL = session.PhotoURL
	m.publish(fresh)
	m.logger.Info("password changed", "user_id", fresh.UserID)
	return nil
}

func (m *Manager) publish(session *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = session
	for _, ch := range m.subs {
		select {
		case ch <- session:
		default:
			// Drop the stale pending state in favour of the newest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- session:
			default:
			}
		}
	}
}
