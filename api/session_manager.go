package api

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/lookbusy1344/minilang/diag"
	"github.com/lookbusy1344/minilang/service"
	"github.com/lookbusy1344/minilang/vm"
)

var (
	// ErrSessionNotFound is returned when a session ID has no match.
	ErrSessionNotFound = errors.New("session not found")
)

// Session pairs a running program with the metadata the API exposes
// about it.
type Session struct {
	ID        string
	Runner    *service.Runner
	CreatedAt time.Time
}

// SessionManager owns every in-flight run, keyed by session ID.
type SessionManager struct {
	sessions    map[string]*Session
	broadcaster *Broadcaster
	mu          sync.RWMutex
}

// NewSessionManager creates a session manager that broadcasts every
// session's output and status transitions through broadcaster.
func NewSessionManager(broadcaster *Broadcaster) *SessionManager {
	return &SessionManager{
		sessions:    make(map[string]*Session),
		broadcaster: broadcaster,
	}
}

// CreateSession compiles source, starts it running, and registers the
// resulting session. A compile error is returned as-is and no session
// is created.
func (sm *SessionManager) CreateSession(source string, maxSteps uint64) (*Session, *diag.Error) {
	sessionID, err := generateSessionID()
	if err != nil {
		// crypto/rand failure is not a program fault; surface it the
		// same way a runtime fault would present to a client.
		return nil, diag.NewRuntime("session", err.Error())
	}

	limits := vm.Limits{MaxSteps: maxSteps}
	broadcaster := sm.broadcaster

	runner, compileErr := service.NewRunner(source, "session.mini", limits,
		func(chunk string) {
			if broadcaster != nil {
				broadcaster.BroadcastOutput(sessionID, chunk)
			}
		},
		func(status service.Status, runErr *diag.Error) {
			if broadcaster == nil {
				return
			}
			msg := ""
			if runErr != nil {
				msg = runErr.Error()
			}
			broadcaster.BroadcastStatus(sessionID, string(status), msg)
		},
	)
	if compileErr != nil {
		return nil, compileErr
	}

	session := &Session{
		ID:        sessionID,
		Runner:    runner,
		CreatedAt: time.Now(),
	}

	sm.mu.Lock()
	sm.sessions[sessionID] = session
	sm.mu.Unlock()

	runner.Start()
	return session, nil
}

// GetSession retrieves a session by ID.
func (sm *SessionManager) GetSession(sessionID string) (*Session, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, ok := sm.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// DestroySession removes a session's bookkeeping. The run itself is
// not interrupted; a program already streaming output keeps going
// until it completes, it just stops being addressable afterward.
func (sm *SessionManager) DestroySession(sessionID string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, ok := sm.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}
	delete(sm.sessions, sessionID)
	return nil
}

// ListSessions returns every active session ID.
func (sm *SessionManager) ListSessions() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	ids := make([]string, 0, len(sm.sessions))
	for id := range sm.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of active sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

func generateSessionID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
