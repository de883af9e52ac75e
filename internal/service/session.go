package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"couponagent/internal/agent"
	"couponagent/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSessionNotFound is returned for unknown or expired session IDs
var ErrSessionNotFound = errors.New("session not found")

const logTurnTimeout = 5 * time.Second

// ControllerFactory creates the controller for a new conversation
type ControllerFactory func() *agent.Controller

// ConversationLog records turns and feedback
type ConversationLog interface {
	LogTurn(ctx context.Context, rec *model.TurnRecord) error
	LogFeedback(ctx context.Context, sessionID, bundleID, action string) error
}

// session is one conversation. mu serialises its turns.
type session struct {
	mu       sync.Mutex
	ctrl     *agent.Controller
	lastSeen atomic.Int64 // unix nanos
}

// SessionManager holds independent conversations keyed by session ID
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*session

	newController ControllerFactory
	convLog       ConversationLog
	idleTTL       time.Duration
	logger        *zap.Logger
	now           func() time.Time

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewSessionManager creates a session manager. When sweepEvery is positive a
// janitor goroutine expires sessions idle for longer than idleTTL; call Close
// to stop it. convLog may be nil.
func NewSessionManager(factory ControllerFactory, idleTTL, sweepEvery time.Duration, convLog ConversationLog, logger *zap.Logger) *SessionManager {
	m := &SessionManager{
		sessions:      make(map[string]*session),
		newController: factory,
		convLog:       convLog,
		idleTTL:       idleTTL,
		logger:        logger,
		now:           time.Now,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}

	if sweepEvery > 0 && idleTTL > 0 {
		go m.janitor(sweepEvery)
	} else {
		close(m.done)
	}
	return m
}

// Create starts a new conversation and returns its welcome turn
func (m *SessionManager) Create(ctx context.Context) *model.TurnResponse {
	id := uuid.NewString()
	s := &session{ctrl: m.newController()}
	s.lastSeen.Store(m.now().UnixNano())

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.logger.Debug("Session created", zap.String("session_id", id))

	return m.run(ctx, id, s, "", nil)
}

// Turn processes one user message in a conversation
func (m *SessionManager) Turn(ctx context.Context, id, message string) (*model.TurnResponse, error) {
	s, err := m.get(id)
	if err != nil {
		return nil, err
	}
	return m.run(ctx, id, s, message, nil), nil
}

// Reset clears a conversation and returns its fresh welcome turn
func (m *SessionManager) Reset(ctx context.Context, id string) (*model.TurnResponse, error) {
	s, err := m.get(id)
	if err != nil {
		return nil, err
	}
	return m.run(ctx, id, s, "", func(c *agent.Controller) { c.Reset() }), nil
}

// Snapshot returns the current state and context of a conversation
func (m *SessionManager) Snapshot(id string) (*model.SessionSnapshot, error) {
	s, err := m.get(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.ctrl.Conversation().Clone()
	return &model.SessionSnapshot{
		SessionID:       id,
		State:           s.ctrl.State().String(),
		PartySize:       conv.PartySize,
		Preferences:     conv.Preferences,
		FilteredResults: conv.FilteredResults,
	}, nil
}

// Delete ends a conversation
func (m *SessionManager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

// Len returns the number of live conversations
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// LogFeedback records feedback on a recommended bundle
func (m *SessionManager) LogFeedback(ctx context.Context, req *model.FeedbackRequest) error {
	if m.convLog == nil {
		m.logger.Info("Feedback received",
			zap.String("session_id", req.SessionID),
			zap.String("bundle_id", req.BundleID),
			zap.String("action", req.Action))
		return nil
	}
	return m.convLog.LogFeedback(ctx, req.SessionID, req.BundleID, req.Action)
}

// Close stops the janitor
func (m *SessionManager) Close() {
	m.closeOnce.Do(func() {
		close(m.stop)
	})
	<-m.done
}

func (m *SessionManager) get(id string) (*session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// run executes one turn under the session lock
func (m *SessionManager) run(ctx context.Context, id string, s *session, message string, before func(*agent.Controller)) *model.TurnResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeen.Store(m.now().UnixNano())
	startTime := time.Now()

	if before != nil {
		before(s.ctrl)
	}
	resp := s.ctrl.Process(ctx, message)

	took := time.Since(startTime).Milliseconds()
	s.lastSeen.Store(m.now().UnixNano())

	m.logTurn(id, message, resp, s.ctrl.Conversation().Clone(), took)

	return &model.TurnResponse{
		SessionID: id,
		State:     resp.State.String(),
		Text:      resp.Text,
		Matches:   resp.Matches,
		Took:      took,
	}
}

// logTurn writes the turn record. It runs under the session lock so a
// conversation's turns are stored in the order they happened.
func (m *SessionManager) logTurn(id, message string, resp *agent.Response, conv agent.Conversation, took int64) {
	if m.convLog == nil {
		return
	}

	bundleIDs := make(model.JSONArray, len(resp.Matches))
	for i, match := range resp.Matches {
		bundleIDs[i] = match.ID
	}
	rec := &model.TurnRecord{
		SessionID:      id,
		Input:          message,
		Reply:          resp.Text,
		State:          resp.State.String(),
		PartySize:      conv.PartySize,
		Preferences:    model.JSONArray(conv.Preferences),
		MatchedBundles: bundleIDs,
		ResponseTimeMs: int(took),
	}

	// detached from the request so a cancelled client still gets its turn logged
	ctx, cancel := context.WithTimeout(context.Background(), logTurnTimeout)
	defer cancel()
	if err := m.convLog.LogTurn(ctx, rec); err != nil {
		m.logger.Warn("Failed to log turn", zap.String("session_id", id), zap.Error(err))
	}
}

func (m *SessionManager) janitor(every time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			if n := m.sweep(); n > 0 {
				m.logger.Info("Expired idle sessions", zap.Int("count", n), zap.Int("remaining", m.Len()))
			}
		}
	}
}

// sweep removes sessions idle for longer than idleTTL and returns how many
func (m *SessionManager) sweep() int {
	cutoff := m.now().Add(-m.idleTTL).UnixNano()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if s.lastSeen.Load() < cutoff {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
