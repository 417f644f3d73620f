package handlers

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/LeonanFr/FindTheBug/internal/game"
	"github.com/LeonanFr/FindTheBug/internal/models"
	"github.com/LeonanFr/FindTheBug/internal/taskqueue"
	"github.com/LeonanFr/FindTheBug/internal/ws"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubConn struct {
	mu     sync.Mutex
	frames [][]byte
}

func (c *stubConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	c.frames = append(c.frames, buf)
	return nil
}

func (c *stubConn) Close() error { return nil }

func (c *stubConn) received() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.frames))
	copy(out, c.frames)
	return out
}

// stubStore backs both the engine and the handler so these tests run without
// a database.
type stubStore struct {
	states   map[string]*models.GameState
	cases    map[string]*models.Case
	phaseErr error
}

func newStubStore() *stubStore {
	return &stubStore{
		states: make(map[string]*models.GameState),
		cases:  make(map[string]*models.Case),
	}
}

func (s *stubStore) GetGameState(sessionID string) (*models.GameState, error) {
	return s.states[sessionID], nil
}

func (s *stubStore) GetCase(caseID string) (*models.Case, error) {
	return s.cases[caseID], nil
}

func (s *stubStore) CreateGameState(state *models.GameState) error {
	s.states[state.SessionID] = state
	return nil
}

func (s *stubStore) SaveGameState(state *models.GameState) error {
	s.states[state.SessionID] = state
	return nil
}

func (s *stubStore) DeleteSession(sessionID string) error {
	delete(s.states, sessionID)
	return nil
}

func (s *stubStore) UpdatePhase(sessionID, phase string) error {
	return s.phaseErr
}

func newStubHandler(store *stubStore) *GameHandler {
	return NewGameHandler(game.NewEngine(store), store, nil, ws.NewHub(), taskqueue.New(1), "case_default")
}

func frameType(t *testing.T, data []byte) (string, string) {
	t.Helper()
	var frame struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(data, &frame))
	return frame.Type, frame.Message
}

func TestDispatchValidateSolutionErrorReachesSender(t *testing.T) {
	store := newStubStore()
	h := newStubHandler(store)
	conn := &stubConn{}

	h.dispatch(conn, []byte(`{"type":"VALIDATE_SOLUTION","sessionId":"NOPE00","approved":true}`))
	h.queue.Stop()

	frames := conn.received()
	require.Len(t, frames, 1)
	typ, msg := frameType(t, frames[0])
	assert.Equal(t, "ERROR", typ)
	assert.Contains(t, msg, "session not found")
}

func TestValidateSolutionPhaseUpdateFailureReachesSender(t *testing.T) {
	store := newStubStore()
	store.states["ABC123"] = &models.GameState{
		SessionID:       "ABC123",
		CurrentCaseID:   "case_default",
		CurrentDay:      2,
		RemainingPoints: 5,
	}
	store.phaseErr = errors.New("connection reset")
	h := newStubHandler(store)
	conn := &stubConn{}

	err := h.validateSolution(conn, "ABC123", false)

	assert.Error(t, err)
	frames := conn.received()
	require.Len(t, frames, 1)
	typ, msg := frameType(t, frames[0])
	assert.Equal(t, "ERROR", typ)
	assert.Contains(t, msg, "failed to update lobby phase")
}

func TestSubmitSolutionPhaseUpdateFailureReachesSender(t *testing.T) {
	store := newStubStore()
	store.states["ABC123"] = &models.GameState{
		SessionID:       "ABC123",
		CurrentCaseID:   "case_default",
		CurrentDay:      1,
		RemainingPoints: 12,
	}
	store.cases["case_default"] = &models.Case{
		ID:                "case_default",
		SolutionQuestions: []string{"Where is the bug?"},
		CorrectAnswers:    []string{"cache eviction"},
	}
	store.phaseErr = errors.New("connection reset")
	h := newStubHandler(store)
	conn := &stubConn{}

	err := h.submitSolution(conn, "ABC123", []string{"cache eviction"})

	assert.Error(t, err)
	frames := conn.received()
	require.Len(t, frames, 1)
	typ, msg := frameType(t, frames[0])
	assert.Equal(t, "ERROR", typ)
	assert.Contains(t, msg, "failed to update lobby phase")
}
