package game

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/LeonanFr/FindTheBug/internal/models"
)

// Store is the persistence collaborator the engine depends on. A nil value
// with a nil error means not found; a non-nil error is a storage failure and
// is surfaced as critical, distinct from game-rule rejections.
type Store interface {
	GetCase(caseID string) (*models.Case, error)
	GetGameState(sessionID string) (*models.GameState, error)
	CreateGameState(state *models.GameState) error
	SaveGameState(state *models.GameState) error
	DeleteSession(sessionID string) error
}

// ProcessResult is the outcome of one orchestrated action. Err is set only
// for persistence failures, wrapping ErrStorage, so callers can tell them
// apart from game-rule rejections without parsing Message.
type ProcessResult struct {
	Success      bool              `json:"success"`
	State        *models.GameState `json:"state,omitempty"`
	RevealedClue *models.Clue      `json:"revealed_clue,omitempty"`
	Message      string            `json:"message"`
	Err          error             `json:"-"`
}

// ErrStorage marks persistence failures. Game-rule mutation may already have
// happened in memory when it is returned, so callers must not treat it as a
// plain rejection.
var ErrStorage = errors.New("storage failure")

type Engine struct {
	storage    Store
	actions    *ActionSystem
	validation *ValidationSystem

	// Per-session locks serialize load-mutate-save cycles so two workers
	// picking up actions for the same session cannot lose an update.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewEngine(storage Store) *Engine {
	return &Engine{
		storage:    storage,
		actions:    NewActionSystem(),
		validation: NewValidationSystem(),
		locks:      make(map[string]*sync.Mutex),
	}
}

func (e *Engine) sessionLock(sessionID string) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()

	mu, ok := e.locks[sessionID]
	if !ok {
		mu = &sync.Mutex{}
		e.locks[sessionID] = mu
	}
	return mu
}

func (e *Engine) forgetSessionLock(sessionID string) {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	delete(e.locks, sessionID)
}

// InitializeGameFromLobby converts a lobby into a fresh game state. The
// master is excluded from the turn order; investigators keep the order they
// joined in.
func (e *Engine) InitializeGameFromLobby(sessionID, caseID string, lobby *models.Lobby) error {
	bugCase, err := e.storage.GetCase(caseID)
	if err != nil {
		return fmt.Errorf("%w: loading case: %v", ErrStorage, err)
	}
	if bugCase == nil {
		return errors.New("case not found")
	}

	if !lobby.CanStart() {
		return errors.New("cannot start: need at least 2 investigators and exactly one master")
	}

	now := time.Now()
	state := &models.GameState{
		SessionID:       sessionID,
		CurrentCaseID:   caseID,
		CurrentDay:      1,
		RemainingPoints: models.StartingPoints,
		TurnStartedAt:   now,
		LastActivity:    now,
	}

	for _, p := range lobby.Players {
		state.PlayerIDs = append(state.PlayerIDs, p.ID)
		switch p.Role {
		case models.RoleHost:
			state.HostPlayerID = p.ID
			state.TurnOrder = append(state.TurnOrder, p.ID)
		case models.RolePlayer:
			state.TurnOrder = append(state.TurnOrder, p.ID)
		case models.RoleMaster:
			state.MasterPlayerID = p.ID
		}
	}

	if err := e.storage.CreateGameState(state); err != nil {
		return fmt.Errorf("%w: creating game state: %v", ErrStorage, err)
	}
	return nil
}

// ProcessAction runs the full rule pipeline for one investigative action:
// authorization, sudden-death and turn checks, cost/clue resolution, state
// mutation, turn advance, day rollover, persistence.
func (e *Engine) ProcessAction(playerID string, actionType models.ActionType, targetID, sessionID string) ProcessResult {
	mu := e.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	state, err := e.storage.GetGameState(sessionID)
	if err != nil {
		return ProcessResult{
			Message: fmt.Sprintf("failed to load session: %v", err),
			Err:     fmt.Errorf("%w: loading session: %v", ErrStorage, err),
		}
	}
	if state == nil {
		return ProcessResult{Message: "session not found"}
	}

	if !state.HasPlayer(playerID) && playerID != state.HostPlayerID {
		return ProcessResult{State: state, Message: "player is not part of this session"}
	}
	if playerID == state.MasterPlayerID {
		return ProcessResult{State: state, Message: "the game master cannot take investigative actions"}
	}

	bugCase, err := e.storage.GetCase(state.CurrentCaseID)
	if err != nil {
		return ProcessResult{
			State:   state,
			Message: fmt.Sprintf("failed to load case: %v", err),
			Err:     fmt.Errorf("%w: loading case: %v", ErrStorage, err),
		}
	}
	if bugCase == nil {
		return ProcessResult{State: state, Message: "case not found"}
	}

	if state.IsSuddenDeath && actionType != models.ActionSubmitSolution {
		return ProcessResult{State: state, Message: "sudden death: only solution submission is allowed"}
	}

	if len(state.TurnOrder) > 0 && actionType != models.ActionSubmitSolution {
		if expected := state.CurrentTurnPlayer(); playerID != expected {
			return ProcessResult{State: state, Message: fmt.Sprintf("not your turn: waiting for %s", expected)}
		}
	}

	actionResult := e.actions.Execute(actionType, targetID, bugCase, state)
	if !actionResult.Success {
		return ProcessResult{State: state, Message: actionResult.Message}
	}

	state.RemainingPoints -= actionResult.PointsSpent

	var revealed *models.Clue
	if actionResult.UnlockedClue != nil && !state.HasDiscoveredClue(actionResult.UnlockedClue.ID) {
		state.DiscoveredClues = append(state.DiscoveredClues, models.DiscoveredClue{
			Clue:         *actionResult.UnlockedClue,
			DiscoveredBy: playerID,
			PlayerNotes:  map[string]string{},
		})
		revealed = actionResult.UnlockedClue
	}

	switch actionType {
	case models.ActionInvestigateFunction:
		if !state.HasInvestigated(targetID) {
			state.InvestigatedTargets = append(state.InvestigatedTargets, targetID)
		}
	case models.ActionSetBreakpoint:
		if !state.HasBreakpointed(targetID) {
			state.BreakpointedTargets = append(state.BreakpointedTargets, targetID)
		}
	}

	now := time.Now()
	state.ActionHistory = append(state.ActionHistory, models.PlayerAction{
		PlayerID:   playerID,
		ActionType: actionType,
		TargetID:   targetID,
		Timestamp:  now,
	})
	state.LastActivity = now

	if actionResult.PointsSpent > 0 && len(state.TurnOrder) > 0 {
		state.CurrentTurnIndex = (state.CurrentTurnIndex + 1) % len(state.TurnOrder)
		state.TurnStartedAt = now
		if revealed != nil {
			state.TurnStartedAt = now.Add(models.ClueRevealGraceSeconds * time.Second)
		}
	}

	if state.RemainingPoints <= 0 {
		if state.CurrentDay >= models.FinalDay {
			state.IsSuddenDeath = true
			state.RemainingPoints = 0
		} else {
			state.CurrentDay++
			state.RemainingPoints = models.StartingPoints
		}
	}

	if err := e.storage.SaveGameState(state); err != nil {
		return ProcessResult{
			State:   state,
			Message: fmt.Sprintf("critical: failed to persist session: %v", err),
			Err:     fmt.Errorf("%w: persisting session: %v", ErrStorage, err),
		}
	}

	return ProcessResult{
		Success:      true,
		State:        state,
		RevealedClue: revealed,
		Message:      actionResult.Message,
	}
}

// SubmitToMaster prepares the comparison feedback the master reviews. It
// never touches day, points or completion.
func (e *Engine) SubmitToMaster(sessionID string, answers []string) (*ValidationResult, error) {
	mu := e.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	state, err := e.storage.GetGameState(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: loading session: %v", ErrStorage, err)
	}
	if state == nil {
		return nil, errors.New("session not found")
	}

	bugCase, err := e.storage.GetCase(state.CurrentCaseID)
	if err != nil {
		return nil, fmt.Errorf("%w: loading case: %v", ErrStorage, err)
	}
	if bugCase == nil {
		return nil, errors.New("case not found")
	}

	state.LastActivity = time.Now()
	if err := e.storage.SaveGameState(state); err != nil {
		return nil, fmt.Errorf("%w: persisting session: %v", ErrStorage, err)
	}

	result := e.validation.PrepareForMaster(answers, bugCase)
	return &result, nil
}

// FinalizeSession applies the master's binary verdict. A rejection outside
// sudden death costs the team two days; at the day cap it forces sudden
// death instead.
func (e *Engine) FinalizeSession(sessionID string, approved bool) (string, error) {
	mu := e.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	state, err := e.storage.GetGameState(sessionID)
	if err != nil {
		return "", fmt.Errorf("%w: loading session: %v", ErrStorage, err)
	}
	if state == nil {
		return "", errors.New("session not found")
	}

	outcome := classifyVerdict(state, approved)
	switch outcome {
	case models.ResultVictory, models.ResultDefeat:
		state.IsCompleted = true
	default:
		day := state.CurrentDay + 2
		if day > models.FinalDay {
			state.CurrentDay = models.FinalDay
			state.IsSuddenDeath = true
			state.RemainingPoints = 0
		} else {
			state.CurrentDay = day
			state.RemainingPoints = models.StartingPoints
		}
	}
	state.LastActivity = time.Now()

	if err := e.storage.SaveGameState(state); err != nil {
		return "", fmt.Errorf("%w: persisting session: %v", ErrStorage, err)
	}

	if state.IsCompleted {
		e.forgetSessionLock(sessionID)
	}
	return outcome, nil
}

// classifyVerdict maps the master's verdict to an outcome: approval is
// victory, rejection during sudden death is defeat, any other rejection keeps
// the investigation running.
func classifyVerdict(state *models.GameState, approved bool) string {
	if approved {
		return models.ResultVictory
	}
	if state.IsSuddenDeath {
		return models.ResultDefeat
	}
	return models.ResultRunning
}

// RemovePlayer drops a player from the session, keeping the turn pointer on
// the same player where possible. Fewer than two remaining investigators
// forces defeat.
func (e *Engine) RemovePlayer(sessionID, playerID string) (*models.GameState, string, error) {
	mu := e.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	state, err := e.storage.GetGameState(sessionID)
	if err != nil {
		return nil, "", fmt.Errorf("%w: loading session: %v", ErrStorage, err)
	}
	if state == nil {
		return nil, "", errors.New("session not found")
	}

	for i, id := range state.PlayerIDs {
		if id == playerID {
			state.PlayerIDs = append(state.PlayerIDs[:i], state.PlayerIDs[i+1:]...)
			break
		}
	}

	removedIdx := -1
	for i, id := range state.TurnOrder {
		if id == playerID {
			removedIdx = i
			break
		}
	}
	if removedIdx >= 0 {
		wasCurrent := removedIdx == state.CurrentTurnIndex
		state.TurnOrder = append(state.TurnOrder[:removedIdx], state.TurnOrder[removedIdx+1:]...)
		if removedIdx < state.CurrentTurnIndex {
			state.CurrentTurnIndex--
		}
		if state.CurrentTurnIndex >= len(state.TurnOrder) {
			state.CurrentTurnIndex = 0
		}
		if wasCurrent {
			state.TurnStartedAt = time.Now()
		}
	}

	outcome := models.ResultRunning
	if len(state.TurnOrder) < 2 {
		state.IsCompleted = true
		outcome = models.ResultDefeat
	}
	state.LastActivity = time.Now()

	if err := e.storage.SaveGameState(state); err != nil {
		return state, outcome, fmt.Errorf("%w: persisting session: %v", ErrStorage, err)
	}

	if state.IsCompleted {
		e.forgetSessionLock(sessionID)
	}
	return state, outcome, nil
}

// SavePlayerNote upserts a player's note on a discovered clue. Empty content
// erases the note, except that a discoverer cannot clear their own
// attribution note this way.
func (e *Engine) SavePlayerNote(sessionID, playerID, clueID, content string) error {
	mu := e.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	state, err := e.storage.GetGameState(sessionID)
	if err != nil {
		return fmt.Errorf("%w: loading session: %v", ErrStorage, err)
	}
	if state == nil {
		return errors.New("session not found")
	}

	var clue *models.DiscoveredClue
	for i := range state.DiscoveredClues {
		if state.DiscoveredClues[i].ID == clueID {
			clue = &state.DiscoveredClues[i]
			break
		}
	}
	if clue == nil {
		return errors.New("clue not found")
	}

	if content == "" {
		if clue.DiscoveredBy == playerID {
			return errors.New("the discoverer's note cannot be cleared")
		}
		delete(clue.PlayerNotes, playerID)
	} else {
		if clue.PlayerNotes == nil {
			clue.PlayerNotes = map[string]string{}
		}
		clue.PlayerNotes[playerID] = content
	}
	state.LastActivity = time.Now()

	if err := e.storage.SaveGameState(state); err != nil {
		return fmt.Errorf("%w: persisting session: %v", ErrStorage, err)
	}
	return nil
}

// DeleteSession removes the persisted state of a finished session.
func (e *Engine) DeleteSession(sessionID string) error {
	if err := e.storage.DeleteSession(sessionID); err != nil {
		return fmt.Errorf("%w: deleting session: %v", ErrStorage, err)
	}
	e.forgetSessionLock(sessionID)
	return nil
}
