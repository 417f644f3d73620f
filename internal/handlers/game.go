package handlers

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/LeonanFr/FindTheBug/internal/game"
	"github.com/LeonanFr/FindTheBug/internal/models"
	"github.com/LeonanFr/FindTheBug/internal/services"
	"github.com/LeonanFr/FindTheBug/internal/taskqueue"
	"github.com/LeonanFr/FindTheBug/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// SessionStore is the slice of persistence the realtime handler reads
// directly: review payload assembly and lobby phase transitions.
type SessionStore interface {
	GetGameState(sessionID string) (*models.GameState, error)
	GetCase(caseID string) (*models.Case, error)
	UpdatePhase(sessionID, phase string) error
}

// GameHandler owns the real-time surface: it upgrades connections, parses
// inbound messages and enqueues every unit of game work on the task queue so
// reads never block on storage.
type GameHandler struct {
	engine        *game.Engine
	store         SessionStore
	lobbies       *services.LobbyService
	hub           *ws.Hub
	queue         *taskqueue.Queue
	defaultCaseID string

	mu         sync.Mutex
	identities map[ws.Conn]clientIdentity
}

type clientIdentity struct {
	sessionID string
	playerID  string
}

func NewGameHandler(engine *game.Engine, store SessionStore, lobbies *services.LobbyService, hub *ws.Hub, queue *taskqueue.Queue, defaultCaseID string) *GameHandler {
	return &GameHandler{
		engine:        engine,
		store:         store,
		lobbies:       lobbies,
		hub:           hub,
		queue:         queue,
		defaultCaseID: defaultCaseID,
		identities:    make(map[ws.Conn]clientIdentity),
	}
}

type inboundMessage struct {
	Type       string   `json:"type"`
	SessionID  string   `json:"sessionId"`
	PlayerName string   `json:"playerName"`
	MasterName string   `json:"masterName"`
	PlayerID   string   `json:"playerId"`
	CaseID     string   `json:"caseId"`
	ActionType *int     `json:"actionType"`
	TargetID   string   `json:"targetId"`
	ClueID     string   `json:"clueId"`
	Content    string   `json:"content"`
	Answers    []string `json:"answers"`
	Approved   *bool    `json:"approved"`
}

// HandleWebSocket upgrades the connection and serves the session protocol
// until the client disconnects.
func (h *GameHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		h.dispatch(conn, data)
	}

	h.handleDisconnect(conn)
}

func (h *GameHandler) dispatch(conn ws.Conn, data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.hub.SendTo(conn, errorMessage("invalid JSON"))
		return
	}

	var task taskqueue.Task
	switch msg.Type {
	case "CREATE_LOBBY":
		if msg.PlayerName == "" {
			h.hub.SendTo(conn, errorMessage("CREATE_LOBBY requires playerName"))
			return
		}
		task = func() error { return h.createLobby(conn, msg.PlayerName) }

	case "JOIN_AS_PLAYER":
		if msg.SessionID == "" || msg.PlayerName == "" {
			h.hub.SendTo(conn, errorMessage("JOIN_AS_PLAYER requires sessionId and playerName"))
			return
		}
		task = func() error { return h.joinAsPlayer(conn, msg.SessionID, msg.PlayerName) }

	case "JOIN_AS_MASTER":
		if msg.SessionID == "" || msg.MasterName == "" {
			h.hub.SendTo(conn, errorMessage("JOIN_AS_MASTER requires sessionId and masterName"))
			return
		}
		task = func() error { return h.joinAsMaster(conn, msg.SessionID, msg.MasterName) }

	case "GET_LOBBY_INFO":
		if msg.SessionID == "" {
			h.hub.SendTo(conn, errorMessage("GET_LOBBY_INFO requires sessionId"))
			return
		}
		task = func() error { return h.sendLobbyInfo(conn, msg.SessionID) }

	case "START_GAME":
		if msg.SessionID == "" || msg.PlayerName == "" {
			h.hub.SendTo(conn, errorMessage("START_GAME requires sessionId and playerName"))
			return
		}
		caseID := msg.CaseID
		if caseID == "" {
			caseID = h.defaultCaseID
		}
		task = func() error { return h.startGame(conn, msg.SessionID, msg.PlayerName, caseID) }

	case "GAME_ACTION":
		if msg.SessionID == "" || msg.PlayerID == "" || msg.ActionType == nil {
			h.hub.SendTo(conn, errorMessage("GAME_ACTION requires sessionId, playerId, actionType and targetId"))
			return
		}
		actionType := models.ActionType(*msg.ActionType)
		task = func() error { return h.gameAction(conn, msg.SessionID, msg.PlayerID, actionType, msg.TargetID) }

	case "SUBMIT_SOLUTION":
		if msg.SessionID == "" {
			h.hub.SendTo(conn, errorMessage("SUBMIT_SOLUTION requires sessionId and answers"))
			return
		}
		task = func() error { return h.submitSolution(conn, msg.SessionID, msg.Answers) }

	case "VALIDATE_SOLUTION":
		if msg.SessionID == "" || msg.Approved == nil {
			h.hub.SendTo(conn, errorMessage("VALIDATE_SOLUTION requires sessionId and approved"))
			return
		}
		task = func() error { return h.validateSolution(conn, msg.SessionID, *msg.Approved) }

	case "SAVE_NOTE":
		if msg.SessionID == "" || msg.PlayerID == "" || msg.ClueID == "" {
			h.hub.SendTo(conn, errorMessage("SAVE_NOTE requires sessionId, playerId, clueId and content"))
			return
		}
		task = func() error { return h.saveNote(conn, msg.SessionID, msg.PlayerID, msg.ClueID, msg.Content) }

	case "LEAVE_LOBBY":
		task = func() error { h.handleDisconnect(conn); return nil }

	default:
		h.hub.SendTo(conn, errorMessage("unknown message type"))
		return
	}

	if err := h.queue.Enqueue(task); err != nil {
		h.hub.SendTo(conn, errorMessage("server shutting down"))
	}
}

func (h *GameHandler) createLobby(conn ws.Conn, playerName string) error {
	lobby, host, err := h.lobbies.CreateLobby(playerName)
	if err != nil {
		h.hub.SendTo(conn, errorMessage("failed to create lobby"))
		return err
	}

	h.hub.Register(lobby.SessionID, conn)
	h.setIdentity(conn, lobby.SessionID, host.ID)

	h.hub.SendTo(conn, gin.H{
		"type":       "LOBBY_CREATED",
		"sessionId":  lobby.SessionID,
		"playerId":   host.ID,
		"playerName": host.Name,
		"role":       host.Role,
	})
	log.Printf("lobby: created %s by %s", lobby.SessionID, playerName)
	return nil
}

func (h *GameHandler) joinAsPlayer(conn ws.Conn, sessionID, playerName string) error {
	lobby, player, err := h.lobbies.JoinAsPlayer(sessionID, playerName)
	if err != nil {
		h.hub.SendTo(conn, errorMessage(err.Error()))
		return nil
	}

	h.hub.Register(sessionID, conn)
	h.setIdentity(conn, sessionID, player.ID)

	h.hub.SendTo(conn, gin.H{
		"type":       "JOINED_LOBBY",
		"sessionId":  sessionID,
		"playerId":   player.ID,
		"playerName": player.Name,
		"role":       player.Role,
	})
	h.broadcastLobbyUpdate(lobby)
	return nil
}

func (h *GameHandler) joinAsMaster(conn ws.Conn, sessionID, masterName string) error {
	lobby, master, err := h.lobbies.JoinAsMaster(sessionID, masterName)
	if err != nil {
		h.hub.SendTo(conn, errorMessage(err.Error()))
		return nil
	}

	h.hub.Register(sessionID, conn)
	h.setIdentity(conn, sessionID, master.ID)

	h.hub.SendTo(conn, gin.H{
		"type":       "JOINED_LOBBY",
		"sessionId":  sessionID,
		"playerId":   master.ID,
		"playerName": master.Name,
		"role":       master.Role,
	})
	h.broadcastLobbyUpdate(lobby)
	return nil
}

func (h *GameHandler) sendLobbyInfo(conn ws.Conn, sessionID string) error {
	lobby, err := h.lobbies.GetLobby(sessionID)
	if err != nil {
		h.hub.SendTo(conn, errorMessage("failed to load lobby"))
		return err
	}
	if lobby == nil {
		h.hub.SendTo(conn, gin.H{"type": "LOBBY_INFO", "exists": false})
		return nil
	}

	players := make([]gin.H, 0, len(lobby.Players))
	for _, p := range lobby.Players {
		players = append(players, gin.H{"id": p.ID, "name": p.Name, "role": p.Role})
	}
	h.hub.SendTo(conn, gin.H{
		"type":      "LOBBY_INFO",
		"exists":    true,
		"sessionId": lobby.SessionID,
		"phase":     lobby.Phase,
		"players":   players,
	})
	return nil
}

func (h *GameHandler) startGame(conn ws.Conn, sessionID, playerName, caseID string) error {
	lobby, err := h.lobbies.GetLobby(sessionID)
	if err != nil {
		h.hub.SendTo(conn, errorMessage("failed to load lobby"))
		return err
	}
	if lobby == nil {
		h.hub.SendTo(conn, errorMessage("lobby not found"))
		return nil
	}

	isHost := false
	for _, p := range lobby.Players {
		if p.Name == playerName && p.Role == models.RoleHost {
			isHost = true
			break
		}
	}
	if !isHost {
		log.Printf("game: start attempt by non-host %s in %s", playerName, sessionID)
		h.hub.SendTo(conn, errorMessage("permission denied: only the host can start the game"))
		return nil
	}

	if err := h.engine.InitializeGameFromLobby(sessionID, caseID, lobby); err != nil {
		h.hub.SendTo(conn, errorMessage(err.Error()))
		return nil
	}

	if err := h.store.UpdatePhase(sessionID, models.PhaseInvestigation); err != nil {
		h.hub.SendTo(conn, errorMessage("failed to update lobby phase"))
		return err
	}

	h.hub.Broadcast(sessionID, gin.H{
		"type":      "GAME_STARTED",
		"sessionId": sessionID,
		"caseId":    caseID,
	})
	log.Printf("game: started by host %s in session %s", playerName, sessionID)
	return nil
}

func (h *GameHandler) gameAction(conn ws.Conn, sessionID, playerID string, actionType models.ActionType, targetID string) error {
	result := h.engine.ProcessAction(playerID, actionType, targetID, sessionID)
	if !result.Success {
		h.hub.SendTo(conn, errorMessage(result.Message))
		return nil
	}

	h.broadcastGameState(result.State)

	if result.RevealedClue != nil {
		h.hub.Broadcast(sessionID, gin.H{
			"type":         "CLUE_REVEALED",
			"clueId":       result.RevealedClue.ID,
			"content":      result.RevealedClue.Content,
			"duration":     models.ClueRevealGraceSeconds,
			"investigator": playerID,
		})
	}
	return nil
}

func (h *GameHandler) submitSolution(conn ws.Conn, sessionID string, answers []string) error {
	feedback, err := h.engine.SubmitToMaster(sessionID, answers)
	if err != nil {
		h.hub.SendTo(conn, errorMessage(err.Error()))
		return nil
	}

	state, err := h.store.GetGameState(sessionID)
	if err != nil || state == nil {
		h.hub.SendTo(conn, errorMessage("game session not found"))
		return err
	}
	bugCase, err := h.store.GetCase(state.CurrentCaseID)
	if err != nil || bugCase == nil {
		h.hub.SendTo(conn, errorMessage("case not found"))
		return err
	}

	if err := h.store.UpdatePhase(sessionID, models.PhaseReview); err != nil {
		h.hub.SendTo(conn, errorMessage("failed to update lobby phase"))
		return err
	}

	review := gin.H{
		"type":           "SOLUTION_FOR_REVIEW",
		"sessionId":      sessionID,
		"teamAnswers":    answers,
		"questions":      bugCase.SolutionQuestions,
		"correctAnswers": bugCase.CorrectAnswers,
		"feedback":       feedback.FeedbackPerQuestion,
	}

	// The answer key goes to the master only.
	if master := h.connFor(sessionID, state.MasterPlayerID); master != nil {
		h.hub.SendTo(master, review)
	} else {
		log.Printf("game: no master connection in session %s for review", sessionID)
	}

	log.Printf("game: solution submitted for review in session %s", sessionID)
	return nil
}

func (h *GameHandler) validateSolution(conn ws.Conn, sessionID string, approved bool) error {
	outcome, err := h.engine.FinalizeSession(sessionID, approved)
	if err != nil {
		h.hub.SendTo(conn, errorMessage(err.Error()))
		return nil
	}

	switch outcome {
	case models.ResultVictory:
		h.hub.Broadcast(sessionID, gin.H{"type": "GAME_VICTORY"})
		h.endSession(sessionID)
	case models.ResultDefeat:
		h.hub.Broadcast(sessionID, gin.H{"type": "GAME_OVER"})
		h.endSession(sessionID)
	default:
		if err := h.store.UpdatePhase(sessionID, models.PhaseInvestigation); err != nil {
			h.hub.SendTo(conn, errorMessage("failed to update lobby phase"))
			return err
		}
		h.hub.Broadcast(sessionID, gin.H{
			"type":    "SOLUTION_REJECTED",
			"message": "solution rejected, penalty applied",
		})
		if state, err := h.store.GetGameState(sessionID); err == nil && state != nil {
			h.broadcastGameState(state)
		}
	}
	return nil
}

func (h *GameHandler) saveNote(conn ws.Conn, sessionID, playerID, clueID, content string) error {
	if err := h.engine.SavePlayerNote(sessionID, playerID, clueID, content); err != nil {
		h.hub.SendTo(conn, errorMessage(err.Error()))
		return nil
	}

	state, err := h.store.GetGameState(sessionID)
	if err != nil || state == nil {
		return err
	}
	h.broadcastGameState(state)
	return nil
}

// handleDisconnect runs when a connection drops or leaves: lobby-phase
// departures reshape the lobby (with host migration), in-game departures
// remove the player from the running session.
func (h *GameHandler) handleDisconnect(conn ws.Conn) {
	identity, ok := h.takeIdentity(conn)
	h.hub.Unregister(conn)
	if !ok {
		return
	}

	task := func() error {
		lobby, err := h.lobbies.GetLobby(identity.sessionID)
		if err != nil {
			return err
		}

		if lobby != nil && lobby.Phase == models.PhaseLobby {
			result, err := h.lobbies.Leave(identity.sessionID, identity.playerID)
			if err != nil {
				return err
			}
			if result.LobbyGone {
				return nil
			}
			if result.NewHost != nil {
				h.hub.Broadcast(identity.sessionID, gin.H{
					"type":    "HOST_MIGRATED",
					"newHost": result.NewHost.Name,
				})
			}
			h.broadcastLobbyUpdate(result.Lobby)
			return nil
		}

		state, err := h.store.GetGameState(identity.sessionID)
		if err != nil || state == nil {
			return err
		}
		newState, outcome, err := h.engine.RemovePlayer(identity.sessionID, identity.playerID)
		if err != nil {
			return err
		}
		if outcome == models.ResultDefeat {
			h.hub.Broadcast(identity.sessionID, gin.H{"type": "GAME_OVER"})
			h.endSession(identity.sessionID)
			return nil
		}
		h.broadcastGameState(newState)
		return nil
	}

	if err := h.queue.Enqueue(task); err != nil {
		log.Printf("ws: disconnect cleanup dropped for session %s: %v", identity.sessionID, err)
	}
}

// CleanupExpiredLobbies evicts lobbies idle past ttl, notifying their
// connections first. Driven by a ticker in main.
func (h *GameHandler) CleanupExpiredLobbies(ttl time.Duration) {
	expired, err := h.lobbies.CleanupInactive(ttl)
	if err != nil {
		log.Printf("lobby: cleanup failed: %v", err)
		return
	}
	for _, lobby := range expired {
		h.hub.Broadcast(lobby.SessionID, gin.H{
			"type":      "LOBBY_EXPIRED",
			"sessionId": lobby.SessionID,
			"reason":    "lobby inactive for too long",
		})
		h.hub.CloseSession(lobby.SessionID)
		log.Printf("lobby: expired %s", lobby.SessionID)
	}
}

func (h *GameHandler) endSession(sessionID string) {
	if err := h.engine.DeleteSession(sessionID); err != nil {
		log.Printf("game: failed to delete session %s: %v", sessionID, err)
	}
	h.hub.CloseSession(sessionID)

	h.mu.Lock()
	for conn, id := range h.identities {
		if id.sessionID == sessionID {
			delete(h.identities, conn)
		}
	}
	h.mu.Unlock()
}

// broadcastLobbyUpdate sends the lobby roster to everyone attached. The
// master is omitted from the player list itself.
func (h *GameHandler) broadcastLobbyUpdate(lobby *models.Lobby) {
	players := make([]gin.H, 0, len(lobby.Players))
	for _, p := range lobby.Players {
		if p.Role == models.RoleMaster {
			continue
		}
		players = append(players, gin.H{"id": p.ID, "name": p.Name, "role": p.Role})
	}

	h.hub.Broadcast(lobby.SessionID, gin.H{
		"type":      "LOBBY_UPDATE",
		"sessionId": lobby.SessionID,
		"canStart":  lobby.CanStart(),
		"players":   players,
	})
}

func (h *GameHandler) broadcastGameState(state *models.GameState) {
	h.hub.Broadcast(state.SessionID, gin.H{
		"type":              "GAME_STATE_UPDATE",
		"sessionId":         state.SessionID,
		"currentDay":        state.CurrentDay,
		"remainingPoints":   state.RemainingPoints,
		"isSuddenDeath":     state.IsSuddenDeath,
		"currentTurnIndex":  state.CurrentTurnIndex,
		"currentTurnPlayer": state.CurrentTurnPlayer(),
		"discoveredClues":   state.DiscoveredClues,
	})
}

func (h *GameHandler) setIdentity(conn ws.Conn, sessionID, playerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.identities[conn] = clientIdentity{sessionID: sessionID, playerID: playerID}
}

func (h *GameHandler) takeIdentity(conn ws.Conn) (clientIdentity, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	identity, ok := h.identities[conn]
	delete(h.identities, conn)
	return identity, ok
}

func (h *GameHandler) connFor(sessionID, playerID string) ws.Conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, id := range h.identities {
		if id.sessionID == sessionID && id.playerID == playerID {
			return conn
		}
	}
	return nil
}

func errorMessage(message string) gin.H {
	return gin.H{"type": "ERROR", "message": message}
}
