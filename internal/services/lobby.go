package services

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/LeonanFr/FindTheBug/internal/models"
	"github.com/LeonanFr/FindTheBug/internal/storage"
)

const sessionIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// LobbyService manages the pre-game aggregate: creation, joins, leaves with
// host migration, and expiry of abandoned lobbies.
type LobbyService struct {
	store *storage.Store
}

func NewLobbyService(store *storage.Store) *LobbyService {
	return &LobbyService{store: store}
}

// CreateLobby opens a new lobby with the creator as host and returns it.
func (s *LobbyService) CreateLobby(hostName string) (*models.Lobby, *models.LobbyPlayer, error) {
	sessionID, err := s.generateSessionID()
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	host := models.LobbyPlayer{
		ID:       "host_" + sessionID,
		Name:     hostName,
		Role:     models.RoleHost,
		JoinedAt: now,
	}
	lobby := &models.Lobby{
		SessionID:    sessionID,
		Phase:        models.PhaseLobby,
		Players:      []models.LobbyPlayer{host},
		CreatedAt:    now,
		LastActivity: now,
	}

	if err := s.store.CreateLobby(lobby); err != nil {
		return nil, nil, fmt.Errorf("failed to create lobby: %w", err)
	}
	return lobby, &lobby.Players[0], nil
}

// JoinAsPlayer adds a regular player. Full lobbies and duplicate names are
// rejected.
func (s *LobbyService) JoinAsPlayer(sessionID, playerName string) (*models.Lobby, *models.LobbyPlayer, error) {
	lobby, err := s.store.GetLobby(sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load lobby: %w", err)
	}
	if lobby == nil {
		return nil, nil, errors.New("lobby not found")
	}

	if len(lobby.Players) >= models.MaxLobbyPlayers {
		return nil, nil, errors.New("lobby is full")
	}
	if lobby.HasPlayerNamed(playerName) {
		return nil, nil, errors.New("name already in use")
	}

	player := models.LobbyPlayer{
		ID:       fmt.Sprintf("player_%d", time.Now().UnixNano()),
		Name:     playerName,
		Role:     models.RolePlayer,
		JoinedAt: time.Now(),
	}
	lobby.Players = append(lobby.Players, player)
	lobby.LastActivity = time.Now()

	if err := s.store.SaveLobby(lobby); err != nil {
		return nil, nil, fmt.Errorf("failed to save lobby: %w", err)
	}
	return lobby, &lobby.Players[len(lobby.Players)-1], nil
}

// JoinAsMaster adds the game master. A lobby holds at most one.
func (s *LobbyService) JoinAsMaster(sessionID, masterName string) (*models.Lobby, *models.LobbyPlayer, error) {
	lobby, err := s.store.GetLobby(sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load lobby: %w", err)
	}
	if lobby == nil {
		return nil, nil, errors.New("lobby not found")
	}

	if lobby.HasMaster() {
		return nil, nil, errors.New("lobby already has a master")
	}
	if lobby.HasPlayerNamed(masterName) {
		return nil, nil, errors.New("name already in use")
	}

	master := models.LobbyPlayer{
		ID:       "master_" + masterName,
		Name:     masterName,
		Role:     models.RoleMaster,
		JoinedAt: time.Now(),
	}
	lobby.Players = append(lobby.Players, master)
	lobby.LastActivity = time.Now()

	if err := s.store.SaveLobby(lobby); err != nil {
		return nil, nil, fmt.Errorf("failed to save lobby: %w", err)
	}
	return lobby, &lobby.Players[len(lobby.Players)-1], nil
}

func (s *LobbyService) GetLobby(sessionID string) (*models.Lobby, error) {
	return s.store.GetLobby(sessionID)
}

// LeaveResult reports what a leave changed so the caller can notify the
// session.
type LeaveResult struct {
	Lobby     *models.Lobby
	Removed   models.LobbyPlayer
	NewHost   *models.LobbyPlayer
	LobbyGone bool
}

// Leave removes a player from the lobby. When the host leaves and regular
// players remain, the longest-joined player is promoted. An emptied lobby is
// deleted.
func (s *LobbyService) Leave(sessionID, playerID string) (*LeaveResult, error) {
	lobby, err := s.store.GetLobby(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load lobby: %w", err)
	}
	if lobby == nil {
		return nil, errors.New("lobby not found")
	}

	idx := -1
	for i, p := range lobby.Players {
		if p.ID == playerID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, errors.New("player not in lobby")
	}

	result := &LeaveResult{Removed: lobby.Players[idx]}
	lobby.Players = append(lobby.Players[:idx], lobby.Players[idx+1:]...)
	lobby.LastActivity = time.Now()

	if len(lobby.Players) == 0 {
		if err := s.store.DeleteLobby(sessionID); err != nil {
			return nil, fmt.Errorf("failed to delete lobby: %w", err)
		}
		result.LobbyGone = true
		return result, nil
	}

	if result.Removed.Role == models.RoleHost {
		for i := range lobby.Players {
			if lobby.Players[i].Role == models.RolePlayer {
				lobby.Players[i].Role = models.RoleHost
				result.NewHost = &lobby.Players[i]
				break
			}
		}
	}

	if err := s.store.SaveLobby(lobby); err != nil {
		return nil, fmt.Errorf("failed to save lobby: %w", err)
	}
	result.Lobby = lobby
	return result, nil
}

// CleanupInactive deletes lobbies idle longer than maxInactive and returns
// them so the caller can notify their connections.
func (s *LobbyService) CleanupInactive(maxInactive time.Duration) ([]models.Lobby, error) {
	expired, err := s.store.ListExpiredLobbies(time.Now().Add(-maxInactive))
	if err != nil {
		return nil, err
	}

	for _, lobby := range expired {
		if err := s.store.DeleteLobby(lobby.SessionID); err != nil {
			return nil, fmt.Errorf("failed to delete lobby %s: %w", lobby.SessionID, err)
		}
	}
	return expired, nil
}

func (s *LobbyService) generateSessionID() (string, error) {
	for {
		b := make([]byte, 6)
		for i := range b {
			b[i] = sessionIDAlphabet[rand.Intn(len(sessionIDAlphabet))]
		}
		id := string(b)

		exists, err := s.store.SessionExists(id)
		if err != nil {
			return "", fmt.Errorf("failed to check session id: %w", err)
		}
		if !exists {
			return id, nil
		}
	}
}
