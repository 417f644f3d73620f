package storage

import (
	"errors"
	"time"

	"github.com/LeonanFr/FindTheBug/internal/models"

	"gorm.io/gorm"
)

// Store is the persistence collaborator for cases, game states and lobbies.
// Lookups return (nil, nil) when the record does not exist; a non-nil error
// always means the database itself failed.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetCase(caseID string) (*models.Case, error) {
	var bugCase models.Case
	err := s.db.Preload("Clues").First(&bugCase, "id = ?", caseID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bugCase, nil
}

func (s *Store) ListAvailableCases() ([]models.Case, error) {
	var cases []models.Case
	if err := s.db.Select("id", "title", "short_description").Order("id ASC").Find(&cases).Error; err != nil {
		return nil, err
	}
	return cases, nil
}

func (s *Store) CreateCase(bugCase *models.Case) error {
	return s.db.Create(bugCase).Error
}

func (s *Store) GetGameState(sessionID string) (*models.GameState, error) {
	var state models.GameState
	err := s.db.First(&state, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *Store) CreateGameState(state *models.GameState) error {
	return s.db.Create(state).Error
}

func (s *Store) SaveGameState(state *models.GameState) error {
	return s.db.Save(state).Error
}

// DeleteSession removes both the game state and its lobby record.
func (s *Store) DeleteSession(sessionID string) error {
	if err := s.db.Delete(&models.GameState{}, "session_id = ?", sessionID).Error; err != nil {
		return err
	}
	return s.db.Delete(&models.Lobby{}, "session_id = ?", sessionID).Error
}

func (s *Store) GetLobby(sessionID string) (*models.Lobby, error) {
	var lobby models.Lobby
	err := s.db.First(&lobby, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lobby, nil
}

func (s *Store) CreateLobby(lobby *models.Lobby) error {
	return s.db.Create(lobby).Error
}

func (s *Store) SaveLobby(lobby *models.Lobby) error {
	return s.db.Save(lobby).Error
}

func (s *Store) UpdatePhase(sessionID, phase string) error {
	return s.db.Model(&models.Lobby{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]any{"phase": phase, "last_activity": time.Now()}).Error
}

func (s *Store) SessionExists(sessionID string) (bool, error) {
	var count int64
	if err := s.db.Model(&models.Lobby{}).Where("session_id = ?", sessionID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) DeleteLobby(sessionID string) error {
	return s.db.Delete(&models.Lobby{}, "session_id = ?", sessionID).Error
}

// ListExpiredLobbies returns lobbies whose last activity predates the cutoff
// and that never progressed past the lobby phase.
func (s *Store) ListExpiredLobbies(cutoff time.Time) ([]models.Lobby, error) {
	var lobbies []models.Lobby
	if err := s.db.Where("phase = ? AND last_activity < ?", models.PhaseLobby, cutoff).
		Find(&lobbies).Error; err != nil {
		return nil, err
	}
	return lobbies, nil
}
