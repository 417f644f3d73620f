package models

import "time"

const (
	StartingPoints = 12
	FinalDay       = 5
	// Extra seconds added to the turn clock after a clue reveal so the team
	// can read it before the next turn notionally starts.
	ClueRevealGraceSeconds = 30
)

// GameState is the mutable aggregate for one running session. Slices, sets
// and maps are stored as JSON columns; the row is the unit of atomicity.
type GameState struct {
	SessionID       string `gorm:"primaryKey;size:8" json:"session_id"`
	CurrentCaseID   string `gorm:"size:64;not null" json:"current_case_id"`
	CurrentDay      int    `gorm:"not null;default:1" json:"current_day"`
	RemainingPoints int    `gorm:"not null;default:12" json:"remaining_points"`
	IsCompleted     bool   `gorm:"not null;default:false" json:"is_completed"`
	IsSuddenDeath   bool   `gorm:"not null;default:false" json:"is_sudden_death"`

	DiscoveredClues []DiscoveredClue `gorm:"serializer:json" json:"discovered_clues"`
	ActionHistory   []PlayerAction   `gorm:"serializer:json" json:"action_history"`

	InvestigatedTargets []string `gorm:"serializer:json" json:"investigated_targets"`
	BreakpointedTargets []string `gorm:"serializer:json" json:"breakpointed_targets"`

	PlayerIDs      []string `gorm:"serializer:json" json:"player_ids"`
	HostPlayerID   string   `gorm:"size:100" json:"host_player_id"`
	MasterPlayerID string   `gorm:"size:100" json:"master_player_id"`

	TurnOrder        []string  `gorm:"serializer:json" json:"turn_order"`
	CurrentTurnIndex int       `gorm:"not null;default:0" json:"current_turn_index"`
	TurnStartedAt    time.Time `json:"turn_started_at"`
	LastActivity     time.Time `json:"last_activity"`
}

type PlayerAction struct {
	PlayerID   string     `json:"player_id"`
	ActionType ActionType `json:"action_type"`
	TargetID   string     `json:"target_id"`
	Timestamp  time.Time  `json:"timestamp"`
}

// DiscoveredClue is a clue the team has unlocked, with per-player free-text
// notes keyed by player id. One entry exists per clue id per session.
type DiscoveredClue struct {
	Clue
	DiscoveredBy string            `json:"discovered_by"`
	PlayerNotes  map[string]string `json:"player_notes"`
}

func (g *GameState) HasPlayer(playerID string) bool {
	for _, id := range g.PlayerIDs {
		if id == playerID {
			return true
		}
	}
	return false
}

func (g *GameState) HasDiscoveredClue(clueID string) bool {
	for _, c := range g.DiscoveredClues {
		if c.ID == clueID {
			return true
		}
	}
	return false
}

func (g *GameState) HasInvestigated(targetID string) bool {
	return containsTarget(g.InvestigatedTargets, targetID)
}

func (g *GameState) HasBreakpointed(targetID string) bool {
	return containsTarget(g.BreakpointedTargets, targetID)
}

// CurrentTurnPlayer returns the player whose turn it is, or "" when no turn
// order exists.
func (g *GameState) CurrentTurnPlayer() string {
	if len(g.TurnOrder) == 0 || g.CurrentTurnIndex < 0 || g.CurrentTurnIndex >= len(g.TurnOrder) {
		return ""
	}
	return g.TurnOrder[g.CurrentTurnIndex]
}

func containsTarget(targets []string, targetID string) bool {
	for _, t := range targets {
		if t == targetID {
			return true
		}
	}
	return false
}
