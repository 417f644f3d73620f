package models

import "time"

const MaxLobbyPlayers = 5

type Lobby struct {
	SessionID    string        `gorm:"primaryKey;size:8" json:"session_id"`
	Phase        string        `gorm:"size:20;not null;default:'lobby'" json:"phase"`
	Players      []LobbyPlayer `gorm:"serializer:json" json:"players"`
	CreatedAt    time.Time     `json:"created_at"`
	LastActivity time.Time     `json:"last_activity"`
}

type LobbyPlayer struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Role     PlayerRole `json:"role"`
	JoinedAt time.Time  `json:"joined_at"`
}

func (l *Lobby) HasMaster() bool {
	for _, p := range l.Players {
		if p.Role == RoleMaster {
			return true
		}
	}
	return false
}

func (l *Lobby) HasPlayerNamed(name string) bool {
	for _, p := range l.Players {
		if p.Name == name {
			return true
		}
	}
	return false
}

func (l *Lobby) FindPlayer(playerID string) *LobbyPlayer {
	for i := range l.Players {
		if l.Players[i].ID == playerID {
			return &l.Players[i]
		}
	}
	return nil
}

// InvestigatorCount counts hosts and regular players, i.e. everyone who will
// be part of the turn order.
func (l *Lobby) InvestigatorCount() int {
	n := 0
	for _, p := range l.Players {
		if p.Role != RoleMaster {
			n++
		}
	}
	return n
}

// CanStart requires at least two investigators and exactly one master.
func (l *Lobby) CanStart() bool {
	masters := 0
	for _, p := range l.Players {
		if p.Role == RoleMaster {
			masters++
		}
	}
	return l.InvestigatorCount() >= 2 && masters == 1
}
