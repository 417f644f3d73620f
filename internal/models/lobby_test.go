package models_test

import (
	"testing"

	"github.com/LeonanFr/FindTheBug/internal/models"

	"github.com/stretchr/testify/assert"
)

func lobbyWith(roles ...models.PlayerRole) *models.Lobby {
	l := &models.Lobby{SessionID: "ABC123", Phase: models.PhaseLobby}
	for i, role := range roles {
		l.Players = append(l.Players, models.LobbyPlayer{
			ID:   string(rune('a' + i)),
			Name: string(rune('a' + i)),
			Role: role,
		})
	}
	return l
}

func TestLobbyCanStart(t *testing.T) {
	tests := []struct {
		name  string
		lobby *models.Lobby
		want  bool
	}{
		{"empty", lobbyWith(), false},
		{"host only", lobbyWith(models.RoleHost), false},
		{"host and master", lobbyWith(models.RoleHost, models.RoleMaster), false},
		{"two investigators no master", lobbyWith(models.RoleHost, models.RolePlayer), false},
		{"minimum viable", lobbyWith(models.RoleHost, models.RolePlayer, models.RoleMaster), true},
		{"full table", lobbyWith(models.RoleHost, models.RolePlayer, models.RolePlayer, models.RolePlayer, models.RoleMaster), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.lobby.CanStart())
		})
	}
}

func TestLobbyInvestigatorCount(t *testing.T) {
	lobby := lobbyWith(models.RoleHost, models.RolePlayer, models.RoleMaster)
	assert.Equal(t, 2, lobby.InvestigatorCount(), "the master is not an investigator")
}

func TestLobbyHasPlayerNamed(t *testing.T) {
	lobby := lobbyWith(models.RoleHost)
	lobby.Players[0].Name = "ana"

	assert.True(t, lobby.HasPlayerNamed("ana"))
	assert.False(t, lobby.HasPlayerNamed("Ana"), "names are case sensitive")
	assert.False(t, lobby.HasPlayerNamed("bruno"))
}

func TestLobbyFindPlayer(t *testing.T) {
	lobby := lobbyWith(models.RoleHost, models.RolePlayer)

	found := lobby.FindPlayer("b")
	if assert.NotNil(t, found) {
		assert.Equal(t, models.RolePlayer, found.Role)
	}
	assert.Nil(t, lobby.FindPlayer("zz"))
}
