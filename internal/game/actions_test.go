package game_test

import (
	"testing"

	"github.com/LeonanFr/FindTheBug/internal/game"
	"github.com/LeonanFr/FindTheBug/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCaseWithClues(clues ...models.Clue) *models.Case {
	return &models.Case{
		ID:                "case_test",
		Title:             "Leaky Cache",
		SolutionQuestions: []string{"Where is the bug?"},
		CorrectAnswers:    []string{"cache eviction"},
		Clues:             clues,
	}
}

func newStateWithPoints(points int) *models.GameState {
	return &models.GameState{
		SessionID:       "ABC123",
		CurrentCaseID:   "case_test",
		CurrentDay:      1,
		RemainingPoints: points,
	}
}

func TestCalculateCost(t *testing.T) {
	system := game.NewActionSystem()

	tests := []struct {
		name   string
		action models.ActionType
		state  *models.GameState
		want   int
	}{
		{"read documentation", models.ActionReadDocumentation, newStateWithPoints(12), 1},
		{"insert log", models.ActionInsertLog, newStateWithPoints(12), 1},
		{"run unit tests", models.ActionRunUnitTests, newStateWithPoints(12), 2},
		{"run integration tests", models.ActionRunIntegrationTests, newStateWithPoints(12), 3},
		{"submit solution is free", models.ActionSubmitSolution, newStateWithPoints(12), 0},
		{"investigate fresh target", models.ActionInvestigateFunction, newStateWithPoints(12), 2},
		{"breakpoint fresh target", models.ActionSetBreakpoint, newStateWithPoints(12), 2},
		{"unknown action charges nothing", models.ActionType(42), newStateWithPoints(12), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, system.CalculateCost(tt.action, "fn_parse", tt.state))
		})
	}
}

func TestCalculateCostDiscounts(t *testing.T) {
	system := game.NewActionSystem()

	t.Run("breakpoint first cheapens investigation", func(t *testing.T) {
		state := newStateWithPoints(12)
		state.BreakpointedTargets = []string{"fn_parse"}

		assert.Equal(t, 1, system.CalculateCost(models.ActionInvestigateFunction, "fn_parse", state))
		assert.Equal(t, 2, system.CalculateCost(models.ActionInvestigateFunction, "fn_other", state))
	})

	t.Run("investigation first cheapens breakpoint", func(t *testing.T) {
		state := newStateWithPoints(12)
		state.InvestigatedTargets = []string{"fn_parse"}

		assert.Equal(t, 1, system.CalculateCost(models.ActionSetBreakpoint, "fn_parse", state))
		assert.Equal(t, 2, system.CalculateCost(models.ActionSetBreakpoint, "fn_other", state))
	})
}

func TestExecuteInsufficientPoints(t *testing.T) {
	system := game.NewActionSystem()
	state := newStateWithPoints(2)

	result := system.Execute(models.ActionRunIntegrationTests, "mod_core", newCaseWithClues(), state)

	assert.False(t, result.Success)
	assert.Zero(t, result.PointsSpent)
	assert.Nil(t, result.UnlockedClue)
	assert.Contains(t, result.Message, "insufficient points")
}

func TestExecuteClueHit(t *testing.T) {
	system := game.NewActionSystem()
	clue := models.Clue{
		ID:       "clue_1",
		TargetID: "fn_parse",
		Type:     models.ClueCode,
		Content:  "the parser drops the last token",
	}
	state := newStateWithPoints(12)

	result := system.Execute(models.ActionInvestigateFunction, "fn_parse", newCaseWithClues(clue), state)

	require.True(t, result.Success)
	assert.Equal(t, 2, result.PointsSpent)
	require.NotNil(t, result.UnlockedClue)
	assert.Equal(t, "clue_1", result.UnlockedClue.ID)
}

func TestExecuteClueMissStillSucceeds(t *testing.T) {
	system := game.NewActionSystem()
	// Clue exists for the target but under a different category.
	clue := models.Clue{ID: "clue_1", TargetID: "fn_parse", Type: models.ClueLog}
	state := newStateWithPoints(12)

	result := system.Execute(models.ActionInvestigateFunction, "fn_parse", newCaseWithClues(clue), state)

	require.True(t, result.Success)
	assert.Equal(t, 2, result.PointsSpent)
	assert.Nil(t, result.UnlockedClue)
}

func TestExecuteSubmitSolution(t *testing.T) {
	system := game.NewActionSystem()
	state := newStateWithPoints(0)

	result := system.Execute(models.ActionSubmitSolution, "", newCaseWithClues(), state)

	require.True(t, result.Success)
	assert.Zero(t, result.PointsSpent)
	assert.Nil(t, result.UnlockedClue)
	assert.Contains(t, result.Message, "arbitration")
}
