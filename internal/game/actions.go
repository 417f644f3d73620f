package game

import (
	"fmt"
	"log"

	"github.com/LeonanFr/FindTheBug/internal/models"
)

// ActionResult is the transient outcome of executing one investigative
// action. The engine applies the cost and clue; the system itself never
// mutates state.
type ActionResult struct {
	Success      bool         `json:"success"`
	PointsSpent  int          `json:"points_spent"`
	UnlockedClue *models.Clue `json:"unlocked_clue,omitempty"`
	Message      string       `json:"message"`
}

// actionClueTypes maps each investigative action to the single clue category
// it can reveal. SubmitSolution has no entry: it performs no clue lookup.
var actionClueTypes = map[models.ActionType]models.ClueType{
	models.ActionReadDocumentation:   models.ClueDocumentation,
	models.ActionInsertLog:           models.ClueLog,
	models.ActionInvestigateFunction: models.ClueCode,
	models.ActionSetBreakpoint:       models.ClueBreakpoint,
	models.ActionRunUnitTests:        models.ClueUnitTestResult,
	models.ActionRunIntegrationTests: models.ClueIntegrationTestResult,
}

var actionBaseCosts = map[models.ActionType]int{
	models.ActionReadDocumentation:   1,
	models.ActionInsertLog:           1,
	models.ActionInvestigateFunction: 2,
	models.ActionSetBreakpoint:       2,
	models.ActionRunUnitTests:        2,
	models.ActionRunIntegrationTests: 3,
	models.ActionSubmitSolution:      0,
}

type ActionSystem struct{}

func NewActionSystem() *ActionSystem {
	return &ActionSystem{}
}

// CalculateCost returns the point cost of an action against a target.
// Investigating a breakpointed target and breakpointing an investigated
// target are each discounted to 1.
func (s *ActionSystem) CalculateCost(actionType models.ActionType, targetID string, state *models.GameState) int {
	cost, ok := actionBaseCosts[actionType]
	if !ok {
		log.Printf("actions: unknown action type %d, charging nothing", actionType)
		return 0
	}

	switch actionType {
	case models.ActionInvestigateFunction:
		if state.HasBreakpointed(targetID) {
			return 1
		}
	case models.ActionSetBreakpoint:
		if state.HasInvestigated(targetID) {
			return 1
		}
	}
	return cost
}

// Execute charges an action against the session budget and looks up the
// matching clue. A lookup miss is not a failure: the points are still spent,
// the team simply found nothing informative.
func (s *ActionSystem) Execute(actionType models.ActionType, targetID string, bugCase *models.Case, state *models.GameState) ActionResult {
	cost := s.CalculateCost(actionType, targetID, state)
	if state.RemainingPoints < cost {
		return ActionResult{
			Message: fmt.Sprintf("insufficient points: action costs %d, %d remaining", cost, state.RemainingPoints),
		}
	}

	if actionType == models.ActionSubmitSolution {
		return ActionResult{
			Success: true,
			Message: "solution forwarded for arbitration",
		}
	}

	clue := s.findClue(bugCase, targetID, actionType)
	if clue == nil {
		return ActionResult{
			Success:     true,
			PointsSpent: cost,
			Message:     "the analysis revealed no anomalous behavior on this target",
		}
	}

	return ActionResult{
		Success:      true,
		PointsSpent:  cost,
		UnlockedClue: clue,
		Message:      "analysis successful, a new clue was discovered",
	}
}

func (s *ActionSystem) findClue(bugCase *models.Case, targetID string, actionType models.ActionType) *models.Clue {
	clueType, ok := actionClueTypes[actionType]
	if !ok {
		return nil
	}

	for i := range bugCase.Clues {
		c := &bugCase.Clues[i]
		if c.TargetID == targetID && c.Type == clueType {
			return c
		}
	}
	return nil
}
