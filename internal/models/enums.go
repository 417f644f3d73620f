package models

// Wire protocol sends action, clue and target types as integers, so the
// numeric values here are part of the client contract.

type ActionType int

const (
	ActionReadDocumentation ActionType = iota
	ActionInsertLog
	ActionInvestigateFunction
	ActionSetBreakpoint
	ActionRunUnitTests
	ActionRunIntegrationTests
	ActionSubmitSolution
)

func (a ActionType) String() string {
	switch a {
	case ActionReadDocumentation:
		return "read_documentation"
	case ActionInsertLog:
		return "insert_log"
	case ActionInvestigateFunction:
		return "investigate_function"
	case ActionSetBreakpoint:
		return "set_breakpoint"
	case ActionRunUnitTests:
		return "run_unit_tests"
	case ActionRunIntegrationTests:
		return "run_integration_tests"
	case ActionSubmitSolution:
		return "submit_solution"
	}
	return "unknown"
}

type ClueType int

const (
	ClueDocumentation ClueType = iota
	ClueLog
	ClueCode
	ClueBreakpoint
	ClueUnitTestResult
	ClueIntegrationTestResult
)

type TargetType int

const (
	TargetModule TargetType = iota
	TargetFunction
	TargetConnection
)

type PlayerRole int

const (
	RoleHost PlayerRole = iota
	RolePlayer
	RoleMaster
)

const (
	PhaseLobby         = "lobby"
	PhaseInvestigation = "investigation"
	PhaseSuddenDeath   = "sudden_death"
	PhaseReview        = "review"
	PhaseFinished      = "finished"
)

const (
	ResultRunning = "running"
	ResultVictory = "victory"
	ResultDefeat  = "defeat"
)
