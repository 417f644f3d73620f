package handlers

import (
	"net/http"

	"github.com/LeonanFr/FindTheBug/internal/models"
	"github.com/LeonanFr/FindTheBug/internal/storage"

	"github.com/gin-gonic/gin"
)

type CaseHandler struct {
	store *storage.Store
}

func NewCaseHandler(store *storage.Store) *CaseHandler {
	return &CaseHandler{store: store}
}

type CaseSummary struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	ShortDescription string `json:"shortDescription"`
}

func (h *CaseHandler) ListCases(c *gin.Context) {
	cases, err := h.store.ListAvailableCases()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list cases"})
		return
	}

	summaries := make([]CaseSummary, 0, len(cases))
	for _, bc := range cases {
		summaries = append(summaries, CaseSummary{
			ID:               bc.ID,
			Title:            bc.Title,
			ShortDescription: bc.ShortDescription,
		})
	}

	c.JSON(http.StatusOK, gin.H{"cases": summaries})
}

// GetCase returns the public view of a case: title, description and the
// investigable topology. Clues and the answer key never leave the server
// here.
func (h *CaseHandler) GetCase(c *gin.Context) {
	bugCase, err := h.store.GetCase(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load case"})
		return
	}
	if bugCase == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "case not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":             bugCase.ID,
		"title":          bugCase.Title,
		"description":    bugCase.Description,
		"systemTopology": bugCase.Topology,
	})
}

type CreateCaseRequest struct {
	ID                string                `json:"id" binding:"required"`
	Title             string                `json:"title" binding:"required"`
	Description       string                `json:"description"`
	ShortDescription  string                `json:"short_description"`
	SolutionQuestions []string              `json:"solution_questions" binding:"required"`
	CorrectAnswers    []string              `json:"correct_answers" binding:"required"`
	Clues             []models.Clue         `json:"clues"`
	Topology          models.SystemTopology `json:"system_topology"`
}

func (h *CaseHandler) CreateCase(c *gin.Context) {
	var req CreateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if len(req.SolutionQuestions) != len(req.CorrectAnswers) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "solution questions and correct answers must have the same length"})
		return
	}

	existing, err := h.store.GetCase(req.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to check case"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "case id already exists"})
		return
	}

	bugCase := models.Case{
		ID:                req.ID,
		Title:             req.Title,
		Description:       req.Description,
		ShortDescription:  req.ShortDescription,
		SolutionQuestions: req.SolutionQuestions,
		CorrectAnswers:    req.CorrectAnswers,
		Clues:             req.Clues,
		Topology:          req.Topology,
	}
	for i := range bugCase.Clues {
		bugCase.Clues[i].CaseID = bugCase.ID
	}

	if err := h.store.CreateCase(&bugCase); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to create case"})
		return
	}

	c.JSON(http.StatusCreated, MessageResponse{Message: "case created"})
}
