package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/internavi/schoolfinder/internal/entities"
	"github.com/internavi/schoolfinder/internal/matching"
)

const (
	msgNoSchools = "No schools found in database"
	msgNoMatch   = "No schools matched your criteria. Try adjusting your preferences."
)

// QuizMatchRequest carries the five quiz answers.
type QuizMatchRequest struct {
	StudyLevel          string `json:"study_level" binding:"required"`
	PreferredLocation   string `json:"preferred_location" binding:"required"`
	BudgetRange         string `json:"budget_range" binding:"required"`
	ProgramInterest     string `json:"program_interest" binding:"required"`
	AdmissionPreference string `json:"admission_preference" binding:"required"`
}

func (r QuizMatchRequest) preferences() matching.Preferences {
	return matching.Preferences{
		StudyLevel:          r.StudyLevel,
		PreferredLocation:   r.PreferredLocation,
		BudgetRange:         r.BudgetRange,
		ProgramInterest:     r.ProgramInterest,
		AdmissionPreference: r.AdmissionPreference,
	}
}

// MatchInfo is the score breakdown for one returned school.
type MatchInfo struct {
	SchoolID     uint     `json:"school_id"`
	MatchScore   int      `json:"match_score"`
	MatchReasons []string `json:"match_reasons"`
}

// QuizMatchResponse lists matched schools and their scores in the same order.
type QuizMatchResponse struct {
	Schools []entities.School `json:"schools"`
	Matches []MatchInfo       `json:"matches"`
}

// QuizController ranks stored schools against quiz answers.
type QuizController struct {
	store SchoolSource
}

func NewQuizController(store SchoolSource) *QuizController {
	return &QuizController{store: store}
}

// Match handles POST /api/quiz-match
func (qc *QuizController) Match(c *gin.Context) {
	var req QuizMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	all, err := qc.store.All()
	if err != nil {
		respondInternalError(c, err, "load schools")
		return
	}

	matches, err := matching.Rank(all, req.preferences())
	switch {
	case errors.Is(err, matching.ErrNoSchools):
		respondNotFound(c, msgNoSchools)
		return
	case errors.Is(err, matching.ErrNoMatch):
		respondNotFound(c, msgNoMatch)
		return
	case err != nil:
		respondInternalError(c, err, "rank schools")
		return
	}

	resp := QuizMatchResponse{
		Schools: make([]entities.School, 0, len(matches)),
		Matches: make([]MatchInfo, 0, len(matches)),
	}
	for _, m := range matches {
		resp.Schools = append(resp.Schools, m.School)
		resp.Matches = append(resp.Matches, MatchInfo{
			SchoolID:     m.School.ID,
			MatchScore:   m.Score,
			MatchReasons: m.Reasons,
		})
	}

	loggerFrom(c).WithField("matches", len(matches)).Debug("Quiz matched")
	c.JSON(http.StatusOK, resp)
}
