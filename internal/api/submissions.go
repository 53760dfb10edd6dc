package api

import (
	"encoding/json"
	"net/http"
	"time"

	"ContestScoreAPI/internal/models/domain"
	"ContestScoreAPI/internal/scoring"
	"ContestScoreAPI/internal/submissions"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type createSubmissionRequest struct {
	CategoryID  uuid.UUID       `json:"categoryId"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Metadata    json.RawMessage `json:"metadata"`
	LivestockID *uuid.UUID      `json:"livestockId"`
}

func (s *Server) createSubmission(c *gin.Context) {
	contestID, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	var req createSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	sub, err := s.deps.Submissions.Create(c.Request.Context(), identity(c).UserID, contestID, submissions.CreateInput{
		CategoryID:  req.CategoryID,
		Title:       req.Title,
		Description: req.Description,
		Metadata:    req.Metadata,
		LivestockID: req.LivestockID,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (s *Server) listSubmissions(c *gin.Context) {
	contestID, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	var status *domain.SubmissionStatus
	if raw := c.Query("status"); raw != "" {
		st := domain.SubmissionStatus(raw)
		status = &st
	}
	subs, err := s.deps.Submissions.ListByContest(c.Request.Context(), identity(c).UserID, contestID, status)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, subs)
}

func (s *Server) getSubmission(c *gin.Context) {
	submissionID, ok := s.pathID(c, "sid")
	if !ok {
		return
	}
	d, err := s.deps.Submissions.Get(c.Request.Context(), identity(c).UserID, submissionID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

type updateSubmissionRequest struct {
	CategoryID  *uuid.UUID      `json:"categoryId"`
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Metadata    json.RawMessage `json:"metadata"`
	LivestockID *uuid.UUID      `json:"livestockId"`
}

func (s *Server) updateSubmission(c *gin.Context) {
	submissionID, ok := s.pathID(c, "sid")
	if !ok {
		return
	}
	var req updateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	sub, err := s.deps.Submissions.Update(c.Request.Context(), identity(c).UserID, submissionID, submissions.UpdateInput{
		CategoryID:  req.CategoryID,
		Title:       req.Title,
		Description: req.Description,
		Metadata:    req.Metadata,
		LivestockID: req.LivestockID,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (s *Server) deleteSubmission(c *gin.Context) {
	submissionID, ok := s.pathID(c, "sid")
	if !ok {
		return
	}
	if err := s.deps.Submissions.Delete(c.Request.Context(), identity(c).UserID, submissionID); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) submitSubmission(c *gin.Context) {
	submissionID, ok := s.pathID(c, "sid")
	if !ok {
		return
	}
	sub, err := s.deps.Submissions.Submit(c.Request.Context(), identity(c).UserID, submissionID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (s *Server) transitionSubmission(c *gin.Context) {
	submissionID, ok := s.pathID(c, "sid")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	sub, err := s.deps.Submissions.Transition(c.Request.Context(), identity(c).UserID, submissionID,
		domain.SubmissionStatus(req.Status), req.Reason)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

type mediaRequest struct {
	URL          string `json:"url" binding:"required"`
	Caption      string `json:"caption"`
	DisplayOrder int    `json:"displayOrder"`
}

func (s *Server) addMedia(c *gin.Context) {
	submissionID, ok := s.pathID(c, "sid")
	if !ok {
		return
	}
	var req mediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	media, err := s.deps.Submissions.AddMedia(c.Request.Context(), identity(c).UserID, submissionID, submissions.MediaInput{
		URL:          req.URL,
		Caption:      req.Caption,
		DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, media)
}

func (s *Server) submissionHistory(c *gin.Context) {
	submissionID, ok := s.pathID(c, "sid")
	if !ok {
		return
	}
	history, err := s.deps.Submissions.History(c.Request.Context(), identity(c).UserID, submissionID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

type scoreRequest struct {
	CriteriaID uuid.UUID `json:"criteriaId"`
	Score      *float64  `json:"score" binding:"required"`
	Comments   *string   `json:"comments"`
}

func (s *Server) recordScore(c *gin.Context) {
	submissionID, ok := s.pathID(c, "sid")
	if !ok {
		return
	}
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	if req.CriteriaID == uuid.Nil {
		s.fail(c, domain.Errorf(domain.KindValidation, "criteriaId is required"))
		return
	}
	score, err := s.deps.Scoring.RecordScore(c.Request.Context(), identity(c).UserID, submissionID, scoring.ScoreInput{
		CriteriaID: req.CriteriaID,
		Score:      *req.Score,
		Comment:    req.Comments,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, score)
}

func (s *Server) listScores(c *gin.Context) {
	submissionID, ok := s.pathID(c, "sid")
	if !ok {
		return
	}
	scores, err := s.deps.Scoring.ListScores(c.Request.Context(), identity(c).UserID, submissionID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, scores)
}

type livestockRequest struct {
	Name               string     `json:"name"`
	Breed              string     `json:"breed"`
	Sex                string     `json:"sex"`
	BirthDate          *time.Time `json:"birthDate"`
	RegistrationNumber string     `json:"registrationNumber"`
}

func (s *Server) createLivestock(c *gin.Context) {
	var req livestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	l, err := s.deps.Submissions.CreateLivestock(c.Request.Context(), identity(c).UserID, submissions.LivestockInput{
		Name:               req.Name,
		Breed:              req.Breed,
		Sex:                req.Sex,
		BirthDate:          req.BirthDate,
		RegistrationNumber: req.RegistrationNumber,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, l)
}
