package api

import (
	"net/http"
	"time"

	"ContestScoreAPI/internal/contests"
	"ContestScoreAPI/internal/models/domain"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type createContestRequest struct {
	Name              string             `json:"name"`
	Description       string             `json:"description"`
	Type              domain.ContestType `json:"type"`
	RegistrationStart *time.Time         `json:"registrationStart"`
	RegistrationEnd   *time.Time         `json:"registrationEnd"`
	ContestStart      *time.Time         `json:"contestStart"`
	ContestEnd        *time.Time         `json:"contestEnd"`
}

func (s *Server) createContest(c *gin.Context) {
	var req createContestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	contest, err := s.deps.Contests.Create(c.Request.Context(), identity(c).UserID, contests.CreateInput{
		Name:              req.Name,
		Description:       req.Description,
		Type:              req.Type,
		RegistrationStart: req.RegistrationStart,
		RegistrationEnd:   req.RegistrationEnd,
		ContestStart:      req.ContestStart,
		ContestEnd:        req.ContestEnd,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, contest)
}

func (s *Server) getContest(c *gin.Context) {
	contestID, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	contest, err := s.deps.Contests.Get(c.Request.Context(), contestID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, contest)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

func (s *Server) advanceContest(c *gin.Context) {
	contestID, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	contest, err := s.deps.Contests.Advance(c.Request.Context(), identity(c).UserID, contestID, domain.ContestStatus(req.Status))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, contest)
}

func (s *Server) cancelContest(c *gin.Context) {
	contestID, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	contest, err := s.deps.Contests.Cancel(c.Request.Context(), identity(c).UserID, contestID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, contest)
}

func (s *Server) publishResults(c *gin.Context) {
	contestID, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	publishedAt, err := s.deps.Contests.PublishResults(c.Request.Context(), identity(c).UserID, contestID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "resultsPublished": publishedAt})
}

type categoryRequest struct {
	Name                     string                 `json:"name"`
	Description              string                 `json:"description"`
	DisplayOrder             int                    `json:"displayOrder"`
	Filters                  domain.CategoryFilters `json:"filters"`
	MaxEntriesPerParticipant *int                   `json:"maxEntriesPerParticipant"`
}

func (s *Server) addCategory(c *gin.Context) {
	contestID, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	category, err := s.deps.Contests.AddCategory(c.Request.Context(), identity(c).UserID, contestID, contests.CategoryInput{
		Name:                     req.Name,
		Description:              req.Description,
		DisplayOrder:             req.DisplayOrder,
		Filters:                  req.Filters,
		MaxEntriesPerParticipant: req.MaxEntriesPerParticipant,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (s *Server) listCategories(c *gin.Context) {
	contestID, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	categories, err := s.deps.Contests.ListCategories(c.Request.Context(), contestID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

type criteriaRequest struct {
	CategoryID   *uuid.UUID `json:"categoryId"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Weight       *float64   `json:"weight"`
	MaxScore     *int       `json:"maxScore"`
	DisplayOrder int        `json:"displayOrder"`
}

func (s *Server) addCriteria(c *gin.Context) {
	contestID, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	var req criteriaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	criteria, err := s.deps.Contests.AddCriteria(c.Request.Context(), identity(c).UserID, contestID, contests.CriteriaInput{
		CategoryID:   req.CategoryID,
		Name:         req.Name,
		Description:  req.Description,
		Weight:       req.Weight,
		MaxScore:     req.MaxScore,
		DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, criteria)
}

func (s *Server) listCriteria(c *gin.Context) {
	contestID, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	var categoryID *uuid.UUID
	if raw := c.Query("categoryId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			s.fail(c, domain.Errorf(domain.KindValidation, "invalid categoryId"))
			return
		}
		categoryID = &id
	}
	criteria, err := s.deps.Contests.ListCriteria(c.Request.Context(), contestID, categoryID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, criteria)
}

type memberRequest struct {
	UserID uuid.UUID   `json:"userId"`
	Role   domain.Role `json:"role"`
}

func (s *Server) addMember(c *gin.Context) {
	contestID, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	member, err := s.deps.Contests.AddMember(c.Request.Context(), identity(c).UserID, contestID, req.UserID, req.Role)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

type registerRequest struct {
	Notes string `json:"notes"`
}

func (s *Server) register(c *gin.Context) {
	contestID, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	var req registerRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.badRequest(c, err)
			return
		}
	}
	p, err := s.deps.Participations.Register(c.Request.Context(), identity(c).UserID, contestID, req.Notes)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *Server) decideParticipation(c *gin.Context) {
	contestID, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	participationID, ok := s.pathID(c, "pid")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	p, err := s.deps.Participations.Decide(c.Request.Context(), identity(c).UserID, contestID, participationID,
		domain.ParticipationStatus(req.Status))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) withdraw(c *gin.Context) {
	contestID, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	participationID, ok := s.pathID(c, "pid")
	if !ok {
		return
	}
	p, err := s.deps.Participations.Withdraw(c.Request.Context(), identity(c).UserID, contestID, participationID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
