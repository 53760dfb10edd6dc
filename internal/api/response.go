package api

import (
	"errors"
	"log/slog"
	"net/http"

	"ContestScoreAPI/internal/models/domain"
	"ContestScoreAPI/internal/utils/logger/sl"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var statusByKind = map[domain.Kind]int{
	domain.KindUnauthorized:           http.StatusUnauthorized,
	domain.KindForbidden:              http.StatusForbidden,
	domain.KindNotFound:               http.StatusNotFound,
	domain.KindInvalidScore:           http.StatusUnprocessableEntity,
	domain.KindInvalidStateTransition: http.StatusConflict,
	domain.KindValidation:             http.StatusBadRequest,
	domain.KindCriteriaNotInContest:   http.StatusUnprocessableEntity,
}

// fail writes the error response. Domain errors keep their message and
// kind; anything else is logged and hidden behind a generic 500.
func (s *Server) fail(c *gin.Context, err error) {
	var de *domain.Error
	if errors.As(err, &de) {
		status, ok := statusByKind[de.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"error": de.Error(), "code": string(de.Kind)})
		return
	}

	s.log.Error("request failed",
		slog.String("method", c.Request.Method),
		slog.String("path", c.FullPath()),
		sl.Err(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "code": "INTERNAL"})
}

func (s *Server) badRequest(c *gin.Context, err error) {
	s.fail(c, domain.Errorf(domain.KindValidation, "invalid request body: %s", err.Error()))
}

// pathID parses a uuid path parameter, writing a 400 when it is malformed.
func (s *Server) pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		s.fail(c, domain.Errorf(domain.KindValidation, "invalid %s", name))
		return uuid.Nil, false
	}
	return id, true
}
