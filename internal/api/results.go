package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"ContestScoreAPI/internal/export"
	"ContestScoreAPI/internal/utils/logger/sl"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (s *Server) contestResults(c *gin.Context) {
	contestID, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	res, err := s.deps.Results.ContestResults(c.Request.Context(), identity(c).UserID, contestID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) exportResults(c *gin.Context) {
	contestID, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	res, err := s.deps.Results.ContestResults(c.Request.Context(), identity(c).UserID, contestID)
	if err != nil {
		s.fail(c, err)
		return
	}
	body, err := export.ResultsXLSX(res)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="results-%s.xlsx"`, contestID))
	c.Data(http.StatusOK, export.ContentType, body)
}

// liveFeed streams score and publication events of one contest over a
// websocket. Clients only listen; anything they send is discarded.
func (s *Server) liveFeed(c *gin.Context) {
	contestID, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	if err := s.deps.Results.Visible(c.Request.Context(), identity(c).UserID, contestID); err != nil {
		s.fail(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", sl.Err(err))
		return
	}

	s.deps.Hub.Register(contestID, conn)
	defer func() {
		s.deps.Hub.Unregister(contestID, conn)
		_ = conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.log.Debug("websocket closed",
				slog.String("contest", contestID.String()),
				sl.Err(err))
			return
		}
	}
}
