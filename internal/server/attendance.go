package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	attendancedomain "github.com/smallbiznis/gymdesk/internal/attendance/domain"
)

func (s *Server) CheckIn(c *gin.Context) {
	resp, err := s.attendanceSvc.CheckIn(c.Request.Context(), attendancedomain.CheckInRequest{
		MemberID: c.Param("id"),
		Actor:    actorFrom(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListCheckIns(c *gin.Context) {
	resp, err := s.attendanceSvc.ListByMember(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
