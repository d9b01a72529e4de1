package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	saledomain "github.com/smallbiznis/gymdesk/internal/sale/domain"
)

type processSaleRequest struct {
	Lines []saledomain.Line `json:"lines"`
}

func (s *Server) ProcessSale(c *gin.Context) {
	var req processSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.saleSvc.ProcessSale(c.Request.Context(), saledomain.ProcessSaleRequest{
		Lines: req.Lines,
		Actor: actorFrom(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) CancelSale(c *gin.Context) {
	err := s.saleSvc.CancelSale(c.Request.Context(), saledomain.CancelSaleRequest{
		ID:    c.Param("id"),
		Actor: actorFrom(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) ListSales(c *gin.Context) {
	from, err := parseOptionalDate(c.Query("from"))
	if err != nil {
		AbortWithError(c, newValidationError("from", "invalid_from", "from must be YYYY-MM-DD"))
		return
	}
	to, err := parseOptionalDate(c.Query("to"))
	if err != nil {
		AbortWithError(c, newValidationError("to", "invalid_to", "to must be YYYY-MM-DD"))
		return
	}

	resp, err := s.saleSvc.History(c.Request.Context(), saledomain.HistoryRequest{From: from, To: to})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSale(c *gin.Context) {
	resp, err := s.saleSvc.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SaleStats(c *gin.Context) {
	resp, err := s.saleSvc.Stats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
