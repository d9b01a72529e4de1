package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	memberdomain "github.com/smallbiznis/gymdesk/internal/member/domain"
	membershiptypedomain "github.com/smallbiznis/gymdesk/internal/membershiptype/domain"
)

type memberFieldsRequest struct {
	Name            string  `json:"name"`
	Phone           string  `json:"phone"`
	Shift           string  `json:"shift"`
	Institute       *string `json:"institute"`
	EnrolledOn      string  `json:"enrolled_on"`
	EnrollmentMonth string  `json:"enrollment_month"`
}

func (r memberFieldsRequest) fields() (memberdomain.Fields, error) {
	enrolledOn, err := parseOptionalDate(r.EnrolledOn)
	if err != nil {
		return memberdomain.Fields{}, newValidationError("enrolled_on", "invalid_enrolled_on", "enrolled_on must be YYYY-MM-DD")
	}
	return memberdomain.Fields{
		Name:            r.Name,
		Phone:           r.Phone,
		Shift:           memberdomain.Shift(strings.ToLower(strings.TrimSpace(r.Shift))),
		Institute:       r.Institute,
		EnrolledOn:      enrolledOn,
		EnrollmentMonth: strings.TrimSpace(r.EnrollmentMonth),
	}, nil
}

func (s *Server) ListMembershipTypes(c *gin.Context) {
	resp, err := s.catalogSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) LookupMembershipType(c *gin.Context) {
	resp, err := s.catalogSvc.Lookup(c.Request.Context(), c.Param("tag"))
	if err != nil {
		if errors.Is(err, membershiptypedomain.ErrInvalidMembershipType) {
			err = membershiptypedomain.ErrNotFound
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RegisterMember(c *gin.Context) {
	var req memberFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	fields, err := req.fields()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.memberSvc.Register(c.Request.Context(), memberdomain.RegisterRequest{
		Fields: fields,
		Actor:  actorFrom(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

// SearchMembers serves the desk's member table, so every row carries its
// membership status.
func (s *Server) SearchMembers(c *gin.Context) {
	members, err := s.memberSvc.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	resp, err := s.statusSvc.Annotate(c.Request.Context(), members)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetMember(c *gin.Context) {
	resp, err := s.memberSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateMember(c *gin.Context) {
	var req memberFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	fields, err := req.fields()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.memberSvc.Update(c.Request.Context(), memberdomain.UpdateRequest{
		ID:     c.Param("id"),
		Fields: fields,
		Actor:  actorFrom(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteMember(c *gin.Context) {
	resp, err := s.memberSvc.Delete(c.Request.Context(), memberdomain.DeleteRequest{
		ID:    c.Param("id"),
		Actor: actorFrom(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
