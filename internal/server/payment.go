package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/gymdesk/internal/actor"
	paymentdomain "github.com/smallbiznis/gymdesk/internal/payment/domain"
)

// paymentRequest leaves amount optional: without it the desk charges the
// catalog price, less discount_percent when given.
type paymentRequest struct {
	MembershipType  string           `json:"membership_type"`
	Amount          *decimal.Decimal `json:"amount"`
	DiscountPercent *decimal.Decimal `json:"discount_percent"`
	StartDate       string           `json:"start_date"`
}

type enrollRequest struct {
	Member memberFieldsRequest `json:"member"`
	paymentRequest
}

type discountQuoteRequest struct {
	Base    decimal.Decimal `json:"base"`
	Percent decimal.Decimal `json:"percent"`
}

func (s *Server) amountFor(ctx context.Context, req paymentRequest) (decimal.Decimal, error) {
	if req.Amount != nil {
		return *req.Amount, nil
	}
	item, err := s.catalogSvc.Lookup(ctx, req.MembershipType)
	if err != nil {
		return decimal.Zero, err
	}
	if req.DiscountPercent == nil {
		return item.Price, nil
	}
	return paymentdomain.ApplyDiscount(item.Price, *req.DiscountPercent)
}

func (s *Server) EnrollMember(c *gin.Context) {
	// pricing reads the catalog, so the operator is checked first
	operator, err := actor.Require(actorFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req enrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	fields, err := req.Member.fields()
	if err != nil {
		AbortWithError(c, err)
		return
	}
	startDate, err := parseOptionalDate(req.StartDate)
	if err != nil {
		AbortWithError(c, newValidationError("start_date", "invalid_start_date", "start_date must be YYYY-MM-DD"))
		return
	}
	amount, err := s.amountFor(c.Request.Context(), req.paymentRequest)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.paymentSvc.Enroll(c.Request.Context(), paymentdomain.EnrollRequest{
		Member:         fields,
		MembershipType: req.MembershipType,
		Amount:         amount,
		StartDate:      startDate,
		Actor:          operator,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) RegisterInitialPayment(c *gin.Context) {
	s.recordPayment(c, s.paymentSvc.RegisterInitialPayment)
}

func (s *Server) RenewMembership(c *gin.Context) {
	s.recordPayment(c, s.paymentSvc.Renew)
}

func (s *Server) recordPayment(c *gin.Context, record func(context.Context, paymentdomain.PaymentRequest) (*paymentdomain.Receipt, error)) {
	operator, err := actor.Require(actorFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	startDate, err := parseOptionalDate(req.StartDate)
	if err != nil {
		AbortWithError(c, newValidationError("start_date", "invalid_start_date", "start_date must be YYYY-MM-DD"))
		return
	}
	amount, err := s.amountFor(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := record(c.Request.Context(), paymentdomain.PaymentRequest{
		MemberID:       c.Param("id"),
		MembershipType: req.MembershipType,
		Amount:         amount,
		StartDate:      startDate,
		Actor:          operator,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListMemberPayments(c *gin.Context) {
	resp, err := s.paymentSvc.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ResolveMemberStatus(c *gin.Context) {
	resp, err := s.statusSvc.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) MembershipStatusSummary(c *gin.Context) {
	resp, err := s.statusSvc.ResolveAll(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) QuoteDiscount(c *gin.Context) {
	var req discountQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	amount, err := paymentdomain.ApplyDiscount(req.Base, req.Percent)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"base":    req.Base.StringFixed(2),
		"percent": req.Percent.String(),
		"amount":  amount.StringFixed(2),
	}})
}
