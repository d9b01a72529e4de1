package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/gymdesk/internal/actor"
	attendancedomain "github.com/smallbiznis/gymdesk/internal/attendance/domain"
	auditdomain "github.com/smallbiznis/gymdesk/internal/audit/domain"
	memberdomain "github.com/smallbiznis/gymdesk/internal/member/domain"
	statusdomain "github.com/smallbiznis/gymdesk/internal/membershipstatus/domain"
	membershiptypedomain "github.com/smallbiznis/gymdesk/internal/membershiptype/domain"
	paymentdomain "github.com/smallbiznis/gymdesk/internal/payment/domain"
	productdomain "github.com/smallbiznis/gymdesk/internal/product/domain"
	saledomain "github.com/smallbiznis/gymdesk/internal/sale/domain"
	pkgdb "github.com/smallbiznis/gymdesk/pkg/db"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`

	ProductID string                   `json:"product_id,omitempty"`
	Available *int                     `json:"available,omitempty"`
	Requested *int                     `json:"requested,omitempty"`
	Status    *statusdomain.Resolution `json:"status,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

// validationErrors are the input errors every domain returns. The sentinel
// text doubles as the error code.
var validationErrors = []error{
	ErrInvalidRequest,
	membershiptypedomain.ErrInvalidMembershipType,
	membershiptypedomain.ErrInvalidID,
	memberdomain.ErrInvalidID,
	memberdomain.ErrInvalidName,
	memberdomain.ErrInvalidShift,
	paymentdomain.ErrInvalidAmount,
	paymentdomain.ErrInvalidDiscount,
	productdomain.ErrInvalidID,
	productdomain.ErrInvalidName,
	productdomain.ErrInvalidPrice,
	productdomain.ErrInvalidStock,
	saledomain.ErrInvalidID,
	saledomain.ErrEmptyCart,
	saledomain.ErrInvalidLine,
	saledomain.ErrInvalidDateRange,
	auditdomain.ErrInvalidAction,
	auditdomain.ErrInvalidPageToken,
	auditdomain.ErrInvalidTimeRange,
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if code := validationErrorCode(err); code != "" {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	var stockErr *saledomain.InsufficientStockError
	if errors.As(err, &stockErr) {
		return http.StatusConflict, errorPayload{
			Type:      "insufficient_stock",
			Message:   "not enough stock to complete the sale",
			ProductID: strconv.FormatInt(stockErr.ProductID, 10),
			Available: &stockErr.Available,
			Requested: &stockErr.Requested,
		}
	}

	var expiredErr *attendancedomain.MembershipExpiredError
	if errors.As(err, &expiredErr) {
		status := expiredErr.Status
		return http.StatusConflict, errorPayload{
			Type:    "membership_expired",
			Message: "membership expired",
			Status:  &status,
		}
	}

	switch {
	case errors.Is(err, actor.ErrUnauthenticated):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthenticated",
			Message: "missing " + actorHeader + " header",
		}
	case errors.Is(err, productdomain.ErrDuplicateName):
		return http.StatusConflict, errorPayload{
			Type:    "duplicate_name",
			Message: "a product with this name already exists",
		}
	case errors.Is(err, productdomain.ErrHasSalesHistory):
		return http.StatusConflict, errorPayload{
			Type:    "has_sales_history",
			Message: "product has recorded sales",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: notFoundMessage(err),
		}
	case errors.Is(err, pkgdb.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog labels request log lines with the mapped error type.
func classifyErrorForLog(err error) string {
	_, payload := mapError(err)
	return payload.Type
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, memberdomain.ErrMemberNotFound),
		errors.Is(err, membershiptypedomain.ErrNotFound),
		errors.Is(err, productdomain.ErrNotFound),
		errors.Is(err, saledomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, memberdomain.ErrMemberNotFound):
		return "member not found"
	case errors.Is(err, membershiptypedomain.ErrNotFound):
		return "membership type not found"
	case errors.Is(err, productdomain.ErrNotFound):
		return "product not found"
	case errors.Is(err, saledomain.ErrNotFound):
		return "sale not found"
	default:
		return "not found"
	}
}

func validationErrorCode(err error) string {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return ""
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "empty_cart", "invalid_line":
		return "lines"
	case "invalid_date_range":
		return "from"
	}
	return strings.TrimPrefix(code, "invalid_")
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_membership_type":
		return "unknown membership type"
	case "empty_cart":
		return "a sale needs at least one line"
	case "invalid_discount":
		return "discount must be between 0 and 100"
	default:
		return "invalid value"
	}
}
