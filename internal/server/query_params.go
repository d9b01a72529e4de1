package server

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	obslogger "github.com/smallbiznis/gymdesk/internal/observability/logger"
)

const (
	dateOnlyLayout = "2006-01-02"
	actorHeader    = obslogger.ActorHeader
)

var errInvalidDate = errors.New("invalid_date")

// actorFrom returns the raw actor header. Services reject a blank actor;
// handlers that read storage before calling a service check it themselves.
func actorFrom(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(actorHeader))
}

func parseOptionalInt(value string) (*int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// parseOptionalDate accepts a civil date (2006-01-02) or an RFC3339 instant
// and returns it as a UTC-midnight civil date.
func parseOptionalDate(value string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(dateOnlyLayout, trimmed); err == nil {
		return &parsed, nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		civil := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
		return &civil, nil
	}
	return nil, errInvalidDate
}

func parseOptionalTime(value string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return &parsed, nil
	}
	return nil, errInvalidDate
}
