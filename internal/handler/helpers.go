package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mongo-activity/internal/middleware"
	"github.com/noah-isme/mongo-activity/internal/pagination"
	"github.com/noah-isme/mongo-activity/internal/period"
	"github.com/noah-isme/mongo-activity/internal/service"
	"github.com/noah-isme/mongo-activity/internal/store"
	"github.com/noah-isme/mongo-activity/internal/utils"
)

const dateLayout = "2006-01-02"

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

func parseQueryInt64(c *fiber.Ctx, key string) (*int64, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// parseQueryTime accepts RFC 3339 timestamps or plain dates. A plain date used
// as an upper bound covers the whole day.
func parseQueryTime(c *fiber.Ctx, key string, endOfDay bool) (*time.Time, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		utc := parsed.UTC()
		return &utc, nil
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, fmt.Errorf("%s must be RFC 3339 or YYYY-MM-DD", key)
	}
	if endOfDay {
		parsed = parsed.Add(24*time.Hour - time.Millisecond)
	}
	return &parsed, nil
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

func validationDetails(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	details := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details[fieldErr.Field()] = fieldErr.Tag()
	}
	return details
}

// respondError maps domain errors onto HTTP statuses.
func respondError(c *fiber.Ctx, logger *zerolog.Logger, err error, fallback string) error {
	switch {
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	case errors.Is(err, pagination.ErrInvalidPagination),
		errors.Is(err, period.ErrInvalidRange),
		errors.Is(err, service.ErrEmptyAction):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, period.ErrCrossBoundary):
		return utils.Fail(c, fiber.StatusUnprocessableEntity, "the selected range crosses into an archived period", crossBoundaryDetails(err))
	case errors.Is(err, service.ErrArchivalInProgress):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, store.ErrStoreUnavailable):
		logger.Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusServiceUnavailable, "activity store unavailable")
	default:
		logger.Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}

func crossBoundaryDetails(err error) map[string]string {
	var crossErr *period.CrossBoundaryError
	if !errors.As(err, &crossErr) {
		return nil
	}
	return map[string]string{
		"reason": crossErr.Reason,
		"from":   crossErr.From.UTC().Format(time.RFC3339),
		"to":     crossErr.To.UTC().Format(time.RFC3339),
		"cutoff": crossErr.Cutoff.UTC().Format(time.RFC3339),
	}
}
