package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mongo-activity/internal/dto"
	"github.com/noah-isme/mongo-activity/internal/middleware"
	"github.com/noah-isme/mongo-activity/internal/repository"
	"github.com/noah-isme/mongo-activity/internal/service"
	"github.com/noah-isme/mongo-activity/internal/utils"
)

// ActivityHandler exposes recording, search and period endpoints.
type ActivityHandler struct {
	service service.ActivityService
	logger  zerolog.Logger
}

// NewActivityHandler constructs the handler.
func NewActivityHandler(service service.ActivityService, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		service: service,
		logger:  logger.With().Str("component", "activity_handler").Logger(),
	}
}

// RouteGuards are the middleware chains placed in front of the activity routes.
type RouteGuards struct {
	Read  []fiber.Handler
	Write []fiber.Handler
}

// Register attaches the activity routes behind guards.
func (h *ActivityHandler) Register(router fiber.Router, guards RouteGuards) {
	router.Get("", chain(guards.Read, h.Search)...)
	router.Get("/periods", chain(guards.Read, h.Periods)...)
	router.Post("", chain(guards.Write, h.Record)...)
}

func chain(guards []fiber.Handler, final fiber.Handler) []fiber.Handler {
	handlers := make([]fiber.Handler, 0, len(guards)+1)
	handlers = append(handlers, guards...)
	return append(handlers, final)
}

// Record stores one activity. The caller's IP and user agent fill absent fields.
func (h *ActivityHandler) Record(c *fiber.Ctx) error {
	var payload dto.RecordActivityRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	if payload.UserID == 0 {
		if userID, ok := middleware.UserID(c); ok {
			payload.UserID = userID
		}
	}
	if payload.IP == nil {
		ip := c.IP()
		payload.IP = &ip
	}
	if payload.UserAgent == nil {
		if agent := strings.TrimSpace(c.Get(fiber.HeaderUserAgent)); agent != "" {
			payload.UserAgent = &agent
		}
	}

	response, err := h.service.Record(c.UserContext(), payload)
	if err != nil {
		return respondError(c, requestLogger(h.logger, c), err, "failed to record activity")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "activity recorded", response)
}

// Search runs a filtered, paginated search against the period the range resolves to.
func (h *ActivityHandler) Search(c *fiber.Ctx) error {
	req := dto.ActivitySearchRequest{
		Role:    strings.TrimSpace(c.Query("role")),
		Module:  strings.TrimSpace(c.Query("module")),
		Type:    strings.TrimSpace(c.Query("type")),
		Keyword: strings.TrimSpace(c.Query("keyword")),
		Sort:    string(repository.ParseSortOrder(c.Query("sort"))),
	}

	var err error
	if req.UserID, err = parseQueryInt64(c, "user_id"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user_id")
	}
	if scoped, ok := middleware.ScopedUserID(c); ok {
		if req.UserID != nil && *req.UserID != scoped {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		req.UserID = &scoped
	}
	if req.RefID, err = parseQueryInt64(c, "ref_id"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid ref_id")
	}
	if req.From, err = parseQueryTime(c, "from", false); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if req.To, err = parseQueryTime(c, "to", true); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if req.Page, err = parseQueryInt(c, "page"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	if req.PerPage, err = parseQueryInt(c, "per_page"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid per_page")
	}

	result, err := h.service.Search(c.UserContext(), req)
	if err != nil {
		return respondError(c, requestLogger(h.logger, c), err, "failed to search activities")
	}

	return utils.OK(c, result.Data, "activities", result.Meta)
}

// Periods lists the live window and the archive partitions of the last years_back years.
func (h *ActivityHandler) Periods(c *fiber.Ctx) error {
	yearsBack, err := parseQueryInt(c, "years_back")
	if err != nil || yearsBack < 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid years_back")
	}

	return utils.SendSuccess(c, "activity periods", h.service.Periods(c.UserContext(), yearsBack))
}

// FindByUser returns the newest activities of the user in the :id parameter.
func (h *ActivityHandler) FindByUser(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || userID < 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	limit, err := parseQueryInt(c, "limit")
	if err != nil || limit < 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}
	if limit > 200 {
		limit = 200
	}

	activities, err := h.service.FindByUser(c.UserContext(), userID, limit)
	if err != nil {
		return respondError(c, requestLogger(h.logger, c), err, "failed to load user activities")
	}

	return utils.SendSuccess(c, "user activities", activities)
}
