package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mongo-activity/internal/dto"
	"github.com/noah-isme/mongo-activity/internal/service"
	"github.com/noah-isme/mongo-activity/internal/utils"
)

// AdminArchiveHandler exposes maintenance endpoints for archival and indexing.
type AdminArchiveHandler struct {
	archive service.ArchiveService
	indexes service.IndexService
	logger  zerolog.Logger
}

// NewAdminArchiveHandler constructs the handler.
func NewAdminArchiveHandler(archive service.ArchiveService, indexes service.IndexService, logger zerolog.Logger) *AdminArchiveHandler {
	return &AdminArchiveHandler{
		archive: archive,
		indexes: indexes,
		logger:  logger.With().Str("component", "admin_archive_handler").Logger(),
	}
}

// Register attaches the admin routes to the router group.
func (h *AdminArchiveHandler) Register(router fiber.Router) {
	router.Post("/archival", h.runArchival)
	router.Post("/indexes", h.ensureIndexes)
}

func (h *AdminArchiveHandler) runArchival(c *fiber.Ctx) error {
	logger := requestLogger(h.logger, c)

	report, err := h.archive.Run(c.UserContext())
	var partial *service.PartialArchivalError
	if errors.As(err, &partial) {
		logger.Error().Err(err).Str("run_id", report.RunID).Msg("archival incomplete")
		return utils.Fail(c, fiber.StatusInternalServerError, err.Error(), report)
	}
	if err != nil {
		return respondError(c, logger, err, "archival failed")
	}

	return utils.SendSuccess(c, "archival completed", report)
}

func (h *AdminArchiveHandler) ensureIndexes(c *fiber.Ctx) error {
	logger := requestLogger(h.logger, c)

	yearsBack, err := parseQueryInt(c, "years_back")
	if err != nil || yearsBack < 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid years_back")
	}

	created, err := h.indexes.EnsureActive(c.UserContext())
	if err != nil {
		return respondError(c, logger, err, "failed to ensure live indexes")
	}

	report := dto.IndexReport{Created: map[string][]string{"active": created}}
	if c.QueryBool("archives") {
		archives, err := h.indexes.EnsureArchives(c.UserContext(), yearsBack)
		if err != nil {
			return respondError(c, logger, err, "failed to ensure archive indexes")
		}
		for name, names := range archives {
			report.Created[name] = names
		}
	}

	return utils.SendSuccess(c, "indexes ensured", report)
}
