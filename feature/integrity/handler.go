package integrity

import (
	"guild-backup/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for integrity checks.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the integrity routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/integrity")
	group.Get("/", h.HandleIntegrityCheck)
	group.Get("/objects", h.HandleObjectCheck)
	group.Get("/schema", h.HandleSchemaCheck)
}

// HandleIntegrityCheck triggers all integrity checks.
// @Summary Run All Integrity Checks
// @Description Performs the object and schema checks and combines their reports.
// @Tags integrity
// @Produce json
// @Success 200 {object} map[string]interface{} "Combined Report"
// @Security ApiKeyAuth
// @Router /integrity [get]
func (h *Handler) HandleIntegrityCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	l.Info("Triggering all integrity checks")

	report := make(map[string]interface{})

	if objects, err := h.service.CheckObjects(c.Context()); err != nil {
		report["objects"] = map[string]interface{}{"status": "error", "error": err.Error()}
	} else {
		report["objects"] = objects
	}

	if schema, err := h.service.CheckSchema(); err != nil {
		report["schema"] = map[string]interface{}{"status": "error", "error": err.Error()}
	} else {
		report["schema"] = schema
	}

	return c.JSON(report)
}

// HandleObjectCheck checks the bucket against the index and optionally
// removes orphans.
// @Summary Check Objects
// @Description Lists indexed backups whose snapshot is missing and objects no backup owns. Optionally removes the orphans.
// @Tags integrity
// @Produce json
// @Param fix query boolean false "Remove orphan objects"
// @Success 200 {object} map[string]interface{} "Object Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Security ApiKeyAuth
// @Router /integrity/objects [get]
func (h *Handler) HandleObjectCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	fix := c.Query("fix") == "true"

	report, err := h.service.CheckObjects(c.Context())
	if err != nil {
		l.Error("Object check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if len(report.Missing) > 0 {
		l.Warn("Indexed backups without a snapshot", zap.Strings("missing", report.Missing))
	}
	if len(report.Orphans) > 0 {
		l.Warn("Orphan objects detected", zap.Strings("orphans", report.Orphans))

		if fix {
			l.Info("Attempting to remove orphan objects")
			if err := h.service.RemoveOrphans(c.Context(), report.Orphans); err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error":   "Failed to remove orphans",
					"details": err.Error(),
					"orphans": report.Orphans,
				})
			}
			return c.JSON(fiber.Map{
				"status":  "fixed",
				"removed": report.Orphans,
				"missing": report.Missing,
			})
		}
	}

	return c.JSON(fiber.Map{
		"status":  "checked",
		"checked": report.Checked,
		"missing": report.Missing,
		"orphans": report.Orphans,
	})
}

// HandleSchemaCheck checks the backups table schema.
// @Summary Check Schema
// @Description Checks that the backups table has every column the index model maps to.
// @Tags integrity
// @Produce json
// @Success 200 {object} checks.SchemaReport "Schema Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Security ApiKeyAuth
// @Router /integrity/schema [get]
func (h *Handler) HandleSchemaCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	report, err := h.service.CheckSchema()
	if err != nil {
		l.Error("Schema check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(report)
}
