package backup

import (
	"errors"
	"fmt"
	"strconv"

	"guild-backup/core/logger"
	"guild-backup/core/reconcile"
	"guild-backup/core/snapshot"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"
)

// DefaultPreviewLimit is the character budget of a preview when the request
// does not name one. It matches the platform's embed field limit.
const DefaultPreviewLimit = 1024

// Handler handles HTTP requests for backups.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the backup routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/backups")
	group.Get("/", h.HandleList)
	group.Post("/", h.HandleCreate)
	group.Get("/:id", h.HandleInfo)
	group.Get("/:id/channels", h.HandleChannels)
	group.Get("/:id/roles", h.HandleRoles)
	group.Post("/:id/load", h.HandleLoad)
	group.Post("/:id/members", h.HandleExportMembers)
	group.Delete("/:id", h.HandleDelete)
}

// CreateRequest is the body of POST /backups.
type CreateRequest struct {
	GuildID   string `json:"guild_id"`
	CreatorID string `json:"creator_id"`
	// Chatlog is the number of messages captured per channel; 0 uses the default.
	Chatlog int `json:"chatlog"`
}

// LoadRequest is the body of POST /backups/{id}/load.
type LoadRequest struct {
	TargetGuildID string `json:"target_guild_id"`
	Requester     string `json:"requester"`
	// Hard clears the target before rebuilding it.
	Hard bool `json:"hard"`
	// Chatlog is the number of messages replayed per channel; nil uses the default.
	Chatlog  *int  `json:"chatlog"`
	Roles    *bool `json:"roles"`
	Channels *bool `json:"channels"`
	Bans     *bool `json:"bans"`
	// OverwriteMatch is "count" (default) or "content".
	OverwriteMatch string `json:"overwrite_match"`
}

func (r LoadRequest) options(defaults reconcile.Options) (reconcile.Options, error) {
	opts := defaults
	opts.ClearFirst = r.Hard
	opts.Requester = r.Requester
	if r.Chatlog != nil {
		opts.ChatlogDepth = *r.Chatlog
	}
	if r.Roles != nil {
		opts.Sections.Roles = *r.Roles
	}
	if r.Channels != nil {
		opts.Sections.Channels = *r.Channels
	}
	if r.Bans != nil {
		opts.Sections.Bans = *r.Bans
	}
	policy, err := reconcile.ParseMatchPolicy(r.OverwriteMatch)
	if err != nil {
		return opts, err
	}
	opts.OverwriteMatch = policy
	return opts, nil
}

// LoadResponse is the result of a load. Error is set when the run aborted.
type LoadResponse struct {
	Report *reconcile.Report `json:"report,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrTargetBusy):
		return fiber.StatusConflict
	case errors.Is(err, reconcile.ErrInvalidInput):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func (h *Handler) fail(c *fiber.Ctx, msg string, err error) error {
	status := statusFor(err)
	l := logger.WithRayID(h.service.logger, c)
	if status >= fiber.StatusInternalServerError {
		l.Error(msg, zap.Error(err))
	} else {
		l.Debug(msg, zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// backupID copies the id path parameter out of the pooled request buffer. The
// id outlives the request as a cache and singleflight key.
func backupID(c *fiber.Ctx) string {
	return utils.CopyString(c.Params("id"))
}

func previewLimit(c *fiber.Ctx) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return DefaultPreviewLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	if n < snapshot.MinFenceBudget {
		return 0, fmt.Errorf("limit must be at least %d", snapshot.MinFenceBudget)
	}
	return n, nil
}

// HandleList lists stored backups.
// @Summary List Backups
// @Description List stored backups, newest first, optionally for one guild.
// @Tags backups
// @Produce json
// @Param guild query string false "Guild ID"
// @Success 200 {array} Record "Backups"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Security ApiKeyAuth
// @Router /backups [get]
func (h *Handler) HandleList(c *fiber.Ctx) error {
	recs, err := h.service.List(c.Context(), c.Query("guild"))
	if err != nil {
		return h.fail(c, "Backup list failed", err)
	}
	return c.JSON(recs)
}

// HandleCreate captures a guild and stores the snapshot.
// @Summary Create Backup
// @Description Capture a guild's structure, members, bans and recent messages.
// @Tags backups
// @Accept json
// @Produce json
// @Param request body CreateRequest true "Backup request"
// @Success 201 {object} CreateResult "Created backup"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Security ApiKeyAuth
// @Router /backups [post]
func (h *Handler) HandleCreate(c *fiber.Ctx) error {
	var req CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.GuildID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "guild_id is required"})
	}

	res, err := h.service.Create(c.Context(), req.GuildID, req.CreatorID, req.Chatlog)
	if err != nil {
		return h.fail(c, "Backup creation failed", err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// HandleInfo returns a backup's record and summary.
// @Summary Get Backup
// @Description Get a backup's index record and summary indicators.
// @Tags backups
// @Produce json
// @Param id path string true "Backup ID"
// @Success 200 {object} Info "Backup"
// @Failure 404 {object} map[string]string "Not Found"
// @Security ApiKeyAuth
// @Router /backups/{id} [get]
func (h *Handler) HandleInfo(c *fiber.Ctx) error {
	info, err := h.service.Info(c.Context(), backupID(c))
	if err != nil {
		return h.fail(c, "Backup info failed", err)
	}
	return c.JSON(info)
}

// HandleChannels renders the channel tree of a backup.
// @Summary Channel Preview
// @Description Render the channel tree of a backup within a character budget.
// @Tags backups
// @Produce json
// @Param id path string true "Backup ID"
// @Param limit query int false "Character budget" default(1024)
// @Success 200 {object} map[string]string "Preview"
// @Failure 404 {object} map[string]string "Not Found"
// @Security ApiKeyAuth
// @Router /backups/{id}/channels [get]
func (h *Handler) HandleChannels(c *fiber.Ctx) error {
	limit, err := previewLimit(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	_, snap, err := h.service.Get(c.Context(), backupID(c))
	if err != nil {
		return h.fail(c, "Channel preview failed", err)
	}
	return c.JSON(fiber.Map{"preview": snap.ChannelTree(limit)})
}

// HandleRoles renders the role list of a backup.
// @Summary Role Preview
// @Description Render the role list of a backup, most senior first, within a character budget.
// @Tags backups
// @Produce json
// @Param id path string true "Backup ID"
// @Param limit query int false "Character budget" default(1024)
// @Success 200 {object} map[string]string "Preview"
// @Failure 404 {object} map[string]string "Not Found"
// @Security ApiKeyAuth
// @Router /backups/{id}/roles [get]
func (h *Handler) HandleRoles(c *fiber.Ctx) error {
	limit, err := previewLimit(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	_, snap, err := h.service.Get(c.Context(), backupID(c))
	if err != nil {
		return h.fail(c, "Role preview failed", err)
	}
	return c.JSON(fiber.Map{"preview": snap.RoleList(limit)})
}

// HandleLoad replays a backup into a guild.
// @Summary Load Backup
// @Description Replay a backup into a target guild. Partial failures are listed in the report.
// @Tags backups
// @Accept json
// @Produce json
// @Param id path string true "Backup ID"
// @Param request body LoadRequest true "Load request"
// @Success 200 {object} LoadResponse "Report"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 404 {object} map[string]string "Not Found"
// @Failure 409 {object} map[string]string "Target Busy"
// @Failure 500 {object} LoadResponse "Aborted run"
// @Security ApiKeyAuth
// @Router /backups/{id}/load [post]
func (h *Handler) HandleLoad(c *fiber.Ctx) error {
	var req LoadRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	opts, err := req.options(h.service.DefaultLoadOptions())
	if err != nil {
		return h.fail(c, "Invalid load request", err)
	}

	report, err := h.service.Load(c.Context(), backupID(c), req.TargetGuildID, opts)
	if err != nil && report == nil {
		return h.fail(c, "Backup load failed", err)
	}
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Backup load aborted", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(LoadResponse{Report: report, Error: err.Error()})
	}
	return c.JSON(LoadResponse{Report: report})
}

// HandleExportMembers writes the member list of a backup to storage.
// @Summary Export Members
// @Description Write the member list of a backup as text and return its object key.
// @Tags backups
// @Produce json
// @Param id path string true "Backup ID"
// @Success 200 {object} map[string]string "Object key"
// @Failure 404 {object} map[string]string "Not Found"
// @Security ApiKeyAuth
// @Router /backups/{id}/members [post]
func (h *Handler) HandleExportMembers(c *fiber.Ctx) error {
	key, err := h.service.ExportMembers(c.Context(), backupID(c))
	if err != nil {
		return h.fail(c, "Member export failed", err)
	}
	return c.JSON(fiber.Map{"object": key})
}

// HandleDelete deletes a backup.
// @Summary Delete Backup
// @Description Delete a backup document and its index row.
// @Tags backups
// @Param id path string true "Backup ID"
// @Success 204 "Deleted"
// @Failure 404 {object} map[string]string "Not Found"
// @Security ApiKeyAuth
// @Router /backups/{id} [delete]
func (h *Handler) HandleDelete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Context(), backupID(c)); err != nil {
		return h.fail(c, "Backup delete failed", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
