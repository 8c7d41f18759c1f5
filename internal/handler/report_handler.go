package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/labreport-go-api/internal/dto"
	"github.com/noah-isme/labreport-go-api/internal/element"
	"github.com/noah-isme/labreport-go-api/internal/render"
	"github.com/noah-isme/labreport-go-api/internal/service"
	"github.com/noah-isme/labreport-go-api/internal/utils"
)

// ReportHandler wires report HTTP routes.
type ReportHandler struct {
	service service.ReportService
	renders service.RenderService
	hints   service.HintService
	logger  zerolog.Logger
}

// NewReportHandler constructs the handler.
func NewReportHandler(
	reportService service.ReportService,
	renderService service.RenderService,
	hintService service.HintService,
	logger zerolog.Logger,
) *ReportHandler {
	return &ReportHandler{
		service: reportService,
		renders: renderService,
		hints:   hintService,
		logger:  logger.With().Str("component", "report_handler").Logger(),
	}
}

// Register attaches report endpoints to the router group. The hint route
// is registered separately so rate limiting can wrap just that endpoint.
func (h *ReportHandler) Register(router fiber.Router, graderOnly, hintLimiter fiber.Handler) {
	if graderOnly == nil {
		graderOnly = func(c *fiber.Ctx) error { return c.Next() }
	}

	router.Get("/:id", h.get)
	router.Get("/:id/render", h.render)
	router.Patch("/:id", h.save)
	router.Post("/:id/submit", h.submit)
	router.Delete("/:id/submit", h.unsubmit)
	router.Patch("/:id/grade", graderOnly, h.grade)
	if hintLimiter != nil {
		router.Post("/:id/hint", hintLimiter, h.hint)
	} else {
		router.Post("/:id/hint", h.hint)
	}
}

// RegisterTemplateScoped attaches the routes that live under the template
// collection: the grading roster and report creation.
func (h *ReportHandler) RegisterTemplateScoped(router fiber.Router) {
	router.Get("/:id/reports", h.list)
	router.Post("/:id/reports", h.create)
}

func (h *ReportHandler) list(c *fiber.Ctx) error {
	templateID, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	reports, err := h.service.ListByTemplate(c.Context(), templateID)
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "reports retrieved", reports)
}

func (h *ReportHandler) get(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	report, err := h.service.Get(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "report retrieved", report)
}

// render returns the report as HTML. The mode query selects the display
// mode, the view query selects the role perspective; graders asking for
// the grade view must carry a grading role.
func (h *ReportHandler) render(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	filter := element.ParseFilterMode(c.Query("mode"))
	view := render.ParseViewMode(c.Query("view"))
	if view == render.ViewGrader {
		role := userRoleFromContext(c)
		if role != "teacher" && role != "assistant" {
			return utils.SendError(c, fiber.StatusForbidden, "grading view requires a grading role")
		}
	}

	html, err := h.renders.RenderReport(c.Context(), id, filter, view)
	if err != nil {
		return h.handleError(c, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(html)
}

func (h *ReportHandler) create(c *fiber.Ctx) error {
	templateID, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	payload := dto.ReportCreateRequest{TemplateID: templateID.String()}
	report, err := h.service.Create(c.Context(), userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "report created", report)
}

func (h *ReportHandler) save(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ReportSaveRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	report, err := h.service.Save(c.Context(), id, userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "report saved", report)
}

func (h *ReportHandler) submit(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	report, err := h.service.Submit(c.Context(), id, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "report submitted", report)
}

func (h *ReportHandler) unsubmit(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	report, err := h.service.Unsubmit(c.Context(), id, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "report reopened", report)
}

func (h *ReportHandler) grade(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ReportGradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	report, err := h.service.Grade(c.Context(), id, userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "report graded", report)
}

func (h *ReportHandler) hint(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.HintRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	hint, err := h.hints.Generate(c.Context(), id, userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "hint generated", hint)
}

func (h *ReportHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrReportNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "report not found")
	case errors.Is(err, service.ErrTemplateNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "template not found")
	case errors.Is(err, service.ErrQuestionNotFound),
		errors.Is(err, service.ErrAnswerNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrReportForbidden):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrReportNotEditable),
		errors.Is(err, service.ErrReportNotGradable):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrHintSuperseded):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrHintsDisabled):
		return utils.SendError(c, fiber.StatusServiceUnavailable, err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		return h.internalError(c, err)
	}
}

func (h *ReportHandler) internalError(c *fiber.Ctx, err error) error {
	requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
