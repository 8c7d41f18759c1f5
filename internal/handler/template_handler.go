package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/labreport-go-api/internal/dto"
	"github.com/noah-isme/labreport-go-api/internal/element"
	"github.com/noah-isme/labreport-go-api/internal/service"
	"github.com/noah-isme/labreport-go-api/internal/utils"
)

// TemplateHandler wires template HTTP routes.
type TemplateHandler struct {
	service service.TemplateService
	renders service.RenderService
	logger  zerolog.Logger
}

// NewTemplateHandler constructs the handler.
func NewTemplateHandler(templateService service.TemplateService, renderService service.RenderService, logger zerolog.Logger) *TemplateHandler {
	return &TemplateHandler{
		service: templateService,
		renders: renderService,
		logger:  logger.With().Str("component", "template_handler").Logger(),
	}
}

// Register attaches template endpoints to the router group.
func (h *TemplateHandler) Register(router fiber.Router, teacherOnly fiber.Handler) {
	if teacherOnly == nil {
		teacherOnly = func(c *fiber.Ctx) error { return c.Next() }
	}

	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Get("/:id/render", h.render)
	router.Post("", teacherOnly, h.create)
	router.Post("/import", teacherOnly, h.importDocx)
	router.Patch("/:id", teacherOnly, h.update)
	router.Put("/:id/elements", teacherOnly, h.updateElements)
	router.Delete("/:id/elements", teacherOnly, h.removeElements)
	router.Delete("/:id", teacherOnly, h.delete)
}

func (h *TemplateHandler) list(c *fiber.Ctx) error {
	courseID := strings.TrimSpace(c.Query("course_id"))
	if courseID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "course_id is required")
	}

	includeDrafts := parseQueryBool(c, "drafts") && userRoleFromContext(c) != "student"
	templates, err := h.service.ListByCourse(c.Context(), courseID, includeDrafts)
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "templates retrieved", templates)
}

func (h *TemplateHandler) get(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	template, err := h.service.Get(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "template retrieved", template)
}

// render returns the template preview as HTML, honoring the display
// mode query.
func (h *TemplateHandler) render(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	filter := element.ParseFilterMode(c.Query("mode"))
	html, err := h.renders.RenderTemplate(c.Context(), id, filter)
	if err != nil {
		return h.handleError(c, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(html)
}

// create accepts either a JSON element tree or a multipart .docx upload,
// matching the form the original template editor posts.
func (h *TemplateHandler) create(c *fiber.Ctx) error {
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return h.importDocx(c)
	}

	var payload dto.TemplateCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	template, err := h.service.Create(c.Context(), userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "template created", template)
}

// importDocx creates a template from an uploaded DOCX document. Metadata
// travels as form fields next to the file.
func (h *TemplateHandler) importDocx(c *fiber.Ctx) error {
	payload := dto.TemplateCreateRequest{
		CourseID: c.FormValue("course_id"),
		Name:     c.FormValue("name"),
		IsDraft:  c.FormValue("is_draft") == "true",
	}
	if maxScore := c.FormValue("max_score"); maxScore != "" {
		parsed, err := strconv.ParseFloat(maxScore, 64)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid max_score")
		}
		payload.MaxScore = parsed
	}

	file, err := c.FormFile("file")
	if err != nil {
		file = nil
	}

	template, err := h.service.Import(c.Context(), userIDFromContext(c), payload, file)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "template imported", template)
}

func (h *TemplateHandler) update(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.TemplateUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	template, err := h.service.Update(c.Context(), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	h.renders.InvalidateTemplate(c.Context(), id)
	return utils.SendSuccess(c, "template updated", template)
}

func (h *TemplateHandler) updateElements(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.TemplateElementsUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	template, err := h.service.UpdateElements(c.Context(), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	h.renders.InvalidateTemplate(c.Context(), id)
	return utils.SendSuccess(c, "template elements updated", template)
}

func (h *TemplateHandler) removeElements(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload struct {
		ElementIDs []uuid.UUID `json:"element_ids"`
	}
	if err := c.BodyParser(&payload); err != nil || len(payload.ElementIDs) == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "element_ids is required")
	}

	template, err := h.service.RemoveElements(c.Context(), id, payload.ElementIDs)
	if err != nil {
		return h.handleError(c, err)
	}

	h.renders.InvalidateTemplate(c.Context(), id)
	return utils.SendSuccess(c, "template elements removed", template)
}

func (h *TemplateHandler) delete(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.Context(), id); err != nil {
		return h.handleError(c, err)
	}

	h.renders.InvalidateTemplate(c.Context(), id)
	return utils.SendSuccess(c, "template deleted", fiber.Map{"id": id})
}

func (h *TemplateHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrTemplateNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "template not found")
	case errors.Is(err, service.ErrElementNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrElementTreeInvalid),
		errors.Is(err, service.ErrTemplateFileRequired),
		errors.Is(err, service.ErrTemplateUnsupportedType),
		errors.Is(err, service.ErrTemplateTooLarge):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		return h.internalError(c, err)
	}
}

func (h *TemplateHandler) internalError(c *fiber.Ctx, err error) error {
	requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
