package http

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/tu-usuario/certificacion-sii/internal/application/certification"
	"github.com/tu-usuario/certificacion-sii/internal/application/dto"
)

// EnvelopeHandler maneja los sobres EnvioDTE: armado, firma, envío al SII y
// seguimiento del track id.
type EnvelopeHandler struct {
	uc *certification.EnvelopeUseCase
}

// NewEnvelopeHandler construye el handler de sobres.
func NewEnvelopeHandler(uc *certification.EnvelopeUseCase) *EnvelopeHandler {
	return &EnvelopeHandler{uc: uc}
}

// Create godoc
// @Summary      Armar un sobre con documentos firmados
// @Tags         envelopes
// @Accept       json
// @Produce      json
// @Param        id    path  string                     true  "ID del proyecto"
// @Param        body  body  dto.CreateEnvelopeRequest  true  "nombre y documentos"
// @Success      201   {object}  dto.EnvelopeResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/projects/{id}/envelopes [post]
func (h *EnvelopeHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateEnvelopeRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if len(in.DocumentIDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "document_ids es requerido"})
	}
	envelope, err := h.uc.Create(c.Params("id"), in.Name, in.DocumentIDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToEnvelopeResponse(envelope))
}

// ListByProject godoc
// @Summary      Listar sobres de un proyecto
// @Tags         envelopes
// @Produce      json
// @Param        id   path  string  true  "ID del proyecto"
// @Success      200  {array}  dto.EnvelopeResponse
// @Router       /api/projects/{id}/envelopes [get]
func (h *EnvelopeHandler) ListByProject(c *fiber.Ctx) error {
	envelopes, err := h.uc.ListByProject(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.EnvelopeResponse, 0, len(envelopes))
	for _, e := range envelopes {
		out = append(out, dto.ToEnvelopeResponse(e))
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener sobre
// @Tags         envelopes
// @Produce      json
// @Param        id   path      string  true  "ID del sobre"
// @Success      200  {object}  dto.EnvelopeResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/envelopes/{id} [get]
func (h *EnvelopeHandler) GetByID(c *fiber.Ctx) error {
	envelope, err := h.uc.GetByID(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ToEnvelopeResponse(envelope))
}

// Sign godoc
// @Summary      Firmar el sobre
// @Tags         envelopes
// @Produce      json
// @Param        id   path      string  true  "ID del sobre"
// @Success      200  {object}  dto.EnvelopeResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/envelopes/{id}/sign [post]
func (h *EnvelopeHandler) Sign(c *fiber.Ctx) error {
	envelope, err := h.uc.Sign(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ToEnvelopeResponse(envelope))
}

// Validate godoc
// @Summary      Validar el sobre contra el esquema EnvioDTE
// @Tags         envelopes
// @Produce      json
// @Param        id   path      string  true  "ID del sobre"
// @Success      200  {object}  dto.ValidationReportResponse
// @Router       /api/envelopes/{id}/validate [post]
func (h *EnvelopeHandler) Validate(c *fiber.Ctx) error {
	result, err := h.uc.Validate(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ValidationReportResponse{
		Valid:    result.OK(),
		Messages: result.Errors,
		Warnings: result.Warnings,
	})
}

// Send godoc
// @Summary      Enviar el sobre firmado al SII
// @Tags         envelopes
// @Produce      json
// @Param        id   path      string  true  "ID del sobre"
// @Success      200  {object}  dto.EnvelopeResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/envelopes/{id}/send [post]
func (h *EnvelopeHandler) Send(c *fiber.Ctx) error {
	envelope, err := h.uc.Send(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ToEnvelopeResponse(envelope))
}

// CheckStatus godoc
// @Summary      Consultar al SII el estado del envío
// @Tags         envelopes
// @Produce      json
// @Param        id   path      string  true  "ID del sobre"
// @Success      200  {object}  dto.EnvelopeResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/envelopes/{id}/status [post]
func (h *EnvelopeHandler) CheckStatus(c *fiber.Ctx) error {
	envelope, err := h.uc.CheckStatus(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ToEnvelopeResponse(envelope))
}

// BackToDraft godoc
// @Summary      Volver el sobre a borrador
// @Tags         envelopes
// @Produce      json
// @Param        id   path      string  true  "ID del sobre"
// @Success      200  {object}  dto.EnvelopeResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/envelopes/{id}/back-to-draft [post]
func (h *EnvelopeHandler) BackToDraft(c *fiber.Ctx) error {
	envelope, err := h.uc.BackToDraft(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ToEnvelopeResponse(envelope))
}

// Responses godoc
// @Summary      Historial de interacciones con el SII para un sobre
// @Tags         envelopes
// @Produce      json
// @Param        id   path  string  true  "ID del sobre"
// @Success      200  {array}  dto.SiiResponseEntry
// @Router       /api/envelopes/{id}/responses [get]
func (h *EnvelopeHandler) Responses(c *fiber.Ctx) error {
	responses, err := h.uc.Responses(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.SiiResponseEntry, 0, len(responses))
	for _, r := range responses {
		out = append(out, dto.ToSiiResponseEntry(r))
	}
	return c.JSON(out)
}

// Download godoc
// @Summary      Descargar el XML del sobre (firmado si existe)
// @Tags         envelopes
// @Produce      xml
// @Param        id  path  string  true  "ID del sobre"
// @Success      200
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/envelopes/{id}/xml [get]
func (h *EnvelopeHandler) Download(c *fiber.Ctx) error {
	envelope, err := h.uc.GetByID(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	content := envelope.EnvelopeXMLSigned
	if len(content) == 0 {
		content = envelope.EnvelopeXML
	}
	if len(content) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "el sobre no tiene XML generado"})
	}
	return sendAttachment(c, fmt.Sprintf("EnvioDTE_%s.xml", sanitizeFilename(envelope.Name)), "application/xml", content)
}

// sanitizeFilename reemplaza todo lo que no sea alfanumérico, guión o
// guión bajo para nombres de archivo seguros.
func sanitizeFilename(name string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	return clean
}
