package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tu-usuario/certificacion-sii/internal/application/certification"
	"github.com/tu-usuario/certificacion-sii/internal/application/dto"
)

// FolioHandler maneja los CAF y las asignaciones de folios.
type FolioHandler struct {
	uc *certification.FolioUseCase
}

// NewFolioHandler construye el handler de folios.
func NewFolioHandler(uc *certification.FolioUseCase) *FolioHandler {
	return &FolioHandler{uc: uc}
}

// Upload godoc
// @Summary      Cargar un archivo CAF
// @Tags         folios
// @Accept       json
// @Produce      json
// @Param        id    path  string                true  "ID del proyecto"
// @Param        body  body  dto.UploadCAFRequest  true  "archivo CAF en base64"
// @Success      201   {object}  dto.UploadCAFResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/projects/{id}/folios [post]
func (h *FolioHandler) Upload(c *fiber.Ctx) error {
	var in dto.UploadCAFRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if len(in.Content) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "content es requerido"})
	}
	assignment, warning, err := h.uc.UploadCAF(c.Params("id"), in.Filename, in.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.UploadCAFResponse{
		Assignment: dto.ToFolioAssignmentResponse(assignment),
		Warning:    warning,
	})
}

// ListByProject godoc
// @Summary      Listar asignaciones de folios de un proyecto
// @Tags         folios
// @Produce      json
// @Param        id   path  string  true  "ID del proyecto"
// @Success      200  {array}  dto.FolioAssignmentResponse
// @Router       /api/projects/{id}/folios [get]
func (h *FolioHandler) ListByProject(c *fiber.Ctx) error {
	assignments, err := h.uc.ListByProject(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.FolioAssignmentResponse, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, dto.ToFolioAssignmentResponse(a))
	}
	return c.JSON(out)
}

// Stats godoc
// @Summary      Uso de folios de una asignación
// @Tags         folios
// @Produce      json
// @Param        id   path      string  true  "ID de la asignación"
// @Success      200  {object}  dto.FolioStatsResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/folios/{id}/stats [get]
func (h *FolioHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.uc.Stats(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.FolioStatsResponse{
		FolioNext:       stats.FolioNext,
		FoliosTotal:     stats.FoliosTotal,
		FoliosUsed:      stats.FoliosUsed,
		FoliosAvailable: stats.FoliosAvailable,
		UsagePercentage: stats.UsagePercentage,
	})
}

// ValidateRange godoc
// @Summary      Validar que un rango de folios cabe en los CAF cargados
// @Tags         folios
// @Accept       json
// @Param        id    path  string                   true  "ID del proyecto"
// @Param        body  body  dto.ValidateRangeRequest true  "tipo y rango"
// @Success      204
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/projects/{id}/folios/validate-range [post]
func (h *FolioHandler) ValidateRange(c *fiber.Ctx) error {
	var in dto.ValidateRangeRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := h.uc.ValidateRange(c.Params("id"), in.DocumentTypeCode, in.FolioStart, in.FolioEnd); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Delete godoc
// @Summary      Eliminar una asignación sin folios consumidos
// @Tags         folios
// @Param        id  path  string  true  "ID de la asignación"
// @Success      204
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/folios/{id} [delete]
func (h *FolioHandler) Delete(c *fiber.Ctx) error {
	if err := h.uc.Delete(c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
