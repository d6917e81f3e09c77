package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tu-usuario/certificacion-sii/internal/application/certification"
	"github.com/tu-usuario/certificacion-sii/internal/application/dto"
)

// CaseHandler maneja los casos del set de pruebas.
type CaseHandler struct {
	uc *certification.CaseUseCase
}

// NewCaseHandler construye el handler de casos.
func NewCaseHandler(uc *certification.CaseUseCase) *CaseHandler {
	return &CaseHandler{uc: uc}
}

// Create godoc
// @Summary      Crear caso del set de pruebas
// @Tags         cases
// @Accept       json
// @Produce      json
// @Param        id    path  string           true  "ID del proyecto"
// @Param        body  body  dto.CaseRequest  true  "definición del caso"
// @Success      201   {object}  dto.CaseResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/projects/{id}/cases [post]
func (h *CaseHandler) Create(c *fiber.Ctx) error {
	var in dto.CaseRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	created, err := h.uc.Create(in.ToEntity(c.Params("id")))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToCaseResponse(created))
}

// ListByProject godoc
// @Summary      Listar casos de un proyecto
// @Tags         cases
// @Produce      json
// @Param        id   path  string  true  "ID del proyecto"
// @Success      200  {array}  dto.CaseResponse
// @Router       /api/projects/{id}/cases [get]
func (h *CaseHandler) ListByProject(c *fiber.Ctx) error {
	cases, err := h.uc.ListByProject(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.CaseResponse, 0, len(cases))
	for _, cs := range cases {
		out = append(out, dto.ToCaseResponse(cs))
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener caso
// @Tags         cases
// @Produce      json
// @Param        id   path      string  true  "ID del caso"
// @Success      200  {object}  dto.CaseResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/cases/{id} [get]
func (h *CaseHandler) GetByID(c *fiber.Ctx) error {
	cs, err := h.uc.GetByID(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ToCaseResponse(cs))
}

// Update godoc
// @Summary      Reemplazar la definición de un caso
// @Tags         cases
// @Accept       json
// @Produce      json
// @Param        id    path  string           true  "ID del caso"
// @Param        body  body  dto.CaseRequest  true  "definición del caso"
// @Success      200   {object}  dto.CaseResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/cases/{id} [put]
func (h *CaseHandler) Update(c *fiber.Ctx) error {
	var in dto.CaseRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	cs := in.ToEntity("")
	cs.ID = c.Params("id")
	updated, err := h.uc.Update(cs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ToCaseResponse(updated))
}

// MarkReady godoc
// @Summary      Marcar caso listo para generar
// @Tags         cases
// @Produce      json
// @Param        id   path      string  true  "ID del caso"
// @Success      200  {object}  dto.CaseResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/cases/{id}/ready [post]
func (h *CaseHandler) MarkReady(c *fiber.Ctx) error {
	cs, err := h.uc.MarkReady(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ToCaseResponse(cs))
}

// Delete godoc
// @Summary      Eliminar caso sin documento generado
// @Tags         cases
// @Param        id  path  string  true  "ID del caso"
// @Success      204
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/cases/{id} [delete]
func (h *CaseHandler) Delete(c *fiber.Ctx) error {
	if err := h.uc.Delete(c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
