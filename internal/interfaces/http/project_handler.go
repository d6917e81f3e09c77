package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tu-usuario/certificacion-sii/internal/application/certification"
	"github.com/tu-usuario/certificacion-sii/internal/application/dto"
)

// ProjectHandler maneja los proyectos de certificación y la configuración
// del cliente (identidad tributaria + certificado digital).
type ProjectHandler struct {
	uc *certification.ProjectUseCase
}

// NewProjectHandler construye el handler de proyectos.
func NewProjectHandler(uc *certification.ProjectUseCase) *ProjectHandler {
	return &ProjectHandler{uc: uc}
}

// Create godoc
// @Summary      Crear proyecto de certificación
// @Tags         projects
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateProjectRequest  true  "nombre"
// @Success      201   {object}  dto.ProjectResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/projects [post]
func (h *ProjectHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateProjectRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	project, err := h.uc.Create(in.Name)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToProjectResponse(project))
}

// List godoc
// @Summary      Listar proyectos
// @Tags         projects
// @Produce      json
// @Success      200  {array}  dto.ProjectResponse
// @Router       /api/projects [get]
func (h *ProjectHandler) List(c *fiber.Ctx) error {
	projects, err := h.uc.List()
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.ProjectResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, dto.ToProjectResponse(p))
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener proyecto
// @Tags         projects
// @Produce      json
// @Param        id   path      string  true  "ID del proyecto"
// @Success      200  {object}  dto.ProjectResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/projects/{id} [get]
func (h *ProjectHandler) GetByID(c *fiber.Ctx) error {
	project, err := h.uc.GetByID(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ToProjectResponse(project))
}

// Rename godoc
// @Summary      Renombrar proyecto
// @Tags         projects
// @Accept       json
// @Produce      json
// @Param        id    path  string                    true  "ID del proyecto"
// @Param        body  body  dto.CreateProjectRequest  true  "nuevo nombre"
// @Success      200   {object}  dto.ProjectResponse
// @Router       /api/projects/{id} [put]
func (h *ProjectHandler) Rename(c *fiber.Ctx) error {
	var in dto.CreateProjectRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	project, err := h.uc.Rename(c.Params("id"), in.Name)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ToProjectResponse(project))
}

// Delete godoc
// @Summary      Eliminar proyecto
// @Tags         projects
// @Param        id  path  string  true  "ID del proyecto"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/projects/{id} [delete]
func (h *ProjectHandler) Delete(c *fiber.Ctx) error {
	if err := h.uc.Delete(c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Start godoc
// @Summary      Iniciar proyecto (draft → in_progress)
// @Tags         projects
// @Produce      json
// @Param        id   path      string  true  "ID del proyecto"
// @Success      200  {object}  dto.ProjectResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/projects/{id}/start [post]
func (h *ProjectHandler) Start(c *fiber.Ctx) error {
	project, err := h.uc.Start(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ToProjectResponse(project))
}

// Transition godoc
// @Summary      Mover el proyecto de estado
// @Tags         projects
// @Accept       json
// @Produce      json
// @Param        id    path  string                 true  "ID del proyecto"
// @Param        body  body  dto.TransitionRequest  true  "estado destino"
// @Success      200   {object}  dto.ProjectResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/projects/{id}/transition [post]
func (h *ProjectHandler) Transition(c *fiber.Ctx) error {
	var in dto.TransitionRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	project, err := h.uc.Transition(c.Params("id"), in.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ToProjectResponse(project))
}

// Stats godoc
// @Summary      Avance del proyecto
// @Tags         projects
// @Produce      json
// @Param        id   path      string  true  "ID del proyecto"
// @Success      200  {object}  dto.ProjectStatsResponse
// @Router       /api/projects/{id}/stats [get]
func (h *ProjectHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.uc.Stats(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ProjectStatsResponse{
		CasesByStatus:     stats.CasesByStatus,
		DocumentsByStatus: stats.DocumentsByStatus,
		EnvelopesTotal:    stats.EnvelopesTotal,
		BooksTotal:        stats.BooksTotal,
	})
}

// SetClientInfo godoc
// @Summary      Configurar la empresa certificada (identidad + certificado)
// @Tags         projects
// @Accept       json
// @Produce      json
// @Param        id    path  string                 true  "ID del proyecto"
// @Param        body  body  dto.ClientInfoRequest  true  "identidad tributaria"
// @Success      200   {object}  dto.ClientInfoResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/projects/{id}/client [put]
func (h *ProjectHandler) SetClientInfo(c *fiber.Ctx) error {
	var in dto.ClientInfoRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	info, err := h.uc.SetClientInfo(c.Params("id"), in.ToEntity())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ToClientInfoResponse(info))
}

// GetClientInfo godoc
// @Summary      Obtener la configuración del cliente
// @Tags         projects
// @Produce      json
// @Param        id   path      string  true  "ID del proyecto"
// @Success      200  {object}  dto.ClientInfoResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/projects/{id}/client [get]
func (h *ProjectHandler) GetClientInfo(c *fiber.Ctx) error {
	info, err := h.uc.GetClientInfo(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	if info == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "el proyecto no tiene cliente configurado"})
	}
	return c.JSON(dto.ToClientInfoResponse(info))
}
