package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tu-usuario/certificacion-sii/internal/application/certification"
	"github.com/tu-usuario/certificacion-sii/internal/application/dto"
)

// SimulationHandler maneja las simulaciones: generación de documentos
// inventados, sobre de envío y seguimiento contra el SII.
type SimulationHandler struct {
	uc *certification.SimulationUseCase
}

// NewSimulationHandler construye el handler de simulaciones.
func NewSimulationHandler(uc *certification.SimulationUseCase) *SimulationHandler {
	return &SimulationHandler{uc: uc}
}

// Create godoc
// @Summary      Crear una simulación
// @Tags         simulations
// @Accept       json
// @Produce      json
// @Param        id    path  string                       true  "ID del proyecto"
// @Param        body  body  dto.CreateSimulationRequest  true  "configuración de la simulación"
// @Success      201   {object}  dto.SimulationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/projects/{id}/simulations [post]
func (h *SimulationHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateSimulationRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	sim, err := h.uc.Create(c.Params("id"), certification.SimulationInput{
		Name:                 in.Name,
		DateFrom:             in.DateFrom,
		DateTo:               in.DateTo,
		TotalDocuments:       in.TotalDocuments,
		NumInvoices:          in.NumInvoices,
		NumCreditNotes:       in.NumCreditNotes,
		NumDebitNotes:        in.NumDebitNotes,
		StartFolioInvoice:    in.StartFolioInvoice,
		StartFolioCreditNote: in.StartFolioCreditNote,
		StartFolioDebitNote:  in.StartFolioDebitNote,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToSimulationResponse(sim))
}

// ListByProject godoc
// @Summary      Listar simulaciones de un proyecto
// @Tags         simulations
// @Produce      json
// @Param        id   path  string  true  "ID del proyecto"
// @Success      200  {array}  dto.SimulationResponse
// @Router       /api/projects/{id}/simulations [get]
func (h *SimulationHandler) ListByProject(c *fiber.Ctx) error {
	sims, err := h.uc.ListByProject(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.SimulationResponse, 0, len(sims))
	for _, s := range sims {
		out = append(out, dto.ToSimulationResponse(s))
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener simulación
// @Tags         simulations
// @Produce      json
// @Param        id   path      string  true  "ID de la simulación"
// @Success      200  {object}  dto.SimulationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/simulations/{id} [get]
func (h *SimulationHandler) GetByID(c *fiber.Ctx) error {
	sim, err := h.uc.GetByID(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ToSimulationResponse(sim))
}

// Generate godoc
// @Summary      Generar, timbrar y firmar los documentos de la simulación
// @Tags         simulations
// @Produce      json
// @Param        id   path      string  true  "ID de la simulación"
// @Success      200  {object}  dto.SimulationResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/simulations/{id}/generate [post]
func (h *SimulationHandler) Generate(c *fiber.Ctx) error {
	sim, err := h.uc.GenerateDocuments(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ToSimulationResponse(sim))
}

// Documents godoc
// @Summary      Listar los documentos generados por la simulación
// @Tags         simulations
// @Produce      json
// @Param        id   path  string  true  "ID de la simulación"
// @Success      200  {array}  dto.DocumentResponse
// @Router       /api/simulations/{id}/documents [get]
func (h *SimulationHandler) Documents(c *fiber.Ctx) error {
	docs, err := h.uc.Documents(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, dto.ToDocumentResponse(doc))
	}
	return c.JSON(out)
}

// CreateEnvelope godoc
// @Summary      Armar y firmar el sobre con los documentos de la simulación
// @Tags         simulations
// @Produce      json
// @Param        id   path      string  true  "ID de la simulación"
// @Success      200  {object}  dto.SimulationResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/simulations/{id}/envelope [post]
func (h *SimulationHandler) CreateEnvelope(c *fiber.Ctx) error {
	sim, err := h.uc.CreateEnvelope(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ToSimulationResponse(sim))
}

// Send godoc
// @Summary      Enviar el sobre de la simulación al SII
// @Tags         simulations
// @Produce      json
// @Param        id   path      string  true  "ID de la simulación"
// @Success      200  {object}  dto.SimulationResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/simulations/{id}/send [post]
func (h *SimulationHandler) Send(c *fiber.Ctx) error {
	sim, err := h.uc.Send(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ToSimulationResponse(sim))
}

// CheckStatus godoc
// @Summary      Consultar al SII el estado del envío de la simulación
// @Tags         simulations
// @Produce      json
// @Param        id   path      string  true  "ID de la simulación"
// @Success      200  {object}  dto.SimulationResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/simulations/{id}/status [post]
func (h *SimulationHandler) CheckStatus(c *fiber.Ctx) error {
	sim, err := h.uc.CheckStatus(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ToSimulationResponse(sim))
}

// BackToDraft godoc
// @Summary      Volver la simulación a borrador (borra sobre y documentos)
// @Tags         simulations
// @Produce      json
// @Param        id   path      string  true  "ID de la simulación"
// @Success      200  {object}  dto.SimulationResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/simulations/{id}/back-to-draft [post]
func (h *SimulationHandler) BackToDraft(c *fiber.Ctx) error {
	sim, err := h.uc.BackToDraft(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ToSimulationResponse(sim))
}
