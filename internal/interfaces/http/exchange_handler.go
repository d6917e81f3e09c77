package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tu-usuario/certificacion-sii/internal/application/certification"
	"github.com/tu-usuario/certificacion-sii/internal/application/dto"
)

// ExchangeHandler maneja el intercambio con otros contribuyentes: recibe un
// sobre ajeno y produce las tres respuestas firmadas.
type ExchangeHandler struct {
	uc *certification.ExchangeUseCase
}

// NewExchangeHandler construye el handler de intercambio.
func NewExchangeHandler(uc *certification.ExchangeUseCase) *ExchangeHandler {
	return &ExchangeHandler{uc: uc}
}

// Respond godoc
// @Summary      Responder un sobre recibido (acuse, recibos y resultado)
// @Tags         exchange
// @Accept       json
// @Produce      json
// @Param        id    path  string               true  "ID del proyecto"
// @Param        body  body  dto.ExchangeRequest  true  "sobre recibido en base64"
// @Success      200   {object}  dto.ExchangeResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/projects/{id}/exchange [post]
func (h *ExchangeHandler) Respond(c *fiber.Ctx) error {
	var in dto.ExchangeRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if len(in.ReceivedEnvelope) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "received_envelope es requerido"})
	}
	responses, err := h.uc.Respond(c.Params("id"), in.ReceivedEnvelope, in.IdRespuesta, in.Recinto)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ExchangeResponse{
		Reception: responses.Reception,
		Receipts:  responses.Receipts,
		Result:    responses.Result,
	})
}
