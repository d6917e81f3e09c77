package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/tu-usuario/certificacion-sii/internal/application/dto"
	"github.com/tu-usuario/certificacion-sii/internal/domain"
)

// domainErrorMapping un sentinel del dominio con su status y código HTTP.
type domainErrorMapping struct {
	sentinel error
	status   int
	code     string
}

// Los errores del dominio llegan envueltos con %w, por eso errors.Is.
var domainErrorMappings = []domainErrorMapping{
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrInvalidCertificate, fiber.StatusBadRequest, "INVALID_CERTIFICATE"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
	{domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE"},
	{domain.ErrConflict, fiber.StatusConflict, "CONFLICT"},
	{domain.ErrInvalidTransition, fiber.StatusConflict, "INVALID_TRANSITION"},
	{domain.ErrMissingClientConfig, fiber.StatusConflict, "MISSING_CLIENT_CONFIG"},
	{domain.ErrMissingCertificate, fiber.StatusConflict, "MISSING_CERTIFICATE"},
	{domain.ErrNoFolioAssignment, fiber.StatusConflict, "NO_FOLIO_ASSIGNMENT"},
	{domain.ErrFolioRangeExceeded, fiber.StatusConflict, "FOLIO_RANGE_EXCEEDED"},
	{domain.ErrSiiAuthFailed, fiber.StatusBadGateway, "SII_AUTH_FAILED"},
	{domain.ErrSiiUploadRejected, fiber.StatusBadGateway, "SII_UPLOAD_REJECTED"},
}

// respondError traduce un error del dominio a la respuesta HTTP. El mensaje
// envuelto se devuelve tal cual: trae el contexto del caso de uso.
func respondError(c *fiber.Ctx, err error) error {
	for _, m := range domainErrorMappings {
		if errors.Is(err, m.sentinel) {
			return c.Status(m.status).JSON(dto.ErrorResponse{Code: m.code, Message: err.Error()})
		}
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}

// badBody respuesta estándar ante un cuerpo JSON inválido.
func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
