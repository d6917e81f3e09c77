package http

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/tu-usuario/certificacion-sii/internal/application/certification"
	"github.com/tu-usuario/certificacion-sii/internal/application/dto"
)

// BookHandler maneja los libros de compras y ventas (IECV).
type BookHandler struct {
	uc *certification.BookUseCase
}

// NewBookHandler construye el handler de libros.
func NewBookHandler(uc *certification.BookUseCase) *BookHandler {
	return &BookHandler{uc: uc}
}

// Create godoc
// @Summary      Abrir un libro mensual de compras o ventas
// @Tags         books
// @Accept       json
// @Produce      json
// @Param        id    path  string                 true  "ID del proyecto"
// @Param        body  body  dto.CreateBookRequest  true  "período, tipo, folio"
// @Success      201   {object}  dto.BookResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/projects/{id}/books [post]
func (h *BookHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateBookRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	book, err := h.uc.Create(c.Params("id"), in.Period, in.OperationType, in.FolioNotificacion)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToBookResponse(book))
}

// ListByProject godoc
// @Summary      Listar libros de un proyecto
// @Tags         books
// @Produce      json
// @Param        id   path  string  true  "ID del proyecto"
// @Success      200  {array}  dto.BookResponse
// @Router       /api/projects/{id}/books [get]
func (h *BookHandler) ListByProject(c *fiber.Ctx) error {
	books, err := h.uc.ListByProject(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.BookResponse, 0, len(books))
	for _, b := range books {
		out = append(out, dto.ToBookResponse(b))
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener libro con sus líneas
// @Tags         books
// @Produce      json
// @Param        id   path      string  true  "ID del libro"
// @Success      200  {object}  dto.BookResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/books/{id} [get]
func (h *BookHandler) GetByID(c *fiber.Ctx) error {
	book, err := h.uc.GetByID(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ToBookResponse(book))
}

// PopulateSales godoc
// @Summary      Poblar un libro de ventas desde los documentos generados
// @Tags         books
// @Produce      json
// @Param        id   path      string  true  "ID del libro"
// @Success      200  {object}  dto.BookResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/books/{id}/populate [post]
func (h *BookHandler) PopulateSales(c *fiber.Ctx) error {
	book, err := h.uc.PopulateSales(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ToBookResponse(book))
}

// AddPurchaseLine godoc
// @Summary      Agregar una línea manual a un libro de compras
// @Tags         books
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true  "ID del libro"
// @Param        body  body  dto.PurchaseLineRequest  true  "línea de compra"
// @Success      201   {object}  dto.BookLineResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/books/{id}/lines [post]
func (h *BookHandler) AddPurchaseLine(c *fiber.Ctx) error {
	var in dto.PurchaseLineRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	line, err := h.uc.AddPurchaseLine(c.Params("id"), in.ToEntity())
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.BookLineResponse{
		ID:               line.ID,
		DocumentTypeCode: line.DocumentTypeCode,
		Folio:            line.Folio,
		DocumentDate:     line.DocumentDate,
		PartnerRUT:       line.PartnerRUT,
		PartnerName:      line.PartnerName,
		MntExento:        line.MntExento,
		MntNeto:          line.MntNeto,
		MntIVA:           line.MntIVA,
		MntTotal:         line.MntTotal,
		DocumentID:       line.DocumentID,
	})
}

// Generate godoc
// @Summary      Generar el XML EnvioLibro
// @Tags         books
// @Produce      json
// @Param        id   path      string  true  "ID del libro"
// @Success      200  {object}  dto.BookResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/books/{id}/generate [post]
func (h *BookHandler) Generate(c *fiber.Ctx) error {
	book, err := h.uc.Generate(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ToBookResponse(book))
}

// Sign godoc
// @Summary      Firmar el libro
// @Tags         books
// @Produce      json
// @Param        id   path      string  true  "ID del libro"
// @Success      200  {object}  dto.BookResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/books/{id}/sign [post]
func (h *BookHandler) Sign(c *fiber.Ctx) error {
	book, err := h.uc.Sign(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ToBookResponse(book))
}

// Validate godoc
// @Summary      Validar el libro contra el esquema EnvioLibro
// @Tags         books
// @Produce      json
// @Param        id   path      string  true  "ID del libro"
// @Success      200  {object}  dto.ValidationReportResponse
// @Router       /api/books/{id}/validate [post]
func (h *BookHandler) Validate(c *fiber.Ctx) error {
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
// @Summary      Enviar el libro firmado al SII
// @Tags         books
// @Produce      json
// @Param        id   path      string  true  "ID del libro"
// @Success      200  {object}  dto.BookResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/books/{id}/send [post]
func (h *BookHandler) Send(c *fiber.Ctx) error {
	book, err := h.uc.Send(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ToBookResponse(book))
}

// CheckStatus godoc
// @Summary      Consultar al SII el estado del libro enviado
// @Tags         books
// @Produce      json
// @Param        id   path      string  true  "ID del libro"
// @Success      200  {object}  dto.BookResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/books/{id}/status [post]
func (h *BookHandler) CheckStatus(c *fiber.Ctx) error {
	book, err := h.uc.CheckStatus(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ToBookResponse(book))
}

// BackToDraft godoc
// @Summary      Volver el libro a borrador
// @Tags         books
// @Produce      json
// @Param        id   path      string  true  "ID del libro"
// @Success      200  {object}  dto.BookResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/books/{id}/back-to-draft [post]
func (h *BookHandler) BackToDraft(c *fiber.Ctx) error {
	book, err := h.uc.BackToDraft(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ToBookResponse(book))
}

// Download godoc
// @Summary      Descargar el XML del libro (firmado si existe)
// @Tags         books
// @Produce      xml
// @Param        id  path  string  true  "ID del libro"
// @Success      200
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/books/{id}/xml [get]
func (h *BookHandler) Download(c *fiber.Ctx) error {
	book, err := h.uc.GetByID(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	content := book.BookXMLSigned
	if len(content) == 0 {
		content = book.BookXML
	}
	if len(content) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "el libro no tiene XML generado"})
	}
	kind := "LibroVentas"
	if strings.EqualFold(book.OperationType, "COMPRA") {
		kind = "LibroCompras"
	}
	return sendAttachment(c, fmt.Sprintf("%s_%s.xml", kind, book.Period), "application/xml", content)
}
