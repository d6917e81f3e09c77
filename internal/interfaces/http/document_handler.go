package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/tu-usuario/certificacion-sii/internal/application/certification"
	"github.com/tu-usuario/certificacion-sii/internal/application/dto"
)

// DocumentHandler maneja el pipeline de documentos: generación, validación,
// firma, vuelta a borrador y descarga de artefactos.
type DocumentHandler struct {
	uc *certification.DocumentUseCase
}

// NewDocumentHandler construye el handler de documentos.
func NewDocumentHandler(uc *certification.DocumentUseCase) *DocumentHandler {
	return &DocumentHandler{uc: uc}
}

// Generate godoc
// @Summary      Generar el documento de un caso (consume folio, arma DTE y timbra)
// @Tags         documents
// @Produce      json
// @Param        id   path      string  true  "ID del caso"
// @Success      201  {object}  dto.DocumentResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/cases/{id}/document [post]
func (h *DocumentHandler) Generate(c *fiber.Ctx) error {
	doc, err := h.uc.Generate(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToDocumentResponse(doc))
}

// GenerateAll godoc
// @Summary      Generar los documentos de todos los casos pendientes
// @Tags         documents
// @Produce      json
// @Param        id   path      string  true  "ID del proyecto"
// @Success      200  {object}  dto.BulkGenerateResponse
// @Router       /api/projects/{id}/documents/generate [post]
func (h *DocumentHandler) GenerateAll(c *fiber.Ctx) error {
	result, err := h.uc.GenerateAll(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.BulkGenerateResponse{Generated: result.Generated, Errors: result.Errors})
}

// ListByProject godoc
// @Summary      Listar documentos de un proyecto
// @Tags         documents
// @Produce      json
// @Param        id   path  string  true  "ID del proyecto"
// @Success      200  {array}  dto.DocumentResponse
// @Router       /api/projects/{id}/documents [get]
func (h *DocumentHandler) ListByProject(c *fiber.Ctx) error {
	docs, err := h.uc.ListByProject(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, dto.ToDocumentResponse(d))
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener documento
// @Tags         documents
// @Produce      json
// @Param        id   path      string  true  "ID del documento"
// @Success      200  {object}  dto.DocumentResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/documents/{id} [get]
func (h *DocumentHandler) GetByID(c *fiber.Ctx) error {
	doc, err := h.uc.GetByID(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ToDocumentResponse(doc))
}

// Validate godoc
// @Summary      Validar documento (esquema + reglas de negocio)
// @Tags         documents
// @Produce      json
// @Param        id   path      string  true  "ID del documento"
// @Success      200  {object}  dto.ValidationReportResponse
// @Router       /api/documents/{id}/validate [post]
func (h *DocumentHandler) Validate(c *fiber.Ctx) error {
	report, err := h.uc.Validate(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ValidationReportResponse{
		Valid:    report.Valid,
		Messages: report.Messages,
		Warnings: report.Warnings,
	})
}

// Sign godoc
// @Summary      Firmar documento validado
// @Tags         documents
// @Produce      json
// @Param        id   path      string  true  "ID del documento"
// @Success      200  {object}  dto.DocumentResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/sign [post]
func (h *DocumentHandler) Sign(c *fiber.Ctx) error {
	doc, err := h.uc.Sign(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ToDocumentResponse(doc))
}

// SignAll godoc
// @Summary      Firmar todos los documentos validados del proyecto
// @Tags         documents
// @Produce      json
// @Param        id   path      string  true  "ID del proyecto"
// @Success      200  {object}  dto.BulkGenerateResponse
// @Router       /api/projects/{id}/documents/sign [post]
func (h *DocumentHandler) SignAll(c *fiber.Ctx) error {
	result, err := h.uc.SignAll(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.BulkGenerateResponse{Generated: result.Generated, Errors: result.Errors})
}

// BackToDraft godoc
// @Summary      Volver el documento a borrador (descarta artefactos, conserva folio)
// @Tags         documents
// @Produce      json
// @Param        id   path      string  true  "ID del documento"
// @Success      200  {object}  dto.DocumentResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/back-to-draft [post]
func (h *DocumentHandler) BackToDraft(c *fiber.Ctx) error {
	doc, err := h.uc.BackToDraft(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ToDocumentResponse(doc))
}

// DownloadXML godoc
// @Summary      Descargar el XML del DTE (sin firmar, con TED)
// @Tags         documents
// @Produce      xml
// @Param        id  path  string  true  "ID del documento"
// @Success      200
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/xml [get]
func (h *DocumentHandler) DownloadXML(c *fiber.Ctx) error {
	doc, err := h.uc.GetByID(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	if len(doc.XMLDTE) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "el documento no tiene XML generado"})
	}
	return sendAttachment(c, fmt.Sprintf("F%dT%s.xml", doc.Folio, doc.DocumentTypeCode), "application/xml", doc.XMLDTE)
}

// DownloadSigned godoc
// @Summary      Descargar el XML firmado del DTE
// @Tags         documents
// @Produce      xml
// @Param        id  path  string  true  "ID del documento"
// @Success      200
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/signed [get]
func (h *DocumentHandler) DownloadSigned(c *fiber.Ctx) error {
	doc, err := h.uc.GetByID(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	if len(doc.XMLSigned) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "el documento no está firmado"})
	}
	return sendAttachment(c, fmt.Sprintf("F%dT%s_firmado.xml", doc.Folio, doc.DocumentTypeCode), "application/xml", doc.XMLSigned)
}

// DownloadBarcode godoc
// @Summary      Descargar el código de barras PDF417 del timbre
// @Tags         documents
// @Produce      png
// @Param        id  path  string  true  "ID del documento"
// @Success      200
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/barcode [get]
func (h *DocumentHandler) DownloadBarcode(c *fiber.Ctx) error {
	doc, err := h.uc.GetByID(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	if len(doc.Barcode) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "el documento no tiene timbre generado"})
	}
	return sendAttachment(c, fmt.Sprintf("F%dT%s.png", doc.Folio, doc.DocumentTypeCode), "image/png", doc.Barcode)
}

// DownloadPDF godoc
// @Summary      Descargar la representación impresa del DTE
// @Tags         documents
// @Produce      application/pdf
// @Param        id  path  string  true  "ID del documento"
// @Success      200
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/pdf [get]
func (h *DocumentHandler) DownloadPDF(c *fiber.Ctx) error {
	doc, err := h.uc.GetByID(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	pdfBytes, err := h.uc.RenderPDF(doc.ID)
	if err != nil {
		return respondError(c, err)
	}
	return sendAttachment(c, fmt.Sprintf("F%dT%s.pdf", doc.Folio, doc.DocumentTypeCode), "application/pdf", pdfBytes)
}

// sendAttachment responde un archivo binario con nombre de descarga.
func sendAttachment(c *fiber.Ctx, filename, contentType string, data []byte) error {
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, filename))
	return c.Send(data)
}
