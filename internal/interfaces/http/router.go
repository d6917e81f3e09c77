package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tu-usuario/certificacion-sii/internal/application/auth"
	"github.com/tu-usuario/certificacion-sii/internal/application/certification"
	"github.com/tu-usuario/certificacion-sii/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC       *auth.AuthUseCase
	ProjectUC    *certification.ProjectUseCase
	CaseUC       *certification.CaseUseCase
	FolioUC      *certification.FolioUseCase
	DocumentUC   *certification.DocumentUseCase
	EnvelopeUC   *certification.EnvelopeUseCase
	BookUC       *certification.BookUseCase
	ExchangeUC   *certification.ExchangeUseCase
	SimulationUC *certification.SimulationUseCase
	JWTSecret    string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Projects
	projectHandler := NewProjectHandler(deps.ProjectUC)
	projects := protected.Group("/projects")
	projects.Post("/", projectHandler.Create)
	projects.Get("/", projectHandler.List)
	projects.Get("/:id", projectHandler.GetByID)
	projects.Put("/:id", projectHandler.Rename)
	projects.Delete("/:id", RequireRole(entity.RoleAdmin), projectHandler.Delete)
	projects.Post("/:id/start", projectHandler.Start)
	projects.Post("/:id/transition", projectHandler.Transition)
	projects.Get("/:id/stats", projectHandler.Stats)
	projects.Put("/:id/client", projectHandler.SetClientInfo)
	projects.Get("/:id/client", projectHandler.GetClientInfo)

	// Folios (CAF)
	folioHandler := NewFolioHandler(deps.FolioUC)
	projects.Post("/:id/folios", folioHandler.Upload)
	projects.Get("/:id/folios", folioHandler.ListByProject)
	projects.Post("/:id/folios/validate-range", folioHandler.ValidateRange)
	folios := protected.Group("/folios")
	folios.Get("/:id/stats", folioHandler.Stats)
	folios.Delete("/:id", RequireRole(entity.RoleAdmin), folioHandler.Delete)

	// Cases
	caseHandler := NewCaseHandler(deps.CaseUC)
	projects.Post("/:id/cases", caseHandler.Create)
	projects.Get("/:id/cases", caseHandler.ListByProject)
	cases := protected.Group("/cases")
	cases.Get("/:id", caseHandler.GetByID)
	cases.Put("/:id", caseHandler.Update)
	cases.Post("/:id/ready", caseHandler.MarkReady)
	cases.Delete("/:id", caseHandler.Delete)

	// Documents
	documentHandler := NewDocumentHandler(deps.DocumentUC)
	cases.Post("/:id/document", documentHandler.Generate)
	projects.Post("/:id/documents/generate", documentHandler.GenerateAll)
	projects.Post("/:id/documents/sign", documentHandler.SignAll)
	projects.Get("/:id/documents", documentHandler.ListByProject)
	documents := protected.Group("/documents")
	documents.Get("/:id", documentHandler.GetByID)
	documents.Post("/:id/validate", documentHandler.Validate)
	documents.Post("/:id/sign", documentHandler.Sign)
	documents.Post("/:id/back-to-draft", documentHandler.BackToDraft)
	documents.Get("/:id/xml", documentHandler.DownloadXML)
	documents.Get("/:id/signed", documentHandler.DownloadSigned)
	documents.Get("/:id/barcode", documentHandler.DownloadBarcode)
	documents.Get("/:id/pdf", documentHandler.DownloadPDF)

	// Envelopes
	envelopeHandler := NewEnvelopeHandler(deps.EnvelopeUC)
	projects.Post("/:id/envelopes", envelopeHandler.Create)
	projects.Get("/:id/envelopes", envelopeHandler.ListByProject)
	envelopes := protected.Group("/envelopes")
	envelopes.Get("/:id", envelopeHandler.GetByID)
	envelopes.Post("/:id/sign", envelopeHandler.Sign)
	envelopes.Post("/:id/validate", envelopeHandler.Validate)
	envelopes.Post("/:id/send", envelopeHandler.Send)
	envelopes.Post("/:id/status", envelopeHandler.CheckStatus)
	envelopes.Post("/:id/back-to-draft", envelopeHandler.BackToDraft)
	envelopes.Get("/:id/responses", envelopeHandler.Responses)
	envelopes.Get("/:id/xml", envelopeHandler.Download)

	// Books (IECV)
	bookHandler := NewBookHandler(deps.BookUC)
	projects.Post("/:id/books", bookHandler.Create)
	projects.Get("/:id/books", bookHandler.ListByProject)
	books := protected.Group("/books")
	books.Get("/:id", bookHandler.GetByID)
	books.Post("/:id/populate", bookHandler.PopulateSales)
	books.Post("/:id/lines", bookHandler.AddPurchaseLine)
	books.Post("/:id/generate", bookHandler.Generate)
	books.Post("/:id/sign", bookHandler.Sign)
	books.Post("/:id/validate", bookHandler.Validate)
	books.Post("/:id/send", bookHandler.Send)
	books.Post("/:id/status", bookHandler.CheckStatus)
	books.Post("/:id/back-to-draft", bookHandler.BackToDraft)
	books.Get("/:id/xml", bookHandler.Download)

	// Simulations
	simulationHandler := NewSimulationHandler(deps.SimulationUC)
	projects.Post("/:id/simulations", simulationHandler.Create)
	projects.Get("/:id/simulations", simulationHandler.ListByProject)
	simulations := protected.Group("/simulations")
	simulations.Get("/:id", simulationHandler.GetByID)
	simulations.Get("/:id/documents", simulationHandler.Documents)
	simulations.Post("/:id/generate", simulationHandler.Generate)
	simulations.Post("/:id/envelope", simulationHandler.CreateEnvelope)
	simulations.Post("/:id/send", simulationHandler.Send)
	simulations.Post("/:id/status", simulationHandler.CheckStatus)
	simulations.Post("/:id/back-to-draft", simulationHandler.BackToDraft)

	// Exchange
	exchangeHandler := NewExchangeHandler(deps.ExchangeUC)
	projects.Post("/:id/exchange", exchangeHandler.Respond)
}
