package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/tu-usuario/certificacion-sii/internal/application/auth"
	"github.com/tu-usuario/certificacion-sii/internal/application/certification"
	infrapdf "github.com/tu-usuario/certificacion-sii/internal/infrastructure/pdf"
	"github.com/tu-usuario/certificacion-sii/internal/infrastructure/postgres"
	infrasii "github.com/tu-usuario/certificacion-sii/internal/infrastructure/sii"
	"github.com/tu-usuario/certificacion-sii/internal/infrastructure/sii/signer"
	httpRouter "github.com/tu-usuario/certificacion-sii/internal/interfaces/http"
	"github.com/tu-usuario/certificacion-sii/pkg/config"
	"github.com/tu-usuario/certificacion-sii/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("sii_env", cfg.SII.Environment).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	// Repositorios
	userRepo := postgres.NewUserRepository(pool)
	projectRepo := postgres.NewProjectRepository(pool)
	clientRepo := postgres.NewClientInfoRepository(pool)
	caseRepo := postgres.NewCaseRepository(pool)
	folioRepo := postgres.NewFolioAssignmentRepository(pool)
	documentRepo := postgres.NewDocumentRepository(pool)
	envelopeRepo := postgres.NewEnvelopeRepository(pool)
	bookRepo := postgres.NewBookRepository(pool)
	responseRepo := postgres.NewSiiResponseRepository(pool)
	simulationRepo := postgres.NewSimulationRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	// Servicios de infraestructura SII
	signatureSvc := signer.NewSignatureService(log)
	stampSvc := infrasii.NewStampService(log)
	dteBuilder := infrasii.NewDTEBuilder(log)
	envelopeBuilder := infrasii.NewEnvelopeBuilder(log)
	bookBuilder := infrasii.NewBookBuilder(log, cfg.SII.FctProp)
	exchangeBuilder := infrasii.NewExchangeBuilder(log)
	schemaValidator := infrasii.NewSchemaValidator(cfg.SII.XSDDirs, log)
	dteRenderer := infrapdf.NewDTERenderer()

	siiClient, err := infrasii.NewClient(cfg.SII.Environment, signatureSvc, log)
	if err != nil {
		log.Fatal().Err(err).Msg("cliente SII")
	}

	// Casos de uso
	authUC := auth.NewAuthUseCase(userRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	projectUC := certification.NewProjectUseCase(
		projectRepo, clientRepo, caseRepo, folioRepo, documentRepo, envelopeRepo, bookRepo, log,
	)
	caseUC := certification.NewCaseUseCase(projectRepo, caseRepo, documentRepo, log)
	folioUC := certification.NewFolioUseCase(clientRepo, folioRepo, log)
	documentUC := certification.NewDocumentUseCase(
		txRunner, clientRepo, caseRepo, folioRepo, documentRepo,
		certification.NewDocumentAssembler(log),
		stampSvc, dteBuilder, signatureSvc, schemaValidator,
		signer.LoadCertificate, dteRenderer, log,
	)
	envelopeUC := certification.NewEnvelopeUseCase(
		clientRepo, envelopeRepo, documentRepo, responseRepo,
		envelopeBuilder, signatureSvc, schemaValidator, siiClient,
		signer.LoadCertificate, log,
	)
	bookUC := certification.NewBookUseCase(
		clientRepo, caseRepo, documentRepo, bookRepo, responseRepo,
		bookBuilder, signatureSvc, schemaValidator, siiClient,
		signer.LoadCertificate, log,
	)
	exchangeUC := certification.NewExchangeUseCase(
		clientRepo, exchangeBuilder, signatureSvc, signer.LoadCertificate, log,
	)
	simulationUC := certification.NewSimulationUseCase(
		simulationRepo, clientRepo, folioRepo, documentRepo, envelopeRepo, envelopeUC,
		stampSvc, dteBuilder, signatureSvc, signer.LoadCertificate, log,
	)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
		BodyLimit:    10 * 1024 * 1024, // CAF y sobres en base64
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Certificación SII API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:       authUC,
		ProjectUC:    projectUC,
		CaseUC:       caseUC,
		FolioUC:      folioUC,
		DocumentUC:   documentUC,
		EnvelopeUC:   envelopeUC,
		BookUC:       bookUC,
		ExchangeUC:   exchangeUC,
		SimulationUC: simulationUC,
		JWTSecret:    cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
