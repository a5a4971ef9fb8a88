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
	"github.com/shopspring/decimal"

	"github.com/facturia/ocr-api/internal/application/auth"
	"github.com/facturia/ocr-api/internal/application/billing"
	"github.com/facturia/ocr-api/internal/application/usecase"
	domainbilling "github.com/facturia/ocr-api/internal/domain/billing"
	"github.com/facturia/ocr-api/internal/infrastructure/export"
	"github.com/facturia/ocr-api/internal/infrastructure/ocr"
	"github.com/facturia/ocr-api/internal/infrastructure/postgres"
	httpRouter "github.com/facturia/ocr-api/internal/interfaces/http"
	"github.com/facturia/ocr-api/pkg/config"
	"github.com/facturia/ocr-api/pkg/logger"
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
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	invoiceRepo := postgres.NewInvoiceRepository(pool)
	companyRepo := postgres.NewCompanyRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	auditRepo := postgres.NewAuditLogRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	valPolicy := validationPolicy(cfg.Policy, log)
	appPolicy := approvalPolicy(cfg.Policy, log)

	engine := billing.NewEngine(txRunner, invoiceRepo, auditRepo, valPolicy, appPolicy, log)

	ocrClient := ocr.NewHTTPClient(
		cfg.OCR.PaddleURL, cfg.OCR.DoclingURL, cfg.OCR.TesseractURL, cfg.OCR.Timeout,
	)
	orchestrator := billing.NewOCROrchestrator(
		ocrClient, txRunner, invoiceRepo, valPolicy, appPolicy, cfg.OCR.Timeout, log,
	)

	exportUC := billing.NewExportUseCase(
		invoiceRepo,
		export.NewMarotoPDFRenderer(),
		export.NewEtreeXMLRenderer(),
	)
	companyUC := usecase.NewCompanyUseCase(companyRepo, invoiceRepo)
	dashboardUC := usecase.NewDashboardUseCase(invoiceRepo)
	authUC := auth.NewAuthUseCase(userRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Facturia OCR API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Engine:       engine,
		Orchestrator: orchestrator,
		ExportUC:     exportUC,
		CompanyUC:    companyUC,
		DashboardUC:  dashboardUC,
		AuthUC:       authUC,
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

// validationPolicy arma la política de validación desde la configuración.
// Un umbral mal formado cae al valor por defecto con un warning; los umbrales
// nunca tumban el arranque.
func validationPolicy(p config.PolicyConfig, log *logger.Logger) domainbilling.ValidationPolicy {
	policy := domainbilling.DefaultValidationPolicy()
	policy.Epsilon = parseThreshold(p.Epsilon, policy.Epsilon, "POLICY_EPSILON", log)
	policy.ReviewThreshold = parseThreshold(p.ReviewThreshold, policy.ReviewThreshold, "POLICY_REVIEW_THRESHOLD", log)
	policy.HardFloor = parseThreshold(p.HardFloor, policy.HardFloor, "POLICY_HARD_FLOOR", log)
	return policy
}

// approvalPolicy arma la política de aprobación automática.
func approvalPolicy(p config.PolicyConfig, log *logger.Logger) domainbilling.ApprovalPolicy {
	policy := domainbilling.DefaultApprovalPolicy()
	policy.AutoApproveEnabled = p.AutoApproveEnabled
	policy.AutoApproveThreshold = parseThreshold(p.AutoApproveThreshold, policy.AutoApproveThreshold, "POLICY_AUTO_APPROVE_THRESHOLD", log)
	return policy
}

func parseThreshold(raw string, fallback decimal.Decimal, name string, log *logger.Logger) decimal.Decimal {
	if raw == "" {
		return fallback
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		log.Warn().Str("var", name).Str("valor", raw).Msg("umbral inválido, usando valor por defecto")
		return fallback
	}
	return d
}
