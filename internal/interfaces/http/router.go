package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/facturia/ocr-api/internal/application/auth"
	"github.com/facturia/ocr-api/internal/application/billing"
	"github.com/facturia/ocr-api/internal/application/usecase"
	"github.com/facturia/ocr-api/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Engine       *billing.Engine
	Orchestrator *billing.OCROrchestrator
	ExportUC     *billing.ExportUseCase
	CompanyUC    *usecase.CompanyUseCase
	DashboardUC  *usecase.DashboardUseCase
	AuthUC       *auth.AuthUseCase
	JWTSecret    string
}

// Router registra las rutas de la API. Las lecturas requieren cualquier rol
// autenticado; las mutaciones (crear, editar, transicionar, despachar)
// requieren admin u operator.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	mutator := RequireRole(entity.RoleAdmin, entity.RoleOperator)

	// Dashboard (protegido)
	dashboardHandler := NewDashboardHandler(deps.DashboardUC)
	protected.Get("/dashboard", dashboardHandler.Summary)

	// Companies (protegido)
	companies := protected.Group("/companies")
	companyHandler := NewCompanyHandler(deps.CompanyUC)
	companies.Get("/", companyHandler.List)
	companies.Post("/", mutator, companyHandler.Create)
	companies.Get("/:id", companyHandler.GetByID)
	companies.Put("/:id", mutator, companyHandler.Update)

	// Invoices (protegido)
	invoices := protected.Group("/invoices")
	invoiceHandler := NewInvoiceHandler(deps.Engine, deps.Orchestrator)
	exportHandler := NewExportHandler(deps.ExportUC)
	invoices.Get("/", invoiceHandler.List)
	invoices.Post("/", mutator, invoiceHandler.Create)
	// /export antes de /:id para que Fiber no lo capture como id.
	invoices.Get("/export", exportHandler.ExportList)
	invoices.Get("/:id", invoiceHandler.GetByID)
	invoices.Patch("/:id", mutator, invoiceHandler.ApplyEdit)
	invoices.Post("/:id/transition", mutator, invoiceHandler.Transition)
	invoices.Get("/:id/findings", invoiceHandler.Validate)
	invoices.Get("/:id/audit", invoiceHandler.AuditTrail)
	invoices.Get("/:id/export", exportHandler.ExportOne)
	invoices.Post("/:id/dispatch", mutator, invoiceHandler.Dispatch)
	invoices.Post("/:id/cancel", mutator, invoiceHandler.CancelDispatch)
}
