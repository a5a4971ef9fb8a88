package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/facturia/ocr-api/internal/application/usecase"
)

// DashboardHandler sirve el resumen operativo de la consola.
type DashboardHandler struct {
	uc *usecase.DashboardUseCase
}

// NewDashboardHandler construye el handler.
func NewDashboardHandler(uc *usecase.DashboardUseCase) *DashboardHandler {
	return &DashboardHandler{uc: uc}
}

// Summary devuelve los conteos por estado y los indicadores de atención.
// GET /api/dashboard
func (h *DashboardHandler) Summary(c *fiber.Ctx) error {
	summary, err := h.uc.Summary(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(summary)
}
