package usecase

import (
	"context"

	"github.com/facturia/ocr-api/internal/application/dto"
	"github.com/facturia/ocr-api/internal/domain/entity"
	"github.com/facturia/ocr-api/internal/domain/repository"
)

// DashboardUseCase arma los conteos agregados de la consola.
type DashboardUseCase struct {
	invoiceRepo repository.InvoiceRepository
}

// NewDashboardUseCase construye el caso de uso.
func NewDashboardUseCase(invoiceRepo repository.InvoiceRepository) *DashboardUseCase {
	return &DashboardUseCase{invoiceRepo: invoiceRepo}
}

// Summary devuelve los conteos por estado y los derivados de revisión.
func (uc *DashboardUseCase) Summary(ctx context.Context) (*dto.DashboardResponse, error) {
	byStatus, err := uc.invoiceRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	byEngine, err := uc.invoiceRepo.CountByEngine(ctx)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, n := range byStatus {
		total += n
	}
	return &dto.DashboardResponse{
		TotalInvoices:   total,
		ByStatus:        byStatus,
		ByEngine:        byEngine,
		PendingReview:   byStatus[entity.StatusCompleted],
		ProcessingCount: byStatus[entity.StatusProcessing],
		ErrorCount:      byStatus[entity.StatusError],
	}, nil
}
