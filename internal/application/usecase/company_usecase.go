package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/facturia/ocr-api/internal/application/dto"
	"github.com/facturia/ocr-api/internal/domain"
	"github.com/facturia/ocr-api/internal/domain/entity"
	"github.com/facturia/ocr-api/internal/domain/repository"
)

// CompanyUseCase aplica reglas de negocio del catálogo de empresas.
// El invoice_count nunca se almacena: se deriva contando facturas en el
// momento de la lectura, así la creación concurrente de facturas no necesita
// bloquear el registro de la empresa.
type CompanyUseCase struct {
	repo        repository.CompanyRepository
	invoiceRepo repository.InvoiceRepository
}

// NewCompanyUseCase construye el caso de uso con sus puertos.
func NewCompanyUseCase(repo repository.CompanyRepository, invoiceRepo repository.InvoiceRepository) *CompanyUseCase {
	return &CompanyUseCase{repo: repo, invoiceRepo: invoiceRepo}
}

// Create crea una empresa. Devuelve domain.ErrDuplicate si el tax_id ya existe.
func (uc *CompanyUseCase) Create(ctx context.Context, in dto.CreateCompanyRequest) (*dto.CompanyResponse, error) {
	if in.TaxID == "" || in.Name == "" || !entity.ValidCompanyType(in.Type) {
		return nil, domain.ErrInvalidInput
	}
	existing, _ := uc.repo.GetByTaxID(ctx, in.TaxID)
	if existing != nil {
		return nil, domain.ErrDuplicate
	}
	now := time.Now()
	company := &entity.Company{
		ID:             uuid.New().String(),
		TaxID:          in.TaxID,
		Name:           in.Name,
		CommercialName: in.CommercialName,
		Type:           in.Type,
		Address:        in.Address,
		Email:          in.Email,
		Phone:          in.Phone,
		Website:        in.Website,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uc.repo.Create(ctx, company); err != nil {
		return nil, err
	}
	return uc.toResponse(ctx, company), nil
}

// Update modifica los datos de contacto de una empresa. El tax_id es
// inmutable después de la creación.
func (uc *CompanyUseCase) Update(ctx context.Context, id string, in dto.UpdateCompanyRequest) (*dto.CompanyResponse, error) {
	company, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, domain.ErrNotFound
	}
	if in.Name != "" {
		company.Name = in.Name
	}
	if in.Type != "" {
		if !entity.ValidCompanyType(in.Type) {
			return nil, domain.ErrInvalidInput
		}
		company.Type = in.Type
	}
	company.CommercialName = in.CommercialName
	company.Address = in.Address
	company.Email = in.Email
	company.Phone = in.Phone
	company.Website = in.Website
	company.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, company); err != nil {
		return nil, err
	}
	return uc.toResponse(ctx, company), nil
}

// GetByID obtiene una empresa con su conteo derivado.
func (uc *CompanyUseCase) GetByID(ctx context.Context, id string) (*dto.CompanyResponse, error) {
	company, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, domain.ErrNotFound
	}
	return uc.toResponse(ctx, company), nil
}

// List lista empresas con paginación.
func (uc *CompanyUseCase) List(ctx context.Context, limit, offset int) (*dto.CompanyListResponse, error) {
	list, err := uc.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.CompanyResponse, 0, len(list))
	for _, c := range list {
		items = append(items, *uc.toResponse(ctx, c))
	}
	return &dto.CompanyListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

func (uc *CompanyUseCase) toResponse(ctx context.Context, c *entity.Company) *dto.CompanyResponse {
	count, err := uc.invoiceRepo.CountByCompany(ctx, c.ID)
	if err != nil {
		count = 0 // el conteo es informativo; un fallo de lectura no rompe el catálogo
	}
	return &dto.CompanyResponse{
		ID:             c.ID,
		TaxID:          c.TaxID,
		Name:           c.Name,
		CommercialName: c.CommercialName,
		Type:           c.Type,
		Address:        c.Address,
		Email:          c.Email,
		Phone:          c.Phone,
		Website:        c.Website,
		InvoiceCount:   count,
		CreatedAt:      c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      c.UpdatedAt.Format(time.RFC3339),
	}
}
