package repository

import (
	"context"

	"github.com/facturia/ocr-api/internal/domain/entity"
)

// CompanyRepository es el puerto de persistencia del catálogo de empresas.
type CompanyRepository interface {
	Create(ctx context.Context, c *entity.Company) error
	Update(ctx context.Context, c *entity.Company) error
	GetByID(ctx context.Context, id string) (*entity.Company, error)
	GetByTaxID(ctx context.Context, taxID string) (*entity.Company, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Company, error)
}
