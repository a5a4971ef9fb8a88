package entity

import "time"

// Tipos de empresa en el catálogo.
const (
	CompanyTypeEmisor   = "EMISOR"
	CompanyTypeReceptor = "RECEPTOR"
	CompanyTypeAmbos    = "AMBOS"
)

// ValidCompanyType indica si t es un tipo de empresa conocido.
func ValidCompanyType(t string) bool {
	switch t {
	case CompanyTypeEmisor, CompanyTypeReceptor, CompanyTypeAmbos:
		return true
	}
	return false
}

// Company es una entidad del catálogo de empresas. TaxID es único dentro del
// catálogo. InvoiceCount NO es un campo persistido: siempre se deriva contando
// facturas, nunca se mantiene como contador incrementable (evita lost updates
// con creación concurrente de facturas).
type Company struct {
	ID             string
	TaxID          string
	Name           string
	CommercialName string
	Type           string // EMISOR, RECEPTOR, AMBOS
	Address        string
	Email          string
	Phone          string
	Website        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
