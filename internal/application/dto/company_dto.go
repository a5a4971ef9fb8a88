package dto

// CreateCompanyRequest alta de empresa en el catálogo.
type CreateCompanyRequest struct {
	TaxID          string `json:"tax_id"`
	Name           string `json:"name"`
	CommercialName string `json:"commercial_name,omitempty"`
	Type           string `json:"type"` // EMISOR, RECEPTOR, AMBOS
	Address        string `json:"address,omitempty"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Website        string `json:"website,omitempty"`
}

// UpdateCompanyRequest edición de empresa; tax_id es inmutable.
type UpdateCompanyRequest struct {
	Name           string `json:"name,omitempty"`
	CommercialName string `json:"commercial_name,omitempty"`
	Type           string `json:"type,omitempty"`
	Address        string `json:"address,omitempty"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Website        string `json:"website,omitempty"`
}

// CompanyResponse empresa con su conteo derivado de facturas.
type CompanyResponse struct {
	ID             string `json:"id"`
	TaxID          string `json:"tax_id"`
	Name           string `json:"name"`
	CommercialName string `json:"commercial_name,omitempty"`
	Type           string `json:"type"`
	Address        string `json:"address,omitempty"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Website        string `json:"website,omitempty"`
	InvoiceCount   int    `json:"invoice_count"` // derivado, calculado bajo demanda
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// CompanyListResponse listado paginado.
type CompanyListResponse struct {
	Items []CompanyResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}
