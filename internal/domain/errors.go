package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrEmailAlreadyExists = errors.New("el email ya está registrado")

	// Aritmética monetaria y cálculo de líneas.
	ErrCurrencyMismatch = errors.New("monedas distintas en operación monetaria")
	ErrInvalidPercent   = errors.New("porcentaje fuera del rango [0,100]")

	// Ciclo de vida y mutaciones de factura.
	ErrIllegalTransition      = errors.New("transición de estado no permitida")
	ErrPermissionDenied       = errors.New("rol sin permiso para la operación")
	ErrConcurrentModification = errors.New("la factura fue modificada por otro usuario")

	// Extracción OCR.
	ErrExtractionFailed = errors.New("la extracción OCR falló")
	ErrTimeout          = errors.New("la extracción OCR excedió el tiempo máximo")
	ErrCancelled        = errors.New("la extracción OCR fue cancelada")
)
