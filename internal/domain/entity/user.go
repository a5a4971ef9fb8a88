package entity

import "time"

// Roles válidos para User. El motor confía en el rol ya autenticado:
// admin y operator pueden editar, aprobar, rechazar y reintentar;
// viewer solo lee.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
	RoleViewer   = "viewer"
)

// ValidRole indica si r es un rol conocido.
func ValidRole(r string) bool {
	switch r {
	case RoleAdmin, RoleOperator, RoleViewer:
		return true
	}
	return false
}

// CanMutate indica si el rol puede aplicar ediciones o transiciones.
func CanMutate(role string) bool {
	return role == RoleAdmin || role == RoleOperator
}

// User representa un usuario del sistema.
type User struct {
	ID           string
	Email        string
	PasswordHash string // bcrypt hash, nunca plano en dominio después de persistir
	Name         string
	Role         string // admin, operator, viewer
	Status       string // active, inactive
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ActingUser es la identidad mínima que acompaña toda llamada mutadora.
// La provee el colaborador de identidad; el motor no re-autentica.
type ActingUser struct {
	ID   string
	Name string
	Role string
}
