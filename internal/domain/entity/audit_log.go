package entity

import "time"

// Acciones registradas en la bitácora.
const (
	AuditActionCreated      = "CREATED"
	AuditActionFieldUpdated = "FIELD_UPDATED"
	AuditActionItemUpdated  = "ITEM_UPDATED"
	AuditActionStatusChange = "STATUS_CHANGE"
)

// Change es la unión etiquetada de los cambios conocidos. Se modela con tipos
// concretos en lugar de un mapa abierto para no perder el shape del diff.
// Exactamente uno de Field/Item/Status viene poblado según Kind.
const (
	ChangeKindField  = "field"
	ChangeKindItem   = "item"
	ChangeKindStatus = "status"
)

// FieldChange documenta la mutación de un campo de cabecera.
type FieldChange struct {
	Field string `json:"field"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// ItemChange documenta la mutación de un campo de una línea.
type ItemChange struct {
	ItemID string `json:"item_id"`
	Field  string `json:"field"`
	From   string `json:"from"`
	To     string `json:"to"`
}

// StatusChange documenta una transición de estado, con motivo si aplica.
type StatusChange struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason,omitempty"`
}

// Change envuelve un cambio concreto con su discriminador.
type Change struct {
	Kind   string        `json:"kind"` // field, item, status
	Field  *FieldChange  `json:"field_change,omitempty"`
	Item   *ItemChange   `json:"item_change,omitempty"`
	Status *StatusChange `json:"status_change,omitempty"`
}

// AuditLogEntry es inmutable y solo-append: nunca se edita ni borra. El orden
// estable es (Timestamp, Seq); Seq desempata timestamps iguales.
type AuditLogEntry struct {
	ID        string
	InvoiceID string
	UserID    string
	UserName  string
	Action    string
	Changes   []Change
	Timestamp time.Time
	Seq       int64
}
